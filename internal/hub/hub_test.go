package hub

import (
	"encoding/json"
	"testing"
	"time"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository/mocks"
	"collaborative-workspace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// hubFixture 组装一个以 mock 存储和假事件总线为后端的 Hub。
type hubFixture struct {
	sessions     *mocks.SessionRepository
	participants *mocks.ParticipantRepository
	invites      *mocks.InviteRepository
	messages     *mocks.MessageRepository
	bus          *mocks.FakeEventBus
	hub          *Hub
}

func newHubFixture() *hubFixture {
	f := &hubFixture{
		sessions:     new(mocks.SessionRepository),
		participants: new(mocks.ParticipantRepository),
		invites:      new(mocks.InviteRepository),
		messages:     new(mocks.MessageRepository),
		bus:          mocks.NewFakeEventBus(),
	}
	svc := service.NewSessionService(f.sessions, f.participants, f.invites, f.messages, f.bus, nil)
	f.hub = NewHub(svc, f.bus)
	return f
}

// stubSessionLoad 配置一次完整的会话数据装载，loadDelay 模拟慢存储。
func (f *hubFixture) stubSessionLoad(sessionID uint, loadDelay time.Duration) {
	f.sessions.On("FindByID", mock.Anything, sessionID).
		Run(func(mock.Arguments) {
			if loadDelay > 0 {
				time.Sleep(loadDelay)
			}
		}).
		Return(&domain.CollabSession{
			ID:              sessionID,
			HostID:          1,
			Name:            "Room",
			CodeContent:     domain.DefaultCodeContent,
			CodeLanguage:    domain.DefaultCodeLanguage,
			MaxParticipants: domain.DefaultMaxParticipants,
		}, nil)
	f.messages.On("ListBySession", mock.Anything, sessionID).Return(nil, nil)
	f.participants.On("ListBySession", mock.Anything, sessionID).Return(nil, nil)
	f.invites.On("ListBySession", mock.Anything, sessionID).Return(nil, nil)
}

func (f *hubFixture) hasRoom(sessionID uint) bool {
	f.hub.roomsMu.RLock()
	defer f.hub.roomsMu.RUnlock()
	_, ok := f.hub.rooms[sessionID]
	return ok
}

func readClientMessage(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client message")
		return nil
	}
}

func TestHub_RegisterClient_CreatesRoomAndSendsSnapshot(t *testing.T) {
	f := newHubFixture()
	f.stubSessionLoad(10, 0)

	client := NewClient(f.hub, nil, 10, 5)
	f.hub.registerClient(client)

	assert.True(t, f.hasRoom(10))

	msg := readClientMessage(t, client)
	assert.Equal(t, "snapshot", msg["type"])
	session, ok := msg["session"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(10), session["id"])
}

func TestHub_RegisterClient_SecondClientJoinsExistingRoom(t *testing.T) {
	f := newHubFixture()
	f.stubSessionLoad(10, 0)

	first := NewClient(f.hub, nil, 10, 5)
	second := NewClient(f.hub, nil, 10, 6)
	f.hub.registerClient(first)
	f.hub.registerClient(second)

	f.hub.roomsMu.RLock()
	r := f.hub.rooms[10]
	f.hub.roomsMu.RUnlock()
	require.NotNil(t, r)
	assert.Len(t, r.clients, 2)

	// 会话数据只装载一次，第二个客户端复用房间投影
	f.sessions.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestHub_RegisterClient_SlowRoomLoadDoesNotBlockOtherSessions(t *testing.T) {
	f := newHubFixture()
	f.stubSessionLoad(10, 500*time.Millisecond)
	f.stubSessionLoad(20, 0)

	slow := NewClient(f.hub, nil, 10, 5)
	done := make(chan struct{})
	go func() {
		f.hub.registerClient(slow)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond) // 让慢装载先进入存储调用

	// 另一个会话的注册不应等慢房间装载完
	fast := NewClient(f.hub, nil, 20, 6)
	start := time.Now()
	f.hub.registerClient(fast)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.True(t, f.hasRoom(20))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("slow registration never finished")
	}
	assert.True(t, f.hasRoom(10))
}

func TestHub_UnregisterClient_RemovesEmptyRoom(t *testing.T) {
	f := newHubFixture()
	f.stubSessionLoad(10, 0)

	client := NewClient(f.hub, nil, 10, 5)
	f.hub.registerClient(client)
	require.True(t, f.hasRoom(10))

	f.hub.unregisterClient(client)
	assert.False(t, f.hasRoom(10))

	// send 通道随客户端注销而关闭
	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client send channel not closed after unregister")
	}
}
