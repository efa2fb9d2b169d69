package redisbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-workspace/internal/domain"
)

func newTestBus(t *testing.T) *RedisEventBus {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisEventBus(client, "cw:")
}

func waitForEvent(t *testing.T, events <-chan domain.Event) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

func TestRedisEventBus_PublishSubscribeRoundtrip(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, 10)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	sent, err := domain.NewMessageInsertedEvent(&domain.SessionMessage{
		ID: 1, SessionID: 10, UserID: 5, UserLabel: "alice", Content: "hello over the wire",
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, 10, sent))

	got := waitForEvent(t, sub.Events())
	assert.Equal(t, domain.EventMessageInserted, got.Type)
	assert.Equal(t, uint(10), got.SessionID)

	msg, err := got.MessagePayload()
	require.NoError(t, err)
	assert.Equal(t, "hello over the wire", msg.Content)
}

func TestRedisEventBus_SessionIsolation(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	sub10, err := bus.Subscribe(ctx, 10)
	require.NoError(t, err)
	defer sub10.Unsubscribe()
	sub20, err := bus.Subscribe(ctx, 20)
	require.NoError(t, err)
	defer sub20.Unsubscribe()

	require.NoError(t, bus.Publish(ctx, 20, domain.NewParticipantsChangedEvent(20)))

	got := waitForEvent(t, sub20.Events())
	assert.Equal(t, uint(20), got.SessionID)

	// 另一个会话的订阅者不应收到任何东西
	select {
	case ev := <-sub10.Events():
		t.Fatalf("subscriber for session 10 received stray event %q", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisEventBus_EventsWithoutPayload(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, 10)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, bus.Publish(ctx, 10, domain.NewSessionDeletedEvent(10)))

	got := waitForEvent(t, sub.Events())
	assert.Equal(t, domain.EventSessionDeleted, got.Type)
}

func TestRedisEventBus_UnsubscribeClosesChannelIdempotently(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, 10)
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe() // 幂等

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "events channel should be closed after Unsubscribe")
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after Unsubscribe")
	}
}

func TestNewRedisEventBus_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { NewRedisEventBus(nil, "") })
}
