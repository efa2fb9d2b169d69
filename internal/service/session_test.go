package service_test

import (
	"context"
	"testing"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
	"collaborative-workspace/internal/repository/mocks"
	"collaborative-workspace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// sessionFixture 组装带 mock 依赖的 SessionService。
type sessionFixture struct {
	sessions     *mocks.SessionRepository
	participants *mocks.ParticipantRepository
	invites      *mocks.InviteRepository
	messages     *mocks.MessageRepository
	bus          *mocks.FakeEventBus
	svc          *service.SessionService
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		sessions:     new(mocks.SessionRepository),
		participants: new(mocks.ParticipantRepository),
		invites:      new(mocks.InviteRepository),
		messages:     new(mocks.MessageRepository),
		bus:          mocks.NewFakeEventBus(),
	}
	f.svc = service.NewSessionService(f.sessions, f.participants, f.invites, f.messages, f.bus, nil)
	return f
}

func testSession(id, hostID uint) *domain.CollabSession {
	return &domain.CollabSession{
		ID:              id,
		HostID:          hostID,
		Name:            "Study Group",
		CodeContent:     domain.DefaultCodeContent,
		CodeLanguage:    domain.DefaultCodeLanguage,
		MaxParticipants: domain.DefaultMaxParticipants,
	}
}

func TestSessionService_CreateSession_Defaults(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.On("Save", ctx, mock.MatchedBy(func(s *domain.CollabSession) bool {
		// 新会话带起始代码和默认容量
		assert.Equal(t, domain.DefaultCodeContent, s.CodeContent)
		assert.Equal(t, "javascript", s.CodeLanguage)
		assert.Equal(t, 4, s.MaxParticipants)
		assert.Equal(t, uint(1), s.HostID)
		return true
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.CollabSession).ID = 10
	}).Return(nil).Once()

	session, err := f.svc.CreateSession(ctx, 1, "Study Group")
	require.NoError(t, err)
	assert.Equal(t, uint(10), session.ID)
	f.sessions.AssertExpectations(t)
}

func TestSessionService_JoinSession_Full(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil).Once()
	f.participants.On("CountBySession", ctx, uint(10)).Return(int64(4), nil).Once()

	_, err := f.svc.JoinSession(ctx, 5, 10)
	assert.ErrorIs(t, err, service.ErrCapacityExceeded)
	f.participants.AssertNotCalled(t, "Upsert")
}

func TestSessionService_JoinSession_NotFound(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.On("FindByID", ctx, uint(99)).Return(nil, repository.ErrSessionNotFound).Once()

	_, err := f.svc.JoinSession(ctx, 5, 99)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestSessionService_JoinSession_ParticipantRegistered(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil).Once()
	f.participants.On("CountBySession", ctx, uint(10)).Return(int64(2), nil).Once()
	f.participants.On("Upsert", ctx, mock.MatchedBy(func(p *domain.SessionParticipant) bool {
		return p.SessionID == 10 && p.UserID == 5
	})).Return(nil).Once()
	f.messages.On("ListBySession", ctx, uint(10)).Return([]domain.SessionMessage{}, nil).Once()
	f.participants.On("ListBySession", ctx, uint(10)).Return([]domain.SessionParticipant{{SessionID: 10, UserID: 5}}, nil).Once()
	f.invites.On("ListBySession", ctx, uint(10)).Return([]domain.SessionInvite{}, nil).Once()

	data, err := f.svc.JoinSession(ctx, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, uint(10), data.Session.ID)
	assert.Contains(t, f.bus.PublishedTypes(10), domain.EventParticipantsChanged)
	f.participants.AssertExpectations(t)
}

func TestSessionService_JoinSession_HostSkipsParticipantRow(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil).Once()
	f.participants.On("CountBySession", ctx, uint(10)).Return(int64(0), nil).Once()
	f.messages.On("ListBySession", ctx, uint(10)).Return(nil, nil).Once()
	f.participants.On("ListBySession", ctx, uint(10)).Return(nil, nil).Once()
	f.invites.On("ListBySession", ctx, uint(10)).Return(nil, nil).Once()

	_, err := f.svc.JoinSession(ctx, 1, 10)
	require.NoError(t, err)
	// 主持人不占参与者行
	f.participants.AssertNotCalled(t, "Upsert")
}

func TestSessionService_InviteByEmail_CapacityCountsNonDeclined(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	// 3 个参与者 + 0 个未拒绝邀请: 第一个邀请成功
	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil)
	f.invites.On("ListBySession", ctx, uint(10)).Return([]domain.SessionInvite{}, nil).Once()
	f.participants.On("CountBySession", ctx, uint(10)).Return(int64(3), nil).Once()
	f.invites.On("Save", ctx, mock.AnythingOfType("*domain.SessionInvite")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.SessionInvite).ID = 77 }).
		Return(nil).Once()

	invite, err := f.svc.InviteByEmail(ctx, 1, "host@example.com", 10, "first@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.InviteStatusPending, invite.Status)

	// 3 个参与者 + 1 个 pending 邀请: 第二个邀请超出容量
	f.invites.On("ListBySession", ctx, uint(10)).Return([]domain.SessionInvite{
		{ID: 77, SessionID: 10, Email: "first@example.com", Status: domain.InviteStatusPending},
	}, nil).Once()
	f.participants.On("CountBySession", ctx, uint(10)).Return(int64(3), nil).Once()

	_, err = f.svc.InviteByEmail(ctx, 1, "host@example.com", 10, "second@example.com")
	assert.ErrorIs(t, err, service.ErrCapacityExceeded)
}

func TestSessionService_InviteByEmail_DeclinedInvitesFreeCapacity(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	// 已拒绝的邀请不占名额
	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil).Once()
	f.invites.On("ListBySession", ctx, uint(10)).Return([]domain.SessionInvite{
		{ID: 1, SessionID: 10, Email: "no@example.com", Status: domain.InviteStatusDeclined},
	}, nil).Once()
	f.participants.On("CountBySession", ctx, uint(10)).Return(int64(3), nil).Once()
	f.invites.On("Save", ctx, mock.AnythingOfType("*domain.SessionInvite")).Return(nil).Once()

	_, err := f.svc.InviteByEmail(ctx, 1, "host@example.com", 10, "yes@example.com")
	assert.NoError(t, err)
}

func TestSessionService_InviteByEmail_Duplicate(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil).Once()
	f.invites.On("ListBySession", ctx, uint(10)).Return([]domain.SessionInvite{
		{ID: 1, SessionID: 10, Email: "taken@example.com", Status: domain.InviteStatusDeclined},
	}, nil).Once()

	// 即使之前被拒绝，同一邮箱也不能重复邀请
	_, err := f.svc.InviteByEmail(ctx, 1, "host@example.com", 10, "taken@example.com")
	assert.ErrorIs(t, err, service.ErrDuplicateInvite)
	f.invites.AssertNotCalled(t, "Save")
}

func TestSessionService_DeleteSession_HostOnly(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil)

	// 非主持人删除被拒绝
	err := f.svc.DeleteSession(ctx, 5, 10)
	assert.ErrorIs(t, err, service.ErrNotHost)
	f.sessions.AssertNotCalled(t, "Delete")

	// 主持人删除成功并广播删除事件
	f.sessions.On("Delete", ctx, uint(10)).Return(nil).Once()
	err = f.svc.DeleteSession(ctx, 1, 10)
	require.NoError(t, err)
	assert.Contains(t, f.bus.PublishedTypes(10), domain.EventSessionDeleted)
}

func TestSessionService_LeaveSession_HostCannotLeave(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil).Once()

	err := f.svc.LeaveSession(ctx, 1, 10)
	assert.ErrorIs(t, err, service.ErrHostCannotLeave)
	f.participants.AssertNotCalled(t, "Delete")
}

func TestSessionService_LeaveSession_RemovesParticipant(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil).Once()
	f.participants.On("Delete", ctx, uint(10), uint(5)).Return(nil).Once()

	err := f.svc.LeaveSession(ctx, 5, 10)
	require.NoError(t, err)
	assert.Contains(t, f.bus.PublishedTypes(10), domain.EventParticipantsChanged)
}

func TestSessionService_SendMessage_PublishesInsertEvent(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.messages.On("Save", ctx, mock.MatchedBy(func(m *domain.SessionMessage) bool {
		return m.SessionID == 10 && m.Content == "hello" && !m.IsAIResponse
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.SessionMessage).ID = 42
	}).Return(nil).Once()

	msg, err := f.svc.SendMessage(ctx, 10, 5, "alice@example.com", "hello")
	require.NoError(t, err)
	assert.Equal(t, uint(42), msg.ID)

	published := f.bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.EventMessageInserted, published[0].Event.Type)
	decoded, err := published[0].Event.MessagePayload()
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded.Content)
}

func TestSessionService_SendAIMessage_UsesSentinelIdentity(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.messages.On("Save", ctx, mock.MatchedBy(func(m *domain.SessionMessage) bool {
		return m.UserID == domain.AIUserID && m.UserLabel == domain.AIUserLabel && m.IsAIResponse
	})).Return(nil).Once()

	_, err := f.svc.SendAIMessage(ctx, 10, "here is the answer")
	assert.NoError(t, err)
	f.messages.AssertExpectations(t)
}

func TestSessionService_UpdateCode_BroadcastsSnapshot(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	updated := testSession(10, 1)
	updated.CodeContent = "console.log('v2');"

	f.sessions.On("UpdateCode", ctx, uint(10), "console.log('v2');").Return(nil).Once()
	f.sessions.On("FindByID", ctx, uint(10)).Return(updated, nil).Once()

	err := f.svc.UpdateCode(ctx, 10, "console.log('v2');")
	require.NoError(t, err)

	published := f.bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.EventSessionUpdated, published[0].Event.Type)
	snapshot, err := published[0].Event.SessionPayload()
	require.NoError(t, err)
	assert.Equal(t, "console.log('v2');", snapshot.CodeContent)
}

func TestSessionService_AcceptInvite_JoinsSession(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.invites.On("UpdateStatus", ctx, uint(7), domain.InviteStatusAccepted).Return(nil).Once()
	f.participants.On("Upsert", ctx, mock.AnythingOfType("*domain.SessionParticipant")).Return(nil).Twice() // accept + join
	f.sessions.On("FindByID", ctx, uint(10)).Return(testSession(10, 1), nil).Once()
	f.participants.On("CountBySession", ctx, uint(10)).Return(int64(1), nil).Once()
	f.messages.On("ListBySession", ctx, uint(10)).Return(nil, nil).Once()
	f.participants.On("ListBySession", ctx, uint(10)).Return(nil, nil).Once()
	f.invites.On("ListBySession", ctx, uint(10)).Return(nil, nil).Once()

	data, err := f.svc.AcceptInvite(ctx, 5, 7, 10)
	require.NoError(t, err)
	assert.Equal(t, uint(10), data.Session.ID)
	assert.Contains(t, f.bus.PublishedTypes(10), domain.EventInvitesChanged)
}

func TestSessionService_DeclineInvite(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.invites.On("FindByID", ctx, uint(7)).
		Return(&domain.SessionInvite{ID: 7, SessionID: 10, Email: "x@example.com", Status: domain.InviteStatusPending}, nil).Once()
	f.invites.On("UpdateStatus", ctx, uint(7), domain.InviteStatusDeclined).Return(nil).Once()

	err := f.svc.DeclineInvite(ctx, 7)
	require.NoError(t, err)
	assert.Contains(t, f.bus.PublishedTypes(10), domain.EventInvitesChanged)
}
