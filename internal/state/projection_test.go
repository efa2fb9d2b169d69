package state

import (
	"errors"
	"testing"

	"collaborative-workspace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectionSession() *domain.CollabSession {
	return &domain.CollabSession{
		ID:              10,
		HostID:          1,
		Name:            "Pairing",
		CodeContent:     "console.log('v1');",
		CodeLanguage:    "javascript",
		MaxParticipants: domain.DefaultMaxParticipants,
	}
}

func TestSessionProjection_AppendsMessages(t *testing.T) {
	p := NewSessionProjection(projectionSession(), nil, nil, nil, nil)

	ev, err := domain.NewMessageInsertedEvent(&domain.SessionMessage{
		ID: 1, SessionID: 10, UserID: 5, UserLabel: "alice", Content: "hi",
	})
	require.NoError(t, err)
	p.Apply(ev)

	ev, err = domain.NewMessageInsertedEvent(&domain.SessionMessage{
		ID: 2, SessionID: 10, UserID: 0, UserLabel: "AI Assistant", Content: "hello", IsAIResponse: true,
	})
	require.NoError(t, err)
	p.Apply(ev)

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.True(t, msgs[1].IsAIResponse)
}

func TestSessionProjection_SessionUpdateReplacesSnapshot(t *testing.T) {
	p := NewSessionProjection(projectionSession(), nil, nil, nil, nil)

	updated := projectionSession()
	updated.CodeContent = "console.log('v2');"
	updated.CodeLanguage = "typescript"
	ev, err := domain.NewSessionUpdatedEvent(updated)
	require.NoError(t, err)
	p.Apply(ev)

	assert.Equal(t, "typescript", p.Session().CodeLanguage)
	assert.Equal(t, "console.log('v2');", p.DisplayCode())
}

func TestSessionProjection_LocalDirtyBufferWins(t *testing.T) {
	p := NewSessionProjection(projectionSession(), nil, nil, nil, nil)

	p.SetLocalCode("local draft")
	assert.Equal(t, "local draft", p.DisplayCode())

	// 脏状态下远端快照不覆盖显示内容
	remote := projectionSession()
	remote.CodeContent = "remote echo"
	ev, err := domain.NewSessionUpdatedEvent(remote)
	require.NoError(t, err)
	p.Apply(ev)
	assert.Equal(t, "local draft", p.DisplayCode())

	// 落盘后恢复以权威快照为准
	p.MarkCodeFlushed()
	assert.Equal(t, "remote echo", p.DisplayCode())
}

func TestSessionProjection_RosterReloadOnChange(t *testing.T) {
	reloads := 0
	reload := func(sessionID uint) ([]domain.SessionParticipant, []domain.SessionInvite, error) {
		reloads++
		return []domain.SessionParticipant{{SessionID: sessionID, UserID: 5}},
			[]domain.SessionInvite{{ID: 3, SessionID: sessionID, Email: "x@example.com", Status: domain.InviteStatusPending}},
			nil
	}
	p := NewSessionProjection(projectionSession(), nil, nil, nil, reload)

	p.Apply(domain.NewParticipantsChangedEvent(10))
	require.Equal(t, 1, reloads)
	require.Len(t, p.Participants(), 1)
	assert.Equal(t, uint(5), p.Participants()[0].UserID)

	p.Apply(domain.NewInvitesChangedEvent(10))
	assert.Equal(t, 2, reloads)
	assert.Len(t, p.Invites(), 1)
}

func TestSessionProjection_RosterReloadFailureKeepsOldRoster(t *testing.T) {
	reload := func(sessionID uint) ([]domain.SessionParticipant, []domain.SessionInvite, error) {
		return nil, nil, errors.New("db down")
	}
	initial := []domain.SessionParticipant{{SessionID: 10, UserID: 5}}
	p := NewSessionProjection(projectionSession(), nil, initial, nil, reload)

	p.Apply(domain.NewParticipantsChangedEvent(10))
	assert.Len(t, p.Participants(), 1)
}

func TestSessionProjection_DropsCrossSessionEvents(t *testing.T) {
	p := NewSessionProjection(projectionSession(), nil, nil, nil, nil)

	ev, err := domain.NewMessageInsertedEvent(&domain.SessionMessage{ID: 1, SessionID: 99, Content: "stray"})
	require.NoError(t, err)
	p.Apply(ev)

	assert.Empty(t, p.Messages())
}

func TestSessionProjection_DeletedFlag(t *testing.T) {
	p := NewSessionProjection(projectionSession(), nil, nil, nil, nil)
	assert.False(t, p.Deleted())

	p.Apply(domain.NewSessionDeletedEvent(10))
	assert.True(t, p.Deleted())
}

func TestNewSessionProjection_NilSessionPanics(t *testing.T) {
	assert.Panics(t, func() { NewSessionProjection(nil, nil, nil, nil, nil) })
}
