package domain

import (
	"encoding/json"
	"fmt"
)

// 实时总线上的事件类型。每种类型对应一张表的行级变更。
const (
	EventSessionUpdated      = "session_updated"
	EventSessionDeleted      = "session_deleted"
	EventMessageInserted     = "message_inserted"
	EventParticipantsChanged = "participants_changed"
	EventInvitesChanged      = "invites_changed"
)

// Event 是在会话频道上传递的行级变更事件。
// 负载在边界处解码为具体类型，核心逻辑不接触未类型化数据。
type Event struct {
	Type      string          `json:"type"`
	SessionID uint            `json:"session_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewSessionUpdatedEvent 构造会话行更新事件，负载为更新后的完整快照。
func NewSessionUpdatedEvent(session *CollabSession) (Event, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal session for event: %w", err)
	}
	return Event{Type: EventSessionUpdated, SessionID: session.ID, Payload: raw}, nil
}

// NewMessageInsertedEvent 构造消息插入事件。
func NewMessageInsertedEvent(msg *SessionMessage) (Event, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal message for event: %w", err)
	}
	return Event{Type: EventMessageInserted, SessionID: msg.SessionID, Payload: raw}, nil
}

// NewParticipantsChangedEvent 构造参与者表变更事件。
// 负载不携带行数据：订阅方收到后整体重载参与者和邀请 (≤4 人规模下重载优于增量合并)。
func NewParticipantsChangedEvent(sessionID uint) Event {
	return Event{Type: EventParticipantsChanged, SessionID: sessionID}
}

// NewInvitesChangedEvent 构造邀请表变更事件。
func NewInvitesChangedEvent(sessionID uint) Event {
	return Event{Type: EventInvitesChanged, SessionID: sessionID}
}

// NewSessionDeletedEvent 构造会话删除事件。
func NewSessionDeletedEvent(sessionID uint) Event {
	return Event{Type: EventSessionDeleted, SessionID: sessionID}
}

// SessionPayload 解码 SessionUpdated 事件的负载。
func (e Event) SessionPayload() (*CollabSession, error) {
	if e.Type != EventSessionUpdated {
		return nil, fmt.Errorf("event type %q carries no session payload", e.Type)
	}
	var session CollabSession
	if err := json.Unmarshal(e.Payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session payload: %w", err)
	}
	return &session, nil
}

// MessagePayload 解码 MessageInserted 事件的负载。
func (e Event) MessagePayload() (*SessionMessage, error) {
	if e.Type != EventMessageInserted {
		return nil, fmt.Errorf("event type %q carries no message payload", e.Type)
	}
	var msg SessionMessage
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message payload: %w", err)
	}
	return &msg, nil
}
