package state

import (
	"sync"

	"collaborative-workspace/internal/domain"

	"github.com/sirupsen/logrus"
)

// ReloadFunc 在参与者/邀请表发生任何变更时被调用，整体重载两张表。
// 在 ≤4 人的会话规模下整表重载比增量合并更简单也足够便宜。
type ReloadFunc func(sessionID uint) ([]domain.SessionParticipant, []domain.SessionInvite, error)

// SessionProjection 是单个活跃会话在客户端的本地投影：
// 会话快照、消息日志、参与者名册和邀请列表，全部由权威事件重建，
// 唯一的变更入口是 Apply。代码编辑先写本地缓冲 (乐观)，在缓冲仍为
// 脏状态时远端快照不会覆盖显示内容 —— 客户端自己写入的回声可能在
// 后续本地编辑之前或之后到达，本地缓冲在 dirty 期间始终优先。
type SessionProjection struct {
	mu sync.RWMutex

	session      *domain.CollabSession
	messages     []domain.SessionMessage
	participants []domain.SessionParticipant
	invites      []domain.SessionInvite

	localCode  string
	localDirty bool

	reload  ReloadFunc
	deleted bool
}

// NewSessionProjection 以初始加载的数据创建投影。
func NewSessionProjection(session *domain.CollabSession, messages []domain.SessionMessage,
	participants []domain.SessionParticipant, invites []domain.SessionInvite, reload ReloadFunc) *SessionProjection {
	if session == nil {
		panic("session cannot be nil for SessionProjection")
	}
	snapshot := *session
	return &SessionProjection{
		session:      &snapshot,
		messages:     append([]domain.SessionMessage(nil), messages...),
		participants: append([]domain.SessionParticipant(nil), participants...),
		invites:      append([]domain.SessionInvite(nil), invites...),
		localCode:    snapshot.CodeContent,
		reload:       reload,
	}
}

// Apply 把一个总线事件调和进本地投影。
//   - 消息插入按到达顺序追加 (插入单调，无需排序或去重)。
//   - 会话行更新整体替换快照 (last-write-wins)。
//   - 参与者/邀请表变更触发整体重载。
func (p *SessionProjection) Apply(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || event.SessionID != p.session.ID {
		// 订阅应随会话切换而取消；跨会话事件直接丢弃
		logrus.WithFields(logrus.Fields{
			"event_type":       event.Type,
			"event_session_id": event.SessionID,
		}).Warn("Projection: Dropping event for another session")
		return
	}

	switch event.Type {
	case domain.EventMessageInserted:
		msg, err := event.MessagePayload()
		if err != nil {
			logrus.WithError(err).Warn("Projection: Bad message payload")
			return
		}
		p.messages = append(p.messages, *msg)

	case domain.EventSessionUpdated:
		session, err := event.SessionPayload()
		if err != nil {
			logrus.WithError(err).Warn("Projection: Bad session payload")
			return
		}
		p.session = session
		if !p.localDirty {
			p.localCode = session.CodeContent
		}

	case domain.EventParticipantsChanged, domain.EventInvitesChanged:
		p.reloadRoster(event.SessionID)

	case domain.EventSessionDeleted:
		p.deleted = true

	default:
		logrus.WithField("event_type", event.Type).Warn("Projection: Unknown event type")
	}
}

func (p *SessionProjection) reloadRoster(sessionID uint) {
	if p.reload == nil {
		return
	}
	participants, invites, err := p.reload(sessionID)
	if err != nil {
		// 重载失败保留旧名册，下一个变更事件会重试
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Projection: Roster reload failed")
		return
	}
	p.participants = participants
	p.invites = invites
}

// SetLocalCode 同步更新本地代码缓冲并标记为脏。
// 调用方负责把同一个值交给 Debouncer 以安排数据库写入。
func (p *SessionProjection) SetLocalCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.localCode = code
	p.localDirty = true
}

// MarkCodeFlushed 在去抖动写入发出后清除脏标记。
// 之后到达的远端快照重新成为显示内容的来源。
func (p *SessionProjection) MarkCodeFlushed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.localDirty = false
}

// DisplayCode 返回应当展示的代码：本地缓冲为脏时优先本地缓冲，
// 否则使用权威快照的内容。
func (p *SessionProjection) DisplayCode() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.localDirty {
		return p.localCode
	}
	return p.session.CodeContent
}

// Session 返回会话快照的副本。
func (p *SessionProjection) Session() domain.CollabSession {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return *p.session
}

// Messages 返回消息日志的副本。
func (p *SessionProjection) Messages() []domain.SessionMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.SessionMessage(nil), p.messages...)
}

// Participants 返回参与者名册的副本。
func (p *SessionProjection) Participants() []domain.SessionParticipant {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.SessionParticipant(nil), p.participants...)
}

// Invites 返回邀请列表的副本。
func (p *SessionProjection) Invites() []domain.SessionInvite {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.SessionInvite(nil), p.invites...)
}

// Deleted 报告会话是否已被主持人删除。
func (p *SessionProjection) Deleted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.deleted
}
