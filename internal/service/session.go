package service

import (
	"context"
	"errors"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"

	"github.com/sirupsen/logrus"
)

// InviteNotifier 把邀请通知的投递移出请求路径 (由 asynq 任务实现)。
type InviteNotifier interface {
	EnqueueInviteNotification(ctx context.Context, invite domain.SessionInvite, sessionName, inviterEmail string) error
}

// SessionData 是加入会话时一次性加载的完整数据包。
type SessionData struct {
	Session      *domain.CollabSession
	Messages     []domain.SessionMessage
	Participants []domain.SessionParticipant
	Invites      []domain.SessionInvite
}

// SessionService 负责协作会话的全部业务逻辑：生命周期、加入/邀请、
// 消息追加和代码字段写入。每次存储写入完成后向会话频道发布对应的
// 行变更事件；发布失败只记录日志，存储才是事实来源。
type SessionService struct {
	sessions     repository.SessionRepository
	participants repository.ParticipantRepository
	invites      repository.InviteRepository
	messages     repository.MessageRepository
	bus          repository.EventBus
	notifier     InviteNotifier
}

// NewSessionService 创建 SessionService 实例。notifier 可为 nil (不发通知)。
func NewSessionService(
	sessions repository.SessionRepository,
	participants repository.ParticipantRepository,
	invites repository.InviteRepository,
	messages repository.MessageRepository,
	bus repository.EventBus,
	notifier InviteNotifier,
) *SessionService {
	if sessions == nil || participants == nil || invites == nil || messages == nil {
		panic("all repositories must be non-nil for SessionService")
	}
	if bus == nil {
		panic("EventBus cannot be nil for SessionService")
	}
	return &SessionService{
		sessions:     sessions,
		participants: participants,
		invites:      invites,
		messages:     messages,
		bus:          bus,
		notifier:     notifier,
	}
}

// publish 发布事件到会话频道。发布失败不回滚已完成的存储写入。
func (s *SessionService) publish(ctx context.Context, sessionID uint, event domain.Event) {
	if err := s.bus.Publish(ctx, sessionID, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"event_type": event.Type,
		}).Error("Failed to publish event after store write")
	}
}

// CreateSession 用默认起始代码创建一个新会话。
func (s *SessionService) CreateSession(ctx context.Context, hostID uint, name string) (*domain.CollabSession, error) {
	logCtx := logrus.WithFields(logrus.Fields{"host_id": hostID, "session_name": name})

	if name == "" {
		return nil, ErrInvalidInput
	}

	session := &domain.CollabSession{
		HostID:          hostID,
		Name:            name,
		CodeContent:     domain.DefaultCodeContent,
		CodeLanguage:    domain.DefaultCodeLanguage,
		MaxParticipants: domain.DefaultMaxParticipants,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		logCtx.WithError(err).Error("Failed to save new session")
		return nil, ErrInternalServer
	}

	logCtx.WithField("session_id", session.ID).Info("Session created successfully")
	return session, nil
}

// ListSessions 返回全部会话 (会话列表页，创建时间倒序)。
func (s *SessionService) ListSessions(ctx context.Context) ([]domain.CollabSession, error) {
	sessions, err := s.sessions.ListAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list sessions")
		return nil, ErrInternalServer
	}
	return sessions, nil
}

// JoinSession 处理用户加入会话：检查容量，非主持人则幂等插入参与者行，
// 然后加载会话的消息/参与者/邀请。
// 容量检查是先读后写、无事务隔离的：两个几乎同时的加入可能都通过检查，
// 短暂超出 4 人上限。小团队规模下可接受，这是已知竞态。
func (s *SessionService) JoinSession(ctx context.Context, userID, sessionID uint) (*SessionData, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			logCtx.Warn("JoinSession: Session not found")
			return nil, ErrSessionNotFound
		}
		logCtx.WithError(err).Error("JoinSession: Repository error")
		return nil, ErrInternalServer
	}

	count, err := s.participants.CountBySession(ctx, sessionID)
	if err != nil {
		logCtx.WithError(err).Error("JoinSession: Failed to count participants")
		return nil, ErrInternalServer
	}
	if count >= int64(session.MaxParticipants) {
		logCtx.WithField("participant_count", count).Warn("JoinSession: Session is full")
		return nil, ErrCapacityExceeded
	}

	if session.HostID != userID {
		participant := &domain.SessionParticipant{SessionID: sessionID, UserID: userID}
		if err := s.participants.Upsert(ctx, participant); err != nil {
			logCtx.WithError(err).Error("JoinSession: Failed to upsert participant")
			return nil, ErrInternalServer
		}
		s.publish(ctx, sessionID, domain.NewParticipantsChangedEvent(sessionID))
	}

	data, err := s.loadSessionData(ctx, session)
	if err != nil {
		logCtx.WithError(err).Error("JoinSession: Failed to load session data")
		return nil, ErrInternalServer
	}
	logCtx.Info("User joined session successfully")
	return data, nil
}

// GetSessionData 加载完整的数据包但不执行加入流程，房间初始化快照用。
func (s *SessionService) GetSessionData(ctx context.Context, sessionID uint) (*SessionData, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("GetSessionData: Repository error")
		return nil, ErrInternalServer
	}
	data, err := s.loadSessionData(ctx, session)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("GetSessionData: Failed to load session data")
		return nil, ErrInternalServer
	}
	return data, nil
}

// loadSessionData 加载会话的消息、参与者和邀请。
func (s *SessionService) loadSessionData(ctx context.Context, session *domain.CollabSession) (*SessionData, error) {
	messages, err := s.messages.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	participants, err := s.participants.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	invites, err := s.invites.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &SessionData{
		Session:      session,
		Messages:     messages,
		Participants: participants,
		Invites:      invites,
	}, nil
}

// LoadRoster 返回会话当前的参与者和邀请，供投影在表变更事件后整体重载。
func (s *SessionService) LoadRoster(ctx context.Context, sessionID uint) ([]domain.SessionParticipant, []domain.SessionInvite, error) {
	participants, err := s.participants.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, ErrInternalServer
	}
	invites, err := s.invites.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, ErrInternalServer
	}
	return participants, invites, nil
}

// InviteByEmail 邀请某个邮箱加入会话。
// 不变式: 未拒绝的邀请数 + 参与者数不得超过会话容量。
// 会话内邮箱唯一性由这里的应用检查保证，存储层没有对应约束。
func (s *SessionService) InviteByEmail(ctx context.Context, inviterID uint, inviterEmail string, sessionID uint, email string) (*domain.SessionInvite, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"inviter_id": inviterID,
		"session_id": sessionID,
		"email":      email,
	})

	if email == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		logCtx.WithError(err).Error("InviteByEmail: Repository error")
		return nil, ErrInternalServer
	}

	invites, err := s.invites.ListBySession(ctx, sessionID)
	if err != nil {
		logCtx.WithError(err).Error("InviteByEmail: Failed to list invites")
		return nil, ErrInternalServer
	}
	for _, inv := range invites {
		if inv.Email == email {
			logCtx.Warn("InviteByEmail: Email already invited")
			return nil, ErrDuplicateInvite
		}
	}

	participantCount, err := s.participants.CountBySession(ctx, sessionID)
	if err != nil {
		logCtx.WithError(err).Error("InviteByEmail: Failed to count participants")
		return nil, ErrInternalServer
	}
	occupied := participantCount
	for _, inv := range invites {
		if inv.Status != domain.InviteStatusDeclined {
			occupied++
		}
	}
	if occupied >= int64(session.MaxParticipants) {
		logCtx.WithField("occupied", occupied).Warn("InviteByEmail: Capacity exceeded")
		return nil, ErrCapacityExceeded
	}

	invite := &domain.SessionInvite{
		SessionID: sessionID,
		Email:     email,
		Status:    domain.InviteStatusPending,
		InvitedBy: inviterID,
	}
	if err := s.invites.Save(ctx, invite); err != nil {
		logCtx.WithError(err).Error("InviteByEmail: Failed to save invite")
		return nil, ErrInternalServer
	}
	s.publish(ctx, sessionID, domain.NewInvitesChangedEvent(sessionID))

	// 通知投递走后台任务；入队失败不影响已创建的邀请
	if s.notifier != nil {
		if err := s.notifier.EnqueueInviteNotification(ctx, *invite, session.Name, inviterEmail); err != nil {
			logCtx.WithError(err).Error("InviteByEmail: Failed to enqueue invite notification")
		}
	}

	logCtx.WithField("invite_id", invite.ID).Info("Invite created successfully")
	return invite, nil
}

// AcceptInvite 接受邀请：更新状态、插入参与者行，然后执行完整的加入流程。
func (s *SessionService) AcceptInvite(ctx context.Context, userID, inviteID, sessionID uint) (*SessionData, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"invite_id":  inviteID,
		"session_id": sessionID,
	})

	if err := s.invites.UpdateStatus(ctx, inviteID, domain.InviteStatusAccepted); err != nil {
		if errors.Is(err, repository.ErrInviteNotFound) {
			return nil, ErrInviteNotFound
		}
		logCtx.WithError(err).Error("AcceptInvite: Failed to update invite status")
		return nil, ErrInternalServer
	}

	participant := &domain.SessionParticipant{SessionID: sessionID, UserID: userID}
	if err := s.participants.Upsert(ctx, participant); err != nil {
		logCtx.WithError(err).Error("AcceptInvite: Failed to insert participant")
		return nil, ErrInternalServer
	}
	s.publish(ctx, sessionID, domain.NewParticipantsChangedEvent(sessionID))
	s.publish(ctx, sessionID, domain.NewInvitesChangedEvent(sessionID))

	logCtx.Info("Invite accepted")
	return s.JoinSession(ctx, userID, sessionID)
}

// DeclineInvite 拒绝邀请。
func (s *SessionService) DeclineInvite(ctx context.Context, inviteID uint) error {
	invite, err := s.invites.FindByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, repository.ErrInviteNotFound) {
			return ErrInviteNotFound
		}
		logrus.WithError(err).WithField("invite_id", inviteID).Error("DeclineInvite: Repository error")
		return ErrInternalServer
	}
	if err := s.invites.UpdateStatus(ctx, inviteID, domain.InviteStatusDeclined); err != nil {
		logrus.WithError(err).WithField("invite_id", inviteID).Error("DeclineInvite: Failed to update status")
		return ErrInternalServer
	}
	s.publish(ctx, invite.SessionID, domain.NewInvitesChangedEvent(invite.SessionID))
	return nil
}

// ListPendingInvites 返回发给某邮箱的全部待处理邀请。
func (s *SessionService) ListPendingInvites(ctx context.Context, email string) ([]domain.SessionInvite, error) {
	invites, err := s.invites.ListPendingByEmail(ctx, email)
	if err != nil {
		logrus.WithError(err).WithField("email", email).Error("Failed to list pending invites")
		return nil, ErrInternalServer
	}
	return invites, nil
}

// SendMessage 向会话聊天日志追加一条用户消息。
func (s *SessionService) SendMessage(ctx context.Context, sessionID, userID uint, userLabel, content string) (*domain.SessionMessage, error) {
	if content == "" {
		return nil, ErrInvalidInput
	}
	if userLabel == "" {
		userLabel = "Anonymous"
	}
	msg := &domain.SessionMessage{
		SessionID: sessionID,
		UserID:    userID,
		UserLabel: userLabel,
		Content:   content,
	}
	return s.appendMessage(ctx, msg)
}

// SendAIMessage 以 AI 哨兵身份追加一条带标记的 AI 回复。
func (s *SessionService) SendAIMessage(ctx context.Context, sessionID uint, content string) (*domain.SessionMessage, error) {
	msg := &domain.SessionMessage{
		SessionID:    sessionID,
		UserID:       domain.AIUserID,
		UserLabel:    domain.AIUserLabel,
		Content:      content,
		IsAIResponse: true,
	}
	return s.appendMessage(ctx, msg)
}

func (s *SessionService) appendMessage(ctx context.Context, msg *domain.SessionMessage) (*domain.SessionMessage, error) {
	if err := s.messages.Save(ctx, msg); err != nil {
		logrus.WithError(err).WithField("session_id", msg.SessionID).Error("Failed to append message")
		return nil, ErrInternalServer
	}
	event, err := domain.NewMessageInsertedEvent(msg)
	if err != nil {
		logrus.WithError(err).Error("Failed to build message event")
		return msg, nil
	}
	s.publish(ctx, msg.SessionID, event)
	return msg, nil
}

// UpdateCode 写会话的代码内容字段并广播更新后的快照。
// 调用方负责去抖动 (500ms 空闲)；本方法每次调用产生一次写入。
func (s *SessionService) UpdateCode(ctx context.Context, sessionID uint, code string) error {
	if err := s.sessions.UpdateCode(ctx, sessionID, code); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to update session code")
		return ErrInternalServer
	}
	s.publishSessionSnapshot(ctx, sessionID)
	return nil
}

// UpdateLanguage 写会话的代码语言字段并广播更新后的快照。
func (s *SessionService) UpdateLanguage(ctx context.Context, sessionID uint, language string) error {
	if err := s.sessions.UpdateLanguage(ctx, sessionID, language); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to update session language")
		return ErrInternalServer
	}
	s.publishSessionSnapshot(ctx, sessionID)
	return nil
}

// publishSessionSnapshot 重新读取会话行并作为 SessionUpdated 事件广播。
// 快照整体替换是调和协议的约定：订阅端不做字段级合并。
func (s *SessionService) publishSessionSnapshot(ctx context.Context, sessionID uint) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to reload session for snapshot event")
		return
	}
	event, err := domain.NewSessionUpdatedEvent(session)
	if err != nil {
		logrus.WithError(err).Error("Failed to build session event")
		return
	}
	s.publish(ctx, sessionID, event)
}

// LeaveSession 处理参与者离开。主持人身份定义会话归属，
// 不能离开，只能删除会话。
func (s *SessionService) LeaveSession(ctx context.Context, userID, sessionID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		logCtx.WithError(err).Error("LeaveSession: Repository error")
		return ErrInternalServer
	}
	if session.HostID == userID {
		return ErrHostCannotLeave
	}

	if err := s.participants.Delete(ctx, sessionID, userID); err != nil {
		logCtx.WithError(err).Error("LeaveSession: Failed to delete participant")
		return ErrInternalServer
	}
	s.publish(ctx, sessionID, domain.NewParticipantsChangedEvent(sessionID))
	logCtx.Info("User left session")
	return nil
}

// DeleteSession 删除会话。仅主持人可删除；参与者/邀请/消息在存储层级联。
func (s *SessionService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		logCtx.WithError(err).Error("DeleteSession: Repository error")
		return ErrInternalServer
	}
	if session.HostID != userID {
		logCtx.Warn("DeleteSession: Non-host attempted to delete session")
		return ErrNotHost
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		logCtx.WithError(err).Error("DeleteSession: Failed to delete session")
		return ErrInternalServer
	}
	s.publish(ctx, sessionID, domain.NewSessionDeletedEvent(sessionID))
	logCtx.Info("Session deleted")
	return nil
}
