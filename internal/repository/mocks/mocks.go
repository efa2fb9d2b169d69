// Package mocks 提供 repository 接口的 testify mock 实现，仅测试使用。
package mocks

import (
	"context"
	"time"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"

	"github.com/stretchr/testify/mock"
)

// UserRepository 是 repository.UserRepository 的 mock。
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	args := m.Called(ctx, id)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// SessionRepository 是 repository.SessionRepository 的 mock。
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) FindByID(ctx context.Context, id uint) (*domain.CollabSession, error) {
	args := m.Called(ctx, id)
	var session *domain.CollabSession
	if args.Get(0) != nil {
		session = args.Get(0).(*domain.CollabSession)
	}
	return session, args.Error(1)
}

func (m *SessionRepository) ListAll(ctx context.Context) ([]domain.CollabSession, error) {
	args := m.Called(ctx)
	var sessions []domain.CollabSession
	if args.Get(0) != nil {
		sessions = args.Get(0).([]domain.CollabSession)
	}
	return sessions, args.Error(1)
}

func (m *SessionRepository) Save(ctx context.Context, session *domain.CollabSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionRepository) UpdateCode(ctx context.Context, id uint, code string) error {
	args := m.Called(ctx, id, code)
	return args.Error(0)
}

func (m *SessionRepository) UpdateLanguage(ctx context.Context, id uint, language string) error {
	args := m.Called(ctx, id, language)
	return args.Error(0)
}

func (m *SessionRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ParticipantRepository 是 repository.ParticipantRepository 的 mock。
type ParticipantRepository struct {
	mock.Mock
}

func (m *ParticipantRepository) Upsert(ctx context.Context, participant *domain.SessionParticipant) error {
	args := m.Called(ctx, participant)
	return args.Error(0)
}

func (m *ParticipantRepository) Delete(ctx context.Context, sessionID, userID uint) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *ParticipantRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.SessionParticipant, error) {
	args := m.Called(ctx, sessionID)
	var participants []domain.SessionParticipant
	if args.Get(0) != nil {
		participants = args.Get(0).([]domain.SessionParticipant)
	}
	return participants, args.Error(1)
}

func (m *ParticipantRepository) CountBySession(ctx context.Context, sessionID uint) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

// InviteRepository 是 repository.InviteRepository 的 mock。
type InviteRepository struct {
	mock.Mock
}

func (m *InviteRepository) FindByID(ctx context.Context, id uint) (*domain.SessionInvite, error) {
	args := m.Called(ctx, id)
	var invite *domain.SessionInvite
	if args.Get(0) != nil {
		invite = args.Get(0).(*domain.SessionInvite)
	}
	return invite, args.Error(1)
}

func (m *InviteRepository) Save(ctx context.Context, invite *domain.SessionInvite) error {
	args := m.Called(ctx, invite)
	return args.Error(0)
}

func (m *InviteRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *InviteRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.SessionInvite, error) {
	args := m.Called(ctx, sessionID)
	var invites []domain.SessionInvite
	if args.Get(0) != nil {
		invites = args.Get(0).([]domain.SessionInvite)
	}
	return invites, args.Error(1)
}

func (m *InviteRepository) ListPendingByEmail(ctx context.Context, email string) ([]domain.SessionInvite, error) {
	args := m.Called(ctx, email)
	var invites []domain.SessionInvite
	if args.Get(0) != nil {
		invites = args.Get(0).([]domain.SessionInvite)
	}
	return invites, args.Error(1)
}

func (m *InviteRepository) DeleteDeclinedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MessageRepository 是 repository.MessageRepository 的 mock。
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Save(ctx context.Context, msg *domain.SessionMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.SessionMessage, error) {
	args := m.Called(ctx, sessionID)
	var messages []domain.SessionMessage
	if args.Get(0) != nil {
		messages = args.Get(0).([]domain.SessionMessage)
	}
	return messages, args.Error(1)
}

// FileRepository 是 repository.FileRepository 的 mock。
type FileRepository struct {
	mock.Mock
}

func (m *FileRepository) FindByID(ctx context.Context, id uint) (*domain.FileNode, error) {
	args := m.Called(ctx, id)
	var node *domain.FileNode
	if args.Get(0) != nil {
		node = args.Get(0).(*domain.FileNode)
	}
	return node, args.Error(1)
}

func (m *FileRepository) ListByOwner(ctx context.Context, userID uint) ([]domain.FileNode, error) {
	args := m.Called(ctx, userID)
	var nodes []domain.FileNode
	if args.Get(0) != nil {
		nodes = args.Get(0).([]domain.FileNode)
	}
	return nodes, args.Error(1)
}

func (m *FileRepository) Save(ctx context.Context, node *domain.FileNode) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

func (m *FileRepository) UpdateNameAndPath(ctx context.Context, id uint, name, path string) error {
	args := m.Called(ctx, id, name, path)
	return args.Error(0)
}

func (m *FileRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	args := m.Called(ctx, id, content)
	return args.Error(0)
}

func (m *FileRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// NotificationRepository 是 repository.NotificationRepository 的 mock。
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *NotificationRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, limit)
	var notifications []domain.Notification
	if args.Get(0) != nil {
		notifications = args.Get(0).([]domain.Notification)
	}
	return notifications, args.Error(1)
}

func (m *NotificationRepository) MarkRead(ctx context.Context, id, userID uint) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *NotificationRepository) Delete(ctx context.Context, id, userID uint) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *NotificationRepository) DeleteAllByUser(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// 编译期检查 mock 满足接口
var (
	_ repository.UserRepository         = (*UserRepository)(nil)
	_ repository.SessionRepository      = (*SessionRepository)(nil)
	_ repository.ParticipantRepository  = (*ParticipantRepository)(nil)
	_ repository.InviteRepository       = (*InviteRepository)(nil)
	_ repository.MessageRepository      = (*MessageRepository)(nil)
	_ repository.FileRepository         = (*FileRepository)(nil)
	_ repository.NotificationRepository = (*NotificationRepository)(nil)
)
