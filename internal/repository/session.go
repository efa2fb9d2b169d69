package repository

import (
	"context"
	"time"

	"collaborative-workspace/internal/domain"
)

// SessionRepository 定义了协作会话数据的存储和检索操作。
type SessionRepository interface {
	// FindByID 根据会话 ID 查找会话。
	// 如果会话不存在，返回 ErrSessionNotFound。
	FindByID(ctx context.Context, id uint) (*domain.CollabSession, error)

	// ListAll 按创建时间倒序返回全部会话 (会话列表页)。
	ListAll(ctx context.Context) ([]domain.CollabSession, error)

	// Save 保存会话信息。已存在 (基于 ID) 则更新，否则创建。
	Save(ctx context.Context, session *domain.CollabSession) error

	// UpdateCode 只写会话的代码内容字段。
	UpdateCode(ctx context.Context, id uint, code string) error

	// UpdateLanguage 只写会话的代码语言字段。
	UpdateLanguage(ctx context.Context, id uint, language string) error

	// Delete 删除会话。参与者/邀请/消息行在存储层级联删除。
	Delete(ctx context.Context, id uint) error
}

// ParticipantRepository 定义了会话参与者的存储操作。
type ParticipantRepository interface {
	// Upsert 幂等地插入参与者，(session_id, user_id) 冲突时不产生新行。
	Upsert(ctx context.Context, participant *domain.SessionParticipant) error

	// Delete 删除指定 (session, user) 的参与者行 (用户主动离开)。
	Delete(ctx context.Context, sessionID, userID uint) error

	// ListBySession 返回会话的全部参与者。
	ListBySession(ctx context.Context, sessionID uint) ([]domain.SessionParticipant, error)

	// CountBySession 返回会话的当前参与者数。
	// 容量检查用计数查询而非事务，两个并发加入可能同时通过 (已知竞态)。
	CountBySession(ctx context.Context, sessionID uint) (int64, error)
}

// InviteRepository 定义了会话邀请的存储操作。
type InviteRepository interface {
	// FindByID 根据邀请 ID 查找邀请，不存在时返回 ErrInviteNotFound。
	FindByID(ctx context.Context, id uint) (*domain.SessionInvite, error)

	// Save 插入或更新邀请。
	Save(ctx context.Context, invite *domain.SessionInvite) error

	// UpdateStatus 更新邀请状态 (pending/accepted/declined)。
	UpdateStatus(ctx context.Context, id uint, status string) error

	// ListBySession 返回会话的全部邀请。
	// 会话内邮箱唯一性未由存储约束保证，在应用逻辑中检查。
	ListBySession(ctx context.Context, sessionID uint) ([]domain.SessionInvite, error)

	// ListPendingByEmail 返回发给某邮箱且仍为 pending 的邀请。
	ListPendingByEmail(ctx context.Context, email string) ([]domain.SessionInvite, error)

	// DeleteDeclinedBefore 删除在指定时间之前创建且已被拒绝的邀请，返回删除行数。
	DeleteDeclinedBefore(ctx context.Context, before time.Time) (int64, error)
}

// MessageRepository 定义了会话消息 (追加日志) 的存储操作。
type MessageRepository interface {
	// Save 追加一条消息。消息创建后不可变。
	Save(ctx context.Context, msg *domain.SessionMessage) error

	// ListBySession 按创建时间升序返回会话的全部消息。
	ListBySession(ctx context.Context, sessionID uint) ([]domain.SessionMessage, error)
}
