package repository

import (
	"context"

	"collaborative-workspace/internal/domain"
)

// NotificationRepository 定义了用户通知的存储操作。
// 所有变更操作都以接收者 userID 限定，保证只有接收者能修改自己的通知。
type NotificationRepository interface {
	// Save 插入一条通知。
	Save(ctx context.Context, notification *domain.Notification) error

	// ListByUser 按创建时间倒序返回某用户最新的 limit 条通知。
	ListByUser(ctx context.Context, userID uint, limit int) ([]domain.Notification, error)

	// MarkRead 将单条通知标记为已读。
	MarkRead(ctx context.Context, id, userID uint) error

	// MarkAllRead 将某用户的全部未读通知标记为已读。
	MarkAllRead(ctx context.Context, userID uint) error

	// Delete 删除单条通知。
	Delete(ctx context.Context, id, userID uint) error

	// DeleteAllByUser 清空某用户的全部通知。
	DeleteAllByUser(ctx context.Context, userID uint) error
}
