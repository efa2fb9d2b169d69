package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"collaborative-workspace/internal/domain"
)

// GormNotificationRepository 是 NotificationRepository 接口的 GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository 创建 GormNotificationRepository 实例
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormNotificationRepository")
	}
	return &GormNotificationRepository{db: db}
}

// Save 实现插入一条通知
func (r *GormNotificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("gorm: save notification (user: %d): %w", notification.UserID, err)
	}
	return nil
}

// ListByUser 实现按创建时间倒序返回某用户最新的 limit 条通知
func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list notifications for user %d: %w", userID, err)
	}
	return notifications, nil
}

// MarkRead 实现将单条通知标记为已读 (以接收者限定)
func (r *GormNotificationRepository) MarkRead(ctx context.Context, id, userID uint) error {
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true).Error
	if err != nil {
		return fmt.Errorf("gorm: mark notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead 实现将某用户的全部未读通知标记为已读
func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Update("read", true).Error
	if err != nil {
		return fmt.Errorf("gorm: mark all notifications read for user %d: %w", userID, err)
	}
	return nil
}

// Delete 实现删除单条通知 (以接收者限定)
func (r *GormNotificationRepository) Delete(ctx context.Context, id, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Notification{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete notification %d: %w", id, err)
	}
	return nil
}

// DeleteAllByUser 实现清空某用户的全部通知
func (r *GormNotificationRepository) DeleteAllByUser(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.Notification{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete all notifications for user %d: %w", userID, err)
	}
	return nil
}
