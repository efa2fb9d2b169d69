package service

import (
	"context"
	"errors"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"

	"github.com/sirupsen/logrus"
)

// NotificationService 管理用户通知面板：最近 50 条，支持已读标记和清空。
type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	if notifications == nil {
		panic("NotificationRepository cannot be nil for NotificationService")
	}
	return &NotificationService{notifications: notifications}
}

// maxNotifications 是面板显示的通知条数上限。
const maxNotifications = 50

// CreateInviteNotification 为被邀请用户创建一条邀请通知。
func (s *NotificationService) CreateInviteNotification(ctx context.Context, userID, sessionID uint, sessionName, inviterEmail string) error {
	n := &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationTypeInvite,
		Title:   "Session Invitation",
		Message: inviterEmail + " invited you to join \"" + sessionName + "\"",
	}
	if err := n.SetData(domain.InvitePayload{SessionID: sessionID, InviterEmail: inviterEmail}); err != nil {
		return err
	}
	if err := s.notifications.Save(ctx, n); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to save invite notification")
		return ErrInternalServer
	}
	return nil
}

// List 返回用户最近的通知，新的在前。
func (s *NotificationService) List(ctx context.Context, userID uint) ([]domain.Notification, error) {
	notifications, err := s.notifications.ListByUser(ctx, userID, maxNotifications)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list notifications")
		return nil, ErrInternalServer
	}
	return notifications, nil
}

// MarkRead 标记单条通知为已读。只能操作自己的通知。
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	if err := s.notifications.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		logrus.WithError(err).WithField("notification_id", id).Error("Failed to mark notification read")
		return ErrInternalServer
	}
	return nil
}

// MarkAllRead 标记用户全部通知为已读。
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to mark all notifications read")
		return ErrInternalServer
	}
	return nil
}

// Delete 删除单条通知。
func (s *NotificationService) Delete(ctx context.Context, id, userID uint) error {
	if err := s.notifications.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		logrus.WithError(err).WithField("notification_id", id).Error("Failed to delete notification")
		return ErrInternalServer
	}
	return nil
}

// ClearAll 清空用户的全部通知。
func (s *NotificationService) ClearAll(ctx context.Context, userID uint) error {
	if err := s.notifications.DeleteAllByUser(ctx, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to clear notifications")
		return ErrInternalServer
	}
	return nil
}
