package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-workspace/internal/service"
	"collaborative-workspace/internal/tasks"
)

// InviteNotifyHandler 处理邀请通知任务：按邮箱找到被邀请用户并写入通知。
// 被邀请邮箱没有注册用户时任务直接完成，不重试。
type InviteNotifyHandler struct {
	authService         *service.AuthService
	notificationService *service.NotificationService
}

func NewInviteNotifyHandler(authService *service.AuthService, notificationService *service.NotificationService) *InviteNotifyHandler {
	if authService == nil || notificationService == nil {
		panic("services cannot be nil for InviteNotifyHandler")
	}
	return &InviteNotifyHandler{
		authService:         authService,
		notificationService: notificationService,
	}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *InviteNotifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.InviteNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal invite notify payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type":  t.Type(),
		"invite_id":  payload.InviteID,
		"session_id": payload.SessionID,
		"email":      payload.Email,
	})
	logCtx.Info("Processing invite notification task...")

	user, err := h.authService.FindUserByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logCtx.Info("Invited email has no registered user, skipping notification")
			return nil
		}
		logCtx.WithError(err).Error("Failed to look up invited user")
		return err
	}

	if err := h.notificationService.CreateInviteNotification(ctx, user.ID, payload.SessionID, payload.SessionName, payload.InviterEmail); err != nil {
		logCtx.WithError(err).Error("Failed to create invite notification")
		return err
	}

	logCtx.WithField("user_id", user.ID).Info("Invite notification delivered")
	return nil
}
