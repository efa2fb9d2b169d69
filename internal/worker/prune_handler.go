package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-workspace/internal/repository"
)

// declinedInviteRetention 是已拒绝邀请的保留期，过期后由周期任务清理。
const declinedInviteRetention = 30 * 24 * time.Hour

// InvitePruneHandler 处理周期性的已拒绝邀请清理任务。
type InvitePruneHandler struct {
	invites repository.InviteRepository
}

func NewInvitePruneHandler(invites repository.InviteRepository) *InvitePruneHandler {
	if invites == nil {
		panic("InviteRepository cannot be nil for InvitePruneHandler")
	}
	return &InvitePruneHandler{invites: invites}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *InvitePruneHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())
	logCtx.Info("Processing declined invite prune task...")

	cutoff := time.Now().Add(-declinedInviteRetention)
	deleted, err := h.invites.DeleteDeclinedBefore(ctx, cutoff)
	if err != nil {
		logCtx.WithError(err).Error("Failed to prune declined invites")
		return err
	}

	logCtx.WithField("deleted", deleted).Info("Declined invite prune completed")
	return nil
}
