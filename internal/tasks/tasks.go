package tasks

import (
	"context"
	"encoding/json"

	"collaborative-workspace/internal/domain"

	"github.com/hibiken/asynq"
)

// 任务类型常量
const (
	TypeInviteNotify = "invite:notify" // 邀请通知投递
	TypeInvitePrune  = "invite:prune"  // 周期清理已拒绝的邀请
)

// InviteNotifyPayload 是邀请通知任务的数据结构。
type InviteNotifyPayload struct {
	InviteID     uint   `json:"invite_id"`
	SessionID    uint   `json:"session_id"`
	SessionName  string `json:"session_name"`
	Email        string `json:"email"`
	InviterEmail string `json:"inviter_email"`
}

// NewInviteNotifyTask 创建邀请通知任务。
func NewInviteNotifyTask(payload InviteNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeInviteNotify, data), nil
}

// NewInvitePruneTask 创建清理任务 (无 payload，由调度器周期入队)。
func NewInvitePruneTask() *asynq.Task {
	return asynq.NewTask(TypeInvitePrune, nil)
}

// Dispatcher 把业务事件转成 asynq 任务入队，实现 service.InviteNotifier。
type Dispatcher struct {
	client *asynq.Client
}

func NewDispatcher(client *asynq.Client) *Dispatcher {
	if client == nil {
		panic("asynq client cannot be nil for Dispatcher")
	}
	return &Dispatcher{client: client}
}

// EnqueueInviteNotification 把邀请通知任务投入 default 队列。
func (d *Dispatcher) EnqueueInviteNotification(ctx context.Context, invite domain.SessionInvite, sessionName, inviterEmail string) error {
	task, err := NewInviteNotifyTask(InviteNotifyPayload{
		InviteID:     invite.ID,
		SessionID:    invite.SessionID,
		SessionName:  sessionName,
		Email:        invite.Email,
		InviterEmail: inviterEmail,
	})
	if err != nil {
		return err
	}
	_, err = d.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	return err
}
