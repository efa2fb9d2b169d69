package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// 通知类型标签。
const (
	NotificationTypeInvite = "invite"
)

// Notification 表示发送给某个用户的一条应用内通知。
// 仅接收者可以更新 (已读标记) 或删除。
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"` // 接收者
	Type      string    `gorm:"size:50;not null" json:"type"`
	Title     string    `gorm:"size:191;not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Data      string    `gorm:"type:text" json:"-"` // 结构化负载，JSON 字符串
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// InvitePayload 是邀请类通知的结构化负载。
type InvitePayload struct {
	SessionID    uint   `json:"session_id"`
	InviterEmail string `json:"inviter_email"`
}

// SetData 将负载序列化为 JSON 字符串并写入 Data 字段。
func (n *Notification) SetData(payload any) error {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}
	n.Data = string(bytes)
	return nil
}

// ParseInviteData 将 Data 字段解析为 InvitePayload。
func (n *Notification) ParseInviteData() (InvitePayload, error) {
	var payload InvitePayload
	if n.Data == "" {
		return payload, nil
	}
	if err := json.Unmarshal([]byte(n.Data), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal notification data: %w", err)
	}
	return payload, nil
}
