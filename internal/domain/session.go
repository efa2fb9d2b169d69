// Package domain 定义了应用程序中使用的数据结构 (数据库模型)。
package domain

import "time"

// 新会话的默认代码内容和语言。
const (
	DefaultCodeContent  = "// Start coding here...\nconsole.log('Hello, World!');"
	DefaultCodeLanguage = "javascript"

	// DefaultMaxParticipants 会话的最大占用人数 (含主持人)。
	DefaultMaxParticipants = 4
)

// AI 助手消息使用的哨兵身份。
const (
	AIUserID    uint   = 0
	AIUserLabel string = "AI Assistant"
)

// CollabSession 表示一个协作编码会话 (代码 + 聊天室)。
// 代码字段可由任何当前参与者修改；只有主持人可以删除会话。
type CollabSession struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	HostID          uint      `gorm:"index;not null" json:"host_id"`         // 主持人用户 ID，定义会话归属
	Name            string    `gorm:"size:191;not null" json:"name"`         // 会话显示名称
	CodeContent     string    `gorm:"type:text" json:"code_content"`         // 当前共享代码 (last-write-wins)
	CodeLanguage    string    `gorm:"size:50;not null" json:"code_language"` // 当前代码语言标签
	MaxParticipants int       `gorm:"not null;default:4" json:"max_participants"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SessionParticipant 表示会话中的一个占用者。
// (session_id, user_id) 唯一，加入时 upsert 以保证幂等。
type SessionParticipant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"uniqueIndex:idx_session_user;not null" json:"session_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_session_user;not null" json:"user_id"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// 邀请状态枚举。
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// SessionInvite 表示向某个邮箱发出的加入邀请。
// 不变式: 未拒绝的邀请数 + 参与者数 ≤ MaxParticipants (在应用层检查)。
type SessionInvite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"index;not null" json:"session_id"`
	Email     string    `gorm:"size:191;not null" json:"email"`
	Status    string    `gorm:"size:20;not null;default:'pending'" json:"status"`
	InvitedBy uint      `gorm:"not null" json:"invited_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// SessionMessage 表示会话聊天记录中的一条消息。
// 追加写入，创建后不可变。AI 回复使用哨兵身份并打上 IsAIResponse 标记。
type SessionMessage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    uint      `gorm:"index;not null" json:"session_id"`
	UserID       uint      `gorm:"not null" json:"user_id"`
	UserLabel    string    `gorm:"size:191;not null" json:"user_label"` // 作者显示名 (通常是邮箱)
	Content      string    `gorm:"type:text;not null" json:"content"`
	IsAIResponse bool      `gorm:"not null;default:false" json:"is_ai_response"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
