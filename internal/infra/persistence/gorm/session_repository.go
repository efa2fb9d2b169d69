// Package gormpersistence 提供各存储库接口的 GORM (MySQL) 实现。
package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
)

// mysqlDuplicateEntry MySQL 唯一约束冲突的错误码。
const mysqlDuplicateEntry = 1062

// isDuplicateEntry 判断错误是否为唯一约束冲突。
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// GormSessionRepository 是 SessionRepository 接口的 GORM 实现
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository 创建 GormSessionRepository 实例
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSessionRepository")
	}
	return &GormSessionRepository{db: db}
}

// FindByID 实现根据会话 ID 查找会话
func (r *GormSessionRepository) FindByID(ctx context.Context, id uint) (*domain.CollabSession, error) {
	var session domain.CollabSession
	err := r.db.WithContext(ctx).First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("gorm: find session by id %d: %w", id, err)
	}
	return &session, nil
}

// ListAll 实现按创建时间倒序返回全部会话
func (r *GormSessionRepository) ListAll(ctx context.Context) ([]domain.CollabSession, error) {
	var sessions []domain.CollabSession
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list sessions: %w", err)
	}
	return sessions, nil
}

// Save 实现保存会话信息（创建或更新）
func (r *GormSessionRepository) Save(ctx context.Context, session *domain.CollabSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save session (id: %d): %w", session.ID, err)
	}
	return nil
}

// UpdateCode 实现只写代码内容字段
func (r *GormSessionRepository) UpdateCode(ctx context.Context, id uint, code string) error {
	result := r.db.WithContext(ctx).Model(&domain.CollabSession{}).Where("id = ?", id).
		Updates(map[string]interface{}{"code_content": code, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("gorm: update session %d code: %w", id, result.Error)
	}
	return nil
}

// UpdateLanguage 实现只写代码语言字段
func (r *GormSessionRepository) UpdateLanguage(ctx context.Context, id uint, language string) error {
	result := r.db.WithContext(ctx).Model(&domain.CollabSession{}).Where("id = ?", id).
		Update("code_language", language)
	if result.Error != nil {
		return fmt.Errorf("gorm: update session %d language: %w", id, result.Error)
	}
	return nil
}

// Delete 实现删除会话，参与者/邀请/消息行在同一事务中级联删除
func (r *GormSessionRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&domain.SessionParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&domain.SessionInvite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&domain.SessionMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.CollabSession{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("gorm: delete session %d: %w", id, err)
	}
	return nil
}

// GormParticipantRepository 是 ParticipantRepository 接口的 GORM 实现
type GormParticipantRepository struct {
	db *gorm.DB
}

// NewGormParticipantRepository 创建 GormParticipantRepository 实例
func NewGormParticipantRepository(db *gorm.DB) *GormParticipantRepository {
	if db == nil {
		panic("database connection cannot be nil for GormParticipantRepository")
	}
	return &GormParticipantRepository{db: db}
}

// Upsert 实现幂等插入参与者，(session_id, user_id) 冲突时忽略
func (r *GormParticipantRepository) Upsert(ctx context.Context, participant *domain.SessionParticipant) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(participant).Error
	if err != nil {
		return fmt.Errorf("gorm: upsert participant (session: %d, user: %d): %w",
			participant.SessionID, participant.UserID, err)
	}
	return nil
}

// Delete 实现删除参与者行
func (r *GormParticipantRepository) Delete(ctx context.Context, sessionID, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Delete(&domain.SessionParticipant{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete participant (session: %d, user: %d): %w", sessionID, userID, err)
	}
	return nil
}

// ListBySession 实现返回会话的全部参与者
func (r *GormParticipantRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.SessionParticipant, error) {
	var participants []domain.SessionParticipant
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list participants for session %d: %w", sessionID, err)
	}
	return participants, nil
}

// CountBySession 实现返回会话的当前参与者数
func (r *GormParticipantRepository) CountBySession(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SessionParticipant{}).
		Where("session_id = ?", sessionID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count participants for session %d: %w", sessionID, err)
	}
	return count, nil
}

// GormInviteRepository 是 InviteRepository 接口的 GORM 实现
type GormInviteRepository struct {
	db *gorm.DB
}

// NewGormInviteRepository 创建 GormInviteRepository 实例
func NewGormInviteRepository(db *gorm.DB) *GormInviteRepository {
	if db == nil {
		panic("database connection cannot be nil for GormInviteRepository")
	}
	return &GormInviteRepository{db: db}
}

// FindByID 实现根据邀请 ID 查找邀请
func (r *GormInviteRepository) FindByID(ctx context.Context, id uint) (*domain.SessionInvite, error) {
	var invite domain.SessionInvite
	err := r.db.WithContext(ctx).First(&invite, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrInviteNotFound
		}
		return nil, fmt.Errorf("gorm: find invite by id %d: %w", id, err)
	}
	return &invite, nil
}

// Save 实现插入或更新邀请
func (r *GormInviteRepository) Save(ctx context.Context, invite *domain.SessionInvite) error {
	if invite.Status == "" {
		invite.Status = domain.InviteStatusPending
	}
	if err := r.db.WithContext(ctx).Save(invite).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save invite (session: %d, email: %s): %w", invite.SessionID, invite.Email, err)
	}
	return nil
}

// UpdateStatus 实现更新邀请状态
func (r *GormInviteRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).Model(&domain.SessionInvite{}).Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("gorm: update invite %d status: %w", id, result.Error)
	}
	return nil
}

// ListBySession 实现返回会话的全部邀请
func (r *GormInviteRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.SessionInvite, error) {
	var invites []domain.SessionInvite
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list invites for session %d: %w", sessionID, err)
	}
	return invites, nil
}

// ListPendingByEmail 实现返回某邮箱的全部 pending 邀请
func (r *GormInviteRepository) ListPendingByEmail(ctx context.Context, email string) ([]domain.SessionInvite, error) {
	var invites []domain.SessionInvite
	err := r.db.WithContext(ctx).
		Where("email = ? AND status = ?", email, domain.InviteStatusPending).
		Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list pending invites for email %s: %w", email, err)
	}
	return invites, nil
}

// DeleteDeclinedBefore 实现清理过期的已拒绝邀请
func (r *GormInviteRepository) DeleteDeclinedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.InviteStatusDeclined, before).
		Delete(&domain.SessionInvite{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete declined invites before %s: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}

// GormMessageRepository 是 MessageRepository 接口的 GORM 实现
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GormMessageRepository 实例
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

// Save 实现追加一条消息
func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.SessionMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: save message (session: %d): %w", msg.SessionID, err)
	}
	return nil
}

// ListBySession 实现按创建时间升序返回会话消息
func (r *GormMessageRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.SessionMessage, error) {
	var messages []domain.SessionMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list messages for session %d: %w", sessionID, err)
	}
	return messages, nil
}
