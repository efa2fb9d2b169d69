package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
)

// GormFileRepository 是 FileRepository 接口的 GORM 实现
type GormFileRepository struct {
	db *gorm.DB
}

// NewGormFileRepository 创建 GormFileRepository 实例
func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	if db == nil {
		panic("database connection cannot be nil for GormFileRepository")
	}
	return &GormFileRepository{db: db}
}

// FindByID 实现根据节点 ID 查找节点
func (r *GormFileRepository) FindByID(ctx context.Context, id uint) (*domain.FileNode, error) {
	var node domain.FileNode
	err := r.db.WithContext(ctx).First(&node, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrFileNotFound
		}
		return nil, fmt.Errorf("gorm: find file node by id %d: %w", id, err)
	}
	return &node, nil
}

// ListByOwner 实现按路径排序返回某用户的全部节点
func (r *GormFileRepository) ListByOwner(ctx context.Context, userID uint) ([]domain.FileNode, error) {
	var nodes []domain.FileNode
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("path").Find(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list file nodes for user %d: %w", userID, err)
	}
	return nodes, nil
}

// Save 实现插入或更新节点，(user_id, path) 冲突映射为 ErrDuplicateEntry
func (r *GormFileRepository) Save(ctx context.Context, node *domain.FileNode) error {
	if err := r.db.WithContext(ctx).Save(node).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save file node (user: %d, path: %s): %w", node.UserID, node.Path, err)
	}
	return nil
}

// UpdateNameAndPath 实现重命名节点
func (r *GormFileRepository) UpdateNameAndPath(ctx context.Context, id uint, name, path string) error {
	result := r.db.WithContext(ctx).Model(&domain.FileNode{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "path": path})
	if result.Error != nil {
		if isDuplicateEntry(result.Error) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: rename file node %d: %w", id, result.Error)
	}
	return nil
}

// UpdateContent 实现只写内容字段
func (r *GormFileRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	result := r.db.WithContext(ctx).Model(&domain.FileNode{}).Where("id = ?", id).
		Update("content", content)
	if result.Error != nil {
		return fmt.Errorf("gorm: update file node %d content: %w", id, result.Error)
	}
	return nil
}

// Delete 实现删除节点
func (r *GormFileRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.FileNode{}, id).Error; err != nil {
		return fmt.Errorf("gorm: delete file node %d: %w", id, err)
	}
	return nil
}
