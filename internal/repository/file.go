package repository

import (
	"context"

	"collaborative-workspace/internal/domain"
)

// FileRepository 定义了虚拟文件系统节点的存储操作。
type FileRepository interface {
	// FindByID 根据节点 ID 查找节点，不存在时返回 ErrFileNotFound。
	FindByID(ctx context.Context, id uint) (*domain.FileNode, error)

	// ListByOwner 按路径排序返回某用户的全部节点 (扁平列表，树在应用层重建)。
	ListByOwner(ctx context.Context, userID uint) ([]domain.FileNode, error)

	// Save 插入或更新节点。
	// (user_id, path) 唯一约束冲突时返回 ErrDuplicateEntry。
	Save(ctx context.Context, node *domain.FileNode) error

	// UpdateNameAndPath 重命名节点：同时更新 name 和 path 字段。
	UpdateNameAndPath(ctx context.Context, id uint, name, path string) error

	// UpdateContent 只写文件节点的内容字段。
	UpdateContent(ctx context.Context, id uint, content string) error

	// Delete 删除节点。
	Delete(ctx context.Context, id uint) error
}
