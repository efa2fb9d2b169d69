package service

import (
	"context"
	"errors"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
	"collaborative-workspace/internal/state"

	"github.com/sirupsen/logrus"
)

// FileService 提供用户文件的 REST 层操作。路径唯一性由存储层的
// (owner, path) 唯一索引保证，重复创建映射为 ErrDuplicatePath。
type FileService struct {
	files repository.FileRepository
}

func NewFileService(files repository.FileRepository) *FileService {
	if files == nil {
		panic("FileRepository cannot be nil for FileService")
	}
	return &FileService{files: files}
}

// ListTree 返回用户全部文件组成的树 (文件夹在前、按名称排序)。
func (s *FileService) ListTree(ctx context.Context, userID uint) ([]*state.TreeNode, error) {
	nodes, err := s.files.ListByOwner(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list files")
		return nil, ErrInternalServer
	}
	return state.BuildFileTree(nodes), nil
}

// Create 在 parent 下创建文件或文件夹。文件内容按扩展名套用起始模板。
func (s *FileService) Create(ctx context.Context, userID uint, name string, kind string, parentID *uint) (*domain.FileNode, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "name": name, "kind": kind})

	if name == "" || (kind != domain.FileKindFile && kind != domain.FileKindFolder) {
		return nil, ErrInvalidInput
	}

	parentPath := ""
	if parentID != nil {
		parent, err := s.files.FindByID(ctx, *parentID)
		if err != nil || parent.UserID != userID {
			logCtx.Warn("Create: Parent folder not found, creating at root")
		} else {
			parentPath = parent.Path
		}
	}

	node := &domain.FileNode{
		UserID:   userID,
		Name:     name,
		Path:     domain.ChildPath(parentPath, name),
		Kind:     kind,
		ParentID: parentID,
	}
	if kind == domain.FileKindFile {
		node.Language = domain.LanguageForFilename(name)
		node.Content = domain.TemplateForFilename(name)
	}

	if err := s.files.Save(ctx, node); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicatePath
		}
		logCtx.WithError(err).Error("Create: Failed to save file node")
		return nil, ErrInternalServer
	}
	return node, nil
}

// Rename 重命名节点并同步其 path 的最后一段。
func (s *FileService) Rename(ctx context.Context, userID, id uint, newName string) (*domain.FileNode, error) {
	if newName == "" {
		return nil, ErrInvalidInput
	}

	node, err := s.ownedNode(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	newPath := domain.RenamedPath(node.Path, newName)
	if err := s.files.UpdateNameAndPath(ctx, id, newName, newPath); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicatePath
		}
		logrus.WithError(err).WithField("file_id", id).Error("Rename: Failed to update file node")
		return nil, ErrInternalServer
	}
	node.Name = newName
	node.Path = newPath
	if node.Kind == domain.FileKindFile {
		node.Language = domain.LanguageForFilename(newName)
	}
	return node, nil
}

// SaveContent 持久化文件内容。
func (s *FileService) SaveContent(ctx context.Context, userID, id uint, content string) error {
	if _, err := s.ownedNode(ctx, userID, id); err != nil {
		return err
	}
	if err := s.files.UpdateContent(ctx, id, content); err != nil {
		logrus.WithError(err).WithField("file_id", id).Error("Failed to save file content")
		return ErrInternalServer
	}
	return nil
}

// Delete 删除节点。
func (s *FileService) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.ownedNode(ctx, userID, id); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, id); err != nil {
		logrus.WithError(err).WithField("file_id", id).Error("Failed to delete file node")
		return ErrInternalServer
	}
	return nil
}

// ownedNode 加载节点并校验归属。非本人文件一律按不存在处理。
func (s *FileService) ownedNode(ctx context.Context, userID, id uint) (*domain.FileNode, error) {
	node, err := s.files.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		logrus.WithError(err).WithField("file_id", id).Error("Failed to load file node")
		return nil, ErrInternalServer
	}
	if node.UserID != userID {
		return nil, ErrFileNotFound
	}
	return node, nil
}
