package service_test

import (
	"context"
	"testing"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
	"collaborative-workspace/internal/repository/mocks"
	"collaborative-workspace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFileService_Create_AppliesTemplateAndLanguage(t *testing.T) {
	repo := new(mocks.FileRepository)
	svc := service.NewFileService(repo)

	repo.On("Save", mock.Anything, mock.MatchedBy(func(n *domain.FileNode) bool {
		return n.Path == "/main.py" &&
			n.Language == "python" &&
			n.Content == domain.TemplateForFilename("main.py")
	})).Return(nil).Once()

	node, err := svc.Create(context.Background(), 1, "main.py", domain.FileKindFile, nil)
	require.NoError(t, err)
	assert.Equal(t, "/main.py", node.Path)
	assert.Equal(t, "python", node.Language)
	repo.AssertExpectations(t)
}

func TestFileService_Create_NestedUnderParent(t *testing.T) {
	repo := new(mocks.FileRepository)
	svc := service.NewFileService(repo)

	parentID := uint(3)
	repo.On("FindByID", mock.Anything, uint(3)).
		Return(&domain.FileNode{ID: 3, UserID: 1, Name: "src", Path: "/src", Kind: domain.FileKindFolder}, nil).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(n *domain.FileNode) bool {
		return n.Path == "/src/index.ts"
	})).Return(nil).Once()

	_, err := svc.Create(context.Background(), 1, "index.ts", domain.FileKindFile, &parentID)
	require.NoError(t, err)
}

func TestFileService_Create_MissingParentFallsBackToRoot(t *testing.T) {
	repo := new(mocks.FileRepository)
	svc := service.NewFileService(repo)

	parentID := uint(42)
	repo.On("FindByID", mock.Anything, uint(42)).Return(nil, repository.ErrFileNotFound).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(n *domain.FileNode) bool {
		// 父节点缺失时回退到根路径
		return n.Path == "/stray.ts"
	})).Return(nil).Once()

	_, err := svc.Create(context.Background(), 1, "stray.ts", domain.FileKindFile, &parentID)
	require.NoError(t, err)
}

func TestFileService_Create_DuplicatePath(t *testing.T) {
	repo := new(mocks.FileRepository)
	svc := service.NewFileService(repo)

	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.FileNode")).
		Return(repository.ErrDuplicateEntry).Once()

	_, err := svc.Create(context.Background(), 1, "main.py", domain.FileKindFile, nil)
	assert.ErrorIs(t, err, service.ErrDuplicatePath)
}

func TestFileService_Create_InvalidKind(t *testing.T) {
	repo := new(mocks.FileRepository)
	svc := service.NewFileService(repo)

	_, err := svc.Create(context.Background(), 1, "thing", "symlink", nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	repo.AssertNotCalled(t, "Save")
}

func TestFileService_Rename_UpdatesPathSegment(t *testing.T) {
	repo := new(mocks.FileRepository)
	svc := service.NewFileService(repo)

	repo.On("FindByID", mock.Anything, uint(7)).
		Return(&domain.FileNode{ID: 7, UserID: 1, Name: "old.ts", Path: "/src/old.ts", Kind: domain.FileKindFile}, nil).Once()
	repo.On("UpdateNameAndPath", mock.Anything, uint(7), "new.ts", "/src/new.ts").Return(nil).Once()

	node, err := svc.Rename(context.Background(), 1, 7, "new.ts")
	require.NoError(t, err)
	assert.Equal(t, "/src/new.ts", node.Path)
	assert.Equal(t, "typescript", node.Language)
}

func TestFileService_OtherUsersFileLooksMissing(t *testing.T) {
	repo := new(mocks.FileRepository)
	svc := service.NewFileService(repo)

	repo.On("FindByID", mock.Anything, uint(7)).
		Return(&domain.FileNode{ID: 7, UserID: 99, Name: "secret.ts", Path: "secret.ts"}, nil)

	err := svc.SaveContent(context.Background(), 1, 7, "sneaky")
	assert.ErrorIs(t, err, service.ErrFileNotFound)

	err = svc.Delete(context.Background(), 1, 7)
	assert.ErrorIs(t, err, service.ErrFileNotFound)
	repo.AssertNotCalled(t, "UpdateContent")
	repo.AssertNotCalled(t, "Delete")
}

func TestFileService_ListTree(t *testing.T) {
	repo := new(mocks.FileRepository)
	svc := service.NewFileService(repo)

	parent := uint(1)
	repo.On("ListByOwner", mock.Anything, uint(1)).Return([]domain.FileNode{
		{ID: 1, UserID: 1, Name: "src", Path: "/src", Kind: domain.FileKindFolder},
		{ID: 2, UserID: 1, Name: "main.ts", Path: "/src/main.ts", Kind: domain.FileKindFile, ParentID: &parent},
	}, nil).Once()

	tree, err := svc.ListTree(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Len(t, tree[0].Children, 1)
}
