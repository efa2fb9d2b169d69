package state

import (
	"testing"

	"collaborative-workspace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v uint) *uint { return &v }

func TestBuildFileTree_NestsChildren(t *testing.T) {
	flat := []domain.FileNode{
		{ID: 1, Name: "src", Kind: domain.FileKindFolder},
		{ID: 2, Name: "main.ts", Kind: domain.FileKindFile, ParentID: ptr(1)},
		{ID: 3, Name: "utils", Kind: domain.FileKindFolder, ParentID: ptr(1)},
		{ID: 4, Name: "helpers.ts", Kind: domain.FileKindFile, ParentID: ptr(3)},
		{ID: 5, Name: "README.md", Kind: domain.FileKindFile},
	}

	roots := BuildFileTree(flat)
	require.Len(t, roots, 2)

	src := roots[0]
	assert.Equal(t, "src", src.Name)
	require.Len(t, src.Children, 2)
	assert.Equal(t, "utils", src.Children[0].Name) // 文件夹排在文件前面
	assert.Equal(t, "main.ts", src.Children[1].Name)
	require.Len(t, src.Children[0].Children, 1)
	assert.Equal(t, "helpers.ts", src.Children[0].Children[0].Name)

	assert.Equal(t, "README.md", roots[1].Name)
}

func TestBuildFileTree_SortsFoldersFirstThenByName(t *testing.T) {
	flat := []domain.FileNode{
		{ID: 1, Name: "zeta.ts", Kind: domain.FileKindFile},
		{ID: 2, Name: "alpha.ts", Kind: domain.FileKindFile},
		{ID: 3, Name: "lib", Kind: domain.FileKindFolder},
		{ID: 4, Name: "assets", Kind: domain.FileKindFolder},
	}

	roots := BuildFileTree(flat)
	require.Len(t, roots, 4)
	assert.Equal(t, "assets", roots[0].Name)
	assert.Equal(t, "lib", roots[1].Name)
	assert.Equal(t, "alpha.ts", roots[2].Name)
	assert.Equal(t, "zeta.ts", roots[3].Name)
}

func TestBuildFileTree_OrphanBecomesRoot(t *testing.T) {
	// 父节点已被删除的行按根节点处理
	flat := []domain.FileNode{
		{ID: 7, Name: "orphan.ts", Kind: domain.FileKindFile, ParentID: ptr(999)},
	}

	roots := BuildFileTree(flat)
	require.Len(t, roots, 1)
	assert.Equal(t, "orphan.ts", roots[0].Name)
}

func TestBuildFileTree_Empty(t *testing.T) {
	assert.Empty(t, BuildFileTree(nil))
}

func TestFindInTree(t *testing.T) {
	flat := []domain.FileNode{
		{ID: 1, Name: "src", Kind: domain.FileKindFolder},
		{ID: 2, Name: "deep.ts", Kind: domain.FileKindFile, ParentID: ptr(1)},
	}
	roots := BuildFileTree(flat)

	found := findInTree(roots, 2)
	require.NotNil(t, found)
	assert.Equal(t, "deep.ts", found.Name)
	assert.Nil(t, findInTree(roots, 42))
}
