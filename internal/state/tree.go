// Package state 实现了协作会话和代码编辑器的客户端状态核心：
// 本地投影的事件调和、文件树与标签页生命周期、以及去抖动的副作用写入。
package state

import (
	"sort"

	"collaborative-workspace/internal/domain"
)

// TreeNode 是文件树中的一个节点，包装 FileNode 并携带已排序的子节点。
type TreeNode struct {
	domain.FileNode
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildFileTree 把扁平的 parent_id 链接列表重建为文件树。
// 节点先按 ID 建索引，再单趟挂接子节点列表；ParentID 无法解析的孤儿行
// 按根节点处理而不是让整次加载失败。每层兄弟节点文件夹在前，
// 两组内部再按名称字典序排列。
func BuildFileTree(flat []domain.FileNode) []*TreeNode {
	index := make(map[uint]*TreeNode, len(flat))
	for i := range flat {
		index[flat[i].ID] = &TreeNode{FileNode: flat[i]}
	}

	var roots []*TreeNode
	for i := range flat {
		node := index[flat[i].ID]
		if flat[i].ParentID != nil {
			if parent, ok := index[*flat[i].ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
			// 父节点指向已删除/缺失的行：视为根
		}
		roots = append(roots, node)
	}

	sortTree(roots)
	return roots
}

func sortTree(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == domain.FileKindFolder
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortTree(n.Children)
		}
	}
}

// findInTree 在树中递归查找指定 ID 的节点，找不到时返回 nil。
func findInTree(nodes []*TreeNode, id uint) *TreeNode {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
		if found := findInTree(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}
