package domain

import (
	"strings"
	"time"
)

// 文件节点类型。
const (
	FileKindFile   = "file"
	FileKindFolder = "folder"
)

// FileNode 表示用户私有虚拟文件系统中的一个节点 (文件或文件夹)。
// Path 在同一用户下唯一；ParentID 指向同一用户拥有的文件夹节点。
// 树不变式由应用层维护: 无法解析的 ParentID 在构建树时按根节点处理。
type FileNode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_owner_path;not null" json:"user_id"`
	Name      string    `gorm:"size:191;not null" json:"name"`
	Path      string    `gorm:"size:500;uniqueIndex:idx_owner_path,length:191;not null" json:"path"`
	Content   string    `gorm:"type:text" json:"content"` // 仅文件节点有内容
	Kind      string    `gorm:"size:10;not null" json:"type"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Language  string    `gorm:"size:50" json:"language"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsFolder 判断节点是否为文件夹。
func (f *FileNode) IsFolder() bool { return f.Kind == FileKindFolder }

// ChildPath 计算父路径下某个名称的完整路径。
// parentPath 为空时表示根目录。
func ChildPath(parentPath, name string) string {
	if parentPath == "" {
		return "/" + name
	}
	return parentPath + "/" + name
}

// RenamedPath 用 newName 替换路径的最后一段。
func RenamedPath(path, newName string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "/" + newName
	}
	return path[:idx+1] + newName
}
