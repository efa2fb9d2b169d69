package state

import (
	"context"
	"errors"
	"fmt"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrDuplicatePath 表示创建的节点路径与该用户的既有节点冲突。
// UI 据此给出 "文件已存在" 而非笼统的失败提示。
var ErrDuplicatePath = errors.New("editor: path already exists")

// ErrTabNotFound 表示操作引用的标签页不存在。
var ErrTabNotFound = errors.New("editor: tab not found")

// EditorTab 是打开的、可能未保存的、纯客户端的文件视图。
// 不持久化：打开文件时创建，关闭标签时销毁。
// Dirty 为真当且仅当缓冲内容与最近一次保存的文件内容不一致。
type EditorTab struct {
	ID       string `json:"id"`
	FileID   uint   `json:"file_id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Language string `json:"language"`
	Content  string `json:"content"`
	Dirty    bool   `json:"dirty"`
}

// ConfirmFunc 在关闭脏标签页前询问是否丢弃未保存的修改。
// 返回 false 取消关闭。同步阻塞式确认在这个规模下是可接受的。
type ConfirmFunc func(tab *EditorTab) bool

// EditorManager 维护单个用户的文件树和打开标签页的工作集，
// 在持久化的 FileNode 行与临时的 EditorTab 缓冲之间进行中介。
type EditorManager struct {
	userID  uint
	files   repository.FileRepository
	confirm ConfirmFunc

	tree        []*TreeNode
	tabs        []*EditorTab
	activeTabID string
}

// NewEditorManager 创建编辑器状态管理器。
// confirm 为 nil 时关闭脏标签页不做询问直接丢弃。
func NewEditorManager(userID uint, files repository.FileRepository, confirm ConfirmFunc) *EditorManager {
	if files == nil {
		panic("FileRepository cannot be nil for EditorManager")
	}
	return &EditorManager{userID: userID, files: files, confirm: confirm}
}

// LoadFiles 加载该用户的全部节点并重建文件树。
func (m *EditorManager) LoadFiles(ctx context.Context) error {
	flat, err := m.files.ListByOwner(ctx, m.userID)
	if err != nil {
		return fmt.Errorf("editor: load files: %w", err)
	}
	m.tree = BuildFileTree(flat)
	return nil
}

// Tree 返回当前持有的文件树。
func (m *EditorManager) Tree() []*TreeNode { return m.tree }

// FindNode 在当前文件树中按 ID 查找节点，找不到时返回 nil。
func (m *EditorManager) FindNode(id uint) *TreeNode { return findInTree(m.tree, id) }

// parentPath 在当前树中定位父节点的路径。
// parentID 存在但在树中找不到时回退到根路径 (防御性回退)。
func (m *EditorManager) parentPath(parentID *uint) string {
	if parentID == nil {
		return ""
	}
	if parent := findInTree(m.tree, *parentID); parent != nil {
		return parent.Path
	}
	logrus.WithField("parent_id", *parentID).Warn("Editor: Parent node not in tree, falling back to root path")
	return ""
}

// CreateFile 在 parentID 下创建文件或文件夹。
// 创建成功后重载树；类型为文件时立即打开。
func (m *EditorManager) CreateFile(ctx context.Context, parentID *uint, name, kind string) (*domain.FileNode, error) {
	content := ""
	language := ""
	if kind == domain.FileKindFile {
		language = domain.LanguageForFilename(name)
	}
	return m.create(ctx, parentID, name, kind, content, language)
}

// CreateFileWithContent 创建预填内容的文件 (模板化创建)。
func (m *EditorManager) CreateFileWithContent(ctx context.Context, parentID *uint, name, content string) (*domain.FileNode, error) {
	return m.create(ctx, parentID, name, domain.FileKindFile, content, domain.LanguageForFilename(name))
}

func (m *EditorManager) create(ctx context.Context, parentID *uint, name, kind, content, language string) (*domain.FileNode, error) {
	node := &domain.FileNode{
		UserID:   m.userID,
		Name:     name,
		Path:     domain.ChildPath(m.parentPath(parentID), name),
		Content:  content,
		Kind:     kind,
		ParentID: parentID,
		Language: language,
	}
	if err := m.files.Save(ctx, node); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicatePath
		}
		return nil, fmt.Errorf("editor: create %s %q: %w", kind, node.Path, err)
	}
	if err := m.LoadFiles(ctx); err != nil {
		return nil, err
	}
	if kind == domain.FileKindFile {
		m.OpenFile(*node)
	}
	return node, nil
}

// DeleteFile 删除节点。若节点有打开的标签页，直接关闭它 (跳过未保存
// 确认，后备文件已不存在)；若被关闭的是活跃标签，则激活剩余的第一个。
func (m *EditorManager) DeleteFile(ctx context.Context, node domain.FileNode) error {
	if err := m.files.Delete(ctx, node.ID); err != nil {
		return fmt.Errorf("editor: delete node %d: %w", node.ID, err)
	}

	wasActive := false
	kept := m.tabs[:0]
	for _, tab := range m.tabs {
		if tab.FileID == node.ID {
			if tab.ID == m.activeTabID {
				wasActive = true
			}
			continue
		}
		kept = append(kept, tab)
	}
	m.tabs = kept
	if wasActive {
		if len(m.tabs) > 0 {
			m.activeTabID = m.tabs[0].ID
		} else {
			m.activeTabID = ""
		}
	}

	return m.LoadFiles(ctx)
}

// RenameFile 重命名节点：替换路径的最后一段，并就地更新打开标签页的
// 缓存名称/路径/语言，不触碰脏标记和缓冲内容。
func (m *EditorManager) RenameFile(ctx context.Context, node domain.FileNode, newName string) error {
	newPath := domain.RenamedPath(node.Path, newName)
	if err := m.files.UpdateNameAndPath(ctx, node.ID, newName, newPath); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return ErrDuplicatePath
		}
		return fmt.Errorf("editor: rename node %d: %w", node.ID, err)
	}

	for _, tab := range m.tabs {
		if tab.FileID == node.ID {
			tab.Name = newName
			tab.Path = newPath
			tab.Language = domain.LanguageForFilename(newName)
		}
	}

	return m.LoadFiles(ctx)
}

// OpenFile 在标签页中打开文件。文件夹是 no-op。
// 同一文件不会产生重复标签：已有标签时只切换激活。
func (m *EditorManager) OpenFile(file domain.FileNode) *EditorTab {
	if file.IsFolder() {
		return nil
	}

	for _, tab := range m.tabs {
		if tab.FileID == file.ID {
			m.activeTabID = tab.ID
			return tab
		}
	}

	language := file.Language
	if language == "" {
		language = domain.LanguageForFilename(file.Name)
	}
	tab := &EditorTab{
		ID:       uuid.NewString(),
		FileID:   file.ID,
		Name:     file.Name,
		Path:     file.Path,
		Language: language,
		Content:  file.Content,
		Dirty:    false,
	}
	m.tabs = append(m.tabs, tab)
	m.activeTabID = tab.ID
	return tab
}

// CloseTab 关闭标签页。不存在的标签返回 ErrTabNotFound；
// 脏标签确认被取消时返回 false 且标签和缓冲原样保留。
// 关闭的是活跃标签时，激活剩余的最后一个标签或置空。
func (m *EditorManager) CloseTab(tabID string) (bool, error) {
	idx := -1
	for i, tab := range m.tabs {
		if tab.ID == tabID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrTabNotFound
	}

	tab := m.tabs[idx]
	if tab.Dirty && m.confirm != nil && !m.confirm(tab) {
		return false, nil
	}

	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)
	if m.activeTabID == tabID {
		if len(m.tabs) > 0 {
			m.activeTabID = m.tabs[len(m.tabs)-1].ID
		} else {
			m.activeTabID = ""
		}
	}
	return true, nil
}

// UpdateTabContent 替换缓冲内容并标记为脏。纯本地操作，不写存储。
func (m *EditorManager) UpdateTabContent(tabID, content string) error {
	for _, tab := range m.tabs {
		if tab.ID == tabID {
			tab.Content = content
			tab.Dirty = true
			return nil
		}
	}
	return ErrTabNotFound
}

// SaveFile 把标签页缓冲写入后备文件的内容字段。
// tabID 为空时保存活跃标签。写入成功才清除脏标记；
// 失败时脏标记和缓冲保持不变，错误交由调用方提示。
func (m *EditorManager) SaveFile(ctx context.Context, tabID string) error {
	if tabID == "" {
		tabID = m.activeTabID
	}
	var tab *EditorTab
	for _, t := range m.tabs {
		if t.ID == tabID {
			tab = t
			break
		}
	}
	if tab == nil {
		return ErrTabNotFound
	}

	if err := m.files.UpdateContent(ctx, tab.FileID, tab.Content); err != nil {
		return fmt.Errorf("editor: save file %d: %w", tab.FileID, err)
	}
	tab.Dirty = false
	return nil
}

// Tabs 返回打开的标签页 (按打开顺序)。
func (m *EditorManager) Tabs() []*EditorTab { return m.tabs }

// ActiveTab 返回当前活跃标签页，没有时返回 nil。
func (m *EditorManager) ActiveTab() *EditorTab {
	for _, tab := range m.tabs {
		if tab.ID == m.activeTabID {
			return tab
		}
	}
	return nil
}

// SetActiveTab 切换活跃标签页。
func (m *EditorManager) SetActiveTab(tabID string) error {
	for _, tab := range m.tabs {
		if tab.ID == tabID {
			m.activeTabID = tabID
			return nil
		}
	}
	return ErrTabNotFound
}
