package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
	"collaborative-workspace/internal/state"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EditorSocketHandler 为每个连接维护一份编辑器状态 (文件树 + 标签页)。
// 单连接单 goroutine 顺序处理，所以 EditorManager 无需加锁。
type EditorSocketHandler struct {
	upgrader websocket.Upgrader
	files    repository.FileRepository
}

// NewEditorSocketHandler 创建 EditorSocketHandler 实例
func NewEditorSocketHandler(files repository.FileRepository) *EditorSocketHandler {
	if files == nil {
		panic("FileRepository cannot be nil for EditorSocketHandler")
	}
	return &EditorSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		files: files,
	}
}

// editorRequest 是编辑器频道的客户端消息。
type editorRequest struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Content  string `json:"content,omitempty"`
	ParentID *uint  `json:"parent_id,omitempty"`
	FileID   uint   `json:"file_id,omitempty"`
	TabID    string `json:"tab_id,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

// editorState 是每次变更后回发的完整编辑器状态。
type editorState struct {
	Type        string             `json:"type"`
	Tree        []*state.TreeNode  `json:"tree"`
	Tabs        []*state.EditorTab `json:"tabs"`
	ActiveTabID string             `json:"activeTabId"`
}

// HandleConnection 处理编辑器频道的 WebSocket 连接请求。
// URL 预期格式: /ws/editor
func (h *EditorSocketHandler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "channel": "editor"})

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Error("Editor WS: Failed to upgrade connection")
		return
	}
	logCtx.Info("Editor WS: Connection upgraded")

	go h.serve(conn, userID, logCtx)
}

// serve 运行一个编辑器会话直到连接关闭。
func (h *EditorSocketHandler) serve(conn *websocket.Conn, userID uint, logCtx *logrus.Entry) {
	defer func() {
		conn.Close()
		logCtx.Info("Editor WS: Session ended")
	}()

	// 脏标签关闭确认走客户端往返：第一次 close_tab 被拒后
	// 客户端带 force 重发，confirm 回调读取当次消息的 force 位。
	var discardApproved bool
	mgr := state.NewEditorManager(userID, h.files, func(tab *state.EditorTab) bool {
		return discardApproved
	})

	ctx := context.Background()
	if err := mgr.LoadFiles(ctx); err != nil {
		logCtx.WithError(err).Error("Editor WS: Failed to load file tree")
		h.writeJSON(conn, gin.H{"type": "error", "message": "Failed to load files"})
		return
	}
	h.writeState(conn, mgr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("Editor WS: Read error")
			}
			return
		}

		var req editorRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.writeJSON(conn, gin.H{"type": "error", "message": "Invalid message format"})
			continue
		}

		discardApproved = req.Force
		if err := h.dispatch(ctx, conn, mgr, &req); err != nil {
			h.writeJSON(conn, gin.H{"type": "error", "message": err.Error()})
			continue
		}
		h.writeState(conn, mgr)
	}
}

// dispatch 执行一条编辑器操作。返回的错误发给客户端，不断开连接。
func (h *EditorSocketHandler) dispatch(ctx context.Context, conn *websocket.Conn, mgr *state.EditorManager, req *editorRequest) error {
	switch req.Type {
	case "create_file":
		if req.Kind == domain.FileKindFile {
			// 新文件按扩展名预填起始模板，客户端显式给了内容则用客户端的
			content := req.Content
			if content == "" {
				content = domain.TemplateForFilename(req.Name)
			}
			_, err := mgr.CreateFileWithContent(ctx, req.ParentID, req.Name, content)
			return err
		}
		_, err := mgr.CreateFile(ctx, req.ParentID, req.Name, req.Kind)
		return err
	case "delete_file":
		node := mgr.FindNode(req.FileID)
		if node == nil {
			return errors.New("file not found")
		}
		return mgr.DeleteFile(ctx, node.FileNode)
	case "rename_file":
		node := mgr.FindNode(req.FileID)
		if node == nil {
			return errors.New("file not found")
		}
		return mgr.RenameFile(ctx, node.FileNode, req.Name)
	case "open_file":
		node := mgr.FindNode(req.FileID)
		if node == nil {
			return errors.New("file not found")
		}
		mgr.OpenFile(node.FileNode)
		return nil
	case "close_tab":
		closed, err := mgr.CloseTab(req.TabID)
		if err != nil {
			return err
		}
		if !closed {
			// 脏标签且未带 force：让客户端确认后重发
			h.writeJSON(conn, gin.H{"type": "confirm_close", "tab_id": req.TabID})
		}
		return nil
	case "update_content":
		return mgr.UpdateTabContent(req.TabID, req.Content)
	case "save_file":
		return mgr.SaveFile(ctx, req.TabID)
	case "set_active":
		return mgr.SetActiveTab(req.TabID)
	case "reload":
		return mgr.LoadFiles(ctx)
	default:
		return errors.New("unknown message type: " + req.Type)
	}
}

func (h *EditorSocketHandler) writeState(conn *websocket.Conn, mgr *state.EditorManager) {
	activeID := ""
	if tab := mgr.ActiveTab(); tab != nil {
		activeID = tab.ID
	}
	h.writeJSON(conn, editorState{
		Type:        "state",
		Tree:        mgr.Tree(),
		Tabs:        mgr.Tabs(),
		ActiveTabID: activeID,
	})
}

func (h *EditorSocketHandler) writeJSON(conn *websocket.Conn, v interface{}) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		logrus.WithError(err).Warn("Editor WS: Failed to write message")
	}
	_ = conn.SetWriteDeadline(time.Time{})
}
