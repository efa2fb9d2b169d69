package websocket

import (
	"net/http"
	"strconv"

	"collaborative-workspace/internal/hub"
	"collaborative-workspace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// SessionSocketHandler 负责会话频道的 WebSocket 升级和客户端注册。
type SessionSocketHandler struct {
	upgrader       websocket.Upgrader
	hub            *hub.Hub
	sessionService *service.SessionService
}

// NewSessionSocketHandler 创建 SessionSocketHandler 实例
func NewSessionSocketHandler(h *hub.Hub, sessionService *service.SessionService) *SessionSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for SessionSocketHandler")
	}
	if sessionService == nil {
		panic("SessionService cannot be nil for SessionSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &SessionSocketHandler{
		upgrader:       upgrader,
		hub:            h,
		sessionService: sessionService,
	}
}

// HandleConnection 处理会话频道的 WebSocket 连接请求。
// URL 预期格式: /ws/session/{sessionId}
func (h *SessionSocketHandler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	sessionIDStr := c.Param("sessionId")
	sessionIDUint64, err := strconv.ParseUint(sessionIDStr, 10, 32)
	if err != nil {
		logCtx.WithError(err).Warnf("WS Handler: Invalid session ID format: %s", sessionIDStr)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID format"})
		return
	}
	sessionID := uint(sessionIDUint64)
	logCtx = logCtx.WithField("session_id", sessionID)

	// 加入流程：容量检查 + 参与者登记，失败时连接不升级
	if _, err := h.sessionService.JoinSession(c.Request.Context(), userID, sessionID); err != nil {
		logCtx.WithError(err).Warn("WS Handler: Join session failed")
		switch err {
		case service.ErrSessionNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case service.ErrCapacityExceeded:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join session"})
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已经写了 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, sessionID, userID)
	registerMsg := hub.HubMessage{
		Type:      "register",
		Client:    client,
		SessionID: sessionID,
		UserID:    userID,
	}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	client.Run()
	logCtx.Info("WS Handler: Client read/write pumps started")
}
