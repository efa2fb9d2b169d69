package http

import (
	"net/http"
	"strconv"

	"collaborative-workspace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionHandler 封装了与协作会话管理相关的 HTTP 处理逻辑。
// 实时同步走 WebSocket，这里只负责生命周期和邀请流程。
type SessionHandler struct {
	sessionService *service.SessionService
	authService    *service.AuthService
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(sessionService *service.SessionService, authService *service.AuthService) *SessionHandler {
	if sessionService == nil {
		panic("SessionService cannot be nil for SessionHandler")
	}
	if authService == nil {
		panic("AuthService cannot be nil for SessionHandler")
	}
	return &SessionHandler{sessionService: sessionService, authService: authService}
}

// sessionIDParam 解析 URL 中的会话 ID。
func sessionIDParam(c *gin.Context) (uint, bool) {
	idStr := c.Param("sessionId")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		logrus.Warnf("Handler: Invalid session ID format: %s", idStr)
		ErrorResponse(c, http.StatusBadRequest, "Invalid session ID format")
		return 0, false
	}
	return uint(id), true
}

// CreateSessionRequest 定义创建会话请求的结构体
type CreateSessionRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// CreateSession 处理创建新会话的请求
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	session, err := h.sessionService.CreateSession(c.Request.Context(), userID, req.Name)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": session.ID}).Info("Handler.CreateSession: Session created")
	SuccessResponse(c, http.StatusOK, gin.H{
		"message": "Session created successfully",
		"session": session,
	})
}

// ListSessions 返回全部会话列表
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListSessions(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"sessions": sessions})
}

// JoinSession 处理加入会话的请求，返回完整的会话数据包。
func (h *SessionHandler) JoinSession(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	data, err := h.sessionService.JoinSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"session":      data.Session,
		"messages":     data.Messages,
		"participants": data.Participants,
		"invites":      data.Invites,
	})
}

// InviteRequest 定义邀请请求的结构体
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Invite 按邮箱邀请用户加入会话
func (h *SessionHandler) Invite(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: a valid email is required")
		return
	}

	inviter, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	invite, err := h.sessionService.InviteByEmail(c.Request.Context(), userID, inviter.Email, sessionID, req.Email)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"message": "Invite sent",
		"invite":  invite,
	})
}

// AcceptInviteRequest 定义接受邀请请求的结构体
type AcceptInviteRequest struct {
	InviteID uint `json:"invite_id" binding:"required"`
}

// AcceptInvite 接受邀请并加入会话
func (h *SessionHandler) AcceptInvite(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: invite_id is required")
		return
	}

	data, err := h.sessionService.AcceptInvite(c.Request.Context(), userID, req.InviteID, sessionID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"session":      data.Session,
		"messages":     data.Messages,
		"participants": data.Participants,
		"invites":      data.Invites,
	})
}

// DeclineInvite 拒绝邀请
func (h *SessionHandler) DeclineInvite(c *gin.Context) {
	inviteIDStr := c.Param("inviteId")
	inviteID, err := strconv.ParseUint(inviteIDStr, 10, 32)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid invite ID format")
		return
	}

	if err := h.sessionService.DeclineInvite(c.Request.Context(), uint(inviteID)); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Invite declined"})
}

// ListPendingInvites 返回发给当前用户邮箱的待处理邀请
func (h *SessionHandler) ListPendingInvites(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	invites, err := h.sessionService.ListPendingInvites(c.Request.Context(), user.Email)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"invites": invites})
}

// Leave 处理参与者离开会话
func (h *SessionHandler) Leave(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	if err := h.sessionService.LeaveSession(c.Request.Context(), userID, sessionID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Left session"})
}

// Delete 删除会话 (仅主持人)
func (h *SessionHandler) Delete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	if err := h.sessionService.DeleteSession(c.Request.Context(), userID, sessionID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Session deleted"})
}
