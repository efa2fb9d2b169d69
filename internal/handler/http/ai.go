package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"collaborative-workspace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AIHandler 封装了 AI 聊天代理和代码运行的 HTTP 处理逻辑。
type AIHandler struct {
	aiService      *service.AIService
	runnerService  *service.RunnerService
	sessionService *service.SessionService
}

// NewAIHandler 创建 AIHandler 实例
func NewAIHandler(aiService *service.AIService, runnerService *service.RunnerService, sessionService *service.SessionService) *AIHandler {
	if aiService == nil || runnerService == nil || sessionService == nil {
		panic("services cannot be nil for AIHandler")
	}
	return &AIHandler{
		aiService:      aiService,
		runnerService:  runnerService,
		sessionService: sessionService,
	}
}

// ChatRequest 定义聊天代理请求的结构体。
// SessionID 非零时，完整回复会以 AI 哨兵身份落入该会话的消息日志。
type ChatRequest struct {
	Messages  []service.ChatMessage `json:"messages" binding:"required,min=1"`
	Stream    *bool                 `json:"stream"`
	SessionID uint                  `json:"session_id"`
}

// deltaFrame 是下发给客户端的 OpenAI 兼容增量帧。
type deltaFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func newDeltaFrame(content string) deltaFrame {
	var frame deltaFrame
	frame.Choices = make([]struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	}, 1)
	frame.Choices[0].Delta.Content = content
	return frame
}

// Chat 处理聊天代理请求。默认流式：SSE 下发增量帧，最后一帧是 [DONE]。
func (h *AIHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Messages array is required")
		return
	}

	stream := true
	if req.Stream != nil {
		stream = *req.Stream
	}

	if !stream {
		response, err := h.aiService.Chat(c.Request.Context(), req.Messages)
		if err != nil {
			HandleServiceError(c, err)
			return
		}
		h.persistAIReply(c, req.SessionID, response)
		SuccessResponse(c, http.StatusOK, gin.H{"response": response})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		ErrorResponse(c, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	var full strings.Builder
	err := h.aiService.StreamChat(c.Request.Context(), req.Messages, func(delta string) error {
		full.WriteString(delta)
		frame, err := json.Marshal(newDeltaFrame(delta))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", frame); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// 已经开始写 SSE 就不能再换状态码，只能记录并终止流
		if errors.Is(err, service.ErrAIRateLimited) && full.Len() == 0 {
			c.Status(http.StatusTooManyRequests)
			return
		}
		logrus.WithError(err).Error("Handler.Chat: Stream aborted")
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	flusher.Flush()

	if full.Len() > 0 {
		h.persistAIReply(c, req.SessionID, full.String())
	}
}

// persistAIReply 把完整回复写入会话消息日志 (session_id 为零时跳过)。
func (h *AIHandler) persistAIReply(c *gin.Context, sessionID uint, content string) {
	if sessionID == 0 {
		return
	}
	if _, err := h.sessionService.SendAIMessage(c.Request.Context(), sessionID, content); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to persist AI reply")
	}
}

// RunRequest 定义代码运行请求的结构体
type RunRequest struct {
	Filename string `json:"filename" binding:"required"`
	Content  string `json:"content"`
	Language string `json:"language" binding:"required"`
}

// Run 处理代码运行请求。不支持的语言也返回 200，失败体现在 exitCode。
func (h *AIHandler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "filename and language are required")
		return
	}

	result := h.runnerService.Run(c.Request.Context(), req.Filename, req.Content, req.Language)
	SuccessResponse(c, http.StatusOK, result)
}
