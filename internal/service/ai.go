package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrAIRateLimited 表示上游模型接口返回了 429，边界层原样透传给客户端。
var ErrAIRateLimited = errors.New("ai gateway rate limited")

// ChatMessage 是 OpenAI 风格的对话消息。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// systemInstruction 是注入每次对话的系统提示。
const systemInstruction = `You are a helpful AI assistant in a collaborative workspace. You can help with coding, writing, analysis, and general questions.
When providing code, always use proper markdown code blocks with language specification like ` + "```javascript or ```python" + `.
Be concise but thorough. Use markdown formatting for better readability.`

// AIService 把聊天请求代理到 Gemini 接口，并把上游 SSE 转成
// OpenAI 兼容的 delta 帧。存储不经过这里：AI 回复由调用方通过
// SessionService.SendAIMessage 落库。
type AIService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewAIService 创建 AIService。baseURL 为空时使用官方地址。
func NewAIService(apiKey, baseURL, model string) *AIService {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &AIService{
		client:  &http.Client{Timeout: 120 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

// geminiContent 是上游接口的消息格式。
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// buildRequest 把 OpenAI 风格消息转成上游格式。assistant 映射为 model 角色。
func (s *AIService) buildRequest(messages []ChatMessage) *geminiRequest {
	req := &geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
	}
	req.GenerationConfig.Temperature = 0.7
	req.GenerationConfig.MaxOutputTokens = 8192
	for _, msg := range messages {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	return req
}

func (s *AIService) post(ctx context.Context, url string, payload *geminiRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, ErrAIRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		logrus.WithField("status", resp.StatusCode).Error("AI gateway returned non-OK status")
		return nil, fmt.Errorf("ai gateway error: status %d", resp.StatusCode)
	}
	return resp, nil
}

// StreamChat 流式对话。每收到一段增量文本就调用一次 deliver；
// deliver 返回错误时中止 (通常是客户端断开)。
func (s *AIService) StreamChat(ctx context.Context, messages []ChatMessage, deliver func(delta string) error) error {
	if len(messages) == 0 {
		return ErrInvalidInput
	}
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", s.baseURL, s.model, s.apiKey)
	resp, err := s.post(ctx, url, s.buildRequest(messages))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var chunk geminiResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			logrus.WithError(err).Debug("Skipping unparseable SSE chunk")
			continue
		}
		text := extractText(&chunk)
		if text == "" {
			continue
		}
		if err := deliver(text); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Chat 非流式对话，返回完整回复文本。
func (s *AIService) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", ErrInvalidInput
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)
	resp, err := s.post(ctx, url, s.buildRequest(messages))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode upstream response: %w", err)
	}
	text := extractText(&decoded)
	if text == "" {
		return "", fmt.Errorf("empty response from ai gateway")
	}
	return text, nil
}

func extractText(resp *geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}
