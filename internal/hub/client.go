package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"collaborative-workspace/internal/state"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
// 每个客户端持有自己的代码去抖动器：编辑键入经 debounceCode 进入，
// 500ms 空闲后才触发一次存储写入。
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID uint
	userID    uint
	send      chan []byte

	debouncer *state.Debouncer

	closeOnce sync.Once
}

// NewClient 创建一个新的 Client 实例。
func NewClient(h *Hub, conn *websocket.Conn, sessionID uint, userID uint) *Client {
	c := &Client{
		hub:       h,
		conn:      conn,
		sessionID: sessionID,
		userID:    userID,
		send:      make(chan []byte, 256),
	}
	c.debouncer = state.NewDebouncer(state.DebounceInterval, func(code string) {
		if err := h.sessionService.UpdateCode(context.Background(), sessionID, code); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"session_id": sessionID,
				"user_id":    userID,
			}).Error("Debounced code write failed")
		}
	})
	return c
}

// Run 启动客户端的读写 goroutine。
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump 将消息从 WebSocket 连接泵送到 Hub 的处理通道。
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := HubMessage{Type: "unregister", Client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		msg := HubMessage{
			Type:      "client_message",
			SessionID: c.sessionID,
			UserID:    c.userID,
			Client:    c,
			RawData:   message,
		}
		// 非阻塞发送到 Hub，如果 Hub 处理不过来则丢弃
		select {
		case c.hub.messageChan <- msg:
		default:
			logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).Warn("Hub message channel full, dropping client message")
		}
	}
}

// WritePump 将消息从 Client 的 send 通道泵送到 WebSocket 连接。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Hub 关闭了（通常在注销时）
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "session_id": c.sessionID}).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

// debounceCode 把最新的代码缓冲交给去抖动器。
func (c *Client) debounceCode(code string) {
	c.debouncer.Set(code)
}

// flushDebouncer 立即落库未写入的代码缓冲 (断开连接时调用)。
func (c *Client) flushDebouncer() {
	c.debouncer.Flush()
}

// sendJSON 序列化并非阻塞地发送一条消息，通道满时返回 false。
func (c *Client) sendJSON(v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal outbound client message")
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close 关闭 send 通道，触发 WritePump 退出。幂等。
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) SessionID() uint { return c.sessionID }
func (c *Client) UserID() uint    { return c.userID }
func (c *Client) CloseConn()      { c.conn.Close() }
