package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
	"collaborative-workspace/internal/service"
	"collaborative-workspace/internal/state"

	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 包内使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type      string // "register", "unregister", "client_message"
	SessionID uint
	UserID    uint
	Client    *Client
	RawData   []byte // 仅用于 client_message
}

// clientMessage 是客户端发来的 JSON 消息。
type clientMessage struct {
	Type      string `json:"type"` // "code_update", "language_update", "chat"
	Content   string `json:"content,omitempty"`
	Language  string `json:"language,omitempty"`
	UserLabel string `json:"userLabel,omitempty"`
}

// room 是一个会话的活跃连接集合，持有该会话的事件订阅和
// 本地投影 (新客户端的快照来源)。
type room struct {
	clients    map[*Client]bool
	projection *state.SessionProjection
	sub        repository.Subscription
}

// Hub 维护活跃客户端集合并协调会话频道的消息处理。
// 每个有连接的会话持有一份总线订阅，事件先喂给房间投影再广播。
type Hub struct {
	messageChan chan HubMessage

	rooms   map[uint]*room
	roomsMu sync.RWMutex

	sessionService *service.SessionService
	bus            repository.EventBus
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(sessionService *service.SessionService, bus repository.EventBus) *Hub {
	if sessionService == nil {
		panic("SessionService cannot be nil for Hub")
	}
	if bus == nil {
		panic("EventBus cannot be nil for Hub")
	}
	return &Hub{
		messageChan:    make(chan HubMessage, 512),
		rooms:          make(map[uint]*room),
		sessionService: sessionService,
		bus:            bus,
	}
}

// Run 启动 Hub 的主事件处理循环，应该在单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "client_message":
			// 异步处理，避免阻塞 Hub 主循环
			go h.handleClientMessage(msg)
		default:
			log.Warnf("Hub: Received unknown message type: %s from user %d in session %d", msg.Type, msg.UserID, msg.SessionID)
		}
	}
	log.Info("Hub is shutting down...")
}

// registerClient 把客户端加入会话房间，必要时创建房间 (订阅总线 + 建投影)。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	sessionID := client.SessionID()
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    client.UserID(),
		"action":     "registerClient",
	})

	h.roomsMu.RLock()
	r, ok := h.rooms[sessionID]
	h.roomsMu.RUnlock()

	// 装载快照和订阅是阻塞 I/O，放在锁外执行，避免拖住其他房间的注册
	var opened *room
	if !ok {
		var err error
		opened, err = h.openRoom(sessionID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to open room for session")
			client.sendJSON(map[string]string{"type": "error", "message": "Failed to load session"})
			client.CloseConn()
			return
		}
	}

	h.roomsMu.Lock()
	switch cur, exists := h.rooms[sessionID]; {
	case exists:
		r = cur
	case opened != nil:
		h.rooms[sessionID] = opened
		r = opened
		logCtx.Info("Room created for session")
	default:
		// 房间在装载期间被移除 (会话已删除)
		h.roomsMu.Unlock()
		logCtx.Warn("Room closed while client was registering")
		client.sendJSON(map[string]string{"type": "error", "message": "Session no longer available"})
		client.CloseConn()
		return
	}
	r.clients[client] = true
	h.roomsMu.Unlock()

	// 并发注册输掉了建房竞争：丢弃多余的订阅，pump 随之退出
	if opened != nil && r != opened {
		opened.sub.Unsubscribe()
	}
	logCtx.Info("Client registered to Hub")

	go h.sendSnapshot(client, r.projection)
}

// openRoom 创建房间：加载会话数据建投影，并订阅该会话的事件频道。
func (h *Hub) openRoom(sessionID uint) (*room, error) {
	ctx := context.Background()

	data, err := h.sessionService.GetSessionData(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	projection := state.NewSessionProjection(data.Session, data.Messages, data.Participants, data.Invites,
		func(id uint) ([]domain.SessionParticipant, []domain.SessionInvite, error) {
			return h.sessionService.LoadRoster(context.Background(), id)
		})

	sub, err := h.bus.Subscribe(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	r := &room{
		clients:    make(map[*Client]bool),
		projection: projection,
		sub:        sub,
	}
	go h.pumpEvents(sessionID, r)
	return r, nil
}

// pumpEvents 把总线事件喂给房间投影并广播给所有客户端。
// 订阅关闭时退出。
func (h *Hub) pumpEvents(sessionID uint, r *room) {
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "component": "room_pump"})
	for event := range r.sub.Events() {
		r.projection.Apply(event)

		data, err := json.Marshal(event)
		if err != nil {
			logCtx.WithError(err).Error("Failed to marshal event for broadcast")
			continue
		}
		h.broadcast(sessionID, data, nil)

		if event.Type == domain.EventSessionDeleted {
			logCtx.Info("Session deleted, closing room")
			h.closeRoom(sessionID)
			return
		}
	}
	logCtx.Debug("Room event pump exited")
}

// closeRoom 断开房间所有客户端并移除房间。
func (h *Hub) closeRoom(sessionID uint) {
	h.roomsMu.Lock()
	r, ok := h.rooms[sessionID]
	if ok {
		delete(h.rooms, sessionID)
	}
	h.roomsMu.Unlock()
	if !ok {
		return
	}

	r.sub.Unsubscribe()
	for client := range r.clients {
		client.close()
	}
}

// unregisterClient 把客户端移出房间，房间变空时取消订阅并移除房间。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	sessionID := client.SessionID()
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    client.UserID(),
		"action":     "unregisterClient",
	})

	// 断开前冲刷客户端未落库的代码缓冲
	client.flushDebouncer()

	h.roomsMu.Lock()
	if r, ok := h.rooms[sessionID]; ok {
		if _, exists := r.clients[client]; exists {
			delete(r.clients, client)
			client.close()

			if len(r.clients) == 0 {
				delete(h.rooms, sessionID)
				r.sub.Unsubscribe()
				logCtx.Info("Room empty, unsubscribed and removed from Hub")
			}
		} else {
			logCtx.Warn("Client not found in room during unregister")
		}
	} else {
		logCtx.Warn("Room not found during client unregister")
	}
	h.roomsMu.Unlock()
	logCtx.Info("Client unregistered from Hub")
}

// sendSnapshot 把房间投影的当前状态发给新连接的客户端。
func (h *Hub) sendSnapshot(client *Client, projection *state.SessionProjection) {
	if client == nil || projection == nil {
		return
	}
	session := projection.Session()
	snapshot := map[string]interface{}{
		"type":         "snapshot",
		"session":      session,
		"messages":     projection.Messages(),
		"participants": projection.Participants(),
		"invites":      projection.Invites(),
	}
	if !client.sendJSON(snapshot) {
		logrus.WithFields(logrus.Fields{
			"session_id": client.SessionID(),
			"user_id":    client.UserID(),
		}).Warn("Client send channel full when sending snapshot")
	}
}

// handleClientMessage 处理客户端发来的消息。
// 代码更新经过该客户端的去抖动器，500ms 空闲后才写存储；
// 语言切换和聊天消息立即写入。
func (h *Hub) handleClientMessage(msg HubMessage) {
	ctx := context.Background()
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": msg.SessionID,
		"user_id":    msg.UserID,
		"operation":  "handleClientMessage",
	})

	var cm clientMessage
	if err := json.Unmarshal(msg.RawData, &cm); err != nil {
		logCtx.WithError(err).Warn("Failed to parse client message, dropping")
		return
	}

	switch cm.Type {
	case "code_update":
		msg.Client.debounceCode(cm.Content)
	case "language_update":
		if err := h.sessionService.UpdateLanguage(ctx, msg.SessionID, cm.Language); err != nil {
			logCtx.WithError(err).Error("Failed to update session language")
		}
	case "chat":
		if _, err := h.sessionService.SendMessage(ctx, msg.SessionID, msg.UserID, cm.UserLabel, cm.Content); err != nil {
			logCtx.WithError(err).Error("Failed to append chat message")
		}
	default:
		logCtx.Warnf("Unknown client message type: %s", cm.Type)
	}
}

// broadcast 将消息发送给指定会话房间的所有客户端，sender 非 nil 时排除。
func (h *Hub) broadcast(sessionID uint, message []byte, sender *Client) {
	h.roomsMu.RLock()
	r, ok := h.rooms[sessionID]
	clientsToSend := make([]*Client, 0)
	if ok {
		for client := range r.clients {
			if client != sender {
				clientsToSend = append(clientsToSend, client)
			}
		}
	}
	h.roomsMu.RUnlock()

	if len(clientsToSend) == 0 {
		return
	}

	for _, client := range clientsToSend {
		// 非阻塞发送，避免单个慢客户端阻塞广播
		select {
		case client.send <- message:
		default:
			logrus.WithFields(logrus.Fields{
				"session_id":       sessionID,
				"receiver_user_id": client.UserID(),
			}).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 true 表示成功入队，false 表示队列已满被丢弃。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"session_id":   msg.SessionID,
			"user_id":      msg.UserID,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

// ActiveSessionIDs 返回当前有连接的会话 ID 列表。
func (h *Hub) ActiveSessionIDs() []uint {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	ids := make([]uint, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown 取消全部房间订阅并断开所有客户端。
func (h *Hub) Shutdown() {
	h.roomsMu.Lock()
	rooms := h.rooms
	h.rooms = make(map[uint]*room)
	h.roomsMu.Unlock()

	for _, r := range rooms {
		r.sub.Unsubscribe()
		for client := range r.clients {
			client.flushDebouncer()
			client.close()
		}
	}
	logrus.WithField("component", "hub").Info("All room subscriptions stopped")
}
