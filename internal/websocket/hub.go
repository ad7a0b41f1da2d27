package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/serial"
	"go.uber.org/zap"
)

// ErrHubClosed Hub已停止
var ErrHubClosed = stderrors.New("hub closed")

// 事件类型
const (
	EventConnected         = "connected"
	EventConnectionChanged = "connection_changed"
)

// Event 服务端主动推送的消息
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Hub WebSocket连接管理中心
type Hub struct {
	cfg *config.WebSocketConfig

	clients   map[string]*Client
	clientsMu sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	log *zap.Logger
}

// NewHub 创建Hub
func NewHub(cfg *config.WebSocketConfig) *Hub {
	c := *cfg
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 8192
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return &Hub{
		cfg:        &c,
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger.GetModuleLogger("websocket"),
	}
}

// Run 运行Hub，ctx取消后关闭所有客户端
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case data := <-h.broadcast:
			h.broadcastMessage(data)

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) shutdown() {
	h.closeOnce.Do(func() { close(h.done) })

	h.clientsMu.Lock()
	for id, client := range h.clients {
		client.closeSend()
		delete(h.clients, id)
	}
	h.clientsMu.Unlock()
	h.log.Info("WebSocket Hub已停止")
}

// Register 注册客户端，Hub已停止时返回ErrHubClosed
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.log.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("remote", client.remote))

	data, _ := json.Marshal(&Event{
		Type:      EventConnected,
		Data:      map[string]string{"client_id": client.ID},
		Timestamp: time.Now().Unix(),
	})
	client.trySend(data)
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		client.closeSend()
	}
	h.clientsMu.Unlock()

	h.log.Info("WebSocket客户端断开", zap.String("client_id", client.ID))
}

func (h *Hub) broadcastMessage(data []byte) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for _, client := range h.clients {
		if !client.trySend(data) {
			h.log.Warn("客户端发送缓冲区满", zap.String("client_id", client.ID))
		}
	}
}

// Broadcast 推送事件给所有客户端，队列满时丢弃
func (h *Hub) Broadcast(event *Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("序列化消息失败", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("广播队列已满，丢弃事件", zap.String("type", event.Type))
	}
}

// NotifyConnectionChanged 连接状态变化时推送
func (h *Hub) NotifyConnectionChanged(status serial.Status) {
	h.Broadcast(&Event{Type: EventConnectionChanged, Data: status})
}

// ClientCount 当前在线客户端数
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
