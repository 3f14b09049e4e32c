package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
)

// Hub 管理所有 WebSocket 连接
// 生命周期事件在事务提交后广播到所有订阅者,投递尽力而为
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	// 广播消息到所有客户端
	Broadcast chan []byte

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	// 互斥锁,保护 clients map
	mu sync.RWMutex
}

// EventMessage 推送给订阅者的事件消息
type EventMessage struct {
	TaskID    string          `json:"task_id"`
	Type      string          `json:"type"`
	Actor     string          `json:"actor"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewHub 创建新的 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// PublishEvent 广播生命周期事件
// 实现 service.Notifier;channel 满时丢弃,不阻塞调用方
func (h *Hub) PublishEvent(event *model.TaskEventModel) {
	msg := EventMessage{
		TaskID:    event.TaskID,
		Type:      event.Type,
		Actor:     event.Actor,
		Metadata:  event.Metadata,
		Timestamp: event.CreatedAt,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.Broadcast <- data:
	default:
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
