package websocket

import (
	"encoding/json"
	"sync"
	"time"
)

// Notification 推送给客户端的通知
type Notification struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Time    int64       `json:"time"`
}

// Hub WebSocket 连接管理中心
// 所有连接共享同一广播组，用于推送摄取进度和助手状态变更
type Hub struct {
	clients    map[*Connection]bool
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan []byte
	mu         sync.RWMutex
}

// Connection WebSocket 连接
type Connection struct {
	Send chan []byte
}

// NewConnection 创建连接，发送缓冲满时消息被丢弃并断开连接
func NewConnection() *Connection {
	return &Connection{
		Send: make(chan []byte, 16),
	}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan []byte),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(conn.Send)
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				select {
				case conn.Send <- data:
				default:
					// 发送缓冲已满，判定为慢连接，断开
					close(conn.Send)
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Register 注册连接
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast 向所有连接广播通知
func (h *Hub) Broadcast(notificationType string, payload interface{}) error {
	data, err := json.Marshal(&Notification{
		Type:    notificationType,
		Payload: payload,
		Time:    time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	h.broadcast <- data
	return nil
}
