package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/echonow/echonow_server/internal/pkg/logger"
)

const writeWait = 5 * time.Second

type Hub struct {
	// 每个用户可以有多个连接（多标签页、重连等场景），按邮箱归组
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	log     *logger.Logger
}

type Client struct {
	Email string
	Conn  *websocket.Conn
	mu    sync.Mutex // 写锁，防止并发写入
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		log:     log.With("component", "ws"),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.Email] == nil {
		h.clients[client.Email] = make(map[*Client]struct{})
	}
	h.clients[client.Email][client] = struct{}{}

	h.log.Debug("client connected", "email", client.Email, "user_conns", len(h.clients[client.Email]))
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.Email]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.Email)
		}
	}
	h.log.Debug("client disconnected", "email", client.Email)
}

// SendToUser 向指定用户的所有连接发送消息，返回成功写入的连接数
func (h *Hub) SendToUser(email string, msg *Message) (int, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	conns, ok := h.clients[email]
	if !ok {
		h.mu.RUnlock()
		return 0, nil
	}
	// 复制一份引用，避免长时间持锁
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		c.mu.Lock()
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.Conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			h.log.Warn("websocket write failed", "email", email, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// IsOnline 检查用户是否在线
func (h *Hub) IsOnline(email string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[email]
	return ok && len(conns) > 0
}

// ConnectionCount 获取在线连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
