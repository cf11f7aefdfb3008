package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/indexcast/pkg/logger"
)

const (
	// Ping/Pong settings
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	// sendBuffer 클라이언트별 대기 메시지 수 (초과 시 연결 종료)
	sendBuffer = 8
)

// Message websocket 으로 전송되는 리포트 이벤트
type Message struct {
	Type   string          `json:"type"`
	Symbol string          `json:"symbol"`
	Report json.RawMessage `json:"report"`
}

// Hub 리포트 구독자 관리
// ⭐ SSOT: websocket 연결은 이 허브에서만 관리
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	symbol string // 빈 값이면 모든 심볼 수신
	once   sync.Once
}

// NewHub creates a hub; CORS 와 동일하게 모든 Origin 허용
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  log.Component("ws"),
		clients: make(map[*client]struct{}),
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish implements forecast.Publisher
func (h *Hub) Publish(symbol string, payload []byte) {
	msg, err := json.Marshal(Message{Type: "report", Symbol: symbol, Report: payload})
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode report message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.symbol != "" && c.symbol != symbol {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// 느린 구독자는 끊음
			go h.remove(c)
		}
	}
}

// ServeHTTP upgrades the request and streams reports
// GET /ws/forecast?symbol=^GSPC
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		symbol: r.URL.Query().Get("symbol"),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.WithFields(map[string]interface{}{
		"remote":  r.RemoteAddr,
		"symbol":  c.symbol,
		"clients": h.Count(),
	}).Info("WebSocket client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()

		close(c.send)
		c.conn.Close()
	})
}

// readLoop 클라이언트 메시지는 무시, pong 으로 연결 유지만 확인
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.remove(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.WithError(err).Debug("WebSocket write failed")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
