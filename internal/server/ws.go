package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время, разрешенное для чтения следующего pong сообщения от клиента.
	pongWait = 60 * time.Second
	// Отправлять пинги клиенту с этим периодом. Должно быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Клиент ничего осмысленного не шлет, сообщения от него игнорируются.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient - одно WebSocket соединение, подписанное на события сессии.
type wsClient struct {
	id        string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub управляет активными WebSocket соединениями. Одна сессия может
// иметь несколько подписчиков (несколько вкладок).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[string]*wsClient // sessionID -> clientID -> client
	logger  *zap.Logger
}

// NewHub создает менеджер соединений.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[string]*wsClient),
		logger:  logger.Named("WSHub"),
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.sessionID] == nil {
		h.clients[c.sessionID] = make(map[string]*wsClient)
	}
	h.clients[c.sessionID][c.id] = c
	h.logger.Info("WebSocket client registered",
		zap.String("sessionID", c.sessionID), zap.String("clientID", c.id))
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[c.sessionID]; ok {
		if _, ok := clients[c.id]; ok {
			delete(clients, c.id)
			close(c.send)
			if len(clients) == 0 {
				delete(h.clients, c.sessionID)
			}
			h.logger.Info("WebSocket client unregistered",
				zap.String("sessionID", c.sessionID), zap.String("clientID", c.id))
		}
	}
}

// Publish рассылает сообщение всем подписчикам сессии. Переполненная
// очередь клиента означает мертвое соединение, сообщение для него
// пропускается, закрытием займутся pump'ы.
func (h *Hub) Publish(sessionID string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, c := range h.clients[sessionID] {
		select {
		case c.send <- message:
			delivered++
		default:
			h.logger.Warn("WebSocket send queue is full, dropping message",
				zap.String("sessionID", sessionID), zap.String("clientID", c.id))
		}
	}
	return delivered
}

// Subscribers возвращает количество подписчиков сессии.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// ServeWS апгрейдит HTTP запрос до WebSocket и подписывает соединение
// на события сессии.
func (h *Hub) ServeWS(c *gin.Context) {
	sessionID := sessionIDFrom(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection",
			zap.String("sessionID", sessionID), zap.Error(err))
		return
	}

	client := &wsClient{
		id:        uuid.NewString(),
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, 256),
	}
	h.register(client)

	go client.writePump(h)
	go client.readPump(h)
}

// readPump откачивает входящие сообщения. Клиент ничего не должен
// присылать, но чтение нужно для обработки pong и закрытия.
func (c *wsClient) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket read error",
					zap.String("sessionID", c.sessionID), zap.Error(err))
			}
			return
		}
	}
}

// writePump откачивает сообщения из очереди в соединение и шлет пинги.
func (c *wsClient) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Warn("WebSocket write error",
					zap.String("sessionID", c.sessionID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
