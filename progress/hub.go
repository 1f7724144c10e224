package progress

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	sendBufferSize = 64
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
)

// Connection 一个 WebSocket 连接
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte

	closeOnce sync.Once
}

// Hub 按会话管理 WebSocket 连接，同一会话可以有多个连接
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	sessions    map[string]map[string]struct{}

	upgrader websocket.Upgrader
}

// NewHub 创建 hub
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Register 把连接加入会话
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conn.ID] = conn
	if h.sessions[conn.SessionID] == nil {
		h.sessions[conn.SessionID] = make(map[string]struct{})
	}
	h.sessions[conn.SessionID][conn.ID] = struct{}{}
	logrus.WithFields(logrus.Fields{"conn": conn.ID, "session": conn.SessionID}).Info("WebSocket 已连接")
}

// Unregister 移除连接并关闭它的发送队列，可重复调用
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if ids := h.sessions[conn.SessionID]; ids != nil {
		delete(ids, conn.ID)
		if len(ids) == 0 {
			delete(h.sessions, conn.SessionID)
		}
	}
	conn.closeOnce.Do(func() { close(conn.Send) })
	logrus.WithFields(logrus.Fields{"conn": conn.ID, "session": conn.SessionID}).Info("WebSocket 已断开")
}

// Publish 实现 Sink。发送队列满的连接直接丢弃这条事件，不会阻塞。
func (h *Hub) Publish(sessionID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Warn("序列化进度事件失败")
		return
	}
	h.Broadcast(sessionID, data)
}

// Broadcast 把原始消息发给会话的全部连接
func (h *Hub) Broadcast(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.sessions[sessionID] {
		conn, ok := h.connections[id]
		if !ok {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			logrus.WithField("conn", id).Warn("发送队列已满，丢弃事件")
		}
	}
}

// ConnectionCount 当前连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasConnections 会话是否有活跃连接
func (h *Hub) HasConnections(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}

// ServeWS 升级为 WebSocket 并绑定到 sessionID。
// 客户端发来的任何文本都会收到一条 ping/pong 回应，用于前端保活。
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	conn := &Connection{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Conn:      ws,
		Send:      make(chan []byte, sendBufferSize),
	}
	h.Register(conn)

	go h.writePump(conn)
	go h.readPump(conn)
	return nil
}

func (h *Hub) readPump(conn *Connection) {
	defer func() {
		h.Unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(maxMessageSize)
	_ = conn.Conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, _, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("WebSocket 读取失败")
			}
			return
		}
		_ = conn.Conn.SetReadDeadline(time.Now().Add(pongTimeout))

		pong, _ := json.Marshal(Event{
			ID:        uuid.NewString(),
			Type:      TypePing,
			Data:      "pong",
			Timestamp: time.Now(),
		})
		h.mu.RLock()
		_, alive := h.connections[conn.ID]
		if alive {
			select {
			case conn.Send <- pong:
			default:
			}
		}
		h.mu.RUnlock()
	}
}

func (h *Hub) writePump(conn *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logrus.WithError(err).Debug("WebSocket 写入失败")
				return
			}
		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
