package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// ErrHubClosed は停止済みの Hub に購読しようとしたことを表す
var ErrHubClosed = errors.New("配信ハブは停止しています")

// client は1つの WebSocket 接続
type client struct {
	conn    *websocket.Conn
	eventID string
	send    chan []byte
}

// Hub はイベントごとの部屋で座席変更を観測者に配信する
// 配信は送信バッファへの投入のみで、詰まった観測者は切断する
type Hub struct {
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	rooms  map[string]map[*client]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*client]struct{}),
	}
}

// ServeWS は接続を WebSocket にアップグレードし、eventID の部屋に参加させる
// 接続が閉じるまで戻らない
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, eventID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, eventID: eventID, send: make(chan []byte, sendBufferSize)}
	if err := h.join(c); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return err
	}
	logger.Debug("観測者が参加しました", zap.String("event_id", eventID))

	go h.writePump(c)
	h.readPump(c)
	return nil
}

func (h *Hub) join(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	room, ok := h.rooms[c.eventID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.eventID] = room
	}
	room[c] = struct{}{}
	return nil
}

// leave は部屋から外して送信チャネルを閉じる（二重に呼んでも安全）
func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.eventID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.eventID)
	}
}

// readPump は切断の検知と pong の受信のためだけに読み続ける
func (h *Hub) readPump(c *client) {
	defer func() {
		h.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// Publish はトピックのイベントの部屋に座席変更を配信する
func (h *Hub) Publish(_ context.Context, topic string, change notification.SeatChange) error {
	eventID, ok := notification.EventIDFromTopic(topic)
	if !ok {
		eventID = change.EventID
	}
	payload, err := change.Encode()
	if err != nil {
		return err
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.rooms[eventID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("送信が詰まった観測者を切断します", zap.String("event_id", eventID))
		h.leave(c)
	}
	return nil
}

// Subscribers はイベントの部屋にいる観測者数を返す
func (h *Hub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// Close はすべての観測者を切断し、以降の参加を拒否する
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, room := range h.rooms {
		for c := range room {
			close(c.send)
		}
		delete(h.rooms, id)
	}
}

var _ notification.Publisher = (*Hub)(nil)
