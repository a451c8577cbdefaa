package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/magefree/mage-duel-server/internal/game/rules"
	"github.com/magefree/mage-duel-server/internal/service"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Websocket message types.
const (
	MessageAction = "action"
	MessageResult = "result"
	MessageState  = "state"
	MessageError  = "error"
)

// WSMessage is the envelope for every websocket frame.
type WSMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type broadcast struct {
	sessionID string
	payload   []byte
}

// Client is one websocket connection subscribed to a session. The send
// channel is never closed; the hub closes done when it drops the client.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	sessionID string
}

// Hub fans session results out to subscribed websocket clients.
type Hub struct {
	svc        *service.Service
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	sessions   map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	done       chan struct{}
}

// NewHub creates a hub. An empty origin list keeps gorilla's same-origin
// check.
func NewHub(svc *service.Service, logger *zap.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		svc:        svc,
		logger:     logger,
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, 256),
		done:       make(chan struct{}),
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return allowed[r.Header.Get("Origin")]
		}
	}
	return h
}

// Run owns the subscription maps until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for c := range clients {
					close(c.done)
				}
			}
			h.sessions = make(map[string]map[*Client]bool)
			return

		case c := <-h.register:
			clients, ok := h.sessions[c.sessionID]
			if !ok {
				clients = make(map[*Client]bool)
				h.sessions[c.sessionID] = clients
			}
			clients[c] = true
			h.logger.Debug("client subscribed", zap.String("session_id", c.sessionID), zap.Int("clients", len(clients)))

		case c := <-h.unregister:
			h.remove(c)

		case b := <-h.broadcast:
			for c := range h.sessions[b.sessionID] {
				select {
				case c.send <- b.payload:
				default:
					h.logger.Warn("dropping slow websocket client", zap.String("session_id", b.sessionID))
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	clients, ok := h.sessions[c.sessionID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.done)
	if len(clients) == 0 {
		delete(h.sessions, c.sessionID)
	}
}

// Publish queues a result for every client of the session. It never blocks;
// when the queue is full the update is dropped and clients catch up on the
// next one.
func (h *Hub) Publish(sessionID string, res service.Result) {
	payload, err := encodeMessage(MessageResult, sessionID, res)
	if err != nil {
		h.logger.Error("encode broadcast", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- broadcast{sessionID: sessionID, payload: payload}:
	default:
		h.logger.Warn("broadcast queue full", zap.String("session_id", sessionID))
	}
}

// ServeSession upgrades the request and subscribes the connection to a
// session. The current state is sent first.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	current := h.svc.GetSession(r.Context(), sessionID)
	if !current.Success {
		writeResult(w, statusFor(current), current)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		sessionID: sessionID,
	}
	if payload, err := encodeMessage(MessageState, sessionID, current); err == nil {
		c.send <- payload
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump submits actions from the client. Failed results go back to the
// sender only; successful ones reach every subscriber through the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(MessageError, service.Result{Code: service.CodeInvalidRequest, Message: "malformed message"})
			continue
		}
		if msg.Type != MessageAction {
			c.reply(MessageError, service.Result{Code: service.CodeInvalidRequest, Message: "unknown message type " + msg.Type})
			continue
		}

		action, err := decodeAction(msg.Data)
		if err != nil {
			c.reply(MessageError, service.Result{Code: service.CodeInvalidRequest, Message: err.Error()})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		res := c.hub.svc.Dispatch(ctx, c.sessionID, action)
		cancel()
		if !res.Success {
			c.reply(MessageResult, res)
		}
	}
}

func (c *Client) reply(kind string, res service.Result) {
	payload, err := encodeMessage(kind, c.sessionID, res)
	if err != nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func encodeMessage(kind, sessionID string, res service.Result) ([]byte, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{Type: kind, SessionID: sessionID, Data: data})
}

// decodeAction parses an action body and normalizes its type name.
func decodeAction(data []byte) (game.Action, error) {
	var a game.Action
	if len(data) == 0 {
		return a, errEmptyAction
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, err
	}
	t, err := rules.ParseActionType(string(a.Type))
	if err != nil {
		return a, err
	}
	a.Type = t
	return a, nil
}
