// Package server exposes rooms to clients over WebSocket and reports health
// over gRPC.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/caprica/fleet-server/internal/config"
	"github.com/caprica/fleet-server/internal/deck"
	"github.com/caprica/fleet-server/internal/game"
	"github.com/caprica/fleet-server/internal/room"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxMessageSize = 64 << 10

// Inbound message types.
const (
	MsgCreateRoom = "create_room"
	MsgJoinRoom   = "join_room"
	MsgRejoin     = "rejoin"
	MsgListRooms  = "list_rooms"
	MsgSubmitDeck = "submit_deck"
	MsgAction     = "action"
)

// Outbound message types.
const (
	MsgRoom  = "room"
	MsgRooms = "rooms"
	MsgState = "state"
	MsgError = "error"
)

// WSMessage is a client request. Data is decoded according to Type.
type WSMessage struct {
	Type   string          `json:"type"`
	RoomID string          `json:"room_id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type outMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type createRoomData struct {
	Name     string `json:"name"`
	VsAI     bool   `json:"vs_ai"`
	Password string `json:"password"`
	Seed     int64  `json:"seed"`
}

type joinRoomData struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type rejoinData struct {
	Token string `json:"token"`
}

// RoomData answers create_room, join_room and rejoin. Token lets the seat
// reconnect after a dropped connection.
type RoomData struct {
	Room  room.Info `json:"room"`
	Seat  int       `json:"seat"`
	Token string    `json:"token"`
}

// ErrorData describes a rejected request.
type ErrorData struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type seatKey struct {
	roomID string
	seat   int
}

// Client is one WebSocket connection.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	id     string
	roomID string
	seat   int
}

// Hub routes client requests to the room manager and room snapshots back to
// the seated clients.
type Hub struct {
	rooms  *room.Manager
	logger *zap.Logger

	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	clients map[*Client]bool
	seats   map[seatKey]*Client
	tokens  map[string]seatKey
}

// NewHub creates a hub and registers it as the manager's notifier.
func NewHub(rooms *room.Manager, logger *zap.Logger) *Hub {
	h := &Hub{
		rooms:      rooms,
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		seats:      make(map[seatKey]*Client),
		tokens:     make(map[string]seatKey),
	}
	rooms.SetNotifier(h)
	return h
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("client_id", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				key := seatKey{client.roomID, client.seat}
				if h.seats[key] == client {
					delete(h.seats, key)
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", zap.String("client_id", client.id))
		}
	}
}

// Publish implements room.Notifier.
func (h *Hub) Publish(roomID string, seat int, snap room.Snapshot) {
	h.mu.RLock()
	client := h.seats[seatKey{roomID, seat}]
	h.mu.RUnlock()
	if client == nil {
		return
	}
	h.reply(client, outMessage{Type: MsgState, RoomID: roomID, Data: snap})
}

// reply queues msg for client, dropping it if the client is gone or slow.
func (h *Hub) reply(client *Client, msg outMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("client send buffer full", zap.String("client_id", client.id))
	}
}

func (h *Hub) replyError(client *Client, roomID string, err error) {
	data := ErrorData{Message: err.Error()}
	var deckErr *deckError
	if errors.As(err, &deckErr) {
		data.Errors = deckErr.result.Errors
	}
	h.reply(client, outMessage{Type: MsgError, RoomID: roomID, Data: data})
}

type deckError struct {
	result deck.Result
	err    error
}

func (e *deckError) Error() string { return e.err.Error() }
func (e *deckError) Unwrap() error { return e.err }

// decodeData strictly decodes a message payload; unknown fields are rejected.
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing data")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed data: %w", err)
	}
	return nil
}

// DecodeAction parses an action payload, rejecting unknown action types.
func DecodeAction(raw json.RawMessage) (game.Action, error) {
	var a game.Action
	if err := decodeData(raw, &a); err != nil {
		return game.Action{}, err
	}
	if !a.Type.Valid() {
		return game.Action{}, fmt.Errorf("unknown action type %q", a.Type)
	}
	return a, nil
}

// bind attaches client to a seat and issues a reconnect token.
func (h *Hub) bind(client *Client, roomID string, seat int) string {
	token := uuid.New().String()
	h.mu.Lock()
	defer h.mu.Unlock()
	client.roomID, client.seat = roomID, seat
	h.seats[seatKey{roomID, seat}] = client
	h.tokens[token] = seatKey{roomID, seat}
	return token
}

func (h *Hub) handleMessage(ctx context.Context, client *Client, msg WSMessage) error {
	switch msg.Type {
	case MsgCreateRoom:
		var data createRoomData
		if err := decodeData(msg.Data, &data); err != nil {
			return err
		}
		info, err := h.rooms.Create(room.Options{Name: data.Name, VsAI: data.VsAI, Password: data.Password, Seed: data.Seed})
		if err != nil {
			return err
		}
		token := h.bind(client, info.ID, 0)
		h.reply(client, outMessage{Type: MsgRoom, RoomID: info.ID, Data: RoomData{Room: info, Seat: 0, Token: token}})

	case MsgJoinRoom:
		var data joinRoomData
		if err := decodeData(msg.Data, &data); err != nil {
			return err
		}
		seat, err := h.rooms.Join(msg.RoomID, data.Name, data.Password)
		if err != nil {
			return err
		}
		token := h.bind(client, msg.RoomID, seat)
		info, err := h.rooms.Get(msg.RoomID)
		if err != nil {
			return err
		}
		h.reply(client, outMessage{Type: MsgRoom, RoomID: msg.RoomID, Data: RoomData{Room: info, Seat: seat, Token: token}})

	case MsgRejoin:
		var data rejoinData
		if err := decodeData(msg.Data, &data); err != nil {
			return err
		}
		h.mu.RLock()
		key, ok := h.tokens[data.Token]
		h.mu.RUnlock()
		if !ok || key.roomID != msg.RoomID {
			return room.ErrNotSeated
		}
		info, err := h.rooms.Get(key.roomID)
		if err != nil {
			return err
		}
		h.mu.Lock()
		client.roomID, client.seat = key.roomID, key.seat
		h.seats[key] = client
		h.mu.Unlock()
		h.reply(client, outMessage{Type: MsgRoom, RoomID: key.roomID, Data: RoomData{Room: info, Seat: key.seat, Token: data.Token}})
		if snap, err := h.rooms.Snapshot(key.roomID, key.seat); err == nil {
			h.reply(client, outMessage{Type: MsgState, RoomID: key.roomID, Data: snap})
		}

	case MsgListRooms:
		h.reply(client, outMessage{Type: MsgRooms, Data: h.rooms.List()})

	case MsgSubmitDeck:
		if client.roomID == "" {
			return room.ErrNotSeated
		}
		var sub deck.Submission
		if err := decodeData(msg.Data, &sub); err != nil {
			return err
		}
		res, err := h.rooms.SubmitDeck(ctx, client.roomID, client.seat, sub)
		if err != nil {
			if !res.Valid && len(res.Errors) > 0 {
				return &deckError{result: res, err: err}
			}
			return err
		}
		info, err := h.rooms.Get(client.roomID)
		if err != nil {
			return err
		}
		h.reply(client, outMessage{Type: MsgRoom, RoomID: client.roomID, Data: RoomData{Room: info, Seat: client.seat}})

	case MsgAction:
		if client.roomID == "" {
			return room.ErrNotSeated
		}
		action, err := DecodeAction(msg.Data)
		if err != nil {
			return err
		}
		return h.rooms.Submit(ctx, client.roomID, client.seat, action)

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (c *Client) readPump(ctx context.Context, hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hub.logger.Debug("websocket read failed", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			hub.replyError(c, "", fmt.Errorf("malformed message: %w", err))
			continue
		}
		if err := hub.handleMessage(ctx, c, msg); err != nil {
			hub.logger.Debug("request rejected",
				zap.String("client_id", c.id),
				zap.String("type", msg.Type),
				zap.Error(err),
			)
			hub.replyError(c, msg.RoomID, err)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func newUpgrader(cfg config.WebSocketConfig) *websocket.Upgrader {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
	}
}

// Handler returns the HTTP handler serving /ws and /healthz.
func (h *Hub) Handler(ctx context.Context, cfg config.WebSocketConfig) http.Handler {
	upgrader := newUpgrader(cfg)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{
			conn: conn,
			send: make(chan []byte, 256),
			id:   uuid.New().String(),
		}
		select {
		case h.register <- client:
		case <-ctx.Done():
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump(ctx, h)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// StartWebSocketServer serves the hub until ctx is done.
func StartWebSocketServer(ctx context.Context, cfg config.WebSocketConfig, hub *Hub, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           hub.Handler(ctx, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting WebSocket server", zap.String("address", cfg.Address))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
