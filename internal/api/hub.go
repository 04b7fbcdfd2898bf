package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tankarena/server/internal/broadcast"
	"github.com/tankarena/server/internal/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return IsAllowedOrigin(r.Header.Get("Origin"))
	},
}

// ClientMessage is one inbound message from a connected client: either a
// tick input or a chat line, tagged by Type.
type ClientMessage struct {
	Type  string          `json:"type"`
	Input json.RawMessage `json:"input,omitempty"`
	Chat  json.RawMessage `json:"chat,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// wsClient is one connected websocket client's send-side state.
type wsClient struct {
	conn     *websocket.Conn
	send     chan []byte
	connID   string
	playerID string
	joined   bool
}

// Engine is the subset of GameRoom behavior the hub and router need,
// expressed as an interface so internal/api never imports internal/game
// directly (matching the teacher's EngineInterface seam).
type Engine interface {
	Join(id, name string, faction int) (WelcomePacket, error)
	Leave(id string)
	HandleInput(id string, raw json.RawMessage) error
	Fire(id string, power, turretAngle float64) error
	ChoosePortal(id string, tileIndex int) error
	SetFaction(id string, faction int) error
	Tip(fromID string, toID string, amount int) bool
	IsCommander(id string) bool
	Snapshot() broadcast.Snapshot
	PlayerCount() int
	PlayerName(id string) (string, bool)
}

// OtherPlayerInfo is minimal info about another connected player, included
// in the welcome packet so a joining client can render existing tanks
// before its first snapshot arrives.
type OtherPlayerInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Faction int    `json:"faction"`
}

// WelcomePacket is sent to a client immediately after a successful join: a
// superset of identity, world geometry, initial capture snapshot, full
// commander state, and minimal info for every other connected player.
type WelcomePacket struct {
	PlayerID   string            `json:"playerId"`
	World      interface{}       `json:"world"`
	Capture    interface{}       `json:"capture"`
	Commanders interface{}       `json:"commanders"`
	Players    []OtherPlayerInfo `json:"players"`
}

type tipConfirmedPayload struct {
	ToID   string `json:"toId"`
	Amount int    `json:"amount"`
}

type tipFailedPayload struct {
	ToID   string `json:"toId"`
	Amount int    `json:"amount"`
}

type tipReceivedPayload struct {
	FromID string `json:"fromId"`
	Amount int    `json:"amount"`
}

type commanderPingPayload struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Faction  int     `json:"faction"`
}

type commanderDrawingPayload struct {
	PlayerID string    `json:"playerId"`
	Points   []float64 `json:"points"`
	Done     bool      `json:"done"`
}

// Hub tracks every connected websocket client and fans out broadcast
// snapshots at the tick rate, adapted from the teacher's WebSocketHub
// (register/unregister/broadcast channels, non-blocking send).
type Hub struct {
	engine Engine

	clients    map[*wsClient]bool
	byPlayer   map[string]*wsClient
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	mu         sync.RWMutex

	wsLimiter   *WebSocketRateLimiter
	chatHandler *chat.Handler
	chatQueue   *chat.CommandQueue
}

// NewHub constructs a hub bound to the given engine and starts its chat
// worker pool.
func NewHub(engine Engine, limiter *WebSocketRateLimiter) *Hub {
	h := &Hub{
		engine:     engine,
		clients:    make(map[*wsClient]bool),
		byPlayer:   make(map[string]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
		wsLimiter:  limiter,
	}
	h.chatHandler = chat.NewHandler(h, engine)
	h.chatQueue = chat.NewCommandQueue(h.chatHandler, chat.DefaultQueueConfig())
	h.chatQueue.Start()
	return h
}

// BroadcastChat satisfies chat.Broadcaster: it fans an outgoing chat line
// out to every connected client as a "chat" typed message.
func (h *Hub) BroadcastChat(msg chat.OutgoingChat) {
	data, err := json.Marshal(struct {
		Type string `json:"type"`
		chat.OutgoingChat
	}{Type: "chat", OutgoingChat: msg})
	if err != nil {
		log.Printf("hub: marshal chat: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// Announce emits a Tusk-authored global announcement.
func (h *Hub) Announce(event chat.TuskEvent, args ...string) {
	h.chatHandler.Announce(event, args...)
}

// Run processes register/unregister/broadcast events until the channel set
// is torn down; intended to run on its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				if c.playerID != "" && h.byPlayer[c.playerID] == c {
					delete(h.byPlayer, c.playerID)
				}
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client; drop rather than block the hub.
					go func(c *wsClient) { h.unregister <- c }(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// StartBroadcastLoop publishes the engine's latest snapshot to every client
// at the given tick interval.
func (h *Hub) StartBroadcastLoop(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			snap := h.engine.Snapshot()
			data, err := json.Marshal(snap)
			if err != nil {
				log.Printf("hub: marshal snapshot: %v", err)
				continue
			}
			select {
			case h.broadcast <- data:
			default:
			}
		}
	}()
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// bindPlayer records which client owns a playerID once join succeeds, so
// Send can target it later.
func (h *Hub) bindPlayer(playerID string, c *wsClient) {
	h.mu.Lock()
	h.byPlayer[playerID] = c
	h.mu.Unlock()
}

// Send delivers a typed event to a single connected player, if still
// connected; a no-op otherwise (the player may have disconnected between
// the triggering action and this send).
func (h *Hub) Send(playerID, eventType string, payload interface{}) {
	h.mu.RLock()
	c, ok := h.byPlayer[playerID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	data, err := marshalEvent(eventType, payload)
	if err != nil {
		log.Printf("hub: marshal %s: %v", eventType, err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Emit satisfies game.EventSink: it fans a room-originated event out to
// every connected client, tagged with its event type. internal/api never
// imports internal/game; this method only needs to match the EventSink
// method signature structurally.
func (h *Hub) Emit(eventType string, payload interface{}) {
	data, err := marshalEvent(eventType, payload)
	if err != nil {
		log.Printf("hub: marshal %s: %v", eventType, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// marshalEvent encodes payload and injects a "type" field alongside its
// fields, matching the {"type": "...", ...} shape every client message
// (inbound and outbound) uses on this wire protocol.
func marshalEvent(eventType string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	typeField, err := json.Marshal(eventType)
	if err != nil {
		return nil, err
	}
	fields["type"] = typeField
	return json.Marshal(fields)
}

// HandleWebSocket upgrades an HTTP connection and wires it into the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)
	if h.wsLimiter != nil && !h.wsLimiter.Allow(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: upgrade failed: %v", err)
		if h.wsLimiter != nil {
			h.wsLimiter.Release(ip)
		}
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 32), connID: uuid.NewString()}
	h.register <- client

	go h.writeLoop(client)
	go h.readLoop(client, ip)
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) readLoop(c *wsClient, ip string) {
	defer func() {
		h.unregister <- c
		if h.wsLimiter != nil {
			h.wsLimiter.Release(ip)
		}
		if c.joined {
			h.engine.Leave(c.playerID)
		}
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "join":
			var req struct {
				Name    string `json:"name"`
				Faction int    `json:"faction"`
			}
			if err := json.Unmarshal(msg.Input, &req); err != nil {
				continue
			}
			if c.joined {
				continue
			}
			welcome, err := h.engine.Join(c.connID, req.Name, req.Faction)
			if err != nil {
				continue
			}
			c.playerID = welcome.PlayerID
			c.joined = true
			h.bindPlayer(c.playerID, c)
			data, _ := json.Marshal(struct {
				Type string `json:"type"`
				WelcomePacket
			}{Type: "welcome", WelcomePacket: welcome})
			select {
			case c.send <- data:
			default:
			}
		case "input":
			if c.playerID == "" {
				continue
			}
			h.engine.HandleInput(c.playerID, msg.Input)
		case "fire":
			if c.playerID == "" {
				continue
			}
			var req struct {
				Power       float64 `json:"power"`
				TurretAngle float64 `json:"turretAngle"`
			}
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				continue
			}
			h.engine.Fire(c.playerID, req.Power, req.TurretAngle)
		case "chat":
			if c.playerID == "" {
				continue
			}
			var req struct {
				Text string `json:"text"`
				Mode string `json:"mode"`
			}
			if err := json.Unmarshal(msg.Chat, &req); err != nil {
				continue
			}
			h.chatQueue.Enqueue(chat.IncomingChat{
				PlayerID: c.playerID,
				Text:     req.Text,
				Mode:     chat.ModeFromString(req.Mode),
			})
		case "choose-portal":
			if c.playerID == "" {
				continue
			}
			var req struct {
				TileIndex int `json:"tileIndex"`
			}
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				continue
			}
			h.engine.ChoosePortal(c.playerID, req.TileIndex)
		case "faction-change":
			if c.playerID == "" {
				continue
			}
			var req struct {
				Faction int `json:"faction"`
			}
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				continue
			}
			h.engine.SetFaction(c.playerID, req.Faction)
		case "tip":
			if c.playerID == "" {
				continue
			}
			var req struct {
				ToID   string `json:"toId"`
				Amount int    `json:"amount"`
			}
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				continue
			}
			ok := h.engine.Tip(c.playerID, req.ToID, req.Amount)
			if !ok {
				h.Send(c.playerID, "tip-failed", tipFailedPayload{ToID: req.ToID, Amount: req.Amount})
				continue
			}
			h.Send(c.playerID, "tip-confirmed", tipConfirmedPayload{ToID: req.ToID, Amount: req.Amount})
			h.Send(req.ToID, "tip-received", tipReceivedPayload{FromID: c.playerID, Amount: req.Amount})
		case "commander-ping":
			if c.playerID == "" || !h.engine.IsCommander(c.playerID) {
				continue
			}
			var req struct {
				X       float64 `json:"x"`
				Y       float64 `json:"y"`
				Z       float64 `json:"z"`
				Faction int     `json:"faction"`
			}
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				continue
			}
			h.Emit("commander-ping", commanderPingPayload{PlayerID: c.playerID, X: req.X, Y: req.Y, Z: req.Z, Faction: req.Faction})
		case "commander-draw":
			if c.playerID == "" || !h.engine.IsCommander(c.playerID) {
				continue
			}
			var req struct {
				Points []float64 `json:"points"`
				Done   bool      `json:"done"`
			}
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				continue
			}
			h.Emit("commander-drawing", commanderDrawingPayload{PlayerID: c.playerID, Points: req.Points, Done: req.Done})
		}
	}
}
