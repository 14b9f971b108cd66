package gateway

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"zhajinhua-lite/internal/auth"
	"zhajinhua-lite/internal/codec"
	"zhajinhua-lite/internal/lobby"
	"zhajinhua-lite/reconcile"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// ClientCommand is the JSON envelope clients send.
type ClientCommand struct {
	Op         string `json:"op"`
	GameID     string `json:"game_id,omitempty"`
	Stake      int64  `json:"stake,omitempty"`
	Commitment string `json:"commitment,omitempty"` // hex
	Salt       string `json:"salt,omitempty"`       // hex
	Entropy    string `json:"entropy,omitempty"`    // hex
}

type ackMessage struct {
	Type   string `json:"type"`
	Op     string `json:"op"`
	GameID string `json:"game_id,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Op      string `json:"op,omitempty"`
	Message string `json:"message"`
}

type lobbyMessage struct {
	Type  string           `json:"type"`
	Rooms []lobby.RoomInfo `json:"rooms"`
}

type loadedMessage struct {
	Type      string                   `json:"type"`
	GameID    string                   `json:"game_id"`
	State     string                   `json:"state"`
	Game      *codec.GameView          `json:"game,omitempty"`
	Confirmed *reconcile.ConfirmedGame `json:"confirmed,omitempty"`
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID       string
	Identity string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	LastPing time.Time

	mu   sync.Mutex
	room *lobby.Room
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu            sync.RWMutex
	connections   map[string]*Connection
	identityConns map[string]*Connection // identity -> connection
	nextConnID    uint64

	auth  auth.Service
	lobby *lobby.Lobby
}

// New creates a new Gateway instance
func New(authService auth.Service, lby *lobby.Lobby) *Gateway {
	return &Gateway{
		connections:   make(map[string]*Connection),
		identityConns: make(map[string]*Connection),
		auth:          authService,
		lobby:         lby,
	}
}

// BroadcastToIdentity delivers a payload to one identity's live
// connection. Used by rooms as their broadcast callback.
func (g *Gateway) BroadcastToIdentity(identity string, data []byte) {
	g.mu.RLock()
	c := g.identityConns[identity]
	g.mu.RUnlock()

	if c != nil {
		select {
		case c.Send <- data:
		default:
			// Drop if buffer full
		}
	}
}

// HandleWebSocket handles WebSocket upgrade and connection. The session
// token rides in the query string or the Authorization header.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	identity, ok := g.auth.ResolveSession(token)
	if !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	connID := fmt.Sprintf("conn_%d", g.nextConnID)
	c := &Connection{
		ID:       connID,
		Identity: identity,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Gateway:  g,
		LastPing: time.Now(),
	}
	if old := g.identityConns[identity]; old != nil {
		// A second login bumps the first connection. Closing the socket
		// lets its pumps unwind; the send channel stays open so in-flight
		// broadcasts cannot hit a closed channel.
		delete(g.connections, old.ID)
		old.Conn.Close()
	}
	g.connections[connID] = c
	g.identityConns[identity] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s (identity=%s), total: %d", connID, identity, total)

	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.detachRoom()
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.sendError("", "invalid message format")
		return
	}

	log.Printf("[Gateway] Received from %s: op=%s game=%s", c.Identity, cmd.Op, cmd.GameID)

	switch cmd.Op {
	case "create_game":
		c.handleCreateGame(cmd)
	case "join_game":
		c.handleJoinGame(cmd)
	case "watch_game":
		c.handleWatchGame(cmd)
	case "leave_game":
		c.handleLeaveGame(cmd)
	case "commit":
		c.handleCommit(cmd)
	case "reveal_entropy":
		c.handleRevealEntropy(cmd)
	case "deal":
		c.handleRoomOp(cmd, func(r *lobby.Room) error { return r.Deal(c.Identity) })
	case "reveal":
		c.handleRoomOp(cmd, func(r *lobby.Room) error { return r.Reveal(c.Identity) })
	case "fold":
		c.handleRoomOp(cmd, func(r *lobby.Room) error { return r.Fold(c.Identity) })
	case "cancel":
		c.handleRoomOp(cmd, func(r *lobby.Room) error { return r.Cancel(c.Identity) })
	case "showdown":
		c.handleRoomOp(cmd, func(r *lobby.Room) error { return r.Showdown(c.Identity) })
	case "list_games":
		c.handleListGames(cmd)
	case "load_game":
		c.handleLoadGame(cmd)
	default:
		c.sendError(cmd.Op, "unknown op")
	}
}

func (c *Connection) handleCreateGame(cmd ClientCommand) {
	if cmd.Stake <= 0 {
		c.sendError(cmd.Op, "stake must be positive")
		return
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()
	room, err := c.Gateway.lobby.CreateGame(ctx, c.Identity, cmd.Stake)
	if err != nil {
		c.sendError(cmd.Op, err.Error())
		return
	}

	c.attachRoom(room)
	c.sendAck(cmd.Op, room.ID)
	c.sendJSON(room.View(c.Identity))
}

func (c *Connection) handleJoinGame(cmd ClientCommand) {
	room := c.resolveRoom(cmd)
	if room == nil {
		return
	}
	if err := room.Join(c.Identity); err != nil {
		c.sendError(cmd.Op, err.Error())
		return
	}
	c.attachRoom(room)
	c.sendAck(cmd.Op, room.ID)
}

func (c *Connection) handleWatchGame(cmd ClientCommand) {
	room := c.resolveRoom(cmd)
	if room == nil {
		return
	}
	if err := room.Watch(c.Identity); err != nil {
		c.sendError(cmd.Op, err.Error())
		return
	}
	c.attachRoom(room)
	c.sendAck(cmd.Op, room.ID)
}

func (c *Connection) handleLeaveGame(cmd ClientCommand) {
	c.detachRoom()
	c.sendAck(cmd.Op, cmd.GameID)
}

func (c *Connection) handleCommit(cmd ClientCommand) {
	room := c.resolveRoom(cmd)
	if room == nil {
		return
	}
	commitment, err := hex.DecodeString(cmd.Commitment)
	if err != nil || len(commitment) == 0 {
		c.sendError(cmd.Op, "commitment must be non-empty hex")
		return
	}
	if err := room.Commit(c.Identity, commitment); err != nil {
		c.sendError(cmd.Op, err.Error())
		return
	}
	c.sendAck(cmd.Op, room.ID)
}

func (c *Connection) handleRevealEntropy(cmd ClientCommand) {
	room := c.resolveRoom(cmd)
	if room == nil {
		return
	}
	salt, err := hex.DecodeString(cmd.Salt)
	if err != nil {
		c.sendError(cmd.Op, "salt must be hex")
		return
	}
	entropy, err := hex.DecodeString(cmd.Entropy)
	if err != nil || len(entropy) == 0 {
		c.sendError(cmd.Op, "entropy must be non-empty hex")
		return
	}
	if err := room.RevealEntropy(c.Identity, salt, entropy); err != nil {
		c.sendError(cmd.Op, err.Error())
		return
	}
	c.sendAck(cmd.Op, room.ID)
}

func (c *Connection) handleRoomOp(cmd ClientCommand, op func(*lobby.Room) error) {
	room := c.resolveRoom(cmd)
	if room == nil {
		return
	}
	if err := op(room); err != nil {
		c.sendError(cmd.Op, err.Error())
		return
	}
	c.sendAck(cmd.Op, room.ID)
}

func (c *Connection) handleListGames(cmd ClientCommand) {
	c.sendJSON(lobbyMessage{Type: "lobby", Rooms: c.Gateway.lobby.ListRooms()})
}

func (c *Connection) handleLoadGame(cmd ClientCommand) {
	if cmd.GameID == "" {
		c.sendError(cmd.Op, "missing game id")
		return
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()
	tracked, err := c.Gateway.lobby.LoadGame(ctx, cmd.GameID)
	if err != nil {
		c.sendError(cmd.Op, err.Error())
		return
	}

	msg := loadedMessage{Type: "loaded", GameID: cmd.GameID}
	switch tracked.State {
	case reconcile.StateOptimistic:
		msg.State = "optimistic"
		view := codec.GameSnapshotToView(tracked.Local, c.Identity)
		msg.Game = &view
	case reconcile.StateConfirmed:
		msg.State = "confirmed"
		msg.Confirmed = tracked.Confirmed
	}
	c.sendJSON(msg)
}

// resolveRoom picks the command's target: an explicit game_id wins,
// otherwise the connection's attached room.
func (c *Connection) resolveRoom(cmd ClientCommand) *lobby.Room {
	if cmd.GameID != "" {
		room := c.Gateway.lobby.GetRoom(cmd.GameID)
		if room == nil {
			c.sendError(cmd.Op, "unknown game")
			return nil
		}
		return room
	}

	c.mu.Lock()
	room := c.room
	c.mu.Unlock()
	if room == nil {
		c.sendError(cmd.Op, "not in a game")
		return nil
	}
	return room
}

func (c *Connection) attachRoom(room *lobby.Room) {
	c.mu.Lock()
	prev := c.room
	c.room = room
	c.mu.Unlock()

	if prev != nil && prev != room {
		_ = prev.Leave(c.Identity)
	}
}

func (c *Connection) detachRoom() {
	c.mu.Lock()
	room := c.room
	c.room = nil
	c.mu.Unlock()

	// A bumped connection must not unwatch the identity's new session.
	if room != nil && c.Gateway.activeConn(c.Identity) == c {
		_ = room.Leave(c.Identity)
	}
}

func (g *Gateway) activeConn(identity string) *Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.identityConns[identity]
}

func (c *Connection) sendAck(op, gameID string) {
	c.sendJSON(ackMessage{Type: "ack", Op: op, GameID: gameID})
}

func (c *Connection) sendError(op, msg string) {
	c.sendJSON(errorMessage{Type: "error", Op: op, Message: msg})
}

func (c *Connection) sendJSON(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
		// Drop if buffer full
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	if g.identityConns[c.Identity] == c {
		delete(g.identityConns, c.Identity)
	}
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.connections))
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// Broadcast sends a message to all connections
func (g *Gateway) Broadcast(message []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		select {
		case c.Send <- message:
		default:
			// Drop message if buffer full
		}
	}
}
