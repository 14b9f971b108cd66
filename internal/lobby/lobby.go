package lobby

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"zhajinhua-lite/internal/ledger"
	"zhajinhua-lite/reconcile"
	"zhajinhua-lite/zhajinhua"
)

const (
	reapInterval = 30 * time.Second
	roomTTL      = 2 * time.Minute
)

// RoomInfo is the lobby listing entry for one live room.
type RoomInfo struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Stake     int64  `json:"stake"`
	Pot       int64  `json:"pot"`
	Players   int    `json:"players"`
	CreatedAt int64  `json:"created_at_ms"`
}

// Lobby manages all live rooms and creates games against the ledger.
type Lobby struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg        zhajinhua.Config
	ledger     ledger.Service
	reconciler *reconcile.Reconciler
	broadcast  func(identity string, data []byte)

	done     chan struct{}
	stopOnce sync.Once
}

func New(ledgerService ledger.Service, broadcastFn func(identity string, data []byte)) *Lobby {
	l := &Lobby{
		rooms:      make(map[string]*Room),
		cfg:        zhajinhua.DefaultConfig(),
		ledger:     ledgerService,
		reconciler: reconcile.New(newLedgerAdapter(ledgerService)),
		broadcast:  broadcastFn,
		done:       make(chan struct{}),
	}
	go l.reapLoop()
	return l
}

// CreateGame escrows the creator's stake and spins up the room actor.
func (l *Lobby) CreateGame(ctx context.Context, creator string, stake int64) (*Room, error) {
	gameID := uuid.NewString()

	game, err := zhajinhua.NewGame(l.cfg, gameID, creator, stake)
	if err != nil {
		return nil, err
	}
	if err := l.ledger.CreateGame(ctx, gameID, creator, stake); err != nil {
		return nil, err
	}

	room := newRoom(gameID, game, l.reconciler, l.ledger, l.broadcast)
	if err := room.Watch(creator); err != nil {
		room.Close()
		return nil, err
	}

	l.mu.Lock()
	l.rooms[gameID] = room
	l.mu.Unlock()

	log.Printf("[Lobby] CreateGame: %s created %s (stake=%d)", creator, gameID, stake)
	return room, nil
}

// GetRoom returns a live room by ID, or nil if not resident.
func (l *Lobby) GetRoom(gameID string) *Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rooms[gameID]
}

// ListRooms returns joinable-first listings ordered newest-first.
func (l *Lobby) ListRooms() []RoomInfo {
	l.mu.RLock()
	rooms := make([]*Room, 0, len(l.rooms))
	for _, r := range l.rooms {
		rooms = append(rooms, r)
	}
	l.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		snap := r.Snapshot()
		infos = append(infos, RoomInfo{
			ID:        snap.ID,
			Status:    snap.Status.String(),
			Stake:     snap.Stake,
			Pot:       snap.Pot,
			Players:   len(snap.Players),
			CreatedAt: snap.CreatedAt.UnixMilli(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt > infos[j].CreatedAt })
	return infos
}

// LoadGame resolves a game by ID: a resident room yields the optimistic
// local view, anything else falls back to a confirmed ledger read.
func (l *Lobby) LoadGame(ctx context.Context, gameID string) (*reconcile.TrackedGame, error) {
	if room := l.GetRoom(gameID); room != nil {
		return &reconcile.TrackedGame{
			State: reconcile.StateOptimistic,
			Local: room.Snapshot(),
		}, nil
	}
	return l.reconciler.Load(ctx, gameID)
}

func (l *Lobby) reapLoop() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.reap(time.Now())
		case <-l.done:
			return
		}
	}
}

func (l *Lobby) reap(now time.Time) {
	l.mu.Lock()
	var dead []*Room
	for id, r := range l.rooms {
		if r.reapable(now, roomTTL) {
			dead = append(dead, r)
			delete(l.rooms, id)
		}
	}
	l.mu.Unlock()

	for _, r := range dead {
		log.Printf("[Lobby] Reaping finished room %s", r.ID)
		r.Close()
	}
}

// Close stops the reaper and tears down every live room.
func (l *Lobby) Close() {
	l.stopOnce.Do(func() { close(l.done) })

	l.mu.Lock()
	rooms := make([]*Room, 0, len(l.rooms))
	for id, r := range l.rooms {
		rooms = append(rooms, r)
		delete(l.rooms, id)
	}
	l.mu.Unlock()

	for _, r := range rooms {
		r.Close()
	}
}
