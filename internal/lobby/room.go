package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"zhajinhua-lite/internal/codec"
	"zhajinhua-lite/internal/ledger"
	"zhajinhua-lite/reconcile"
	"zhajinhua-lite/zhajinhua"
)

var ErrRoomClosed = errors.New("room closed")

const settleTimeout = 30 * time.Second

// Event types for the actor message queue
type eventType int

const (
	eventWatch eventType = iota
	eventLeave
	eventJoin
	eventCommit
	eventRevealEntropy
	eventDeal
	eventReveal
	eventFold
	eventCancel
	eventShowdown
	eventSettled
	eventClose
)

type roomEvent struct {
	Type       eventType
	Identity   string
	Commitment []byte
	Salt       []byte
	Entropy    []byte
	Response   chan error
}

type stateNotice struct {
	Type string         `json:"type"`
	Game codec.GameView `json:"game"`
}

type settlementNotice struct {
	Type       string                `json:"type"`
	GameID     string                `json:"game_id"`
	Settlement *codec.SettlementView `json:"settlement"`
}

// Room is the actor owning one game. All mutations flow through the
// event loop, so gateway connections never touch the game concurrently;
// the only other writer is the settle goroutine, which the game's
// submission flag serializes against.
type Room struct {
	ID string

	mu       sync.RWMutex
	game     *zhajinhua.Game
	rec      *reconcile.Reconciler
	ledger   ledger.Service
	watchers map[string]bool
	closed   bool
	stopOnce sync.Once

	emptySince time.Time

	events chan roomEvent
	done   chan struct{}

	broadcast func(identity string, data []byte)
}

func newRoom(
	id string,
	game *zhajinhua.Game,
	rec *reconcile.Reconciler,
	ledgerService ledger.Service,
	broadcastFn func(identity string, data []byte),
) *Room {
	r := &Room{
		ID:         id,
		game:       game,
		rec:        rec,
		ledger:     ledgerService,
		watchers:   make(map[string]bool),
		emptySince: time.Now(),
		events:     make(chan roomEvent, 64),
		done:       make(chan struct{}),
		broadcast:  broadcastFn,
	}
	go r.run()
	log.Printf("[Room %s] Created (stake=%d)", id, game.Stake())
	return r
}

func (r *Room) run() {
	for {
		select {
		case event := <-r.events:
			err := r.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-r.done:
			log.Printf("[Room %s] Actor stopped", r.ID)
			return
		}
	}
}

func (r *Room) handleEvent(e roomEvent) error {
	if r.isClosed() && e.Type != eventClose {
		return ErrRoomClosed
	}

	switch e.Type {
	case eventWatch:
		r.handleWatch(e.Identity)
		return nil
	case eventLeave:
		r.handleLeave(e.Identity)
		return nil
	case eventJoin:
		return r.handleJoin(e.Identity)
	case eventCommit:
		return r.mutate(func() error { return r.game.SubmitCommitment(e.Identity, e.Commitment) })
	case eventRevealEntropy:
		return r.mutate(func() error { return r.game.RevealEntropy(e.Identity, e.Salt, e.Entropy) })
	case eventDeal:
		return r.mutate(func() error { return r.game.Deal(e.Identity) })
	case eventReveal:
		return r.mutate(func() error { return r.game.Reveal(e.Identity) })
	case eventFold:
		return r.mutate(func() error { return r.game.Fold(e.Identity) })
	case eventCancel:
		return r.handleCancel(e.Identity)
	case eventShowdown:
		return r.handleShowdown(e.Identity)
	case eventSettled:
		r.broadcastState()
		r.broadcastSettlement()
		return nil
	case eventClose:
		r.stopLocked()
		return nil
	default:
		return errors.New("unknown room event")
	}
}

func (r *Room) handleWatch(identity string) {
	r.mu.Lock()
	r.watchers[identity] = true
	r.mu.Unlock()
	r.sendState(identity)
}

func (r *Room) handleLeave(identity string) {
	r.mu.Lock()
	delete(r.watchers, identity)
	if len(r.watchers) == 0 {
		r.emptySince = time.Now()
	}
	r.mu.Unlock()
}

func (r *Room) handleJoin(identity string) error {
	if err := r.game.CanJoin(identity); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.ledger.JoinGame(ctx, r.ID, identity); err != nil {
		return err
	}

	// Escrow landed; the engine join is serialized behind this actor, so
	// its preconditions cannot have changed since CanJoin.
	if err := r.game.Join(identity); err != nil {
		log.Printf("[Room %s] join diverged after escrow: identity=%s err=%v", r.ID, identity, err)
		return err
	}

	r.mu.Lock()
	r.watchers[identity] = true
	r.mu.Unlock()

	log.Printf("[Room %s] Player %s joined", r.ID, identity)
	r.broadcastState()
	return nil
}

func (r *Room) handleCancel(identity string) error {
	if err := r.game.CanCancel(identity); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.ledger.CancelGame(ctx, r.ID, identity); err != nil {
		return err
	}
	if err := r.game.Cancel(identity); err != nil {
		return err
	}

	log.Printf("[Room %s] Cancelled by %s", r.ID, identity)
	r.broadcastState()
	return nil
}

func (r *Room) handleShowdown(identity string) error {
	if err := r.game.CanShowdown(identity); err != nil {
		return err
	}
	if r.game.Submitting() {
		return zhajinhua.ErrGameBusy
	}

	// Settlement runs off the actor loop: ledger submission can retry for
	// seconds and must not stall unrelated room traffic. The game itself
	// rejects conflicting mutations while the submission is in flight.
	go r.runSettle(identity)
	return nil
}

func (r *Room) runSettle(identity string) {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()

	conf, err := r.rec.Settle(ctx, r.game, identity)
	if err != nil {
		log.Printf("[Room %s] settlement failed: %v", r.ID, err)
		r.broadcastState()
		return
	}
	log.Printf("[Room %s] settled: winner=%s", r.ID, conf.Winner)

	select {
	case r.events <- roomEvent{Type: eventSettled}:
	case <-r.done:
	}
}

func (r *Room) mutate(fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	r.broadcastState()
	return nil
}

// Snapshot returns the engine's read-only copy. Safe from any goroutine.
func (r *Room) Snapshot() zhajinhua.Snapshot {
	return r.game.Snapshot()
}

// View renders the snapshot filtered for one viewer.
func (r *Room) View(viewer string) codec.GameView {
	return codec.GameSnapshotToView(r.game.Snapshot(), viewer)
}

func (r *Room) Settlement() *zhajinhua.SettlementResult {
	return r.game.LastSettlement()
}

func (r *Room) sendState(identity string) {
	if r.broadcast == nil {
		return
	}
	snap := r.game.Snapshot()
	payload, err := json.Marshal(stateNotice{Type: "game_state", Game: codec.GameSnapshotToView(snap, identity)})
	if err != nil {
		return
	}
	r.broadcast(identity, payload)
}

func (r *Room) broadcastState() {
	if r.broadcast == nil {
		return
	}
	snap := r.game.Snapshot()

	r.mu.RLock()
	watchers := make([]string, 0, len(r.watchers))
	for identity := range r.watchers {
		watchers = append(watchers, identity)
	}
	r.mu.RUnlock()

	for _, identity := range watchers {
		payload, err := json.Marshal(stateNotice{Type: "game_state", Game: codec.GameSnapshotToView(snap, identity)})
		if err != nil {
			continue
		}
		r.broadcast(identity, payload)
	}
}

func (r *Room) broadcastSettlement() {
	if r.broadcast == nil {
		return
	}
	view := codec.SettlementToView(r.game.LastSettlement())
	if view == nil {
		return
	}
	payload, err := json.Marshal(settlementNotice{Type: "settlement", GameID: r.ID, Settlement: view})
	if err != nil {
		return
	}

	r.mu.RLock()
	watchers := make([]string, 0, len(r.watchers))
	for identity := range r.watchers {
		watchers = append(watchers, identity)
	}
	r.mu.RUnlock()

	for _, identity := range watchers {
		r.broadcast(identity, payload)
	}
}

// reapable reports whether the room can be torn down: game finished (or
// never started and abandoned) with nobody watching for longer than ttl.
func (r *Room) reapable(now time.Time, ttl time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.watchers) > 0 {
		return false
	}
	if !r.game.Status().Terminal() {
		return false
	}
	return now.Sub(r.emptySince) > ttl
}

func (r *Room) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Room) stopLocked() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
	})
}

func (r *Room) do(e roomEvent) error {
	e.Response = make(chan error, 1)
	select {
	case r.events <- e:
	case <-r.done:
		return ErrRoomClosed
	}
	select {
	case err := <-e.Response:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// Command surface consumed by the gateway. Each call round-trips
// through the actor loop.

func (r *Room) Watch(identity string) error { return r.do(roomEvent{Type: eventWatch, Identity: identity}) }
func (r *Room) Leave(identity string) error { return r.do(roomEvent{Type: eventLeave, Identity: identity}) }
func (r *Room) Join(identity string) error  { return r.do(roomEvent{Type: eventJoin, Identity: identity}) }

func (r *Room) Commit(identity string, commitment []byte) error {
	return r.do(roomEvent{Type: eventCommit, Identity: identity, Commitment: commitment})
}

func (r *Room) RevealEntropy(identity string, salt, entropy []byte) error {
	return r.do(roomEvent{Type: eventRevealEntropy, Identity: identity, Salt: salt, Entropy: entropy})
}

func (r *Room) Deal(identity string) error   { return r.do(roomEvent{Type: eventDeal, Identity: identity}) }
func (r *Room) Reveal(identity string) error { return r.do(roomEvent{Type: eventReveal, Identity: identity}) }
func (r *Room) Fold(identity string) error   { return r.do(roomEvent{Type: eventFold, Identity: identity}) }
func (r *Room) Cancel(identity string) error { return r.do(roomEvent{Type: eventCancel, Identity: identity}) }

func (r *Room) Showdown(identity string) error {
	return r.do(roomEvent{Type: eventShowdown, Identity: identity})
}

func (r *Room) Close() { _ = r.do(roomEvent{Type: eventClose}) }
