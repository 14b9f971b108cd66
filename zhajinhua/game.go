package zhajinhua

import (
	"fmt"
	"sync"
	"time"

	"zhajinhua-lite/card"
)

// Game is the single-game state machine. It exclusively owns its state
// for the game's lifetime: every mutating action runs under the mutex,
// re-checks its precondition and either applies fully or fails with a
// typed error naming the failed precondition. While a ledger submission
// is in flight the game is busy and rejects all mutating actions.
type Game struct {
	cfg Config

	mu sync.Mutex

	id        string
	stake     int64 // per player, fixed at creation
	createdAt time.Time
	status    GameStatus

	// seating order = insertion order; seat 0 is the creator/dealer authority
	players []*Player

	submitting bool
	winner     string

	lastSettlement *SettlementResult
}

// NewGame creates a game in Created status with the creator at seat 0.
func NewGame(cfg Config, id string, creator string, stake int64) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrPrecondition("game id must not be empty")
	}
	if creator == "" {
		return nil, ErrPrecondition("creator identity must not be empty")
	}
	if stake <= 0 {
		return nil, ErrPrecondition("stake must be positive")
	}
	g := &Game{
		cfg:       cfg,
		id:        id,
		stake:     stake,
		createdAt: time.Now().UTC(),
		status:    StatusCreated,
	}
	g.players = append(g.players, &Player{identity: creator, seat: 0})
	return g, nil
}

func (g *Game) ID() string { return g.id }

func (g *Game) Status() GameStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *Game) Stake() int64        { return g.stake }
func (g *Game) CreatedAt() time.Time { return g.createdAt }

// Pot 彩池永远由 stake × 人数 推导，不单独存储
func (g *Game) Pot() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.potLocked()
}

func (g *Game) potLocked() int64 {
	return g.stake * int64(len(g.players))
}

func (g *Game) Seats() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// Winner returns the settled winner identity, empty unless Completed.
func (g *Game) Winner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

func (g *Game) Submitting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitting
}

func (g *Game) LastSettlement() *SettlementResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSettlement
}

func (g *Game) seatOfLocked(identity string) int {
	for _, p := range g.players {
		if p.identity == identity {
			return p.seat
		}
	}
	return InvalidSeat
}

func (g *Game) playerLocked(identity string) *Player {
	for _, p := range g.players {
		if p.identity == identity {
			return p
		}
	}
	return nil
}

// ---- Action gating: pure projections of (game, caller) ----

func (g *Game) canJoinLocked(identity string) error {
	if g.status != StatusCreated {
		return ErrPrecondition("game is not open for joining")
	}
	if g.seatOfLocked(identity) != InvalidSeat {
		return ErrPrecondition("identity already seated")
	}
	if len(g.players) >= g.cfg.MaxSeats {
		return ErrPrecondition("all seats are taken")
	}
	// A latecomer who has seen revealed entropy could grind the seed.
	for _, p := range g.players {
		if p.EntropyRevealed() {
			return ErrPrecondition("entropy reveal already started")
		}
	}
	return nil
}

func (g *Game) canDealLocked(identity string) error {
	if g.status != StatusCreated {
		return ErrPrecondition("cards already dealt")
	}
	if g.seatOfLocked(identity) != 0 {
		return ErrPrecondition("only seat 0 may deal")
	}
	if len(g.players) < g.cfg.MinSeatsToDeal {
		return ErrPrecondition("at least two players must be seated")
	}
	for _, p := range g.players {
		if !p.Committed() {
			return ErrPrecondition("every player must submit a deal commitment")
		}
	}
	for _, p := range g.players {
		if !p.EntropyRevealed() {
			return ErrPrecondition("every player must reveal deal entropy")
		}
	}
	return nil
}

func (g *Game) canRevealLocked(identity string) error {
	if g.status != StatusActive {
		return ErrPrecondition("game is not active")
	}
	p := g.playerLocked(identity)
	if p == nil {
		return ErrNotSeated
	}
	if p.folded {
		return ErrPrecondition("folded player cannot reveal")
	}
	if p.revealed {
		return ErrPrecondition("hand already revealed")
	}
	return nil
}

func (g *Game) canFoldLocked(identity string) error {
	if g.status != StatusActive {
		return ErrPrecondition("game is not active")
	}
	p := g.playerLocked(identity)
	if p == nil {
		return ErrNotSeated
	}
	if p.revealed {
		return ErrPrecondition("revealed player cannot fold")
	}
	if p.folded {
		return ErrPrecondition("player already folded")
	}
	return nil
}

func (g *Game) canShowdownLocked(identity string) error {
	if g.status != StatusActive {
		return ErrPrecondition("game is not active")
	}
	if g.seatOfLocked(identity) != 0 {
		return ErrPrecondition("only seat 0 may trigger showdown")
	}
	active := 0
	for _, p := range g.players {
		if p.folded {
			continue
		}
		active++
		if !p.revealed {
			return ErrIncompleteReveal
		}
	}
	if active == 0 {
		return ErrPrecondition("at least one player must remain")
	}
	return nil
}

func (g *Game) canCancelLocked(identity string) error {
	if g.status != StatusCreated {
		return ErrPrecondition("only a game awaiting deal can be cancelled")
	}
	if g.seatOfLocked(identity) != 0 {
		return ErrPrecondition("only seat 0 may cancel")
	}
	return nil
}

func (g *Game) CanJoin(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canJoinLocked(identity)
}

func (g *Game) CanDeal(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canDealLocked(identity)
}

func (g *Game) CanReveal(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canRevealLocked(identity)
}

func (g *Game) CanFold(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canFoldLocked(identity)
}

func (g *Game) CanShowdown(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canShowdownLocked(identity)
}

func (g *Game) CanCancel(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canCancelLocked(identity)
}

// ---- Mutating actions ----

func (g *Game) busyLocked() error {
	if g.submitting {
		return ErrGameBusy
	}
	if g.status.Terminal() {
		return ErrGameEnded
	}
	return nil
}

// Join seats a new player at the next free seat.
func (g *Game) Join(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.busyLocked(); err != nil {
		return err
	}
	if identity == "" {
		return ErrPrecondition("identity must not be empty")
	}
	if err := g.canJoinLocked(identity); err != nil {
		return err
	}
	g.players = append(g.players, &Player{identity: identity, seat: len(g.players)})
	return nil
}

// SubmitCommitment records a player's salted entropy commitment hash.
// Commitments are immutable once published.
func (g *Game) SubmitCommitment(identity string, commitment []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.busyLocked(); err != nil {
		return err
	}
	if g.status != StatusCreated {
		return ErrPrecondition("commitments close at deal time")
	}
	p := g.playerLocked(identity)
	if p == nil {
		return ErrNotSeated
	}
	if p.Committed() {
		return CommitmentError("commitment already published")
	}
	if len(commitment) == 0 {
		return CommitmentError("empty commitment")
	}
	p.commitment = append([]byte(nil), commitment...)
	return nil
}

// RevealEntropy verifies a revealed (salt, entropy) pair against the
// player's published commitment. Reveals open only after every seated
// player has committed, so the last revealer cannot grind the seed.
func (g *Game) RevealEntropy(identity string, salt, entropy []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.busyLocked(); err != nil {
		return err
	}
	if g.status != StatusCreated {
		return ErrPrecondition("reveals close at deal time")
	}
	if len(g.players) < g.cfg.MinSeatsToDeal {
		return ErrPrecondition("at least two players must be seated")
	}
	for _, p := range g.players {
		if !p.Committed() {
			return CommitmentError("reveal before all commitments are published")
		}
	}
	p := g.playerLocked(identity)
	if p == nil {
		return ErrNotSeated
	}
	if p.EntropyRevealed() {
		return CommitmentError("entropy already revealed")
	}
	if len(entropy) == 0 {
		return CommitmentError("empty entropy")
	}
	if !VerifyCommitment(p.commitment, salt, entropy) {
		return CommitmentError("reveal does not match commitment")
	}
	p.entropy = append([]byte(nil), entropy...)
	return nil
}

// Deal shuffles with the combined seed and assigns 3 cards per seat.
// Transitions Created -> Active.
func (g *Game) Deal(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.busyLocked(); err != nil {
		return err
	}
	if err := g.canDealLocked(identity); err != nil {
		return err
	}

	entropies := make([][]byte, 0, len(g.players))
	for _, p := range g.players {
		entropies = append(entropies, p.entropy)
	}
	seed := CombineSeed(entropies)

	deck := card.NewDeck()
	deck.ShuffleSeeded(seed)

	hands, err := Deal(deck, len(g.players))
	if err != nil {
		return err
	}
	for seat, p := range g.players {
		p.setHand(hands[seat])
	}
	g.status = StatusActive
	return nil
}

// Reveal marks the caller's hand as shown.
func (g *Game) Reveal(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.busyLocked(); err != nil {
		return err
	}
	if err := g.canRevealLocked(identity); err != nil {
		return err
	}
	p := g.playerLocked(identity)
	if len(p.handCards) != HandSize {
		return ErrPrecondition("player has no dealt hand")
	}
	p.setRevealed(true)
	return nil
}

// Fold removes the caller from contention. Folding is irreversible.
func (g *Game) Fold(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.busyLocked(); err != nil {
		return err
	}
	if err := g.canFoldLocked(identity); err != nil {
		return err
	}
	g.playerLocked(identity).setFolded(true)
	return nil
}

// Cancel voids a game that has not dealt. Created -> Cancelled.
func (g *Game) Cancel(identity string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.busyLocked(); err != nil {
		return err
	}
	if err := g.canCancelLocked(identity); err != nil {
		return err
	}
	g.status = StatusCancelled
	return nil
}

// Showdown evaluates the revealed hands and determines the winner. The
// result is cached: a repeated call returns the same settlement without
// re-running the evaluation. The game stays Active until the ledger
// confirms the submitted result.
func (g *Game) Showdown(identity string) (*SettlementResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status == StatusCompleted && g.lastSettlement != nil {
		return g.lastSettlement, nil
	}
	if err := g.busyLocked(); err != nil {
		return nil, err
	}
	if err := g.canShowdownLocked(identity); err != nil {
		return nil, err
	}
	if g.lastSettlement != nil {
		return g.lastSettlement, nil
	}

	result, err := g.determineWinnerLocked()
	if err != nil {
		return nil, err
	}
	g.lastSettlement = result
	return result, nil
}

// ---- Ledger submission boundary ----

// BeginSubmission marks the game busy for the duration of a ledger
// write. At most one submission may be in flight.
func (g *Game) BeginSubmission() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.submitting {
		return ErrGameBusy
	}
	if g.status != StatusActive {
		return ErrPrecondition("only an active game can submit a result")
	}
	if g.lastSettlement == nil {
		return ErrPrecondition("showdown must run before submission")
	}
	g.submitting = true
	return nil
}

// ConfirmCompleted applies a ledger-confirmed result: Active -> Completed.
func (g *Game) ConfirmCompleted(winner string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusActive {
		return ErrPrecondition("only an active game can complete")
	}
	p := g.playerLocked(winner)
	if p == nil {
		return fmt.Errorf("winner %q is not seated", winner)
	}
	if p.folded {
		return fmt.Errorf("winner %q has folded", winner)
	}
	g.status = StatusCompleted
	g.winner = winner
	g.submitting = false
	return nil
}

// AbortSubmission releases the busy flag after a failed or abandoned
// ledger write. The game stays Active; authoritative completion comes
// only from an observed ledger confirmation.
func (g *Game) AbortSubmission() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitting = false
}
