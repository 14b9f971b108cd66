package reconcile

import (
	"context"
	"time"

	"zhajinhua-lite/zhajinhua"
)

// SeatShare is one winner's cut of the pot in an intent payload.
type SeatShare struct {
	Seat     int
	Identity string
	Amount   int64
}

// Intent is the settlement submission for a concluded game. The digest
// lets any party holding the same game data re-verify the result.
type Intent struct {
	GameID string
	Winner string
	Digest [32]byte
	Shares []SeatShare
}

// Confirmation is the ledger's acknowledgement of a settled intent.
type Confirmation struct {
	GameID      string
	Winner      string
	Digest      [32]byte
	ConfirmedAt time.Time
}

// ConfirmedGame is the ledger's durable view of a game.
type ConfirmedGame struct {
	GameID    string
	Creator   string
	Players   []string
	Stake     int64
	Pot       int64
	Status    zhajinhua.GameStatus
	Winner    string
	CreatedAt time.Time
	SettledAt time.Time
}

// Ledger is the append-only settlement collaborator. Implementations
// own the bit-exact wire formats; the core only submits intents and
// reads confirmed state back.
type Ledger interface {
	LoadGame(ctx context.Context, gameID string) (*ConfirmedGame, error)
	SubmitIntent(ctx context.Context, intent Intent) (*Confirmation, error)
}

// State tags whether a tracked game reflects local optimistic mutation
// or a confirmed ledger read.
type State byte

const (
	StateOptimistic State = iota
	StateConfirmed
)

// TrackedGame pairs a local snapshot with the latest confirmed ledger
// view. A confirmed read replaces the optimistic copy wholesale.
type TrackedGame struct {
	State     State
	Local     zhajinhua.Snapshot
	Confirmed *ConfirmedGame
}
