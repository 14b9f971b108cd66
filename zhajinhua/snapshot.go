package zhajinhua

import (
	"time"

	"zhajinhua-lite/card"
)

type PlayerSnapshot struct {
	Identity        string
	Seat            int
	Folded          bool
	Revealed        bool
	Committed       bool
	EntropyRevealed bool
	HandCards       []card.Card
}

// Snapshot is a read-only copy for presentation consumers. The state
// machine keeps exclusive ownership of the live Game; consumers only
// ever see snapshots.
type Snapshot struct {
	ID         string
	Status     GameStatus
	Stake      int64
	StakeDenom string
	Pot        int64
	CreatedAt  time.Time
	Submitting bool
	Winner     string
	Players    []PlayerSnapshot
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		ID:         g.id,
		Status:     g.status,
		Stake:      g.stake,
		StakeDenom: g.cfg.StakeDenom,
		Pot:        g.potLocked(),
		CreatedAt:  g.createdAt,
		Submitting: g.submitting,
		Winner:     g.winner,
	}
	for _, p := range g.players {
		s.Players = append(s.Players, PlayerSnapshot{
			Identity:        p.identity,
			Seat:            p.seat,
			Folded:          p.folded,
			Revealed:        p.revealed,
			Committed:       p.Committed(),
			EntropyRevealed: p.EntropyRevealed(),
			HandCards:       append([]card.Card{}, p.handCards...),
		})
	}
	return s
}
