package zhajinhua

import "zhajinhua-lite/card"

type ShowdownPlayerResult struct {
	Seat      int
	Identity  string
	HandType  byte
	HandScore uint32
	HandCards []card.Card
	Folded    bool
	IsWinner  bool
	WinAmount int64
}

// SettlementResult is the outcome handed to result reconciliation.
// Winner is the primary settlement recipient; on a tie the pot splits
// evenly across Winners with the remainder going to the lowest seat,
// which is also the seat recorded as Winner.
type SettlementResult struct {
	Winner        string
	Winners       []int
	Split         bool
	Pot           int64
	PlayerResults []ShowdownPlayerResult
}

func (g *Game) determineWinnerLocked() (*SettlementResult, error) {
	active := make([]*Player, 0, len(g.players))
	for _, p := range g.players {
		if p.folded {
			continue
		}
		if !p.revealed {
			return nil, ErrIncompleteReveal
		}
		active = append(active, p)
	}
	if len(active) == 0 {
		return nil, ErrPrecondition("at least one player must remain")
	}

	// Rank every revealed hand.
	for _, p := range active {
		res, err := EvalHand(p.handCards)
		if err != nil {
			return nil, err
		}
		p.setEvalResult(res)
	}

	// Winners are the seats sharing the best score, in seat order.
	var best uint32
	for _, p := range active {
		if s := p.getEvalResult().Score; s > best {
			best = s
		}
	}
	winners := make([]int, 0, len(active))
	for _, p := range active {
		if p.getEvalResult().Score == best {
			winners = append(winners, p.seat)
		}
	}

	pot := g.potLocked()
	share := pot / int64(len(winners))
	remainder := pot % int64(len(winners))

	winAmounts := make(map[int]int64, len(winners))
	for _, seat := range winners {
		winAmounts[seat] = share
	}
	// Deterministic tie resolution: the remainder goes to the lowest seat.
	winAmounts[winners[0]] += remainder

	out := &SettlementResult{
		Winner:  g.players[winners[0]].identity,
		Winners: winners,
		Split:   len(winners) > 1,
		Pot:     pot,
	}
	for _, p := range g.players {
		pr := ShowdownPlayerResult{
			Seat:      p.seat,
			Identity:  p.identity,
			Folded:    p.folded,
			HandCards: append([]card.Card{}, p.handCards...),
		}
		if r := p.getEvalResult(); r != nil {
			pr.HandType = r.HandType
			pr.HandScore = r.Score
		}
		if amount, ok := winAmounts[p.seat]; ok {
			pr.IsWinner = true
			pr.WinAmount = amount
		}
		out.PlayerResults = append(out.PlayerResults, pr)
	}
	return out, nil
}
