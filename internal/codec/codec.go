// Package codec converts engine snapshots into the JSON wire views sent to
// clients. Hand cards are filtered per viewer here so the engine never has
// to know who is looking.
package codec

import (
	"zhajinhua-lite/card"
	"zhajinhua-lite/zhajinhua"
)

type PlayerView struct {
	Identity        string   `json:"identity"`
	Seat            int      `json:"seat"`
	Folded          bool     `json:"folded"`
	Revealed        bool     `json:"revealed"`
	Committed       bool     `json:"committed"`
	EntropyRevealed bool     `json:"entropy_revealed"`
	HandCards       []string `json:"hand_cards,omitempty"`
	HandHidden      bool     `json:"hand_hidden,omitempty"`
}

type SettlementView struct {
	Winner  string       `json:"winner"`
	Winners []int        `json:"winner_seats"`
	Split   bool         `json:"split"`
	Pot     int64        `json:"pot"`
	Results []ResultView `json:"results"`
}

type ResultView struct {
	Seat      int      `json:"seat"`
	Identity  string   `json:"identity"`
	HandType  string   `json:"hand_type,omitempty"`
	HandCards []string `json:"hand_cards,omitempty"`
	Folded    bool     `json:"folded"`
	IsWinner  bool     `json:"is_winner"`
	WinAmount int64    `json:"win_amount"`
}

type GameView struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	Stake      int64        `json:"stake"`
	StakeDenom string       `json:"stake_denom"`
	Pot        int64        `json:"pot"`
	CreatedAt  int64        `json:"created_at_ms"`
	Submitting bool         `json:"submitting,omitempty"`
	Winner     string       `json:"winner,omitempty"`
	Players    []PlayerView `json:"players"`
}

// GameSnapshotToView renders a snapshot for one viewer. A player always sees
// their own dealt hand; other hands stay hidden until their owner reveals or
// the game completes.
func GameSnapshotToView(snap zhajinhua.Snapshot, viewer string) GameView {
	view := GameView{
		ID:         snap.ID,
		Status:     snap.Status.String(),
		Stake:      snap.Stake,
		StakeDenom: snap.StakeDenom,
		Pot:        snap.Pot,
		CreatedAt:  snap.CreatedAt.UnixMilli(),
		Submitting: snap.Submitting,
		Winner:     snap.Winner,
	}
	allVisible := snap.Status == zhajinhua.StatusCompleted
	for _, p := range snap.Players {
		pv := PlayerView{
			Identity:        p.Identity,
			Seat:            p.Seat,
			Folded:          p.Folded,
			Revealed:        p.Revealed,
			Committed:       p.Committed,
			EntropyRevealed: p.EntropyRevealed,
		}
		if len(p.HandCards) > 0 {
			if allVisible || p.Revealed || p.Identity == viewer {
				pv.HandCards = cardsToStrings(p.HandCards)
			} else {
				pv.HandHidden = true
			}
		}
		view.Players = append(view.Players, pv)
	}
	return view
}

// SettlementToView renders a settlement result. Settlements only exist once
// every live hand is revealed, so nothing is filtered here.
func SettlementToView(res *zhajinhua.SettlementResult) *SettlementView {
	if res == nil {
		return nil
	}
	view := &SettlementView{
		Winner:  res.Winner,
		Winners: append([]int{}, res.Winners...),
		Split:   res.Split,
		Pot:     res.Pot,
	}
	for _, pr := range res.PlayerResults {
		rv := ResultView{
			Seat:      pr.Seat,
			Identity:  pr.Identity,
			Folded:    pr.Folded,
			IsWinner:  pr.IsWinner,
			WinAmount: pr.WinAmount,
		}
		if !pr.Folded {
			rv.HandType = zhajinhua.HandTypeDictionary[pr.HandType]
			rv.HandCards = cardsToStrings(pr.HandCards)
		}
		view.Results = append(view.Results, rv)
	}
	return view
}

func cardsToStrings(cards []card.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.String())
	}
	return out
}
