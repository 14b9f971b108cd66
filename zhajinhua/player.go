package zhajinhua

import "zhajinhua-lite/card"

// Player is one seated party. The identity is the opaque, ledger-supplied
// account string; it is unique within a game. Seat order is insertion order.
type Player struct {
	identity string
	seat     int

	handCards card.CardList
	folded    bool
	revealed  bool

	// commit-reveal entropy for the fair deal
	commitment []byte // published hash, set before any reveal
	entropy    []byte // revealed contribution, verified against commitment

	evalRes *HandResult
}

func (p *Player) Identity() string { return p.identity }
func (p *Player) Seat() int        { return p.seat }

func (p *Player) Folded() bool   { return p.folded }
func (p *Player) Revealed() bool { return p.revealed }

// IsActive 未弃牌即为活跃（派生状态，不单独存储）
func (p *Player) IsActive() bool { return !p.folded }

func (p *Player) Hand() []card.Card {
	return p.handCards
}

func (p *Player) Committed() bool       { return len(p.commitment) > 0 }
func (p *Player) EntropyRevealed() bool { return len(p.entropy) > 0 }
func (p *Player) Commitment() []byte    { return p.commitment }

func (p *Player) setHand(cards []card.Card) {
	p.handCards = make(card.CardList, len(cards))
	copy(p.handCards, cards)
}

func (p *Player) setFolded(v bool)   { p.folded = v }
func (p *Player) setRevealed(v bool) { p.revealed = v }

func (p *Player) setEvalResult(r *HandResult) { p.evalRes = r }
func (p *Player) getEvalResult() *HandResult  { return p.evalRes }
