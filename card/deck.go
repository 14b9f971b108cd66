package card

// DeckSize 整副牌张数
const DeckSize = 52

// NewDeck returns the full 52-card deck in canonical order: suits in
// Spade, Heart, Club, Diamond order, ranks A..K within each suit.
// The order is deterministic so tests and digests can rely on it.
func NewDeck() CardList {
	deck := make(CardList, 0, DeckSize)
	for suit := Card(0); suit < 4; suit++ {
		for rank := Card(1); rank <= 13; rank++ {
			deck = append(deck, suit<<4|rank)
		}
	}
	return deck
}
