package card

import (
	"bytes"
	"testing"
)

func TestNewDeck_52UniqueCards(t *testing.T) {
	deck := NewDeck()
	if len(deck) != DeckSize {
		t.Fatalf("expected %d cards, got %d", DeckSize, len(deck))
	}
	seen := make(map[Card]bool, DeckSize)
	for _, c := range deck {
		if !c.Valid() {
			t.Fatalf("invalid card in deck: %#x", byte(c))
		}
		if seen[c] {
			t.Fatalf("duplicate card in deck: %s", c)
		}
		seen[c] = true
	}
}

func TestNewDeck_CanonicalOrderIsStable(t *testing.T) {
	d1 := NewDeck()
	d2 := NewDeck()
	if !bytes.Equal(d1.CardsBytes(), d2.CardsBytes()) {
		t.Fatalf("canonical deck order is not deterministic")
	}
	if d1[0] != CardSpadeA || d1[12] != CardSpadeK || d1[51] != CardDiamondK {
		t.Fatalf("unexpected canonical order: first=%s last=%s", d1[0], d1[51])
	}
}

func TestShuffleSeeded_DeterministicPermutation(t *testing.T) {
	seed := []byte("seed")
	d1 := NewDeck()
	d2 := NewDeck()
	d1.ShuffleSeeded(seed)
	d2.ShuffleSeeded(seed)

	if !bytes.Equal(d1.CardsBytes(), d2.CardsBytes()) {
		t.Fatalf("same seed produced different permutations")
	}

	// Still a permutation of the full deck.
	seen := make(map[Card]bool, DeckSize)
	for _, c := range d1 {
		if seen[c] {
			t.Fatalf("duplicate card after shuffle: %s", c)
		}
		seen[c] = true
	}
	if len(seen) != DeckSize {
		t.Fatalf("expected %d distinct cards, got %d", DeckSize, len(seen))
	}

	d3 := NewDeck()
	d3.ShuffleSeeded([]byte("other seed"))
	if bytes.Equal(d1.CardsBytes(), d3.CardsBytes()) {
		t.Fatalf("different seeds produced identical permutations")
	}
}

func TestParseCard(t *testing.T) {
	cases := []struct {
		in   string
		want Card
	}{
		{"As", CardSpadeA},
		{"Td", CardDiamondT},
		{"10h", CardHeartT},
		{"Kc", CardClubK},
		{"2h", CardHeart2},
	}
	for _, tc := range cases {
		got, err := ParseCard(tc.in)
		if err != nil {
			t.Fatalf("ParseCard(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseCard(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "A", "Ax", "14s"} {
		if _, err := ParseCard(bad); err == nil {
			t.Fatalf("ParseCard(%q) should fail", bad)
		}
	}
}

func TestCardRealVal_AceHigh(t *testing.T) {
	if CardSpadeA.RealVal() != 14 {
		t.Fatalf("ace should compare as 14, got %d", CardSpadeA.RealVal())
	}
	if CardSpadeK.RealVal() != 13 {
		t.Fatalf("king should compare as 13, got %d", CardSpadeK.RealVal())
	}
	if CardHeart2.RealVal() != 2 {
		t.Fatalf("deuce should compare as 2, got %d", CardHeart2.RealVal())
	}
}
