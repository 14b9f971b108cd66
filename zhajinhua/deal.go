package zhajinhua

import (
	"bytes"
	"crypto/sha256"

	"zhajinhua-lite/card"
)

// Fair-deal engine.
//
// No single party may control or predict the shuffle of a staked game, so
// the permutation seed comes from a commit-reveal round: every seated
// player publishes a salted hash of private entropy, and only once all
// commitments are in may the entropies be revealed and combined. The
// combined seed drives a deterministic shuffle any party can re-verify.

// CommitEntropy returns the commitment hash a player publishes for a
// salted entropy contribution.
func CommitEntropy(salt, entropy []byte) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write(entropy)
	return h.Sum(nil)
}

// VerifyCommitment checks a revealed (salt, entropy) pair against the
// previously published commitment.
func VerifyCommitment(commitment, salt, entropy []byte) bool {
	return bytes.Equal(commitment, CommitEntropy(salt, entropy))
}

// CombineSeed folds the revealed entropies, in seat order, into the
// shuffle seed. Seat order is fixed before any reveal, so no revealer
// can grind the combination.
func CombineSeed(entropies [][]byte) []byte {
	h := sha256.New()
	for _, e := range entropies {
		h.Write(e)
	}
	return h.Sum(nil)
}

// Deal partitions an already-shuffled deck into 3-card hands, one per
// seat in seating order. The engine is a pure function: it retains no
// state between calls and the remaining cards are discarded.
func Deal(deck card.CardList, playerCount int) ([][]card.Card, error) {
	if playerCount < MinSeatsToDeal || playerCount > MaxSeats {
		return nil, InvalidDeckError("player count must be 2 or 3")
	}
	if len(deck) != card.DeckSize {
		return nil, InvalidDeckError("deck must hold exactly 52 cards")
	}
	seen := make(map[card.Card]bool, card.DeckSize)
	for _, c := range deck {
		if !c.Valid() {
			return nil, InvalidDeckError("deck holds an invalid card")
		}
		if seen[c] {
			return nil, InvalidDeckError("deck holds a duplicate card")
		}
		seen[c] = true
	}

	hands := make([][]card.Card, playerCount)
	for seat := 0; seat < playerCount; seat++ {
		hand := make([]card.Card, HandSize)
		copy(hand, deck[seat*HandSize:(seat+1)*HandSize])
		hands[seat] = hand
	}
	return hands, nil
}
