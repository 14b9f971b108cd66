package zhajinhua

import (
	"fmt"
	"sort"

	"zhajinhua-lite/card"
)

// HandResult is the ranking of a 3-card hand. Score is a packed total
// order: the category byte occupies the high bits, then up to three
// Ace-high tie-break values. Larger is stronger; equal Score is a tie.
type HandResult struct {
	Score    uint32
	HandType byte
}

// EvalHand ranks a 3-card hand.
func EvalHand(cards card.CardList) (*HandResult, error) {
	if len(cards) != HandSize {
		return nil, fmt.Errorf("need exactly %d cards, got %d", HandSize, len(cards))
	}
	for _, c := range cards {
		if !c.Valid() {
			return nil, fmt.Errorf("invalid card in hand: %#x", byte(c))
		}
	}
	score, handType := eval3(cards[0], cards[1], cards[2])
	return &HandResult{Score: score, HandType: handType}, nil
}

func eval3(a, b, c card.Card) (score uint32, handType byte) {
	// 比较值：A 视为 14
	real := []int{a.RealVal(), b.RealVal(), c.RealVal()}
	sort.Sort(sort.Reverse(sort.IntSlice(real)))

	sameSuit := a.Suit() == b.Suit() && b.Suit() == c.Suit()

	// 豹子
	if real[0] == real[1] && real[1] == real[2] {
		return packScore(HandTriple, real[0], 0, 0), HandTriple
	}

	// 顺子 / 同花顺
	if high := runHigh(a, b, c); high > 0 {
		if sameSuit {
			return packScore(HandStraightFlush, high, 0, 0), HandStraightFlush
		}
		return packScore(HandStraight, high, 0, 0), HandStraight
	}

	// 对子：先比对子点数，再比单牌
	if real[0] == real[1] {
		return packScore(HandPair, real[0], real[2], 0), HandPair
	}
	if real[1] == real[2] {
		return packScore(HandPair, real[1], real[0], 0), HandPair
	}

	// 高牌：从大到小逐张比较
	return packScore(HandHighCard, real[0], real[1], real[2]), HandHighCard
}

// runHigh returns the high value of a 3-card run, or 0 if the ranks are
// not consecutive. Ranks are read in natural order A,2,...,Q,K (A=1).
// The single permitted wrap is Q-K-A, which is the highest run and
// reported as 14. K-A-2 is NOT a run.
func runHigh(a, b, c card.Card) int {
	r := []int{int(a.Rank()), int(b.Rank()), int(c.Rank())}
	sort.Ints(r)

	if r[0]+1 == r[1] && r[1]+1 == r[2] {
		return r[2]
	}
	if r[0] == 1 && r[1] == 12 && r[2] == 13 {
		return 14 // Q-K-A
	}
	return 0
}

// packScore 组装成单个可比较的分数，牌型在高位。
func packScore(handType byte, k1, k2, k3 int) uint32 {
	return uint32(handType)<<24 | uint32(k1)<<16 | uint32(k2)<<8 | uint32(k3)
}
