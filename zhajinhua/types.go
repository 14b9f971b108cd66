package zhajinhua

const InvalidSeat = -1

// Seating limits are fixed by the game rules: three seats, two needed to deal.
const (
	MaxSeats       = 3
	MinSeatsToDeal = 2
	HandSize       = 3
)

// GameStatus 游戏状态
type GameStatus byte

const (
	StatusCreated GameStatus = iota
	StatusActive
	StatusCompleted
	StatusCancelled
)

var GameStatusDictionary = map[GameStatus]string{
	StatusCreated:   "created",
	StatusActive:    "active",
	StatusCompleted: "completed",
	StatusCancelled: "cancelled",
}

func (s GameStatus) String() string {
	if name, ok := GameStatusDictionary[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the status admits no further transitions.
func (s GameStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// 手牌牌型常量（炸金花）
// 豹子 > 同花顺 > 顺子 > 对子 > 高牌
const (
	HandHighCard      byte = iota + 1 // 高牌
	HandPair                          // 对子
	HandStraight                      // 顺子
	HandStraightFlush                 // 同花顺
	HandTriple                        // 豹子
)

var HandTypeDictionary = map[byte]string{
	HandHighCard:      "high_card",
	HandPair:          "pair",
	HandStraight:      "straight",
	HandStraightFlush: "straight_flush",
	HandTriple:        "triple",
}
