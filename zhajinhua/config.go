package zhajinhua

import "fmt"

type Config struct {
	// Seats
	MaxSeats       int
	MinSeatsToDeal int

	// Denomination of stake amounts, informational for consumers
	// (amounts themselves are int64 in the ledger's minimal unit).
	StakeDenom string
}

func DefaultConfig() Config {
	return Config{
		MaxSeats:       MaxSeats,
		MinSeatsToDeal: MinSeatsToDeal,
		StakeDenom:     "wei",
	}
}

func (c Config) validate() error {
	if c.MaxSeats <= 0 || c.MaxSeats > MaxSeats {
		return fmt.Errorf("MaxSeats must be in 1..%d", MaxSeats)
	}
	if c.MinSeatsToDeal < MinSeatsToDeal {
		return fmt.Errorf("MinSeatsToDeal must be >= %d", MinSeatsToDeal)
	}
	if c.MinSeatsToDeal > c.MaxSeats {
		return fmt.Errorf("MinSeatsToDeal must be <= MaxSeats")
	}
	return nil
}
