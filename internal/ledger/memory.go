package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryService keeps the ledger in process memory. It backs tests and
// single-binary demo deployments; the contract matches the SQL backends.
type MemoryService struct {
	mu      sync.Mutex
	games   map[string]*GameRecord
	payouts map[string]map[string]int64 // gameID -> identity -> amount
	seats   int
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		games:   make(map[string]*GameRecord),
		payouts: make(map[string]map[string]int64),
		seats:   3,
	}
}

func (s *MemoryService) Close() error { return nil }

func (s *MemoryService) CreateGame(_ context.Context, gameID, creator string, stake int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gameID == "" || creator == "" || stake <= 0 {
		return ErrGameNotOpen
	}
	if _, exists := s.games[gameID]; exists {
		return ErrAlreadyJoined
	}
	s.games[gameID] = &GameRecord{
		GameID:    gameID,
		Creator:   creator,
		Stake:     stake,
		Pot:       stake,
		Status:    StatusOpen,
		Players:   []string{creator},
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *MemoryService) JoinGame(_ context.Context, gameID, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.games[gameID]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != StatusOpen {
		return ErrGameNotOpen
	}
	for _, p := range rec.Players {
		if p == identity {
			return ErrAlreadyJoined
		}
	}
	if len(rec.Players) >= s.seats {
		return ErrGameFull
	}
	rec.Players = append(rec.Players, identity)
	rec.Pot += rec.Stake
	return nil
}

func (s *MemoryService) CancelGame(_ context.Context, gameID, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.games[gameID]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != StatusOpen {
		return ErrGameNotOpen
	}
	if rec.Creator != caller {
		return ErrNotCreator
	}
	rec.Status = StatusCancelled
	return nil
}

func (s *MemoryService) SubmitResult(_ context.Context, gameID, winner, digest string, shares []Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.games[gameID]
	if !ok {
		return ErrNotFound
	}
	if err := validateShares(rec, winner, shares); err != nil {
		return err
	}
	now := time.Now().UTC()
	rec.Status = StatusSettled
	rec.Winner = winner
	rec.Digest = digest
	rec.SettledAt = &now

	payouts := make(map[string]int64, len(shares))
	for _, share := range shares {
		payouts[share.Identity] += share.Amount
	}
	s.payouts[gameID] = payouts
	return nil
}

func (s *MemoryService) GetGame(_ context.Context, gameID string) (*GameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	out.Players = append([]string{}, rec.Players...)
	return &out, nil
}

func (s *MemoryService) ListPlayerGames(_ context.Context, identity string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type stamped struct {
		id string
		at time.Time
	}
	var found []stamped
	for id, rec := range s.games {
		for _, p := range rec.Players {
			if p == identity {
				found = append(found, stamped{id: id, at: rec.CreatedAt})
				break
			}
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].at.After(found[j].at) })
	ids := make([]string, 0, len(found))
	for _, f := range found {
		ids = append(ids, f.id)
	}
	return ids, nil
}

func (s *MemoryService) Leaderboard(_ context.Context, limit int) ([]LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	byIdentity := make(map[string]*LeaderboardEntry)
	for gameID, rec := range s.games {
		if rec.Status != StatusSettled {
			continue
		}
		for identity, amount := range s.payouts[gameID] {
			e := byIdentity[identity]
			if e == nil {
				e = &LeaderboardEntry{Identity: identity}
				byIdentity[identity] = e
			}
			e.TotalWinnings += amount
		}
		if e := byIdentity[rec.Winner]; e != nil {
			e.GamesWon++
		}
	}
	out := make([]LeaderboardEntry, 0, len(byIdentity))
	for _, e := range byIdentity {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalWinnings != out[j].TotalWinnings {
			return out[i].TotalWinnings > out[j].TotalWinnings
		}
		return out[i].Identity < out[j].Identity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
