package ledger

import (
	"context"
	"errors"
	"testing"
)

func newOpenGame(t *testing.T, svc Service, gameID string, stake int64, players ...string) {
	t.Helper()
	if len(players) == 0 {
		t.Fatalf("need at least a creator")
	}
	if err := svc.CreateGame(context.Background(), gameID, players[0], stake); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	for _, p := range players[1:] {
		if err := svc.JoinGame(context.Background(), gameID, p); err != nil {
			t.Fatalf("JoinGame %s: %v", p, err)
		}
	}
}

func TestMemoryCreateAndJoinEscrowsStakes(t *testing.T) {
	svc := NewMemoryService()
	newOpenGame(t, svc, "g1", 100, "alice", "bob")

	rec, err := svc.GetGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if rec.Status != StatusOpen {
		t.Fatalf("status = %q, want open", rec.Status)
	}
	if rec.Pot != 200 {
		t.Fatalf("pot = %d, want 200", rec.Pot)
	}
	if len(rec.Players) != 2 || rec.Players[0] != "alice" || rec.Players[1] != "bob" {
		t.Fatalf("players = %v", rec.Players)
	}
}

func TestMemoryCreateRejectsBadArgs(t *testing.T) {
	svc := NewMemoryService()
	if err := svc.CreateGame(context.Background(), "g1", "alice", 0); err == nil {
		t.Fatalf("zero stake accepted")
	}
	if err := svc.CreateGame(context.Background(), "", "alice", 10); err == nil {
		t.Fatalf("empty game id accepted")
	}
}

func TestMemoryJoinGuards(t *testing.T) {
	svc := NewMemoryService()
	newOpenGame(t, svc, "g1", 50, "alice", "bob", "carol")

	if err := svc.JoinGame(context.Background(), "g1", "dave"); !errors.Is(err, ErrGameFull) {
		t.Fatalf("join full game: %v, want ErrGameFull", err)
	}
	if err := svc.JoinGame(context.Background(), "g1", "alice"); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("rejoin: %v, want ErrAlreadyJoined", err)
	}
	if err := svc.JoinGame(context.Background(), "missing", "dave"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("join missing game: %v, want ErrNotFound", err)
	}
}

func TestMemorySubmitResultSettlesOnce(t *testing.T) {
	svc := NewMemoryService()
	newOpenGame(t, svc, "g1", 100, "alice", "bob")

	shares := []Share{{Identity: "alice", Amount: 200}}
	if err := svc.SubmitResult(context.Background(), "g1", "alice", "d1", shares); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}

	rec, err := svc.GetGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if rec.Status != StatusSettled || rec.Winner != "alice" || rec.Digest != "d1" {
		t.Fatalf("settled record = %+v", rec)
	}
	if rec.SettledAt == nil {
		t.Fatalf("settled_at not set")
	}

	if err := svc.SubmitResult(context.Background(), "g1", "bob", "d2", shares); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("second submit: %v, want ErrAlreadySettled", err)
	}
}

func TestMemorySubmitResultValidation(t *testing.T) {
	svc := NewMemoryService()
	newOpenGame(t, svc, "g1", 100, "alice", "bob")

	cases := []struct {
		name   string
		winner string
		shares []Share
		want   error
	}{
		{"unknown winner", "mallory", []Share{{Identity: "alice", Amount: 200}}, ErrUnknownWinner},
		{"unknown payee", "alice", []Share{{Identity: "mallory", Amount: 200}}, ErrUnknownWinner},
		{"short shares", "alice", []Share{{Identity: "alice", Amount: 150}}, ErrBadShares},
		{"over shares", "alice", []Share{{Identity: "alice", Amount: 150}, {Identity: "bob", Amount: 100}}, ErrBadShares},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.SubmitResult(context.Background(), "g1", tc.winner, "d", tc.shares)
			if !errors.Is(err, tc.want) {
				t.Fatalf("SubmitResult = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMemoryCancelOnlyByCreatorWhileOpen(t *testing.T) {
	svc := NewMemoryService()
	newOpenGame(t, svc, "g1", 100, "alice", "bob")

	if err := svc.CancelGame(context.Background(), "g1", "bob"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("cancel by joiner: %v, want ErrNotCreator", err)
	}
	if err := svc.CancelGame(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("cancel by creator: %v", err)
	}
	rec, _ := svc.GetGame(context.Background(), "g1")
	if rec.Status != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", rec.Status)
	}
	if err := svc.CancelGame(context.Background(), "g1", "alice"); !errors.Is(err, ErrGameNotOpen) {
		t.Fatalf("cancel twice: %v, want ErrGameNotOpen", err)
	}
	if err := svc.SubmitResult(context.Background(), "g1", "alice", "d", []Share{{Identity: "alice", Amount: 200}}); !errors.Is(err, ErrGameNotOpen) {
		t.Fatalf("settle cancelled game: %v, want ErrGameNotOpen", err)
	}
}

func TestMemoryListPlayerGames(t *testing.T) {
	svc := NewMemoryService()
	newOpenGame(t, svc, "g1", 10, "alice", "bob")
	newOpenGame(t, svc, "g2", 10, "bob", "carol")
	newOpenGame(t, svc, "g3", 10, "alice")

	ids, err := svc.ListPlayerGames(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListPlayerGames: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("alice games = %v, want 2", ids)
	}
	for _, id := range ids {
		if id == "g2" {
			t.Fatalf("alice listed for a game she never joined")
		}
	}

	ids, err = svc.ListPlayerGames(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListPlayerGames: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("unknown player games = %v, want none", ids)
	}
}

func TestMemoryLeaderboardAggregatesSettledPayouts(t *testing.T) {
	svc := NewMemoryService()

	newOpenGame(t, svc, "g1", 100, "alice", "bob")
	if err := svc.SubmitResult(context.Background(), "g1", "alice", "d1", []Share{{Identity: "alice", Amount: 200}}); err != nil {
		t.Fatalf("settle g1: %v", err)
	}

	// Tied pot: both get a payout but bob is the recorded winner.
	newOpenGame(t, svc, "g2", 100, "bob", "carol")
	if err := svc.SubmitResult(context.Background(), "g2", "bob", "d2", []Share{
		{Identity: "bob", Amount: 100},
		{Identity: "carol", Amount: 100},
	}); err != nil {
		t.Fatalf("settle g2: %v", err)
	}

	// Open games contribute nothing.
	newOpenGame(t, svc, "g3", 500, "alice", "carol")

	entries, err := svc.Leaderboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %+v, want 3", entries)
	}
	if entries[0].Identity != "alice" || entries[0].TotalWinnings != 200 || entries[0].GamesWon != 1 {
		t.Fatalf("top entry = %+v", entries[0])
	}
	if entries[1].Identity != "bob" || entries[1].TotalWinnings != 100 || entries[1].GamesWon != 1 {
		t.Fatalf("second entry = %+v", entries[1])
	}
	if entries[2].Identity != "carol" || entries[2].TotalWinnings != 100 || entries[2].GamesWon != 0 {
		t.Fatalf("third entry = %+v", entries[2])
	}

	entries, err = svc.Leaderboard(context.Background(), 1)
	if err != nil {
		t.Fatalf("Leaderboard limit: %v", err)
	}
	if len(entries) != 1 || entries[0].Identity != "alice" {
		t.Fatalf("limited entries = %+v", entries)
	}
}

func TestMemoryGetGameReturnsCopy(t *testing.T) {
	svc := NewMemoryService()
	newOpenGame(t, svc, "g1", 100, "alice")

	rec, err := svc.GetGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	rec.Players[0] = "mallory"
	rec.Pot = 0

	again, err := svc.GetGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if again.Players[0] != "alice" || again.Pot != 100 {
		t.Fatalf("stored record mutated through returned copy: %+v", again)
	}
}
