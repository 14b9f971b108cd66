package ledger

import (
	"context"
	"errors"
	"testing"
)

func newSQLiteTestService(t *testing.T) *SQLiteService {
	t.Helper()
	svc, err := NewSQLiteService(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestSQLiteGameLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite lifecycle in short mode")
	}
	svc := newSQLiteTestService(t)
	ctx := context.Background()

	if err := svc.CreateGame(ctx, "g1", "alice", 100); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if err := svc.JoinGame(ctx, "g1", "bob"); err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if err := svc.JoinGame(ctx, "g1", "bob"); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("rejoin: %v, want ErrAlreadyJoined", err)
	}

	rec, err := svc.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if rec.Pot != 200 || rec.Status != StatusOpen {
		t.Fatalf("record = %+v", rec)
	}
	if len(rec.Players) != 2 || rec.Players[0] != "alice" || rec.Players[1] != "bob" {
		t.Fatalf("players = %v", rec.Players)
	}

	shares := []Share{{Identity: "bob", Amount: 200}}
	if err := svc.SubmitResult(ctx, "g1", "bob", "digest-1", shares); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}
	if err := svc.SubmitResult(ctx, "g1", "alice", "digest-2", shares); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("resubmit: %v, want ErrAlreadySettled", err)
	}

	rec, err = svc.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if rec.Status != StatusSettled || rec.Winner != "bob" || rec.Digest != "digest-1" || rec.SettledAt == nil {
		t.Fatalf("settled record = %+v", rec)
	}

	board, err := svc.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Identity != "bob" || board[0].TotalWinnings != 200 || board[0].GamesWon != 1 {
		t.Fatalf("leaderboard = %+v", board)
	}
}

func TestSQLiteListAndCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sqlite listing in short mode")
	}
	svc := newSQLiteTestService(t)
	ctx := context.Background()

	if err := svc.CreateGame(ctx, "g1", "alice", 50); err != nil {
		t.Fatalf("CreateGame g1: %v", err)
	}
	if err := svc.CreateGame(ctx, "g2", "bob", 50); err != nil {
		t.Fatalf("CreateGame g2: %v", err)
	}
	if err := svc.JoinGame(ctx, "g2", "alice"); err != nil {
		t.Fatalf("JoinGame g2: %v", err)
	}

	ids, err := svc.ListPlayerGames(ctx, "alice")
	if err != nil {
		t.Fatalf("ListPlayerGames: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("alice games = %v, want 2", ids)
	}

	if err := svc.CancelGame(ctx, "g1", "bob"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("cancel by non-creator: %v, want ErrNotCreator", err)
	}
	if err := svc.CancelGame(ctx, "g1", "alice"); err != nil {
		t.Fatalf("CancelGame: %v", err)
	}
	rec, err := svc.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if rec.Status != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", rec.Status)
	}
	if err := svc.JoinGame(ctx, "g1", "carol"); !errors.Is(err, ErrGameNotOpen) {
		t.Fatalf("join cancelled game: %v, want ErrGameNotOpen", err)
	}
}
