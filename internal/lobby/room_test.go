package lobby

import (
	"context"
	"errors"
	"testing"
	"time"

	"zhajinhua-lite/internal/ledger"
	"zhajinhua-lite/reconcile"
	"zhajinhua-lite/zhajinhua"
)

func newTestLobby(t *testing.T) (*Lobby, *ledger.MemoryService) {
	t.Helper()
	svc := ledger.NewMemoryService()
	l := New(svc, nil)
	t.Cleanup(l.Close)
	return l, svc
}

func createRoom(t *testing.T, l *Lobby, creator string, stake int64) *Room {
	t.Helper()
	room, err := l.CreateGame(context.Background(), creator, stake)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return room
}

func commitAndReveal(t *testing.T, room *Room, identities ...string) {
	t.Helper()
	type material struct{ salt, entropy []byte }
	mats := make(map[string]material, len(identities))
	for _, id := range identities {
		m := material{salt: []byte("salt-" + id), entropy: []byte("entropy-" + id)}
		mats[id] = m
		if err := room.Commit(id, zhajinhua.CommitEntropy(m.salt, m.entropy)); err != nil {
			t.Fatalf("Commit %s: %v", id, err)
		}
	}
	for _, id := range identities {
		m := mats[id]
		if err := room.RevealEntropy(id, m.salt, m.entropy); err != nil {
			t.Fatalf("RevealEntropy %s: %v", id, err)
		}
	}
}

func waitStatus(t *testing.T, room *Room, want zhajinhua.GameStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if room.Snapshot().Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("status = %v, want %v", room.Snapshot().Status, want)
}

func TestRoomCreateEscrowsCreatorStake(t *testing.T) {
	l, svc := newTestLobby(t)
	room := createRoom(t, l, "alice", 100)

	rec, err := svc.GetGame(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if rec.Creator != "alice" || rec.Pot != 100 || rec.Status != ledger.StatusOpen {
		t.Fatalf("ledger record = %+v", rec)
	}
	if got := l.GetRoom(room.ID); got != room {
		t.Fatalf("GetRoom returned %v", got)
	}
}

func TestRoomJoinEscrowsAndSeats(t *testing.T) {
	l, svc := newTestLobby(t)
	room := createRoom(t, l, "alice", 100)

	if err := room.Join("bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	snap := room.Snapshot()
	if len(snap.Players) != 2 || snap.Pot != 200 {
		t.Fatalf("snapshot = %+v", snap)
	}
	rec, err := svc.GetGame(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if rec.Pot != 200 {
		t.Fatalf("ledger pot = %d, want 200", rec.Pot)
	}

	// Engine precondition failures surface before any escrow write.
	if err := room.Join("bob"); err == nil {
		t.Fatalf("double join accepted")
	}
	rec, _ = svc.GetGame(context.Background(), room.ID)
	if rec.Pot != 200 {
		t.Fatalf("double join escrowed anyway: pot = %d", rec.Pot)
	}
}

func TestRoomFullFlowSettles(t *testing.T) {
	l, svc := newTestLobby(t)
	room := createRoom(t, l, "alice", 100)

	if err := room.Join("bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	commitAndReveal(t, room, "alice", "bob")
	if err := room.Deal("alice"); err != nil {
		t.Fatalf("Deal: %v", err)
	}
	if err := room.Reveal("alice"); err != nil {
		t.Fatalf("Reveal alice: %v", err)
	}
	if err := room.Reveal("bob"); err != nil {
		t.Fatalf("Reveal bob: %v", err)
	}
	if err := room.Showdown("alice"); err != nil {
		t.Fatalf("Showdown: %v", err)
	}

	waitStatus(t, room, zhajinhua.StatusCompleted)

	snap := room.Snapshot()
	if snap.Winner == "" {
		t.Fatalf("no winner recorded")
	}
	rec, err := svc.GetGame(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if rec.Status != ledger.StatusSettled || rec.Winner != snap.Winner {
		t.Fatalf("ledger record = %+v, local winner = %s", rec, snap.Winner)
	}

	result := room.Settlement()
	if result == nil || result.Winner != snap.Winner {
		t.Fatalf("settlement = %+v", result)
	}
}

func TestRoomShowdownRequiresReveals(t *testing.T) {
	l, _ := newTestLobby(t)
	room := createRoom(t, l, "alice", 100)

	if err := room.Join("bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	commitAndReveal(t, room, "alice", "bob")
	if err := room.Deal("alice"); err != nil {
		t.Fatalf("Deal: %v", err)
	}

	err := room.Showdown("alice")
	if !errors.Is(err, zhajinhua.ErrIncompleteReveal) {
		t.Fatalf("showdown without reveals = %v, want ErrIncompleteReveal", err)
	}
}

func TestRoomCancelReleasesEscrow(t *testing.T) {
	l, svc := newTestLobby(t)
	room := createRoom(t, l, "alice", 100)

	if err := room.Cancel("alice"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := room.Snapshot().Status; got != zhajinhua.StatusCancelled {
		t.Fatalf("status = %v, want cancelled", got)
	}
	rec, err := svc.GetGame(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if rec.Status != ledger.StatusCancelled {
		t.Fatalf("ledger status = %q, want cancelled", rec.Status)
	}
}

func TestLobbyListRooms(t *testing.T) {
	l, _ := newTestLobby(t)
	createRoom(t, l, "alice", 100)
	createRoom(t, l, "bob", 50)

	infos := l.ListRooms()
	if len(infos) != 2 {
		t.Fatalf("listings = %+v, want 2", infos)
	}
	for _, info := range infos {
		if info.Status != "created" || info.Players != 1 {
			t.Fatalf("listing = %+v", info)
		}
	}
}

func TestLobbyLoadGame(t *testing.T) {
	l, _ := newTestLobby(t)
	room := createRoom(t, l, "alice", 100)

	tracked, err := l.LoadGame(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if tracked.State != reconcile.StateOptimistic || tracked.Local.ID != room.ID {
		t.Fatalf("tracked = %+v", tracked)
	}

	if _, err := l.LoadGame(context.Background(), "missing"); !errors.Is(err, reconcile.ErrNotFound) {
		t.Fatalf("missing game = %v, want reconcile.ErrNotFound", err)
	}
}

func TestRoomClosedRejectsCommands(t *testing.T) {
	l, _ := newTestLobby(t)
	room := createRoom(t, l, "alice", 100)

	room.Close()
	if err := room.Join("bob"); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("join after close = %v, want ErrRoomClosed", err)
	}
}
