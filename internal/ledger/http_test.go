package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestMux(t *testing.T) (*http.ServeMux, *MemoryService) {
	t.Helper()
	svc := NewMemoryService()
	mux := http.NewServeMux()
	NewHTTPHandler(svc).RegisterRoutes(mux)
	return mux, svc
}

func doGet(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHTTPGetGame(t *testing.T) {
	mux, svc := newTestMux(t)
	newOpenGame(t, svc, "g1", 100, "alice", "bob")

	rr := doGet(t, mux, "/api/ledger/game?id=g1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var rec GameRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.GameID != "g1" || rec.Pot != 200 || len(rec.Players) != 2 {
		t.Fatalf("record = %+v", rec)
	}

	if rr := doGet(t, mux, "/api/ledger/game?id=missing"); rr.Code != http.StatusNotFound {
		t.Fatalf("missing game status = %d", rr.Code)
	}
	if rr := doGet(t, mux, "/api/ledger/game"); rr.Code != http.StatusBadRequest {
		t.Fatalf("no id status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ledger/game?id=g1", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", rr.Code)
	}
}

func TestHTTPListPlayerGames(t *testing.T) {
	mux, svc := newTestMux(t)
	newOpenGame(t, svc, "g1", 100, "alice", "bob")
	newOpenGame(t, svc, "g2", 100, "alice")

	rr := doGet(t, mux, "/api/ledger/games?player=alice")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Player  string   `json:"player"`
		GameIDs []string `json:"game_ids"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Player != "alice" || len(resp.GameIDs) != 2 {
		t.Fatalf("response = %+v", resp)
	}

	if rr := doGet(t, mux, "/api/ledger/games"); rr.Code != http.StatusBadRequest {
		t.Fatalf("no player status = %d", rr.Code)
	}
}

func TestHTTPLeaderboard(t *testing.T) {
	mux, svc := newTestMux(t)
	newOpenGame(t, svc, "g1", 100, "alice", "bob")
	if err := svc.SubmitResult(context.Background(), "g1", "alice", "d1", []Share{{Identity: "alice", Amount: 200}}); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}

	rr := doGet(t, mux, "/api/ledger/leaderboard?limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Identity != "alice" || resp.Entries[0].TotalWinnings != 200 {
		t.Fatalf("entries = %+v", resp.Entries)
	}
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 20},
		{"abc", 20},
		{"-3", 20},
		{"0", 20},
		{"7", 7},
		{"5000", defaultLeaderboardLimit},
	}
	for _, tc := range cases {
		if got := parseLimit(tc.raw); got != tc.want {
			t.Fatalf("parseLimit(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
