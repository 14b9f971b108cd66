package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
)

type PostgresService struct {
	db    *sql.DB
	seats int
}

func NewPostgresServiceFromEnv() (*PostgresService, error) {
	db, err := sql.Open("postgres", ledgerDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresLedgerSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresService{db: db, seats: envIntOrDefault("LEDGER_MAX_SEATS", 3)}, nil
}

func ensurePostgresLedgerSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_games (
    game_id    TEXT PRIMARY KEY,
    creator    TEXT NOT NULL,
    stake      BIGINT NOT NULL,
    status     TEXT NOT NULL,
    winner     TEXT NOT NULL DEFAULT '',
    digest     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    settled_at TIMESTAMPTZ
)`,
		`CREATE TABLE IF NOT EXISTS ledger_escrow (
    game_id  TEXT NOT NULL,
    seat     INTEGER NOT NULL,
    identity TEXT NOT NULL,
    amount   BIGINT NOT NULL,
    payout   BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (game_id, seat),
    UNIQUE (game_id, identity)
)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_escrow_identity ON ledger_escrow (identity)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresService) CreateGame(ctx context.Context, gameID, creator string, stake int64) error {
	if gameID == "" || creator == "" || stake <= 0 {
		return ErrGameNotOpen
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_games (game_id, creator, stake, status, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		gameID, creator, stake, StatusOpen, time.Now().UTC()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_escrow (game_id, seat, identity, amount)
VALUES ($1, 0, $2, $3)`,
		gameID, creator, stake); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresService) JoinGame(ctx context.Context, gameID, identity string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	var stake int64
	err = tx.QueryRowContext(ctx,
		`SELECT status, stake FROM ledger_games WHERE game_id = $1 FOR UPDATE`, gameID).
		Scan(&status, &stake)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != StatusOpen {
		return ErrGameNotOpen
	}

	var seats, joined int
	if err := tx.QueryRowContext(ctx, `
SELECT COUNT(*), COUNT(*) FILTER (WHERE identity = $1)
FROM ledger_escrow WHERE game_id = $2`, identity, gameID).
		Scan(&seats, &joined); err != nil {
		return err
	}
	if joined > 0 {
		return ErrAlreadyJoined
	}
	if seats >= s.seats {
		return ErrGameFull
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_escrow (game_id, seat, identity, amount)
VALUES ($1, $2, $3, $4)`,
		gameID, seats, identity, stake); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresService) CancelGame(ctx context.Context, gameID, caller string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status, creator string
	err = tx.QueryRowContext(ctx,
		`SELECT status, creator FROM ledger_games WHERE game_id = $1 FOR UPDATE`, gameID).
		Scan(&status, &creator)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != StatusOpen {
		return ErrGameNotOpen
	}
	if creator != caller {
		return ErrNotCreator
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE ledger_games SET status = $1 WHERE game_id = $2`,
		StatusCancelled, gameID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresService) SubmitResult(ctx context.Context, gameID, winner, digest string, shares []Share) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rec, err := loadGamePG(ctx, tx, gameID)
	if err != nil {
		return err
	}
	if err := validateShares(rec, winner, shares); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE ledger_games SET status = $1, winner = $2, digest = $3, settled_at = $4
WHERE game_id = $5`,
		StatusSettled, winner, digest, time.Now().UTC(), gameID); err != nil {
		return err
	}
	for _, share := range shares {
		if _, err := tx.ExecContext(ctx, `
UPDATE ledger_escrow SET payout = $1 WHERE game_id = $2 AND identity = $3`,
			share.Amount, gameID, share.Identity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func loadGamePG(ctx context.Context, q queryer, gameID string) (*GameRecord, error) {
	rec := &GameRecord{GameID: gameID}
	var settledAt sql.NullTime
	err := q.QueryRowContext(ctx, `
SELECT creator, stake, status, winner, digest, created_at, settled_at
FROM ledger_games WHERE game_id = $1`, gameID).
		Scan(&rec.Creator, &rec.Stake, &rec.Status, &rec.Winner, &rec.Digest,
			&rec.CreatedAt, &settledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if settledAt.Valid {
		t := settledAt.Time
		rec.SettledAt = &t
	}

	rows, err := q.QueryContext(ctx, `
SELECT identity, amount FROM ledger_escrow WHERE game_id = $1 ORDER BY seat`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var identity string
		var amount int64
		if err := rows.Scan(&identity, &amount); err != nil {
			return nil, err
		}
		rec.Players = append(rec.Players, identity)
		rec.Pot += amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresService) GetGame(ctx context.Context, gameID string) (*GameRecord, error) {
	return loadGamePG(ctx, s.db, gameID)
}

func (s *PostgresService) ListPlayerGames(ctx context.Context, identity string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT e.game_id
FROM ledger_escrow e
JOIN ledger_games g ON g.game_id = e.game_id
WHERE e.identity = $1
ORDER BY g.created_at DESC`, identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT e.identity,
       COUNT(*) FILTER (WHERE g.winner = e.identity) AS games_won,
       COALESCE(SUM(e.payout), 0)                    AS total_winnings
FROM ledger_escrow e
JOIN ledger_games g ON g.game_id = e.game_id
WHERE g.status = $1
GROUP BY e.identity
HAVING COALESCE(SUM(e.payout), 0) > 0
ORDER BY total_winnings DESC, e.identity ASC
LIMIT $2`, StatusSettled, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Identity, &e.GamesWon, &e.TotalWinnings); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
