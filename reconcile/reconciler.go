package reconcile

import (
	"context"
	"errors"
	"log"
	"time"

	"zhajinhua-lite/zhajinhua"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

// Reconciler drives a concluded game through ledger settlement. The
// game's submission flag keeps writes at-most-one-in-flight per game:
// any action arriving while a submission is pending fails with
// zhajinhua.ErrGameBusy instead of queueing.
type Reconciler struct {
	ledger      Ledger
	maxAttempts int
	backoff     time.Duration
}

type Option func(*Reconciler)

func WithMaxAttempts(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.backoff = d
		}
	}
}

func New(ledger Ledger, opts ...Option) *Reconciler {
	r := &Reconciler{
		ledger:      ledger,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settle runs showdown (cached if already computed), submits the result
// intent and applies the confirmed status. Transport failures retry with
// linear backoff up to the attempt bound and then leave the game Active.
// Settling an already-Completed game is idempotent: no resubmission, the
// stored winner is returned.
func (r *Reconciler) Settle(ctx context.Context, g *zhajinhua.Game, caller string) (*Confirmation, error) {
	if g.Status() == zhajinhua.StatusCompleted {
		snap := g.Snapshot()
		return &Confirmation{
			GameID: g.ID(),
			Winner: snap.Winner,
			Digest: Digest(snap, snap.Winner),
		}, nil
	}

	result, err := g.Showdown(caller)
	if err != nil {
		return nil, err
	}
	if err := g.BeginSubmission(); err != nil {
		return nil, err
	}

	snap := g.Snapshot()
	intent := Intent{
		GameID: g.ID(),
		Winner: result.Winner,
		Digest: Digest(snap, result.Winner),
	}
	for _, pr := range result.PlayerResults {
		if pr.IsWinner {
			intent.Shares = append(intent.Shares, SeatShare{
				Seat:     pr.Seat,
				Identity: pr.Identity,
				Amount:   pr.WinAmount,
			})
		}
	}

	conf, err := r.submitWithRetry(ctx, intent)
	if err != nil {
		// The game stays Active; authoritative completion comes only
		// from an observed confirmation.
		g.AbortSubmission()
		return nil, err
	}

	if err := g.ConfirmCompleted(conf.Winner); err != nil {
		g.AbortSubmission()
		return nil, err
	}
	return conf, nil
}

func (r *Reconciler) submitWithRetry(ctx context.Context, intent Intent) (*Confirmation, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		conf, err := r.ledger.SubmitIntent(ctx, intent)
		if err == nil {
			return conf, nil
		}
		lastErr = err

		var transport *TransportError
		if !errors.As(err, &transport) {
			return nil, err
		}
		log.Printf("[Reconcile] submit attempt %d/%d failed: game=%s err=%v",
			attempt, r.maxAttempts, intent.GameID, err)
		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

// Load reads the confirmed state of a game back from the ledger. The
// caller replaces any optimistic copy wholesale with the result.
func (r *Reconciler) Load(ctx context.Context, gameID string) (*TrackedGame, error) {
	confirmed, err := r.ledger.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return &TrackedGame{
		State:     StateConfirmed,
		Confirmed: confirmed,
	}, nil
}
