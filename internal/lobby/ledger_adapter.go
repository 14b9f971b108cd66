package lobby

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"zhajinhua-lite/internal/ledger"
	"zhajinhua-lite/reconcile"
	"zhajinhua-lite/zhajinhua"
)

// ledgerAdapter bridges the durable ledger service to the reconcile
// contract. The split keeps the reconciler ignorant of SQL backends and
// the ledger ignorant of retry policy: the adapter only classifies
// failures into retryable transport faults and terminal rejections.
type ledgerAdapter struct {
	svc ledger.Service
}

func newLedgerAdapter(svc ledger.Service) ledgerAdapter {
	return ledgerAdapter{svc: svc}
}

func (a ledgerAdapter) LoadGame(ctx context.Context, gameID string) (*reconcile.ConfirmedGame, error) {
	rec, err := a.svc.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, reconcile.ErrNotFound
		}
		return nil, &reconcile.TransportError{Err: err}
	}

	out := &reconcile.ConfirmedGame{
		GameID:    rec.GameID,
		Creator:   rec.Creator,
		Players:   append([]string{}, rec.Players...),
		Stake:     rec.Stake,
		Pot:       rec.Pot,
		Status:    ledgerStatus(rec.Status),
		Winner:    rec.Winner,
		CreatedAt: rec.CreatedAt,
	}
	if rec.SettledAt != nil {
		out.SettledAt = *rec.SettledAt
	}
	return out, nil
}

func (a ledgerAdapter) SubmitIntent(ctx context.Context, intent reconcile.Intent) (*reconcile.Confirmation, error) {
	shares := make([]ledger.Share, 0, len(intent.Shares))
	for _, s := range intent.Shares {
		shares = append(shares, ledger.Share{Identity: s.Identity, Amount: s.Amount})
	}
	digest := hex.EncodeToString(intent.Digest[:])

	err := a.svc.SubmitResult(ctx, intent.GameID, intent.Winner, digest, shares)
	if err != nil {
		if reason, rejected := rejectionReason(err); rejected {
			return nil, &reconcile.RejectionError{Reason: reason}
		}
		return nil, &reconcile.TransportError{Err: err}
	}

	return &reconcile.Confirmation{
		GameID:      intent.GameID,
		Winner:      intent.Winner,
		Digest:      intent.Digest,
		ConfirmedAt: time.Now().UTC(),
	}, nil
}

// rejectionReason reports whether the ledger refused the intent on its
// own authority. Everything else is treated as a transport fault and
// left to the retry loop.
func rejectionReason(err error) (string, bool) {
	for _, terminal := range []error{
		ledger.ErrNotFound,
		ledger.ErrGameNotOpen,
		ledger.ErrAlreadySettled,
		ledger.ErrUnknownWinner,
		ledger.ErrBadShares,
	} {
		if errors.Is(err, terminal) {
			return terminal.Error(), true
		}
	}
	return "", false
}

func ledgerStatus(status string) zhajinhua.GameStatus {
	switch status {
	case ledger.StatusSettled:
		return zhajinhua.StatusCompleted
	case ledger.StatusCancelled:
		return zhajinhua.StatusCancelled
	default:
		// The ledger cannot see deals, so an open game reads as Created.
		return zhajinhua.StatusCreated
	}
}
