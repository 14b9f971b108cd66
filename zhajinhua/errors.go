package zhajinhua

import "errors"

var (
	ErrGameEnded        = errors.New("game already ended")
	ErrGameBusy         = errors.New("ledger submission in flight")
	ErrIncompleteReveal = errors.New("every active player must reveal before showdown")
	ErrNotSeated        = errors.New("caller is not seated in this game")
)

// ValidationError names the precondition that a rejected action failed.
type ValidationError string

func (e ValidationError) Error() string { return "precondition failed: " + string(e) }

func ErrPrecondition(msg string) error { return ValidationError(msg) }

// InvalidDeckError reports a deal attempted over a malformed deck or
// an unsupported player count.
type InvalidDeckError string

func (e InvalidDeckError) Error() string { return "invalid deck: " + string(e) }

// CommitmentError reports a rejected entropy commitment or reveal.
type CommitmentError string

func (e CommitmentError) Error() string { return "commitment: " + string(e) }
