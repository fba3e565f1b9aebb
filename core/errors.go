package core

import "errors"

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// Ledger rejections. Operation handlers wrap one of these so callers can
// match with errors.Is.
var (
	ErrContractPaused        = errors.New("ledger is paused")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadyInitialized    = errors.New("ledger already initialized")
	ErrNotInitialized        = errors.New("ledger not initialized")
	ErrArrayLengthMismatch   = errors.New("participants and stakes length mismatch")
	ErrPlayerCountOutOfRange = errors.New("player count out of range")
	ErrDuplicateGameID       = errors.New("game id already exists")
	ErrInvalidGameID         = errors.New("invalid game id")
	ErrGameNotFound          = errors.New("game not found")
	ErrGameAlreadyCompleted  = errors.New("game already completed")
	ErrInvalidWinner         = errors.New("winner is not a participant")
	ErrInsufficientBalance   = errors.New("insufficient available balance")
	ErrInvalidAmount         = errors.New("amount must be > 0")
	ErrInvalidFeeSchedule    = errors.New("entry fee must equal platform fee plus player stake")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrArithmeticOverflow    = errors.New("arithmetic overflow")
)

// ErrInsufficientFunds is the Value Transfer Port's only failure: the source
// account does not hold enough native currency.
var ErrInsufficientFunds = errors.New("insufficient funds")

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
