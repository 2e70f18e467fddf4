package staking

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStake is returned when an operation targets an account without an
	// open position. A zeroed position counts as absent.
	ErrNoStake = errors.New("staking engine: no stake for account")
	// ErrInvalidPeriod is returned when the requested period code is not in
	// the pool's available set.
	ErrInvalidPeriod = errors.New("staking engine: period not available")
	// ErrStillActive is returned when an extend is attempted before the
	// position has matured.
	ErrStillActive = errors.New("staking engine: stake still active")
	// ErrTransferFailed is returned when an external transfer collaborator
	// declines a payout.
	ErrTransferFailed = errors.New("staking engine: transfer failed")
	// ErrNoClaimRecord is returned when a reward-date query targets an
	// account that never recorded an accrual cursor.
	ErrNoClaimRecord = errors.New("staking engine: no reward claim record")

	errNilState          = errors.New("staking engine: state not configured")
	errNilNativeTransfer = errors.New("staking engine: native transfer not configured")
	errNilRewardToken    = errors.New("staking engine: reward token not configured")
)

// FatalError marks an invariant violation that must abort the enclosing call.
// The node discards every ledger write made during the call when one
// surfaces, unlike the recoverable sentinel errors above.
type FatalError struct {
	msg string
}

func (e *FatalError) Error() string { return e.msg }

func fatalf(format string, args ...interface{}) error {
	return &FatalError{msg: fmt.Sprintf("staking engine: "+format, args...)}
}

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
