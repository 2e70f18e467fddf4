package staking

// PeriodLength is the accrual quantum in ledger time units. Rewards are paid
// in whole elapsed periods and lock horizons are measured in blocks of
// LockBlockPeriods periods.
const PeriodLength uint64 = 86400

// LockBlockPeriods is the number of accrual periods represented by one unit
// of a position's period code: a period code of 6 locks for 6*30 periods.
const LockBlockPeriods uint64 = 30

const (
	// DefaultRewardRate is the fixed per-period rate applied to the locked
	// principal before scaling.
	DefaultRewardRate = 5
	// DefaultEarlyWithdrawFee is stored on the pool but never applied by any
	// lifecycle operation.
	DefaultEarlyWithdrawFee = 10

	// rewardScale and rewardDenominator fix the integer arithmetic of the
	// accrual formula: reward = amount * rate * periods * 100 / 36000.
	// Multiplication happens before division so truncation matches across
	// implementations.
	rewardScale       = 100
	rewardDenominator = 36000
)

// DefaultAvailablePeriods lists the period codes accepted at construction.
func DefaultAvailablePeriods() []uint64 {
	return []uint64{6, 12}
}
