package staking

import "math/big"

// Position captures an account's locked principal and its lock metadata. A
// position with a zero amount is considered closed regardless of the other
// fields; withdrawals zero positions instead of deleting them.
type Position struct {
	Amount      *big.Int
	StartedAt   uint64
	Period      uint64
	ActiveUntil uint64
}

// Clone returns a deep copy safe for the caller to mutate.
func (p *Position) Clone() *Position {
	if p == nil {
		return zeroPosition()
	}
	clone := &Position{
		StartedAt:   p.StartedAt,
		Period:      p.Period,
		ActiveUntil: p.ActiveUntil,
		Amount:      big.NewInt(0),
	}
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	}
	return clone
}

// Open reports whether the position holds locked principal.
func (p *Position) Open() bool {
	return p != nil && p.Amount != nil && p.Amount.Sign() > 0
}

func zeroPosition() *Position {
	return &Position{Amount: big.NewInt(0)}
}

// Pool is the singleton ledger record shared by every position: global
// counters plus the scalar parameters fixed at construction.
type Pool struct {
	TotalStaked      *big.Int
	RewardsBalance   *big.Int
	RewardRate       *big.Int
	EarlyWithdrawFee *big.Int
	ConversionRate   *big.Int
	AvailablePeriods []uint64
}

// NewPool seeds a pool with the construction defaults and the supplied
// reward conversion rate.
func NewPool(conversionRate *big.Int) *Pool {
	rate := big.NewInt(1)
	if conversionRate != nil && conversionRate.Sign() > 0 {
		rate = new(big.Int).Set(conversionRate)
	}
	return &Pool{
		TotalStaked:      big.NewInt(0),
		RewardsBalance:   big.NewInt(0),
		RewardRate:       big.NewInt(DefaultRewardRate),
		EarlyWithdrawFee: big.NewInt(DefaultEarlyWithdrawFee),
		ConversionRate:   rate,
		AvailablePeriods: DefaultAvailablePeriods(),
	}
}

// Clone returns a deep copy safe for the caller to mutate.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return NewPool(nil)
	}
	clone := &Pool{
		TotalStaked:      cloneBigInt(p.TotalStaked),
		RewardsBalance:   cloneBigInt(p.RewardsBalance),
		RewardRate:       cloneBigInt(p.RewardRate),
		EarlyWithdrawFee: cloneBigInt(p.EarlyWithdrawFee),
		ConversionRate:   cloneBigInt(p.ConversionRate),
		AvailablePeriods: append([]uint64(nil), p.AvailablePeriods...),
	}
	return clone
}

// PeriodAllowed reports whether the period code is in the available set.
func (p *Pool) PeriodAllowed(period uint64) bool {
	if p == nil {
		return false
	}
	for _, allowed := range p.AvailablePeriods {
		if allowed == period {
			return true
		}
	}
	return false
}

// Info is the aggregate read surface for a position: the stored fields plus
// the derived accrual values at query time.
type Info struct {
	Amount       *big.Int
	StartedAt    uint64
	Period       uint64
	ActiveUntil  uint64
	Rewards      *big.Int
	NextRewardAt uint64
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
