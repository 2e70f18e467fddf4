package staking

import (
	"math/big"
	"strconv"

	"stakevault/core/types"
	"stakevault/crypto"
)

const (
	// TypeStaked is emitted for every deposit, top-up and extend.
	TypeStaked = "staking.staked"
	// TypeWithdrawn is emitted when a position's principal leaves custody.
	TypeWithdrawn = "staking.withdrawn"
	// TypeRewardsClaimed is emitted when accrued rewards are settled.
	TypeRewardsClaimed = "staking.rewardsClaimed"
	// TypePoolToppedUp is emitted when the shared rewards pool is funded.
	TypePoolToppedUp = "staking.poolToppedUp"
)

// Staked captures a deposit applied to a position.
type Staked struct {
	Account  [20]byte
	StakedAt uint64
	Period   uint64
	Sum      *big.Int
	NewTotal *big.Int
}

// EventType satisfies the events.Event interface.
func (Staked) EventType() string { return TypeStaked }

// Event converts the structured payload into a broadcastable event.
func (e Staked) Event() *types.Event {
	return &types.Event{
		Type: TypeStaked,
		Attributes: map[string]string{
			"addr":     crypto.MustNewAddress(crypto.SVTPrefix, e.Account[:]).String(),
			"stakedAt": strconv.FormatUint(e.StakedAt, 10),
			"period":   strconv.FormatUint(e.Period, 10),
			"sum":      formatAmount(e.Sum),
			"newTotal": formatAmount(e.NewTotal),
		},
	}
}

// Withdrawn captures a principal payout from custody.
type Withdrawn struct {
	Account [20]byte
	Sum     *big.Int
	Early   bool
}

// EventType satisfies the events.Event interface.
func (Withdrawn) EventType() string { return TypeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e Withdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeWithdrawn,
		Attributes: map[string]string{
			"addr":    crypto.MustNewAddress(crypto.SVTPrefix, e.Account[:]).String(),
			"sum":     formatAmount(e.Sum),
			"isEarly": strconv.FormatBool(e.Early),
		},
	}
}

// RewardsClaimed captures a settled reward accrual.
type RewardsClaimed struct {
	Account [20]byte
	Periods uint64
	Amount  *big.Int
}

// EventType satisfies the events.Event interface.
func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e RewardsClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardsClaimed,
		Attributes: map[string]string{
			"addr":    crypto.MustNewAddress(crypto.SVTPrefix, e.Account[:]).String(),
			"periods": strconv.FormatUint(e.Periods, 10),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// PoolToppedUp captures a rewards pool funding.
type PoolToppedUp struct {
	Amount *big.Int
}

// EventType satisfies the events.Event interface.
func (PoolToppedUp) EventType() string { return TypePoolToppedUp }

// Event converts the structured payload into a broadcastable event.
func (e PoolToppedUp) Event() *types.Event {
	return &types.Event{
		Type: TypePoolToppedUp,
		Attributes: map[string]string{
			"amount": formatAmount(e.Amount),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
