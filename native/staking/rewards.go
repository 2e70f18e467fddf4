package staking

import "math/big"

// RewardAmount computes the whole accrual periods elapsed since the
// account's cursor and the reward owed for them. Accrual is clamped at the
// position's maturity: time past ActiveUntil earns nothing.
func (e *Engine) RewardAmount(addr [20]byte) (uint64, *big.Int, error) {
	if e == nil || e.state == nil {
		return 0, nil, errNilState
	}
	pos, ok := e.state.StakeGet(addr)
	if !ok {
		return 0, nil, ErrNoStake
	}
	pool, err := e.state.StakingPool()
	if err != nil {
		return 0, nil, err
	}
	t := e.now()
	if t > pos.ActiveUntil {
		t = pos.ActiveUntil
	}
	last, _ := e.state.LastClaimGet(addr)
	var periods uint64
	if t > last {
		periods = (t - last) / PeriodLength
	}
	reward := new(big.Int).Set(cloneBigInt(pos.Amount))
	reward.Mul(reward, pool.RewardRate)
	reward.Mul(reward, new(big.Int).SetUint64(periods))
	reward.Mul(reward, big.NewInt(rewardScale))
	reward.Quo(reward, big.NewInt(rewardDenominator))
	return periods, reward, nil
}

// AvailableRewards returns the reward payable to the account right now.
func (e *Engine) AvailableRewards(addr [20]byte) (*big.Int, error) {
	_, reward, err := e.RewardAmount(addr)
	return reward, err
}

// PassedRewardPeriods returns the whole accrual periods elapsed since the
// account's cursor.
func (e *Engine) PassedRewardPeriods(addr [20]byte) (uint64, error) {
	periods, _, err := e.RewardAmount(addr)
	return periods, err
}

// NextRewardDate returns the timestamp of the next accrual boundary. Past
// maturity the final boundary is the maturity itself; before that it is the
// start of the next whole period measured from StartedAt.
func (e *Engine) NextRewardDate(addr [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if _, ok := e.state.LastClaimGet(addr); !ok {
		return 0, ErrNoClaimRecord
	}
	pos, ok := e.state.StakeGet(addr)
	if !ok {
		return 0, ErrNoStake
	}
	now := e.now()
	if now > pos.ActiveUntil {
		return pos.ActiveUntil, nil
	}
	var passed uint64
	if now > pos.StartedAt {
		passed = (now - pos.StartedAt) / PeriodLength
	}
	return (passed+1)*PeriodLength + pos.StartedAt, nil
}

// StakingPeriod returns the position's lock span in accrual periods.
func (e *Engine) StakingPeriod(addr [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	pos, ok := e.state.StakeGet(addr)
	if !ok {
		return 0, ErrNoStake
	}
	if pos.ActiveUntil <= pos.StartedAt {
		return 0, nil
	}
	return (pos.ActiveUntil - pos.StartedAt) / PeriodLength, nil
}

// StakeInfo aggregates the stored position with its derived accrual values.
// A closed position reports zero rewards and no upcoming boundary.
func (e *Engine) StakeInfo(addr [20]byte) (*Info, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pos, ok := e.state.StakeGet(addr)
	if !ok {
		return nil, ErrNoStake
	}
	info := &Info{
		Amount:      cloneBigInt(pos.Amount),
		StartedAt:   pos.StartedAt,
		Period:      pos.Period,
		ActiveUntil: pos.ActiveUntil,
		Rewards:     big.NewInt(0),
	}
	if pos.Open() {
		_, reward, err := e.RewardAmount(addr)
		if err != nil {
			return nil, err
		}
		next, err := e.NextRewardDate(addr)
		if err != nil {
			return nil, err
		}
		info.Rewards = reward
		info.NextRewardAt = next
	}
	return info, nil
}
