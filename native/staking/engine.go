package staking

import (
	"math/big"
	"time"

	"stakevault/core/events"
)

// engineState is the narrow view of the ledger the engine depends on. The
// ledger performs no validation of its own; every invariant is enforced here.
type engineState interface {
	StakeGet(addr [20]byte) (*Position, bool)
	StakePut(addr [20]byte, pos *Position) error
	LastClaimGet(addr [20]byte) (uint64, bool)
	LastClaimPut(addr [20]byte, ts uint64) error
	StakingPool() (*Pool, error)
	SetStakingPool(pool *Pool) error
}

// NativeTransfer releases native value held in custody back to an account.
// The call either succeeds or fails atomically.
type NativeTransfer interface {
	Transfer(to [20]byte, amount *big.Int) error
}

// RewardToken pays accrued rewards in the external reward token. The engine
// treats the token's own accounting as opaque.
type RewardToken interface {
	Transfer(to [20]byte, amount *big.Int) error
}

// Engine drives the stake lifecycle: deposits, extensions, withdrawals and
// reward claims over the positions held in the ledger.
type Engine struct {
	state       engineState
	emitter     events.Emitter
	native      NativeTransfer
	rewardToken RewardToken
	nowFn       func() uint64
}

// NewEngine creates a staking engine with a no-op emitter. Callers wire the
// state backend and transfer collaborators before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState configures the ledger backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNativeTransfer configures the custody collaborator used on withdrawals.
func (e *Engine) SetNativeTransfer(native NativeTransfer) { e.native = native }

// SetRewardToken configures the reward payout collaborator.
func (e *Engine) SetRewardToken(token RewardToken) { e.rewardToken = token }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// Stake opens a position or tops up an existing one with the attached value.
// A top-up first settles any accrued rewards, then adds to the principal
// without moving the maturity horizon.
func (e *Engine) Stake(caller [20]byte, period uint64, value *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if value == nil || value.Sign() <= 0 {
		return fatalf("stake value must be positive")
	}
	if pos, ok := e.state.StakeGet(caller); ok && pos.Open() {
		if err := e.collectRewards(caller, false); err != nil {
			return err
		}
	}
	return e.stakeApply(caller, period, value)
}

// Extend restarts a matured position's lock under a new period code. The
// principal stays locked; accrued rewards are settled first.
func (e *Engine) Extend(caller [20]byte, period uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	pos, ok := e.state.StakeGet(caller)
	if !ok || !pos.Open() {
		return ErrNoStake
	}
	if pos.ActiveUntil >= e.now() {
		return ErrStillActive
	}
	if err := e.collectRewards(caller, false); err != nil {
		return err
	}
	return e.stakeApply(caller, period, big.NewInt(0))
}

// Withdraw settles accrued rewards, zeroes the position and returns the full
// principal to the caller through the custody collaborator.
func (e *Engine) Withdraw(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	pos, ok := e.state.StakeGet(caller)
	if !ok || !pos.Open() {
		return ErrNoStake
	}
	if err := e.collectRewards(caller, false); err != nil {
		return err
	}
	pos, _ = e.state.StakeGet(caller)
	return e.withdrawApply(caller, pos.Amount)
}

// EmergencyWithdraw returns the principal immediately, regardless of
// maturity, forfeiting any unclaimed rewards.
func (e *Engine) EmergencyWithdraw(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	pos, ok := e.state.StakeGet(caller)
	if !ok || !pos.Open() {
		return ErrNoStake
	}
	return e.withdrawApply(caller, pos.Amount)
}

// Claim pays out the rewards accrued since the last claim. Unlike the
// settlement forced by the other operations, a claim with no whole elapsed
// period is a fatal condition rather than a no-op.
func (e *Engine) Claim(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	pos, ok := e.state.StakeGet(caller)
	if !ok || !pos.Open() {
		return ErrNoStake
	}
	return e.collectRewards(caller, true)
}

// UpdateRewardsPool credits the attached value to the shared rewards pool.
func (e *Engine) UpdateRewardsPool(value *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if value == nil || value.Sign() <= 0 {
		return fatalf("pool top-up value must be positive")
	}
	pool, err := e.state.StakingPool()
	if err != nil {
		return err
	}
	pool.RewardsBalance = new(big.Int).Add(pool.RewardsBalance, value)
	if err := e.state.SetStakingPool(pool); err != nil {
		return err
	}
	e.emit(&PoolToppedUp{Amount: new(big.Int).Set(value)})
	return nil
}

// stakeApply is the shared deposit path used by Stake and Extend. An extend
// arrives with a zero value, which recomputes the maturity horizon from now;
// a top-up keeps the stored horizon untouched.
func (e *Engine) stakeApply(caller [20]byte, period uint64, value *big.Int) error {
	pool, err := e.state.StakingPool()
	if err != nil {
		return err
	}
	if !pool.PeriodAllowed(period) {
		return ErrInvalidPeriod
	}
	now := e.now()
	existing, ok := e.state.StakeGet(caller)
	newAmount := new(big.Int).Set(value)
	if ok && existing.Amount != nil {
		newAmount = new(big.Int).Add(existing.Amount, value)
	}
	fresh := !ok || !existing.Open()
	until := now + period*LockBlockPeriods*PeriodLength
	if !fresh && value.Sign() > 0 {
		// Top-ups never extend the lock. Only Extend recomputes the horizon.
		until = existing.ActiveUntil
	}
	if fresh {
		// The accrual cursor starts at the moment the position opens.
		if err := e.state.LastClaimPut(caller, now); err != nil {
			return err
		}
	}
	pos := &Position{Amount: newAmount, StartedAt: now, Period: period, ActiveUntil: until}
	if err := e.state.StakePut(caller, pos); err != nil {
		return err
	}
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, value)
	if err := e.state.SetStakingPool(pool); err != nil {
		return err
	}
	e.emit(&Staked{
		Account:  caller,
		StakedAt: now,
		Period:   period,
		Sum:      new(big.Int).Set(value),
		NewTotal: new(big.Int).Set(newAmount),
	})
	return nil
}

// withdrawApply zeroes the position and releases the principal. The position
// is zeroed before the custody transfer, so a declining collaborator leaves
// the principal stranded in the vault. TotalStaked is not decremented here;
// deposits are its only writer.
func (e *Engine) withdrawApply(caller [20]byte, amount *big.Int) error {
	if e.native == nil {
		return errNilNativeTransfer
	}
	if err := e.state.StakePut(caller, zeroPosition()); err != nil {
		return err
	}
	if err := e.native.Transfer(caller, cloneBigInt(amount)); err != nil {
		return ErrTransferFailed
	}
	e.emit(&Withdrawn{Account: caller, Sum: cloneBigInt(amount), Early: false})
	return nil
}

// collectRewards settles accrued rewards for the account. In the non-direct
// mode used by deposit, extend and withdraw, a zero-period accrual returns
// without touching the cursor or the pool. In direct mode (Claim) the same
// condition is fatal. The solvency check precedes the period check, matching
// the payout ordering the rest of the system depends on.
func (e *Engine) collectRewards(caller [20]byte, direct bool) error {
	pos, ok := e.state.StakeGet(caller)
	if !ok || !pos.Open() {
		return nil
	}
	periods, reward, err := e.RewardAmount(caller)
	if err != nil {
		return err
	}
	if !direct && periods == 0 {
		return nil
	}
	pool, err := e.state.StakingPool()
	if err != nil {
		return err
	}
	if pool.RewardsBalance.Cmp(reward) < 0 {
		return fatalf("rewards pool underfunded: have %s, owe %s", pool.RewardsBalance, reward)
	}
	if periods == 0 {
		return fatalf("no accrual period has elapsed")
	}
	if e.rewardToken == nil {
		return errNilRewardToken
	}
	last, _ := e.state.LastClaimGet(caller)
	if err := e.state.LastClaimPut(caller, last+periods*PeriodLength); err != nil {
		return err
	}
	pool.RewardsBalance = new(big.Int).Sub(pool.RewardsBalance, reward)
	if err := e.state.SetStakingPool(pool); err != nil {
		return err
	}
	e.emit(&RewardsClaimed{Account: caller, Periods: periods, Amount: new(big.Int).Set(reward)})
	// The cursor and pool are already advanced at this point; a declining
	// token collaborator surfaces as ErrTransferFailed with those writes
	// kept.
	payout := new(big.Int).Mul(reward, pool.ConversionRate)
	if err := e.rewardToken.Transfer(caller, payout); err != nil {
		return ErrTransferFailed
	}
	return nil
}
