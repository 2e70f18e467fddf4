package staking

import (
	"errors"
	"math/big"
	"testing"

	"stakevault/core/events"
)

type mockState struct {
	positions map[[20]byte]*Position
	claims    map[[20]byte]uint64
	pool      *Pool
}

func newMockState() *mockState {
	return &mockState{
		positions: make(map[[20]byte]*Position),
		claims:    make(map[[20]byte]uint64),
		pool:      NewPool(big.NewInt(1)),
	}
}

func (m *mockState) StakeGet(addr [20]byte) (*Position, bool) {
	pos, ok := m.positions[addr]
	if !ok {
		return nil, false
	}
	return pos.Clone(), true
}

func (m *mockState) StakePut(addr [20]byte, pos *Position) error {
	m.positions[addr] = pos.Clone()
	return nil
}

func (m *mockState) LastClaimGet(addr [20]byte) (uint64, bool) {
	ts, ok := m.claims[addr]
	return ts, ok
}

func (m *mockState) LastClaimPut(addr [20]byte, ts uint64) error {
	m.claims[addr] = ts
	return nil
}

func (m *mockState) StakingPool() (*Pool, error) {
	return m.pool.Clone(), nil
}

func (m *mockState) SetStakingPool(pool *Pool) error {
	m.pool = pool.Clone()
	return nil
}

type transferCall struct {
	to     [20]byte
	amount *big.Int
}

type mockTransfer struct {
	calls []transferCall
	fail  bool
}

func (m *mockTransfer) Transfer(to [20]byte, amount *big.Int) error {
	if m.fail {
		return errors.New("declined")
	}
	m.calls = append(m.calls, transferCall{to: to, amount: new(big.Int).Set(amount)})
	return nil
}

type eventRecorder struct {
	emitted []events.Event
}

func (r *eventRecorder) Emit(evt events.Event) {
	r.emitted = append(r.emitted, evt)
}

type engineHarness struct {
	engine  *Engine
	state   *mockState
	native  *mockTransfer
	rewards *mockTransfer
	events  *eventRecorder
	now     uint64
}

func newEngineHarness() *engineHarness {
	h := &engineHarness{
		state:   newMockState(),
		native:  &mockTransfer{},
		rewards: &mockTransfer{},
		events:  &eventRecorder{},
		now:     1_700_000_000,
	}
	h.engine = NewEngine()
	h.engine.SetState(h.state)
	h.engine.SetNativeTransfer(h.native)
	h.engine.SetRewardToken(h.rewards)
	h.engine.SetEmitter(h.events)
	h.engine.SetNowFunc(func() uint64 { return h.now })
	return h
}

func (h *engineHarness) advance(seconds uint64) {
	h.now += seconds
}

func testAddr(b byte) [20]byte {
	var addr [20]byte
	addr[19] = b
	return addr
}

func TestStakeOpensPosition(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(1)

	if err := h.engine.Stake(addr, 6, big.NewInt(10_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	pos, ok := h.state.StakeGet(addr)
	if !ok || !pos.Open() {
		t.Fatal("expected an open position")
	}
	if pos.Amount.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected amount %s", pos.Amount)
	}
	if pos.StartedAt != h.now {
		t.Fatalf("unexpected start %d", pos.StartedAt)
	}
	wantUntil := h.now + 6*LockBlockPeriods*PeriodLength
	if pos.ActiveUntil != wantUntil {
		t.Fatalf("unexpected maturity %d, want %d", pos.ActiveUntil, wantUntil)
	}
	if cursor, ok := h.state.LastClaimGet(addr); !ok || cursor != h.now {
		t.Fatalf("expected accrual cursor at %d, got %d (ok=%v)", h.now, cursor, ok)
	}
	if h.state.pool.TotalStaked.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected total staked %s", h.state.pool.TotalStaked)
	}
	if len(h.events.emitted) != 1 {
		t.Fatalf("expected 1 event, got %d", len(h.events.emitted))
	}
	staked, ok := h.events.emitted[0].(*Staked)
	if !ok {
		t.Fatalf("unexpected event %T", h.events.emitted[0])
	}
	if staked.Sum.Cmp(big.NewInt(10_000)) != 0 || staked.NewTotal.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected event amounts sum=%s total=%s", staked.Sum, staked.NewTotal)
	}
}

func TestStakeRejectsUnknownPeriod(t *testing.T) {
	h := newEngineHarness()
	if err := h.engine.Stake(testAddr(1), 7, big.NewInt(100)); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestStakeRejectsNonPositiveValue(t *testing.T) {
	h := newEngineHarness()
	if err := h.engine.Stake(testAddr(1), 6, big.NewInt(0)); !IsFatal(err) {
		t.Fatalf("expected fatal error for zero value, got %v", err)
	}
	if err := h.engine.Stake(testAddr(1), 6, nil); !IsFatal(err) {
		t.Fatalf("expected fatal error for nil value, got %v", err)
	}
}

func TestTopUpKeepsMaturity(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(2)
	if err := h.engine.Stake(addr, 6, big.NewInt(1_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	first, _ := h.state.StakeGet(addr)

	// Less than one accrual period later: no settlement due.
	h.advance(PeriodLength / 2)
	if err := h.engine.Stake(addr, 6, big.NewInt(500)); err != nil {
		t.Fatalf("top-up: %v", err)
	}

	pos, _ := h.state.StakeGet(addr)
	if pos.Amount.Cmp(big.NewInt(1_500)) != 0 {
		t.Fatalf("unexpected amount %s", pos.Amount)
	}
	if pos.ActiveUntil != first.ActiveUntil {
		t.Fatalf("top-up moved maturity from %d to %d", first.ActiveUntil, pos.ActiveUntil)
	}
	if pos.StartedAt != h.now {
		t.Fatalf("expected StartedAt to track the latest deposit, got %d", pos.StartedAt)
	}
	if h.state.pool.TotalStaked.Cmp(big.NewInt(1_500)) != 0 {
		t.Fatalf("unexpected total staked %s", h.state.pool.TotalStaked)
	}
	if len(h.rewards.calls) != 0 {
		t.Fatal("no reward payout expected inside the first period")
	}
}

func TestTopUpSettlesAccruedRewards(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(3)
	if err := h.engine.UpdateRewardsPool(big.NewInt(1_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
	if err := h.engine.Stake(addr, 6, big.NewInt(10_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	start := h.now
	h.advance(3 * PeriodLength)
	if err := h.engine.Stake(addr, 6, big.NewInt(1)); err != nil {
		t.Fatalf("top-up: %v", err)
	}

	// floor(10000 * 5 * 3 * 100 / 36000) = 416
	if len(h.rewards.calls) != 1 {
		t.Fatalf("expected 1 reward payout, got %d", len(h.rewards.calls))
	}
	if h.rewards.calls[0].amount.Cmp(big.NewInt(416)) != 0 {
		t.Fatalf("unexpected payout %s", h.rewards.calls[0].amount)
	}
	if cursor, _ := h.state.LastClaimGet(addr); cursor != start+3*PeriodLength {
		t.Fatalf("unexpected cursor %d", cursor)
	}
	want := new(big.Int).Sub(big.NewInt(1_000_000), big.NewInt(416))
	if h.state.pool.RewardsBalance.Cmp(want) != 0 {
		t.Fatalf("unexpected pool balance %s", h.state.pool.RewardsBalance)
	}
}

func TestExtendRequiresMaturity(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(4)
	if err := h.engine.Stake(addr, 6, big.NewInt(1_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	if err := h.engine.Extend(addr, 12); !errors.Is(err, ErrStillActive) {
		t.Fatalf("expected ErrStillActive, got %v", err)
	}

	h.advance(6*LockBlockPeriods*PeriodLength + 1)
	if err := h.engine.UpdateRewardsPool(big.NewInt(1_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
	if err := h.engine.Extend(addr, 12); err != nil {
		t.Fatalf("extend: %v", err)
	}

	pos, _ := h.state.StakeGet(addr)
	if pos.Amount.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("extend changed principal to %s", pos.Amount)
	}
	if pos.Period != 12 {
		t.Fatalf("unexpected period %d", pos.Period)
	}
	wantUntil := h.now + 12*LockBlockPeriods*PeriodLength
	if pos.ActiveUntil != wantUntil {
		t.Fatalf("unexpected maturity %d, want %d", pos.ActiveUntil, wantUntil)
	}
	if h.state.pool.TotalStaked.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("extend changed total staked to %s", h.state.pool.TotalStaked)
	}
}

func TestExtendWithoutStake(t *testing.T) {
	h := newEngineHarness()
	if err := h.engine.Extend(testAddr(5), 6); !errors.Is(err, ErrNoStake) {
		t.Fatalf("expected ErrNoStake, got %v", err)
	}
}

func TestWithdrawReturnsPrincipal(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(6)
	if err := h.engine.UpdateRewardsPool(big.NewInt(1_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
	if err := h.engine.Stake(addr, 6, big.NewInt(10_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	h.advance(2 * PeriodLength)
	if err := h.engine.Withdraw(addr); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if len(h.native.calls) != 1 {
		t.Fatalf("expected 1 native transfer, got %d", len(h.native.calls))
	}
	if h.native.calls[0].amount.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected principal payout %s", h.native.calls[0].amount)
	}
	if len(h.rewards.calls) != 1 {
		t.Fatalf("expected a reward settlement before withdrawal, got %d payouts", len(h.rewards.calls))
	}
	pos, ok := h.state.StakeGet(addr)
	if !ok {
		t.Fatal("expected the zeroed position record to remain")
	}
	if pos.Open() {
		t.Fatal("position should be closed after withdrawal")
	}
	// Deposits are the only writer of the aggregate counter.
	if h.state.pool.TotalStaked.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("total staked changed on withdrawal: %s", h.state.pool.TotalStaked)
	}

	if err := h.engine.Withdraw(addr); !errors.Is(err, ErrNoStake) {
		t.Fatalf("expected ErrNoStake on repeat withdrawal, got %v", err)
	}
}

func TestWithdrawTransferFailureLeavesPositionClosed(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(7)
	if err := h.engine.Stake(addr, 6, big.NewInt(500)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	h.native.fail = true
	if err := h.engine.Withdraw(addr); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	pos, _ := h.state.StakeGet(addr)
	if pos.Open() {
		t.Fatal("position should be zeroed before the custody transfer")
	}
}

func TestEmergencyWithdrawForfeitsRewards(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(8)
	if err := h.engine.UpdateRewardsPool(big.NewInt(1_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
	if err := h.engine.Stake(addr, 6, big.NewInt(10_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	start := h.now

	h.advance(5 * PeriodLength)
	if err := h.engine.EmergencyWithdraw(addr); err != nil {
		t.Fatalf("emergency withdraw: %v", err)
	}

	if len(h.rewards.calls) != 0 {
		t.Fatal("emergency withdrawal must not settle rewards")
	}
	if len(h.native.calls) != 1 || h.native.calls[0].amount.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("unexpected principal payout %+v", h.native.calls)
	}
	if cursor, _ := h.state.LastClaimGet(addr); cursor != start {
		t.Fatalf("emergency withdrawal moved the cursor to %d", cursor)
	}
	if h.state.pool.RewardsBalance.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("pool balance changed: %s", h.state.pool.RewardsBalance)
	}
}

func TestClaimPaysAccruedRewards(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(9)
	if err := h.engine.UpdateRewardsPool(big.NewInt(1_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
	if err := h.engine.Stake(addr, 6, big.NewInt(10_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	start := h.now

	h.advance(3*PeriodLength + PeriodLength/3)
	if err := h.engine.Claim(addr); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if len(h.rewards.calls) != 1 || h.rewards.calls[0].amount.Cmp(big.NewInt(416)) != 0 {
		t.Fatalf("unexpected reward payout %+v", h.rewards.calls)
	}
	// The cursor advances by whole periods only, not to the current time.
	if cursor, _ := h.state.LastClaimGet(addr); cursor != start+3*PeriodLength {
		t.Fatalf("unexpected cursor %d", cursor)
	}
}

func TestClaimWithoutElapsedPeriodIsFatal(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(10)
	if err := h.engine.UpdateRewardsPool(big.NewInt(1_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
	if err := h.engine.Stake(addr, 6, big.NewInt(10_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	h.advance(PeriodLength - 1)
	err := h.engine.Claim(addr)
	if !IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if errors.Is(err, ErrTransferFailed) {
		t.Fatalf("unexpected transfer error %v", err)
	}
}

func TestClaimAgainstUnderfundedPool(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(11)
	if err := h.engine.Stake(addr, 6, big.NewInt(10_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	start := h.now

	// Pool holds nothing, so any positive accrual is unpayable.
	h.advance(3 * PeriodLength)
	if err := h.engine.Claim(addr); !IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if cursor, _ := h.state.LastClaimGet(addr); cursor != start {
		t.Fatalf("failed claim moved the cursor to %d", cursor)
	}
	if len(h.rewards.calls) != 0 {
		t.Fatal("no payout expected from an underfunded pool")
	}
}

func TestClaimRewardConversion(t *testing.T) {
	h := newEngineHarness()
	h.state.pool.ConversionRate = big.NewInt(3)
	addr := testAddr(12)
	if err := h.engine.UpdateRewardsPool(big.NewInt(1_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
	if err := h.engine.Stake(addr, 6, big.NewInt(10_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	h.advance(3 * PeriodLength)
	if err := h.engine.Claim(addr); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// The pool is debited 416 base units, the payout is scaled by the
	// conversion rate.
	if h.rewards.calls[0].amount.Cmp(big.NewInt(1248)) != 0 {
		t.Fatalf("unexpected payout %s", h.rewards.calls[0].amount)
	}
	want := new(big.Int).Sub(big.NewInt(1_000_000), big.NewInt(416))
	if h.state.pool.RewardsBalance.Cmp(want) != 0 {
		t.Fatalf("unexpected pool balance %s", h.state.pool.RewardsBalance)
	}
}

func TestClaimTransferFailureKeepsSettlement(t *testing.T) {
	h := newEngineHarness()
	addr := testAddr(13)
	if err := h.engine.UpdateRewardsPool(big.NewInt(1_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
	if err := h.engine.Stake(addr, 6, big.NewInt(10_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	start := h.now

	h.advance(3 * PeriodLength)
	h.rewards.fail = true
	if err := h.engine.Claim(addr); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// Cursor and pool were advanced before the payout attempt.
	if cursor, _ := h.state.LastClaimGet(addr); cursor != start+3*PeriodLength {
		t.Fatalf("unexpected cursor %d", cursor)
	}
	want := new(big.Int).Sub(big.NewInt(1_000_000), big.NewInt(416))
	if h.state.pool.RewardsBalance.Cmp(want) != 0 {
		t.Fatalf("unexpected pool balance %s", h.state.pool.RewardsBalance)
	}
}

func TestClaimWithoutStake(t *testing.T) {
	h := newEngineHarness()
	if err := h.engine.Claim(testAddr(14)); !errors.Is(err, ErrNoStake) {
		t.Fatalf("expected ErrNoStake, got %v", err)
	}
}

func TestUpdateRewardsPool(t *testing.T) {
	h := newEngineHarness()
	if err := h.engine.UpdateRewardsPool(big.NewInt(42)); err != nil {
		t.Fatalf("top-up: %v", err)
	}
	if err := h.engine.UpdateRewardsPool(big.NewInt(58)); err != nil {
		t.Fatalf("top-up: %v", err)
	}
	if h.state.pool.RewardsBalance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected pool balance %s", h.state.pool.RewardsBalance)
	}
	if err := h.engine.UpdateRewardsPool(big.NewInt(0)); !IsFatal(err) {
		t.Fatalf("expected fatal error for zero top-up, got %v", err)
	}
}
