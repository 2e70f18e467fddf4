package core

import (
	"errors"
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"stakevault/core/events"
	"stakevault/core/state"
	"stakevault/core/types"
	"stakevault/native/staking"
	"stakevault/native/token"
	"stakevault/observability/metrics"
	"stakevault/storage"
)

// ErrInsufficientFunds is returned when a caller attaches more native value
// than their account holds.
var ErrInsufficientFunds = errors.New("core: insufficient balance for attached value")

// maxEventBacklog bounds the in-memory event feed served over RPC.
const maxEventBacklog = 1024

// Node owns the stake ledger and serializes every call against it. Each
// operation runs to completion under the node lock and either commits its
// buffered writes or discards them, so callers observe all-or-nothing
// behaviour per call.
type Node struct {
	mu      sync.Mutex
	state   *state.Manager
	engine  *staking.Engine
	rewards *token.Ledger

	vault    [20]byte
	treasury [20]byte

	// events is the feed served over RPC; pending holds the current call's
	// emissions until the call commits.
	events  []types.Event
	pending []types.Event
}

// custodyTransfer releases native value from the vault account. It backs the
// engine's NativeTransfer collaborator.
type custodyTransfer struct {
	node *Node
}

func (t custodyTransfer) Transfer(to [20]byte, amount *big.Int) error {
	return t.node.moveNative(t.node.vault, to, amount)
}

// rewardPayout pays reward tokens out of the module treasury. It backs the
// engine's RewardToken collaborator.
type rewardPayout struct {
	node *Node
}

func (t rewardPayout) Transfer(to [20]byte, amount *big.Int) error {
	return t.node.rewards.Transfer(t.node.treasury, to, amount)
}

func moduleAddress(label string) [20]byte {
	var addr [20]byte
	hash := ethcrypto.Keccak256([]byte("stakevault/module/" + label))
	copy(addr[:], hash[len(hash)-20:])
	return addr
}

// NewNode wires a node over the given store. A fresh store is seeded with a
// staking pool carrying the construction defaults and the supplied reward
// conversion rate.
func NewNode(db storage.Database, rewardSymbol string, conversionRate *big.Int) (*Node, error) {
	n := &Node{
		state:    state.NewManager(db),
		rewards:  token.NewLedger(rewardSymbol),
		vault:    moduleAddress("vault"),
		treasury: moduleAddress("rewards"),
	}
	n.rewards.SetState(n.state)

	if _, err := n.state.StakingPool(); err != nil {
		if !errors.Is(err, state.ErrPoolNotInitialised) {
			return nil, err
		}
		if err := n.state.SetStakingPool(staking.NewPool(conversionRate)); err != nil {
			return nil, err
		}
		if err := n.state.Commit(); err != nil {
			return nil, err
		}
	}

	n.engine = staking.NewEngine()
	n.engine.SetState(n.state)
	n.engine.SetEmitter(n)
	n.engine.SetNativeTransfer(custodyTransfer{node: n})
	n.engine.SetRewardToken(rewardPayout{node: n})
	return n, nil
}

// SetNowFunc overrides the engine time source. Intended for tests.
func (n *Node) SetNowFunc(now func() uint64) {
	n.engine.SetNowFunc(now)
}

// Emit satisfies events.Emitter: payloads that can render a broadcastable
// event are buffered for the current call and published only when the call's
// writes commit. A discarded call publishes nothing.
func (n *Node) Emit(evt events.Event) {
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	rendered := carrier.Event()
	if rendered == nil {
		return
	}
	n.pending = append(n.pending, *rendered)
}

// publishEvents moves the call's buffered events into the bounded feed.
func (n *Node) publishEvents() {
	n.events = append(n.events, n.pending...)
	n.pending = nil
	if len(n.events) > maxEventBacklog {
		n.events = n.events[len(n.events)-maxEventBacklog:]
	}
}

// Events returns a copy of the buffered event feed.
func (n *Node) Events() []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.Event(nil), n.events...)
}

// finish commits or discards the call's buffered writes. A failed external
// transfer keeps the mutations applied before the transfer; every other
// failure discards the call entirely.
func (n *Node) finish(op string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if staking.IsFatal(err) {
			outcome = "fatal"
		}
	}
	metrics.Staking().ObserveOperation(op, outcome)
	if err == nil || errors.Is(err, staking.ErrTransferFailed) {
		if commitErr := n.state.Commit(); commitErr != nil {
			n.pending = nil
			return errors.Join(err, commitErr)
		}
		n.publishEvents()
		n.publishPoolGauges()
		return err
	}
	n.state.Reset()
	n.pending = nil
	return err
}

func (n *Node) publishPoolGauges() {
	pool, err := n.state.StakingPool()
	if err != nil {
		return
	}
	staked, _ := new(big.Float).SetInt(pool.TotalStaked).Float64()
	balance, _ := new(big.Float).SetInt(pool.RewardsBalance).Float64()
	metrics.Staking().SetPoolGauges(staked, balance)
}

// attachValue debits the attached native value from the caller and credits
// it to the vault. Zero and nil values are left for the engine to judge.
func (n *Node) attachValue(caller [20]byte, value *big.Int) error {
	if value == nil || value.Sign() <= 0 {
		return nil
	}
	return n.moveNative(caller, n.vault, value)
}

func (n *Node) moveNative(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientFunds
	}
	fromAccount, err := n.state.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAccount.BalanceSVT.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toAccount, err := n.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAccount.BalanceSVT = new(big.Int).Sub(fromAccount.BalanceSVT, amount)
	toAccount.BalanceSVT = new(big.Int).Add(toAccount.BalanceSVT, amount)
	if err := n.state.PutAccount(from, fromAccount); err != nil {
		return err
	}
	return n.state.PutAccount(to, toAccount)
}

// --- lifecycle operations ---

// StakeDeposit locks the attached value under the requested period code.
func (n *Node) StakeDeposit(caller [20]byte, period uint64, value *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.attachValue(caller, value)
	if err == nil {
		err = n.engine.Stake(caller, period, value)
	}
	return n.finish("deposit", err)
}

// StakeExtend restarts a matured lock under a new period code.
func (n *Node) StakeExtend(caller [20]byte, period uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finish("extend", n.engine.Extend(caller, period))
}

// StakeWithdraw settles rewards and returns the principal to the caller.
func (n *Node) StakeWithdraw(caller [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finish("withdraw", n.engine.Withdraw(caller))
}

// StakeEmergencyWithdraw returns the principal immediately, forfeiting any
// unclaimed rewards.
func (n *Node) StakeEmergencyWithdraw(caller [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finish("emergencyWithdraw", n.engine.EmergencyWithdraw(caller))
}

// StakeClaim pays out accrued rewards.
func (n *Node) StakeClaim(caller [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.Claim(caller)
	if err == nil {
		metrics.Staking().ObserveRewardClaim()
	}
	return n.finish("claim", err)
}

// StakePoolTopUp funds the shared rewards pool with the attached value.
func (n *Node) StakePoolTopUp(caller [20]byte, value *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.attachValue(caller, value)
	if err == nil {
		err = n.engine.UpdateRewardsPool(value)
	}
	return n.finish("poolTopUp", err)
}

// --- read surface ---

// StakeInfo returns the aggregate position view for an account.
func (n *Node) StakeInfo(addr [20]byte) (*staking.Info, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.StakeInfo(addr)
}

// StakeAvailableRewards returns the reward payable right now.
func (n *Node) StakeAvailableRewards(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.AvailableRewards(addr)
}

// StakePassedPeriods returns the whole accrual periods since the cursor.
func (n *Node) StakePassedPeriods(addr [20]byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.PassedRewardPeriods(addr)
}

// StakeNextRewardDate returns the next accrual boundary timestamp.
func (n *Node) StakeNextRewardDate(addr [20]byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.NextRewardDate(addr)
}

// StakingPeriod returns the position's lock span in accrual periods.
func (n *Node) StakingPeriod(addr [20]byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.StakingPeriod(addr)
}

// StakingPool returns the current pool counters and parameters.
func (n *Node) StakingPool() (*staking.Pool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.StakingPool()
}

// Account returns the native account for an address.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr)
}

// RewardBalance returns the reward-token balance for an address.
func (n *Node) RewardBalance(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rewards.BalanceOf(addr)
}

// --- genesis / operational helpers ---

// SeedAccount credits native value to an address. Used when bootstrapping a
// fresh store.
func (n *Node) SeedAccount(addr [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	account, err := n.state.GetAccount(addr)
	if err != nil {
		return err
	}
	account.BalanceSVT = new(big.Int).Add(account.BalanceSVT, amount)
	if err := n.state.PutAccount(addr, account); err != nil {
		n.state.Reset()
		return err
	}
	return n.state.Commit()
}

// FundRewardTreasury mints reward tokens into the module treasury backing
// claim payouts.
func (n *Node) FundRewardTreasury(amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.rewards.Mint(n.treasury, amount); err != nil {
		n.state.Reset()
		return err
	}
	return n.state.Commit()
}
