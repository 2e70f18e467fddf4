package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"stakevault/core/types"
	"stakevault/native/staking"
	"stakevault/storage"
)

// ErrPoolNotInitialised is returned when the staking pool record is missing.
// The pool is seeded once at genesis; a missing record means the store was
// never initialised.
var ErrPoolNotInitialised = errors.New("state: staking pool not initialised")

// Manager provides typed access to the stake ledger over a raw key-value
// store. Writes land in an in-memory buffer; Commit flushes the buffer to
// the store and Reset discards it, giving each node call all-or-nothing
// semantics.
type Manager struct {
	db      storage.Database
	pending map[string][]byte
}

// NewManager wraps the database with an empty write buffer.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, pending: make(map[string][]byte)}
}

func (m *Manager) read(key []byte) ([]byte, bool, error) {
	if value, ok := m.pending[string(key)]; ok {
		return value, true, nil
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) write(key, value []byte) {
	m.pending[string(key)] = value
}

// Commit flushes every buffered write to the backing store.
func (m *Manager) Commit() error {
	for key, value := range m.pending {
		if err := m.db.Put([]byte(key), value); err != nil {
			return fmt.Errorf("state: commit %q: %w", key, err)
		}
	}
	m.pending = make(map[string][]byte)
	return nil
}

// Reset discards every buffered write.
func (m *Manager) Reset() {
	m.pending = make(map[string][]byte)
}

// --- staking engine state ---

type storedPosition struct {
	Amount      *big.Int
	StartedAt   uint64
	Period      uint64
	ActiveUntil uint64
}

// StakeGet loads the position for an address. Missing or undecodable
// records report absence.
func (m *Manager) StakeGet(addr [20]byte) (*staking.Position, bool) {
	data, ok, err := m.read(stakePositionKey(addr))
	if err != nil || !ok {
		return nil, false
	}
	stored := new(storedPosition)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	pos := &staking.Position{
		Amount:      stored.Amount,
		StartedAt:   stored.StartedAt,
		Period:      stored.Period,
		ActiveUntil: stored.ActiveUntil,
	}
	return pos.Clone(), true
}

// StakePut stores the position for an address.
func (m *Manager) StakePut(addr [20]byte, pos *staking.Position) error {
	if pos == nil {
		return fmt.Errorf("state: nil position")
	}
	clone := pos.Clone()
	stored := &storedPosition{
		Amount:      clone.Amount,
		StartedAt:   clone.StartedAt,
		Period:      clone.Period,
		ActiveUntil: clone.ActiveUntil,
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	m.write(stakePositionKey(addr), encoded)
	return nil
}

// LastClaimGet loads the reward accrual cursor for an address.
func (m *Manager) LastClaimGet(addr [20]byte) (uint64, bool) {
	data, ok, err := m.read(stakeClaimKey(addr))
	if err != nil || !ok {
		return 0, false
	}
	var ts uint64
	if err := rlp.DecodeBytes(data, &ts); err != nil {
		return 0, false
	}
	return ts, true
}

// LastClaimPut stores the reward accrual cursor for an address.
func (m *Manager) LastClaimPut(addr [20]byte, ts uint64) error {
	encoded, err := rlp.EncodeToBytes(ts)
	if err != nil {
		return err
	}
	m.write(stakeClaimKey(addr), encoded)
	return nil
}

type storedPool struct {
	TotalStaked      *big.Int
	RewardsBalance   *big.Int
	RewardRate       *big.Int
	EarlyWithdrawFee *big.Int
	ConversionRate   *big.Int
	AvailablePeriods []uint64
}

// StakingPool loads the singleton pool record.
func (m *Manager) StakingPool() (*staking.Pool, error) {
	data, ok, err := m.read([]byte(stakePoolKey))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPoolNotInitialised
	}
	stored := new(storedPool)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, err
	}
	pool := &staking.Pool{
		TotalStaked:      stored.TotalStaked,
		RewardsBalance:   stored.RewardsBalance,
		RewardRate:       stored.RewardRate,
		EarlyWithdrawFee: stored.EarlyWithdrawFee,
		ConversionRate:   stored.ConversionRate,
		AvailablePeriods: stored.AvailablePeriods,
	}
	return pool.Clone(), nil
}

// SetStakingPool stores the singleton pool record.
func (m *Manager) SetStakingPool(pool *staking.Pool) error {
	if pool == nil {
		return fmt.Errorf("state: nil pool")
	}
	clone := pool.Clone()
	stored := &storedPool{
		TotalStaked:      clone.TotalStaked,
		RewardsBalance:   clone.RewardsBalance,
		RewardRate:       clone.RewardRate,
		EarlyWithdrawFee: clone.EarlyWithdrawFee,
		ConversionRate:   clone.ConversionRate,
		AvailablePeriods: clone.AvailablePeriods,
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	m.write([]byte(stakePoolKey), encoded)
	return nil
}

// --- accounts ---

type storedAccount struct {
	Nonce      uint64
	BalanceSVT *big.Int
}

// GetAccount loads the account for an address, returning a zeroed account
// when none is stored yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	data, ok, err := m.read(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewAccount(), nil
	}
	stored := new(storedAccount)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, err
	}
	account := &types.Account{Nonce: stored.Nonce, BalanceSVT: stored.BalanceSVT}
	return account.Normalize(), nil
}

// PutAccount stores the account for an address.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	account = account.Normalize()
	stored := &storedAccount{Nonce: account.Nonce, BalanceSVT: account.BalanceSVT}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	m.write(accountKey(addr), encoded)
	return nil
}

// --- token ledger state ---

// TokenBalance loads the token balance for an address, defaulting to zero.
func (m *Manager) TokenBalance(symbol string, addr [20]byte) (*big.Int, error) {
	data, ok, err := m.read(tokenBalanceKey(symbol, addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// SetTokenBalance stores the token balance for an address.
func (m *Manager) SetTokenBalance(symbol string, addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid token balance")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	m.write(tokenBalanceKey(symbol, addr), encoded)
	return nil
}

// TokenSupply loads the circulating supply for a token, defaulting to zero.
func (m *Manager) TokenSupply(symbol string) (*big.Int, error) {
	data, ok, err := m.read(tokenSupplyKey(symbol))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	supply := new(big.Int)
	if err := rlp.DecodeBytes(data, supply); err != nil {
		return nil, err
	}
	return supply, nil
}

// SetTokenSupply stores the circulating supply for a token.
func (m *Manager) SetTokenSupply(symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid token supply")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	m.write(tokenSupplyKey(symbol), encoded)
	return nil
}
