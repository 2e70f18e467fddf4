package token

import (
	"errors"
	"math/big"
)

var (
	// ErrInvalidAmount is returned for nil or non-positive amounts.
	ErrInvalidAmount = errors.New("token ledger: amount must be positive")
	// ErrInsufficientBalance is returned when a transfer or burn exceeds the
	// sender's balance.
	ErrInsufficientBalance = errors.New("token ledger: insufficient balance")

	errNilState = errors.New("token ledger: state not configured")
)

// ledgerState is the persistence view the ledger needs: per-address balances
// and the circulating supply, both keyed by token symbol.
type ledgerState interface {
	TokenBalance(symbol string, addr [20]byte) (*big.Int, error)
	SetTokenBalance(symbol string, addr [20]byte, amount *big.Int) error
	TokenSupply(symbol string) (*big.Int, error)
	SetTokenSupply(symbol string, amount *big.Int) error
}

// Ledger is a minimal fungible token: balances, supply, transfers. The
// staking engine consumes it as its reward payout collaborator.
type Ledger struct {
	state  ledgerState
	symbol string
}

// NewLedger creates a ledger for the given token symbol.
func NewLedger(symbol string) *Ledger {
	return &Ledger{symbol: symbol}
}

// SetState wires the ledger to the persistence layer.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// Symbol returns the token symbol the ledger operates on.
func (l *Ledger) Symbol() string { return l.symbol }

// BalanceOf returns the balance held by the address.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.TokenBalance(l.symbol, addr)
}

// Mint credits newly issued tokens to the address and grows the supply.
func (l *Ledger) Mint(to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.state.TokenBalance(l.symbol, to)
	if err != nil {
		return err
	}
	if err := l.state.SetTokenBalance(l.symbol, to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	supply, err := l.state.TokenSupply(l.symbol)
	if err != nil {
		return err
	}
	return l.state.SetTokenSupply(l.symbol, new(big.Int).Add(supply, amount))
}

// Transfer moves tokens between two addresses. A zero amount passes the
// balance check and completes as a no-op; reward payouts for positions too
// small to accrue a whole unit flow through here.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromBalance, err := l.state.TokenBalance(l.symbol, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from == to || amount.Sign() == 0 {
		return nil
	}
	toBalance, err := l.state.TokenBalance(l.symbol, to)
	if err != nil {
		return err
	}
	if err := l.state.SetTokenBalance(l.symbol, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.state.SetTokenBalance(l.symbol, to, new(big.Int).Add(toBalance, amount))
}
