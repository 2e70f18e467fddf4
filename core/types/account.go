package types

import "math/big"

// Account tracks the native balance held by an address. The vault account
// used for stake custody is an ordinary account owned by the staking module.
type Account struct {
	Nonce      uint64   `json:"nonce"`
	BalanceSVT *big.Int `json:"balanceSVT"`
}

// NewAccount returns an account with a zeroed balance ready for mutation.
func NewAccount() *Account {
	return &Account{BalanceSVT: big.NewInt(0)}
}

// Normalize ensures the balance pointer is non-nil so callers can mutate it
// without guarding every arithmetic step.
func (a *Account) Normalize() *Account {
	if a == nil {
		return NewAccount()
	}
	if a.BalanceSVT == nil {
		a.BalanceSVT = big.NewInt(0)
	}
	return a
}
