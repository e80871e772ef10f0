package types

import "math/big"

// Account tracks the fungible balances held by an address, keyed by asset
// symbol. Balances are denominated in the asset's smallest unit and expressed
// as big integers so repeated accrual never drifts.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// NewAccount returns an account with an initialised balance map.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*big.Int)}
}

// Normalize initialises the balance map after decoding.
func (a *Account) Normalize() {
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
}

// Balance returns the balance held for asset, treating missing entries as
// zero. The returned value is the stored pointer; callers that mutate it must
// persist the account afterwards.
func (a *Account) Balance(asset string) *big.Int {
	if a == nil {
		return big.NewInt(0)
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	bal, ok := a.Balances[asset]
	if !ok || bal == nil {
		bal = big.NewInt(0)
		a.Balances[asset] = bal
	}
	return bal
}

// Credit adds amount to the asset balance.
func (a *Account) Credit(asset string, amount *big.Int) {
	if a == nil || amount == nil {
		return
	}
	current := a.Balance(asset)
	a.Balances[asset] = new(big.Int).Add(current, amount)
}

// Debit subtracts amount from the asset balance. The caller is responsible
// for checking sufficiency first; Debit never produces a negative balance and
// reports whether the full amount was removed.
func (a *Account) Debit(asset string, amount *big.Int) bool {
	if a == nil || amount == nil {
		return false
	}
	current := a.Balance(asset)
	if current.Cmp(amount) < 0 {
		return false
	}
	a.Balances[asset] = new(big.Int).Sub(current, amount)
	return true
}
