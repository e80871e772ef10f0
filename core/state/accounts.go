package state

import (
	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/types"
)

// GetAccount loads the account for addr, returning a fresh empty account when
// none is stored.
func (m *Manager) GetAccount(addr common.Address) (*types.Account, error) {
	account := types.NewAccount()
	ok, err := m.getJSON(accountKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewAccount(), nil
	}
	account.Normalize()
	return account, nil
}

// PutAccount persists the account for addr.
func (m *Manager) PutAccount(addr common.Address, account *types.Account) error {
	if account == nil {
		account = types.NewAccount()
	}
	account.Normalize()
	return m.putJSON(accountKey(addr), account)
}
