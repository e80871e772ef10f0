package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/state"
	nativecommon "lendnet/native/common"
)

// ErrInvalidAmount rejects non-positive amounts on ledger-level operations.
var ErrInvalidAmount = errors.New("ledger: amount must be positive")

// SetGlobalPause flips the global pause switch. Pausing blocks every mutating
// entry point; unpausing is always allowed so a paused platform can recover.
func (l *Ledger) SetGlobalPause(caller common.Address, paused bool) error {
	if err := l.caller(caller).Require(nativecommon.RoleAdmin); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.switchboard.SetGlobal(paused)
	l.log.Info("global pause updated", "paused", paused, "actor", caller.Hex())
	return nil
}

// SetModulePause flips the pause switch for one module.
func (l *Ledger) SetModulePause(caller common.Address, module string, paused bool) error {
	if err := l.caller(caller).Require(nativecommon.RoleAdmin); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.switchboard.SetModule(module, paused)
	l.log.Info("module pause updated", "module", module, "paused", paused, "actor", caller.Hex())
	return nil
}

// WhitelistAsset admits or expels an asset for pool creation.
func (l *Ledger) WhitelistAsset(caller common.Address, asset string, allowed bool) error {
	if err := l.caller(caller).Require(nativecommon.RoleAdmin); err != nil {
		return err
	}
	return l.write(caller, "pool.whitelist", "asset/"+asset, func(_ *engines, sm *state.Manager) error {
		return sm.SetAssetWhitelisted(asset, allowed)
	})
}

// CreatePool initialises the lending market for a whitelisted asset.
func (l *Ledger) CreatePool(caller common.Address, asset string) error {
	if err := l.caller(caller).Require(nativecommon.RoleAdmin); err != nil {
		return err
	}
	return l.write(caller, "pool.create", "pool/"+asset, func(e *engines, _ *state.Manager) error {
		_, err := e.pool.CreatePool(asset)
		return err
	})
}

// GrantRole adds addr to role, persisting the grant.
func (l *Ledger) GrantRole(caller common.Address, roleName string, addr common.Address) error {
	if err := l.caller(caller).Require(nativecommon.RoleAdmin); err != nil {
		return err
	}
	role, ok := nativecommon.ParseRole(roleName)
	if !ok {
		return fmt.Errorf("ledger: unknown role %q", roleName)
	}
	err := l.write(caller, "role.grant", "role/"+string(role), func(_ *engines, sm *state.Manager) error {
		return sm.GrantRole(string(role), addr)
	})
	if err != nil {
		return err
	}
	l.roles.Grant(addr, role)
	return nil
}

// RevokeRole removes addr from role, persisting the revocation.
func (l *Ledger) RevokeRole(caller common.Address, roleName string, addr common.Address) error {
	if err := l.caller(caller).Require(nativecommon.RoleAdmin); err != nil {
		return err
	}
	role, ok := nativecommon.ParseRole(roleName)
	if !ok {
		return fmt.Errorf("ledger: unknown role %q", roleName)
	}
	err := l.write(caller, "role.revoke", "role/"+string(role), func(_ *engines, sm *state.Manager) error {
		return sm.RevokeRole(string(role), addr)
	})
	if err != nil {
		return err
	}
	l.roles.Revoke(addr, role)
	return nil
}

// WithdrawReserves pays accumulated protocol reserves out to recipient.
func (l *Ledger) WithdrawReserves(caller common.Address, asset string, amount *big.Int, recipient common.Address) error {
	if err := l.caller(caller).Require(nativecommon.RoleAdmin); err != nil {
		return err
	}
	return l.write(caller, "pool.reserves.withdraw", "pool/"+asset, func(e *engines, _ *state.Manager) error {
		return e.pool.WithdrawReserves(recipient, asset, amount)
	})
}

// SetCreditScore writes a platform credit score. Registrar-only.
func (l *Ledger) SetCreditScore(caller, subject common.Address, score uint64) error {
	if err := l.caller(caller).Require(nativecommon.RoleRegistrar); err != nil {
		return err
	}
	return l.write(caller, "credit.set", "credit/"+subject.Hex(), func(e *engines, _ *state.Manager) error {
		return e.credit.Set(subject, score)
	})
}

// CreditScore returns the platform credit score for addr, seeding the default
// for unseen addresses.
func (l *Ledger) CreditScore(addr common.Address) (uint64, error) {
	var score uint64
	err := l.read(func(e *engines) error {
		var err error
		score, err = e.credit.Score(addr)
		return err
	})
	return score, err
}

// Mint credits freshly issued units of asset to addr. Admin-only; used to
// fund accounts on test networks and to seed module accounts.
func (l *Ledger) Mint(caller, addr common.Address, asset string, amount *big.Int) error {
	if err := l.caller(caller).Require(nativecommon.RoleAdmin); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return l.write(caller, "account.mint", "account/"+addr.Hex(), func(_ *engines, sm *state.Manager) error {
		account, err := sm.GetAccount(addr)
		if err != nil {
			return err
		}
		account.Credit(asset, amount)
		return sm.PutAccount(addr, account)
	})
}

// Balance returns the addr balance for asset.
func (l *Ledger) Balance(addr common.Address, asset string) (*big.Int, error) {
	account, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Balance(asset), nil
}
