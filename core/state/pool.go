package state

import (
	"github.com/ethereum/go-ethereum/common"

	"lendnet/native/pool"
)

// AssetWhitelisted reports whether asset has been admitted by an admin.
func (m *Manager) AssetWhitelisted(asset string) (bool, error) {
	return m.db.Has(whitelistKey(asset))
}

// SetAssetWhitelisted admits or expels an asset from the pool whitelist.
func (m *Manager) SetAssetWhitelisted(asset string, allowed bool) error {
	if allowed {
		return m.db.Put(whitelistKey(asset), []byte{1})
	}
	return m.db.Delete(whitelistKey(asset))
}

// GetPool loads the market aggregate for asset.
func (m *Manager) GetPool(asset string) (*pool.Pool, bool, error) {
	p := new(pool.Pool)
	ok, err := m.getJSON(poolKey(asset), p)
	if err != nil || !ok {
		return nil, false, err
	}
	return p, true, nil
}

// PutPool persists the market aggregate.
func (m *Manager) PutPool(p *pool.Pool) error {
	return m.putJSON(poolKey(p.Asset), p)
}

// GetPosition loads the lender position for owner in asset.
func (m *Manager) GetPosition(owner common.Address, asset string) (*pool.Position, bool, error) {
	pos := new(pool.Position)
	ok, err := m.getJSON(positionKey(owner, asset), pos)
	if err != nil || !ok {
		return nil, false, err
	}
	return pos, true, nil
}

// PutPosition persists a lender position.
func (m *Manager) PutPosition(position *pool.Position) error {
	return m.putJSON(positionKey(position.Owner, position.Asset), position)
}
