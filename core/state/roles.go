package state

import (
	"github.com/ethereum/go-ethereum/common"
)

// RoleMembers returns the addresses currently granted role.
func (m *Manager) RoleMembers(role string) ([]common.Address, error) {
	var members []common.Address
	if _, err := m.getJSON(roleKey(role), &members); err != nil {
		return nil, err
	}
	return members, nil
}

// GrantRole adds addr to the role's member list. Idempotent.
func (m *Manager) GrantRole(role string, addr common.Address) error {
	members, err := m.RoleMembers(role)
	if err != nil {
		return err
	}
	for _, member := range members {
		if member == addr {
			return nil
		}
	}
	return m.putJSON(roleKey(role), append(members, addr))
}

// RevokeRole removes addr from the role's member list.
func (m *Manager) RevokeRole(role string, addr common.Address) error {
	members, err := m.RoleMembers(role)
	if err != nil {
		return err
	}
	filtered := members[:0]
	for _, member := range members {
		if member != addr {
			filtered = append(filtered, member)
		}
	}
	return m.putJSON(roleKey(role), filtered)
}
