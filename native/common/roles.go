package common

import (
	"errors"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Role names the privileges recognised by the ledger. Roles are granted to
// addresses and carried on a Caller capability checked at operation entry.
type Role string

const (
	// RoleAdmin may pause/unpause the ledger, whitelist assets, withdraw pool
	// reserves, and grant or revoke roles.
	RoleAdmin Role = "ADMIN"
	// RoleApprover may approve or reject pending loans.
	RoleApprover Role = "APPROVER"
	// RoleLoanOperator is the loan ledger's own privilege to move pool
	// aggregates via recordBorrow/recordRepayment.
	RoleLoanOperator Role = "LOAN_OPERATOR"
	// RoleRegistrar may write credit score updates.
	RoleRegistrar Role = "REGISTRAR"
)

// ErrUnauthorized is returned when the caller lacks a required role.
var ErrUnauthorized = errors.New("caller lacks required role")

// ParseRole normalises a textual role name. Unknown names return false.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleApprover:
		return RoleApprover, true
	case RoleLoanOperator:
		return RoleLoanOperator, true
	case RoleRegistrar:
		return RoleRegistrar, true
	default:
		return "", false
	}
}

// Caller is the authorization capability attached to every operation. It
// carries the acting address and the set of roles granted to it.
type Caller struct {
	addr  common.Address
	roles map[Role]struct{}
}

// NewCaller constructs a capability for addr carrying the provided roles.
func NewCaller(addr common.Address, roles ...Role) Caller {
	granted := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		granted[role] = struct{}{}
	}
	return Caller{addr: addr, roles: granted}
}

// Address returns the acting address.
func (c Caller) Address() common.Address { return c.addr }

// HasRole reports whether the capability carries the role.
func (c Caller) HasRole(role Role) bool {
	_, ok := c.roles[role]
	return ok
}

// Require returns ErrUnauthorized unless the capability carries the role.
func (c Caller) Require(role Role) error {
	if c.HasRole(role) {
		return nil
	}
	return ErrUnauthorized
}

// Roles returns the sorted role names carried by the capability.
func (c Caller) Roles() []string {
	names := make([]string, 0, len(c.roles))
	for role := range c.roles {
		names = append(names, string(role))
	}
	sort.Strings(names)
	return names
}

// RoleSet tracks role grants per address. Grants are managed by ADMIN callers
// through the ledger facade.
type RoleSet struct {
	grants map[common.Address]map[Role]struct{}
}

// NewRoleSet returns an empty role table.
func NewRoleSet() *RoleSet {
	return &RoleSet{grants: make(map[common.Address]map[Role]struct{})}
}

// Grant adds the role to addr.
func (r *RoleSet) Grant(addr common.Address, role Role) {
	if r == nil {
		return
	}
	if r.grants == nil {
		r.grants = make(map[common.Address]map[Role]struct{})
	}
	if r.grants[addr] == nil {
		r.grants[addr] = make(map[Role]struct{})
	}
	r.grants[addr][role] = struct{}{}
}

// Revoke removes the role from addr.
func (r *RoleSet) Revoke(addr common.Address, role Role) {
	if r == nil || r.grants == nil {
		return
	}
	delete(r.grants[addr], role)
}

// CallerFor builds the capability for addr from the recorded grants.
func (r *RoleSet) CallerFor(addr common.Address) Caller {
	caller := Caller{addr: addr, roles: make(map[Role]struct{})}
	if r == nil || r.grants == nil {
		return caller
	}
	for role := range r.grants[addr] {
		caller.roles[role] = struct{}{}
	}
	return caller
}
