package common

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestGuardBlocksPausedModule(t *testing.T) {
	board := NewSwitchboard()
	if err := Guard(board, "pool"); err != nil {
		t.Fatalf("unexpected guard error: %v", err)
	}
	board.SetModule("pool", true)
	if err := Guard(board, "pool"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(board, "loan"); err != nil {
		t.Fatalf("loan module should not be paused: %v", err)
	}
	board.SetModule("pool", false)
	board.SetGlobal(true)
	if err := Guard(board, "loan"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("global pause should block every module, got %v", err)
	}
}

func TestCallerRequire(t *testing.T) {
	addr := common.BytesToAddress([]byte{0x01})
	caller := NewCaller(addr, RoleApprover)
	if err := caller.Require(RoleApprover); err != nil {
		t.Fatalf("approver role missing: %v", err)
	}
	if err := caller.Require(RoleAdmin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRoleSetGrantRevoke(t *testing.T) {
	addr := common.BytesToAddress([]byte{0x02})
	set := NewRoleSet()
	set.Grant(addr, RoleAdmin)
	set.Grant(addr, RoleRegistrar)

	caller := set.CallerFor(addr)
	if !caller.HasRole(RoleAdmin) || !caller.HasRole(RoleRegistrar) {
		t.Fatalf("expected granted roles, got %v", caller.Roles())
	}

	set.Revoke(addr, RoleAdmin)
	caller = set.CallerFor(addr)
	if caller.HasRole(RoleAdmin) {
		t.Fatalf("admin role should be revoked")
	}
}

func TestParseRole(t *testing.T) {
	if role, ok := ParseRole(" approver "); !ok || role != RoleApprover {
		t.Fatalf("unexpected parse result: %v %v", role, ok)
	}
	if _, ok := ParseRole("overlord"); ok {
		t.Fatalf("unknown role should not parse")
	}
}
