package common

import (
	"errors"
	"sync"
)

// ErrModulePaused is returned by Guard when the targeted module, or the whole
// ledger, is paused.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause flags consulted before every mutating entry
// point.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view or empty module
// name never blocks.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Switchboard is the runtime PauseView implementation. A global switch blocks
// every module; per-module switches block individual subsystems.
type Switchboard struct {
	mu      sync.RWMutex
	global  bool
	modules map[string]bool
}

// NewSwitchboard returns a switchboard with everything running.
func NewSwitchboard() *Switchboard {
	return &Switchboard{modules: make(map[string]bool)}
}

// IsPaused implements PauseView.
func (s *Switchboard) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.global {
		return true
	}
	return s.modules[module]
}

// SetGlobal toggles the ledger-wide pause switch.
func (s *Switchboard) SetGlobal(paused bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = paused
}

// SetModule toggles the pause switch for a single module.
func (s *Switchboard) SetModule(module string, paused bool) {
	if s == nil || module == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modules == nil {
		s.modules = make(map[string]bool)
	}
	s.modules[module] = paused
}

// GlobalPaused reports the state of the ledger-wide switch.
func (s *Switchboard) GlobalPaused() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}
