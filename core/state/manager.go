package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"lendnet/storage"
)

// Manager persists ledger state as JSON records in a key-value database. It
// implements the narrow state interfaces each native engine declares, so one
// manager backs every engine.
//
// Writes from concurrent ledger operations are serialized by the ledger
// facade; the manager itself only guards its id counters.
type Manager struct {
	db storage.Database

	mu sync.Mutex
}

// NewManager creates a state manager over db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Apply runs fn against an overlay of the manager's database and commits the
// overlay only when fn succeeds. A failing fn leaves the underlying state
// untouched, so every ledger operation is all-or-nothing.
func (m *Manager) Apply(fn func(*Manager) error) error {
	if m == nil || m.db == nil {
		return errors.New("state: manager not configured")
	}
	ov := newOverlay(m.db)
	child := NewManager(ov)
	if err := fn(child); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return ov.commit()
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// nextID increments and returns the counter stored at key, starting at 1.
func (m *Manager) nextID(key []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current uint64
	raw, err := m.db.Get(key)
	switch {
	case err == nil:
		if len(raw) == 8 {
			current = binary.BigEndian.Uint64(raw)
		}
	case errors.Is(err, storage.ErrKeyNotFound):
	default:
		return 0, err
	}
	next := current + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := m.db.Put(key, buf); err != nil {
		return 0, err
	}
	return next, nil
}

// overlay buffers writes on top of a base database and flushes them in one
// commit. Reads see pending writes first.
type overlay struct {
	base    storage.Database
	mu      sync.RWMutex
	pending map[string][]byte
	deleted map[string]bool
	order   []string
}

func newOverlay(base storage.Database) *overlay {
	return &overlay{
		base:    base,
		pending: make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

func (o *overlay) Get(key []byte) ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	k := string(key)
	if o.deleted[k] {
		return nil, storage.ErrKeyNotFound
	}
	if v, ok := o.pending[k]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	return o.base.Get(key)
}

func (o *overlay) Has(key []byte) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	k := string(key)
	if o.deleted[k] {
		return false, nil
	}
	if _, ok := o.pending[k]; ok {
		return true, nil
	}
	return o.base.Has(key)
}

func (o *overlay) Put(key, value []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	k := string(key)
	if _, seen := o.pending[k]; !seen && !o.deleted[k] {
		o.order = append(o.order, k)
	}
	delete(o.deleted, k)
	stored := make([]byte, len(value))
	copy(stored, value)
	o.pending[k] = stored
	return nil
}

func (o *overlay) Delete(key []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	k := string(key)
	if _, seen := o.pending[k]; !seen && !o.deleted[k] {
		o.order = append(o.order, k)
	}
	delete(o.pending, k)
	o.deleted[k] = true
	return nil
}

func (o *overlay) Close() error { return nil }

func (o *overlay) commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, k := range o.order {
		if o.deleted[k] {
			if err := o.base.Delete([]byte(k)); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
				return err
			}
			continue
		}
		if v, ok := o.pending[k]; ok {
			if err := o.base.Put([]byte(k), v); err != nil {
				return err
			}
		}
	}
	o.pending = make(map[string][]byte)
	o.deleted = make(map[string]bool)
	o.order = nil
	return nil
}
