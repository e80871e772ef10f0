package credit

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Score bounds. Scores are clamped to [MinScore, MaxScore] on every write so
// downstream pricing never sees an out-of-range value.
const (
	MinScore uint64 = 0
	MaxScore uint64 = 1000
	// DefaultScore is assumed for addresses that have never been scored.
	DefaultScore uint64 = 650
)

var errNilState = errors.New("credit registry: state not configured")

type registryState interface {
	GetCreditScore(addr common.Address) (uint64, bool, error)
	PutCreditScore(addr common.Address, score uint64) error
}

// Registry maintains the per-address credit score consulted by the loan
// ledger and circle membership gates. Updates are privileged; the ledger
// facade enforces the REGISTRAR role before calling into the registry.
type Registry struct {
	state registryState
}

// NewRegistry constructs an unwired registry.
func NewRegistry() *Registry { return &Registry{} }

// SetState wires the registry to the persistence layer.
func (r *Registry) SetState(state registryState) { r.state = state }

// Score returns the recorded score for addr, or DefaultScore when the address
// has never been scored.
func (r *Registry) Score(addr common.Address) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	score, ok, err := r.state.GetCreditScore(addr)
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultScore, nil
	}
	return score, nil
}

// Set overwrites the score for addr, clamped to the valid range.
func (r *Registry) Set(addr common.Address, score uint64) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if score > MaxScore {
		score = MaxScore
	}
	return r.state.PutCreditScore(addr, score)
}

// Adjust applies a signed delta to the score for addr, clamping at the range
// bounds, and returns the resulting score.
func (r *Registry) Adjust(addr common.Address, delta int64) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	current, err := r.Score(addr)
	if err != nil {
		return 0, err
	}
	next := int64(current) + delta
	if next < int64(MinScore) {
		next = int64(MinScore)
	}
	if next > int64(MaxScore) {
		next = int64(MaxScore)
	}
	score := uint64(next)
	if err := r.state.PutCreditScore(addr, score); err != nil {
		return 0, err
	}
	return score, nil
}
