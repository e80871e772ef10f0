package metrics

import (
	"lendnet/core/events"
)

// CountingEmitter counts every emitted ledger event by type before handing it
// to the wrapped emitter.
type CountingEmitter struct {
	next events.Emitter
}

// NewCountingEmitter wraps next with event counting. A nil next discards the
// events after counting.
func NewCountingEmitter(next events.Emitter) *CountingEmitter {
	return &CountingEmitter{next: next}
}

// Emit implements the events.Emitter interface.
func (c *CountingEmitter) Emit(evt events.Event) {
	if c == nil || evt == nil {
		return
	}
	Ledger().ObserveEvent(evt.EventType())
	if c.next != nil {
		c.next.Emit(evt)
	}
}
