package events

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (RPC feeds, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default when a component does not wire a subscriber.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MemoryEmitter records emitted events in order. Primarily used by tests that
// assert on lifecycle milestones.
type MemoryEmitter struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (m *MemoryEmitter) Emit(evt Event) {
	if m == nil || evt == nil {
		return
	}
	m.Events = append(m.Events, evt)
}
