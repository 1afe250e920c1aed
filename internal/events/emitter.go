// Package events implements the in-process publish/subscribe fabric the
// services communicate over. Emitters are cheap, long-lived, and wired to
// each other at composition time.
package events

import "sync"

// Handler consumes one emitted payload. Handlers run synchronously on
// the emitting goroutine and must not block.
type Handler func(payload any)

// Emitter is a named topic space: subscribers register per event name and
// every emission fans out to all of them in registration order.
type Emitter struct {
	name string

	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewEmitter returns an empty emitter. The name only shows up in logs and
// forwarding wiring, it carries no routing semantics.
func NewEmitter(name string) *Emitter {
	return &Emitter{
		name:     name,
		handlers: make(map[string][]Handler),
	}
}

// Name returns the emitter name.
func (e *Emitter) Name() string {
	return e.name
}

// On registers h for the given event. Registration order is delivery
// order; the same handler may be registered more than once.
func (e *Emitter) On(event string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], h)
}

// Emit delivers payload to every handler registered for event at the
// moment of the call. Handlers registered mid-emission see only later
// emissions. Emit is fire-and-forget: no handler, no effect.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.RLock()
	hs := e.handlers[event]
	snapshot := make([]Handler, len(hs))
	copy(snapshot, hs)
	e.mu.RUnlock()

	for _, h := range snapshot {
		h(payload)
	}
}

// Forward starts a forwarding rule for event. Terminate it with To.
func (e *Emitter) Forward(event string) ForwardRule {
	return ForwardRule{source: e, event: event}
}

// ForwardRule is a partially built forwarding registration.
type ForwardRule struct {
	source *Emitter
	event  string
}

// To completes the rule: every emission of the event on the source is
// re-emitted on target under the same name, payload untouched.
func (r ForwardRule) To(target *Emitter) {
	r.source.On(r.event, func(payload any) {
		target.Emit(r.event, payload)
	})
}
