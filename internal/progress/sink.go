// SPDX-License-Identifier: MPL-2.0

package progress

import (
	"maps"
	"slices"
	"sync"
)

type (
	// Sink consumes the events of a fetch. Emit is never called concurrently
	// for the same fetch.
	Sink interface {
		Emit(Event)
	}

	// SinkFunc adapts a function to Sink.
	SinkFunc func(Event)

	// Broadcaster fans events out to a changing set of sinks. Emit is
	// serialized, so every attached sink sees events in one total order.
	// A sink attached after Started receives its own Started first, and a
	// sink detached before Stopped receives its own Stopped on detach.
	Broadcaster struct {
		mu      sync.Mutex
		name    string
		started bool
		stopped bool
		sinks   map[int]Sink
		nextID  int
	}

	// Recorder stores every event it receives. It is safe for concurrent use.
	Recorder struct {
		mu     sync.Mutex
		events []Event
	}

	nopSink struct{}
)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Nop returns a sink that discards events.
func Nop() Sink { return nopSink{} }

func (nopSink) Emit(Event) {}

// NewBroadcaster creates a Broadcaster for a fetch named name.
func NewBroadcaster(name string) *Broadcaster {
	return &Broadcaster{name: name, sinks: make(map[int]Sink)}
}

// Attach adds s and returns an id for Detach. When the fetch has already
// started, s immediately receives Started. Attaching after Stopped only
// delivers Started and Stopped.
func (b *Broadcaster) Attach(s Sink) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s == nil {
		s = Nop()
	}
	id := b.nextID
	b.nextID++

	if b.stopped {
		s.Emit(Started{Name: b.name})
		s.Emit(Stopped{})
		return id
	}
	if b.started {
		s.Emit(Started{Name: b.name})
	}
	b.sinks[id] = s
	return id
}

// Detach removes the sink registered under id and closes its stream with
// Stopped if the fetch is still running.
func (b *Broadcaster) Detach(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sinks[id]
	if !ok {
		return
	}
	delete(b.sinks, id)
	if b.started && !b.stopped {
		s.Emit(Stopped{})
	}
}

// Emit forwards e to every attached sink. A second Started or any event
// after Stopped is dropped.
func (b *Broadcaster) Emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch e.(type) {
	case Started:
		if b.started {
			return
		}
		b.started = true
	case Stopped:
		if b.stopped {
			return
		}
		b.stopped = true
	default:
		if !b.started || b.stopped {
			return
		}
	}

	for _, id := range slices.Sorted(maps.Keys(b.sinks)) {
		b.sinks[id].Emit(e)
	}
}

// Emit records e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Validate checks the recorded stream against the lifecycle contract:
// one leading Started, one trailing Stopped, non-decreasing downloaded
// bytes and a stable total per name. It returns nil for a valid stream.
func (r *Recorder) Validate() error {
	return ValidateStream(r.Events())
}
