// Package progress reports animation job progress to optional observers.
package progress

import (
	"sync"

	"github.com/rs/zerolog"
)

// Phase names a stage of an animation job.
type Phase string

const (
	PhaseExtract   Phase = "extract"
	PhaseLoad      Phase = "load"
	PhasePlan      Phase = "plan"
	PhaseDrawing   Phase = "drawing"
	PhaseHold      Phase = "hold"
	PhaseReveal    Phase = "reveal"
	PhaseFinalHold Phase = "final_hold"
	PhaseEncode    Phase = "encode"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// Event is one progress notification.
type Event struct {
	JobID   string `json:"job_id"`
	Phase   Phase  `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	// Fraction is the overall job progress in [0, 1].
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message,omitempty"`
}

// Observer receives progress events. Implementations must not block.
type Observer interface {
	Progress(Event)
}

// Func adapts a function to Observer.
type Func func(Event)

func (f Func) Progress(e Event) { f(e) }

// Noop discards every event.
var Noop Observer = Func(func(Event) {})

// Multi fans an event out to several observers. Nil entries are skipped.
func Multi(observers ...Observer) Observer {
	var list []Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	switch len(list) {
	case 0:
		return Noop
	case 1:
		return list[0]
	}
	return Func(func(e Event) {
		for _, o := range list {
			o.Progress(e)
		}
	})
}

// LogObserver writes phase transitions at info level and per-frame ticks at
// debug level.
type LogObserver struct {
	log   *zerolog.Logger
	mu    sync.Mutex
	phase Phase
}

// NewLogObserver creates a LogObserver writing to log
func NewLogObserver(log *zerolog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (l *LogObserver) Progress(e Event) {
	l.mu.Lock()
	changed := e.Phase != l.phase
	l.phase = e.Phase
	l.mu.Unlock()

	ev := l.log.Debug()
	if changed || e.Current == e.Total {
		ev = l.log.Info()
	}
	ev = ev.Str("phase", string(e.Phase)).
		Int("current", e.Current).
		Int("total", e.Total).
		Float64("progress", e.Fraction)
	if e.Message != "" {
		ev.Msg(e.Message)
		return
	}
	ev.Msgf("%s %d/%d", e.Phase, e.Current, e.Total)
}

// Hub broadcasts events to subscribed channels. Slow subscribers miss events
// instead of stalling the job.
type Hub struct {
	mu        sync.RWMutex
	listeners []chan Event
	last      *Event
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{}
}

// Progress implements Observer.
func (h *Hub) Progress(e Event) {
	h.mu.Lock()
	h.last = &e
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- e:
		default:
			// Skip if channel is full
		}
	}
}

// Last returns the most recent event, if any.
func (h *Hub) Last() (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return Event{}, false
	}
	return *h.last, true
}

// Subscribe adds a listener for progress events
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.listeners = append(h.listeners, ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, listener := range h.listeners {
		if listener == ch {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close closes every subscribed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.listeners {
		close(ch)
	}
	h.listeners = nil
}
