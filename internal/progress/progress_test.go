package progress

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulti(t *testing.T) {
	var a, b []Event
	obs := Multi(nil, Func(func(e Event) { a = append(a, e) }), Func(func(e Event) { b = append(b, e) }))

	obs.Progress(Event{Phase: PhaseDrawing, Current: 1, Total: 2})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, PhaseDrawing, a[0].Phase)
	assert.NotPanics(t, func() { Multi(nil).Progress(Event{}) })
}

func TestHubBroadcastsAndUnsubscribes(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()

	h.Progress(Event{JobID: "j", Phase: PhaseReveal, Current: 3, Total: 10})

	got := <-ch
	assert.Equal(t, 3, got.Current)
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, PhaseReveal, last.Phase)

	h.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)

	// No subscribers left; must not block or panic.
	h.Progress(Event{Phase: PhaseDone})
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < cap(ch)+5; i++ {
		h.Progress(Event{Current: i})
	}
	assert.Len(t, ch, cap(ch))
	h.Close()
}

func TestLogObserverPromotesPhaseChanges(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)
	obs := NewLogObserver(&log)

	obs.Progress(Event{Phase: PhaseDrawing, Current: 1, Total: 10})
	obs.Progress(Event{Phase: PhaseDrawing, Current: 2, Total: 10})
	obs.Progress(Event{Phase: PhaseDrawing, Current: 10, Total: 10})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"current":1`)
	assert.Contains(t, string(lines[1]), `"current":10`)
}
