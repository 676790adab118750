package output

import (
	"errors"
	"image"
	"strings"
)

// Output defines the interface for frame sinks.
// This allows us to swap between different output methods:
// - PNG frame sequence on disk (encoder input)
// - MJPEG HTTP preview stream
// - several of the above at once (Tee)
type Output interface {
	// Start initializes the output mechanism
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// WriteFrame sends a frame to the output. Indices start at 0 and
	// increase by one per call in playback order. The output must not
	// retain frame after returning; callers reuse the buffer.
	WriteFrame(index int, frame *image.RGBA) error

	// Name returns a human-readable name for this output type
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}

// Config holds common configuration for all output types
type Config struct {
	Width  int
	Height int
	FPS    int
}

// Tee writes every frame to all of its outputs.
type Tee []Output

func (t Tee) Start() error {
	for i, o := range t {
		if err := o.Start(); err != nil {
			for _, started := range t[:i] {
				started.Stop()
			}
			return err
		}
	}
	return nil
}

func (t Tee) Stop() error {
	var errs []error
	for _, o := range t {
		errs = append(errs, o.Stop())
	}
	return errors.Join(errs...)
}

func (t Tee) WriteFrame(index int, frame *image.RGBA) error {
	for _, o := range t {
		if err := o.WriteFrame(index, frame); err != nil {
			return err
		}
	}
	return nil
}

func (t Tee) Name() string {
	names := make([]string, len(t))
	for i, o := range t {
		names[i] = o.Name()
	}
	return strings.Join(names, " + ")
}

func (t Tee) IsRunning() bool {
	for _, o := range t {
		if !o.IsRunning() {
			return false
		}
	}
	return len(t) > 0
}
