package output

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
)

// FramePattern is the printf pattern of frame file names.
const FramePattern = "frame_%06d.png"

// Sequence describes a finished frame sequence on disk.
type Sequence struct {
	Dir     string
	Pattern string
	Count   int
}

// Path returns the file path of frame i.
func (s Sequence) Path(i int) string {
	return filepath.Join(s.Dir, fmt.Sprintf(s.Pattern, i))
}

// Glob returns Dir joined with Pattern, the printf-style location understood
// by ffmpeg and multifilesrc.
func (s Sequence) Glob() string {
	return filepath.Join(s.Dir, s.Pattern)
}

// DiskOutput writes frames as numbered PNG files into a directory.
type DiskOutput struct {
	dir     string
	running bool
	next    int
	mu      sync.Mutex
}

// NewDiskOutput creates a DiskOutput writing into dir, which must exist
func NewDiskOutput(dir string) *DiskOutput {
	return &DiskOutput{dir: dir}
}

// Start initializes the output
func (d *DiskOutput) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("disk output already running")
	}
	info, err := os.Stat(d.dir)
	if err != nil {
		return fmt.Errorf("frame directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("frame directory %s is not a directory", d.dir)
	}
	d.running = true
	d.next = 0
	return nil
}

// Stop marks the output as finished. Files are kept until Cleanup.
func (d *DiskOutput) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	return nil
}

// WriteFrame encodes frame as PNG. Indices must arrive in order without gaps.
func (d *DiskOutput) WriteFrame(index int, frame *image.RGBA) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return fmt.Errorf("disk output not running")
	}
	if index != d.next {
		return fmt.Errorf("frame %d out of order, expected %d", index, d.next)
	}
	path := filepath.Join(d.dir, fmt.Sprintf(FramePattern, index))
	if err := imgio.Save(path, frame, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", index, err)
	}
	d.next++
	return nil
}

// Name returns the output type name
func (d *DiskOutput) Name() string {
	return "PNG sequence"
}

// IsRunning returns true if the output is active
func (d *DiskOutput) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Sequence returns the frames written so far.
func (d *DiskOutput) Sequence() Sequence {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Sequence{Dir: d.dir, Pattern: FramePattern, Count: d.next}
}

// Cleanup removes the frame directory and everything in it.
func (d *DiskOutput) Cleanup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	return os.RemoveAll(d.dir)
}
