// Package animation runs complete speed-drawing jobs: path extraction,
// parameter derivation, style planning, frame compositing and encoding.
package animation

import (
	"strconv"
	"strings"

	"github.com/gogpu/gg"
	"github.com/google/uuid"

	"github.com/bryanchriswhite/speeddraw/internal/animerr"
	"github.com/bryanchriswhite/speeddraw/internal/style"
)

// Mode selects which phases a job renders.
type Mode string

const (
	// ModeFull renders speed drawing, hold, paint reveal and final hold.
	ModeFull Mode = "full"
	// ModeDrawingOnly renders speed drawing and hold in custom colors.
	ModeDrawingOnly Mode = "drawing_only"
)

// ParseMode validates a mode name. An empty name means ModeFull.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFull:
		return ModeFull, nil
	case ModeDrawingOnly:
		return ModeDrawingOnly, nil
	}
	return "", animerr.New(animerr.CodeValidation, "unknown mode %q (use: full, drawing_only)", s)
}

const (
	DefaultLineColor       = "#3c3c3c"
	DefaultBackgroundColor = "#ffffff"
)

// Options are the user-facing settings of one job.
type Options struct {
	Style           style.Style
	DrawingDuration float64
	RevealDuration  float64
	FPS             int
	// RevealAreaMultiplier scales brush thickness and step size.
	RevealAreaMultiplier float64
	Mode                 Mode
	// LineColor and BackgroundColor apply in ModeDrawingOnly only.
	LineColor       string
	BackgroundColor string
	// Seed fixes the style generator's random source; 0 seeds from the clock.
	Seed uint64
}

// DefaultOptions returns the stock job settings.
func DefaultOptions() Options {
	return Options{
		Style:                style.ClassicStroke,
		DrawingDuration:      8,
		RevealDuration:       10,
		FPS:                  30,
		RevealAreaMultiplier: 1.0,
		Mode:                 ModeFull,
		LineColor:            DefaultLineColor,
		BackgroundColor:      DefaultBackgroundColor,
	}
}

// Validate reports the first invalid option as a VALIDATION error.
func (o Options) Validate() error {
	if !o.Style.Valid() {
		return animerr.New(animerr.CodeValidation, "invalid style %d (use 1-5)", int(o.Style))
	}
	if o.DrawingDuration <= 0 {
		return animerr.New(animerr.CodeValidation, "drawing duration must be positive, got %g", o.DrawingDuration)
	}
	if o.RevealDuration < 0 {
		return animerr.New(animerr.CodeValidation, "reveal duration must not be negative, got %g", o.RevealDuration)
	}
	if o.FPS <= 0 {
		return animerr.New(animerr.CodeValidation, "fps must be positive, got %d", o.FPS)
	}
	if o.RevealAreaMultiplier <= 0 {
		return animerr.New(animerr.CodeValidation, "reveal area multiplier must be positive, got %g", o.RevealAreaMultiplier)
	}
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if _, err := ParseColor(o.LineColor); err != nil {
		return err
	}
	if _, err := ParseColor(o.BackgroundColor); err != nil {
		return err
	}
	return nil
}

// colors returns the pencil and paper colors for the job's mode.
func (o Options) colors() (line, background gg.RGBA, err error) {
	if o.Mode != ModeDrawingOnly {
		return gg.Hex(DefaultLineColor), gg.Hex(DefaultBackgroundColor), nil
	}
	if line, err = ParseColor(o.LineColor); err != nil {
		return
	}
	background, err = ParseColor(o.BackgroundColor)
	return
}

// ParseColor parses "#rgb", "#rrggbb" or the same with an alpha digit pair.
// The leading '#' is optional.
func ParseColor(s string) (gg.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return gg.RGBA{}, animerr.New(animerr.CodeValidation, "invalid hex color %q", s)
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return gg.RGBA{}, animerr.New(animerr.CodeValidation, "invalid hex color %q", s)
	}
	return gg.Hex(hex), nil
}

// Job is one animation request.
type Job struct {
	ID          string
	LineArtPath string
	// ColorPath is the colored reference; unused in ModeDrawingOnly.
	ColorPath  string
	OutputPath string
	Options    Options
}

// NewJob creates a job with a fresh ID.
func NewJob(lineArtPath, colorPath, outputPath string, opts Options) Job {
	return Job{
		ID:          uuid.NewString(),
		LineArtPath: lineArtPath,
		ColorPath:   colorPath,
		OutputPath:  outputPath,
		Options:     opts,
	}
}

func (j Job) validate() error {
	if j.LineArtPath == "" {
		return animerr.New(animerr.CodeValidation, "line art path is required")
	}
	if j.Options.Mode != ModeDrawingOnly && j.ColorPath == "" {
		return animerr.New(animerr.CodeValidation, "color image path is required in %s mode", ModeFull)
	}
	if j.OutputPath == "" {
		return animerr.New(animerr.CodeValidation, "output path is required")
	}
	return j.Options.Validate()
}
