// Package compositor renders the frame sequence of an animation: speed
// drawing, a hold on the finished line art, the paint reveal and a final hold
// on the color image. Frames are handed to an output.Output one at a time in
// playback order; only the pencil canvas, the reveal mask and the reveal
// canvas live for the whole job.
package compositor

import (
	"context"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/gogpu/gg"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/speeddraw/internal/animerr"
	"github.com/bryanchriswhite/speeddraw/internal/lineart"
	"github.com/bryanchriswhite/speeddraw/internal/logger"
	"github.com/bryanchriswhite/speeddraw/internal/output"
	"github.com/bryanchriswhite/speeddraw/internal/progress"
	"github.com/bryanchriswhite/speeddraw/internal/style"
)

// Scene is everything needed to render one animation.
type Scene struct {
	Width, Height int

	// DrawingPoints is the speed-drawing visitation order.
	DrawingPoints []lineart.Point
	DrawingFrames int
	PauseFrames   int
	LineColor     gg.RGBA
	Background    gg.RGBA

	// Reveal is nil in drawing-only mode.
	Reveal *Reveal
}

// Reveal configures the paint-reveal and final hold phases.
type Reveal struct {
	Plan   style.Plan
	Frames int
	// Color is the reference image, already sized to the canvas.
	Color *image.RGBA
	// HoldFrames is the number of closing frames showing Color.
	HoldFrames int
}

// TotalFrames is the number of frames Render emits for s.
func (s Scene) TotalFrames() int {
	n := s.DrawingFrames + s.PauseFrames
	if s.Reveal != nil {
		n += s.Reveal.Frames + s.Reveal.HoldFrames
	}
	return n
}

func (s Scene) validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return animerr.New(animerr.CodeValidation, "invalid canvas %dx%d", s.Width, s.Height)
	}
	if s.DrawingFrames < 0 || s.PauseFrames < 0 {
		return animerr.New(animerr.CodeValidation, "negative frame count")
	}
	if r := s.Reveal; r != nil {
		if r.Color == nil || r.Color.Rect.Size() != image.Pt(s.Width, s.Height) {
			return animerr.New(animerr.CodeValidation, "color image must be %dx%d", s.Width, s.Height)
		}
		if r.Frames < 0 || r.HoldFrames < 0 {
			return animerr.New(animerr.CodeValidation, "negative frame count")
		}
	}
	return nil
}

// Compositor renders scenes into an output.
type Compositor struct {
	out   output.Output
	obs   progress.Observer
	jobID string
	log   *zerolog.Logger

	index int
	total int
}

// New creates a Compositor writing to out. obs and log may be nil.
func New(out output.Output, obs progress.Observer, jobID string, log *zerolog.Logger) *Compositor {
	if obs == nil {
		obs = progress.Noop
	}
	if log == nil {
		log = logger.WithComponent("compositor")
	}
	return &Compositor{out: out, obs: obs, jobID: jobID, log: log}
}

// Render emits every frame of s and returns the number written. The output
// must already be started.
func (c *Compositor) Render(ctx context.Context, s Scene) (int, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	c.index = 0
	c.total = s.TotalFrames()

	pencil := NewPencil(s.Width, s.Height, s.LineColor, s.Background)
	defer pencil.Close()

	if err := c.speedDrawing(ctx, s, pencil); err != nil {
		return c.index, err
	}

	// The hold shows the complete line art whatever the drawing step left out.
	if err := c.pencilDraw(pencil, s.DrawingPoints, len(s.DrawingPoints)); err != nil {
		return c.index, err
	}
	lineArt, err := c.pencilFrame(pencil)
	if err != nil {
		return c.index, err
	}
	if err := c.hold(ctx, progress.PhaseHold, lineArt, s.PauseFrames); err != nil {
		return c.index, err
	}

	if s.Reveal != nil {
		if err := c.paintReveal(ctx, s, lineArt); err != nil {
			return c.index, err
		}
		if err := c.hold(ctx, progress.PhaseFinalHold, s.Reveal.Color, s.Reveal.HoldFrames); err != nil {
			return c.index, err
		}
	}
	return c.index, nil
}

// DrawingStep is how many drawing points each speed-drawing frame adds.
func DrawingStep(points, frames int) int {
	if frames <= 0 {
		return max(1, points)
	}
	return max(1, points/frames)
}

func (c *Compositor) speedDrawing(ctx context.Context, s Scene, pencil *Pencil) error {
	step := DrawingStep(len(s.DrawingPoints), s.DrawingFrames)
	c.log.Info().
		Int("points", len(s.DrawingPoints)).
		Int("frames", s.DrawingFrames).
		Int("points_per_frame", step).
		Msg("Generating speed drawing frames")

	for i := range s.DrawingFrames {
		if err := c.pencilDraw(pencil, s.DrawingPoints, i*step); err != nil {
			return err
		}
		frame, err := c.pencilFrame(pencil)
		if err != nil {
			return err
		}
		if err := c.emit(ctx, progress.PhaseDrawing, i+1, s.DrawingFrames, frame); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compositor) pencilDraw(p *Pencil, points []lineart.Point, n int) error {
	if err := p.DrawUpTo(points, n); err != nil {
		return animerr.Wrap(animerr.CodeProcessing, err, "draw pencil points")
	}
	return nil
}

func (c *Compositor) pencilFrame(p *Pencil) (*image.RGBA, error) {
	frame, err := p.Frame()
	if err != nil {
		return nil, animerr.Wrap(animerr.CodeProcessing, err, "flush pencil canvas")
	}
	return frame, nil
}

func (c *Compositor) hold(ctx context.Context, phase progress.Phase, frame *image.RGBA, n int) error {
	for j := range n {
		if err := c.emit(ctx, phase, j+1, n, frame); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compositor) paintReveal(ctx context.Context, s Scene, lineArt *image.RGBA) error {
	r := s.Reveal
	plan := r.Plan
	c.log.Info().
		Str("style", plan.Style.String()).
		Int("points", len(plan.Points)).
		Int("frames", r.Frames).
		Int("points_per_frame", plan.PerFrame).
		Msg("Generating paint reveal frames")

	mask := NewMask(s.Width, s.Height, plan.Brush)
	defer mask.Close()
	canvas := clone.AsRGBA(lineArt)

	n := len(plan.Points)
	for i := range r.Frames {
		start := min(i*plan.PerFrame, n)
		end := min(start+plan.PerFrame, n)
		if start < end {
			dirty, err := mask.Paint(plan.Points[start:end])
			if err != nil {
				return animerr.Wrap(animerr.CodeProcessing, err, "paint reveal frame %d", i)
			}
			reveal(canvas, r.Color, mask.Gray(), dirty)
		}
		if err := c.emit(ctx, progress.PhaseReveal, i+1, r.Frames, canvas); err != nil {
			return err
		}
	}
	if end := min(r.Frames*plan.PerFrame, n); end < n {
		c.log.Debug().Int("unpainted", n-end).Msg("Reveal points left after last frame")
	}
	return nil
}

// reveal copies color into canvas wherever the mask is Painted inside r.
func reveal(canvas, color *image.RGBA, mask *image.Gray, r image.Rectangle) {
	r = r.Intersect(canvas.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		m := mask.Pix[y*mask.Stride:]
		dst := canvas.Pix[y*canvas.Stride:]
		src := color.Pix[y*color.Stride:]
		for x := r.Min.X; x < r.Max.X; x++ {
			if m[x] == Painted {
				copy(dst[4*x:4*x+4], src[4*x:4*x+4])
			}
		}
	}
}

func (c *Compositor) emit(ctx context.Context, phase progress.Phase, current, total int, frame *image.RGBA) error {
	if err := ctx.Err(); err != nil {
		return animerr.Wrap(animerr.CodeCancelled, err, "cancelled at frame %d", c.index)
	}
	if err := c.out.WriteFrame(c.index, frame); err != nil {
		return animerr.Wrap(animerr.CodeFrameIO, err, "write frame %d", c.index)
	}
	c.index++
	c.obs.Progress(progress.Event{
		JobID:    c.jobID,
		Phase:    phase,
		Current:  current,
		Total:    total,
		Fraction: float64(c.index) / float64(max(1, c.total)),
		Message:  fmt.Sprintf("%s frame %d/%d", phase, current, total),
	})
	return nil
}
