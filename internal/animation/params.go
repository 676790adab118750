package animation

const (
	// referenceArea is the 1920x1080 canvas the base sizes are tuned for.
	referenceArea = 1920 * 1080
	baseSize      = 150
	minSize       = 10
)

// Params are the numbers derived from the canvas and the options.
type Params struct {
	Width, Height int
	Scale         float64
	Thickness     int
	StepSize      int

	DrawingFrames int
	PauseFrames   int
	RevealFrames  int
	HoldFrames    int
}

// TotalFrames is the length of the video in frames.
func (p Params) TotalFrames() int {
	return p.DrawingFrames + p.PauseFrames + p.RevealFrames + p.HoldFrames
}

// DeriveParams computes brush sizes and phase lengths for a width x height
// canvas.
func DeriveParams(width, height int, o Options) Params {
	scale := float64(width*height) / referenceArea
	size := ScaledSize(scale, o.RevealAreaMultiplier)
	p := Params{
		Width:         width,
		Height:        height,
		Scale:         scale,
		Thickness:     size,
		StepSize:      size,
		DrawingFrames: int(o.DrawingDuration * float64(o.FPS)),
	}
	if o.Mode == ModeDrawingOnly {
		p.PauseFrames = DrawingOnlyHold(int(o.DrawingDuration*float64(o.FPS)), p.DrawingFrames)
		return p
	}
	p.PauseFrames = o.FPS / 2
	p.RevealFrames = int(o.RevealDuration * float64(o.FPS))
	p.HoldFrames = o.FPS
	return p
}

// ScaledSize is max(10, int(max(10, int(150*scale)) * multiplier)). Both
// stages truncate toward zero.
func ScaledSize(scale, multiplier float64) int {
	base := max(minSize, int(baseSize*scale))
	return max(minSize, int(float64(base)*multiplier))
}

// DrawingOnlyHold pads a drawing-only video up to total frames, never below
// zero.
func DrawingOnlyHold(total, drawingFrames int) int {
	return max(0, total-drawingFrames)
}
