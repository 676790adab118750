package animation

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/speeddraw/internal/animerr"
	"github.com/bryanchriswhite/speeddraw/internal/output"
	"github.com/bryanchriswhite/speeddraw/internal/progress"
	"github.com/bryanchriswhite/speeddraw/internal/style"
)

func TestDeriveParamsReferenceCanvas(t *testing.T) {
	p := DeriveParams(1920, 1080, DefaultOptions())

	assert.Equal(t, 1.0, p.Scale)
	assert.Equal(t, 150, p.Thickness)
	assert.Equal(t, 150, p.StepSize)
	assert.Equal(t, 240, p.DrawingFrames)
	assert.Equal(t, 15, p.PauseFrames)
	assert.Equal(t, 300, p.RevealFrames)
	assert.Equal(t, 30, p.HoldFrames)
	assert.Equal(t, 585, p.TotalFrames())
}

func TestDeriveParamsMultiplier(t *testing.T) {
	opts := DefaultOptions()
	opts.RevealAreaMultiplier = 2.0

	p := DeriveParams(1920, 1080, opts)

	assert.Equal(t, 300, p.Thickness)
	assert.Equal(t, 300, p.StepSize)
}

func TestScaledSizeFloor(t *testing.T) {
	assert.Equal(t, 10, ScaledSize(float64(100*100)/referenceArea, 1.0))
	assert.Equal(t, 10, ScaledSize(1.0, 0.05))
	// 150*0.5 = 75, then 75*0.1 = 7.5 floors to 10.
	assert.Equal(t, 10, ScaledSize(0.5, 0.1))
	// Each stage truncates: int(150*0.333) = 49, int(49*1.5) = 73.
	assert.Equal(t, 73, ScaledSize(0.333, 1.5))
}

func TestDeriveParamsDrawingOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = ModeDrawingOnly

	p := DeriveParams(1920, 1080, opts)

	assert.Equal(t, 240, p.DrawingFrames)
	assert.Zero(t, p.PauseFrames)
	assert.Zero(t, p.RevealFrames)
	assert.Zero(t, p.HoldFrames)
	assert.Equal(t, int(opts.DrawingDuration*float64(opts.FPS)), p.TotalFrames())
}

func TestDrawingOnlyHold(t *testing.T) {
	assert.Equal(t, 0, DrawingOnlyHold(120, 150))
	assert.Equal(t, 30, DrawingOnlyHold(120, 90))
	assert.Equal(t, 0, DrawingOnlyHold(120, 120))
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff0000")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, c.Color())

	_, err = ParseColor("fff")
	assert.NoError(t, err)

	for _, bad := range []string{"", "#12", "#gg0000", "red"} {
		_, err := ParseColor(bad)
		assert.True(t, animerr.Is(err, animerr.CodeValidation), bad)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	m, err = ParseMode("Drawing_Only")
	require.NoError(t, err)
	assert.Equal(t, ModeDrawingOnly, m)

	_, err = ParseMode("sketch")
	assert.True(t, animerr.Is(err, animerr.CodeValidation))
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"style", func(o *Options) { o.Style = 0 }},
		{"drawing duration", func(o *Options) { o.DrawingDuration = 0 }},
		{"reveal duration", func(o *Options) { o.RevealDuration = -1 }},
		{"fps", func(o *Options) { o.FPS = 0 }},
		{"multiplier", func(o *Options) { o.RevealAreaMultiplier = -2 }},
		{"mode", func(o *Options) { o.Mode = "loop" }},
		{"line color", func(o *Options) { o.LineColor = "#zzz" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			assert.True(t, animerr.Is(opts.Validate(), animerr.CodeValidation))
		})
	}
	assert.NoError(t, DefaultOptions().Validate())
}

func TestNewJobAssignsIDs(t *testing.T) {
	a := NewJob("a.png", "b.png", "out.mp4", DefaultOptions())
	b := NewJob("a.png", "b.png", "out.mp4", DefaultOptions())

	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

// fakeEncoder checks the frame sequence and writes a placeholder video.
type fakeEncoder struct {
	err    error
	seq    output.Sequence
	fps    int
	frames []string
}

func (f *fakeEncoder) Name() string { return "fake" }

func (f *fakeEncoder) Encode(ctx context.Context, seq output.Sequence, fps int, outPath string) error {
	f.seq, f.fps = seq, fps
	entries, err := os.ReadDir(seq.Dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		f.frames = append(f.frames, e.Name())
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("video"), 0644)
}

type countingOutput struct {
	mu     sync.Mutex
	frames int
}

func (c *countingOutput) Start() error    { return nil }
func (c *countingOutput) Stop() error     { return nil }
func (c *countingOutput) Name() string    { return "counter" }
func (c *countingOutput) IsRunning() bool { return true }
func (c *countingOutput) WriteFrame(int, *image.RGBA) error {
	c.mu.Lock()
	c.frames++
	c.mu.Unlock()
	return nil
}

type fixture struct {
	dir     string
	workDir string
	lineArt string
	color   string
	out     string
}

func newFixture(t *testing.T, colorSize image.Point) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		workDir: filepath.Join(dir, "work"),
		lineArt: filepath.Join(dir, "line.png"),
		color:   filepath.Join(dir, "color.png"),
		out:     filepath.Join(dir, "out.mp4"),
	}
	require.NoError(t, os.Mkdir(f.workDir, 0755))

	line := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for i := range line.Pix {
		line.Pix[i] = 255
	}
	for x := 5; x < 35; x++ {
		for y := 14; y < 17; y++ {
			line.SetRGBA(x, y, color.RGBA{A: 255})
		}
	}
	require.NoError(t, imgio.Save(f.lineArt, line, imgio.PNGEncoder()))

	col := image.NewRGBA(image.Rectangle{Max: colorSize})
	for i := 0; i < len(col.Pix); i += 4 {
		col.Pix[i], col.Pix[i+3] = 255, 255
	}
	require.NoError(t, imgio.Save(f.color, col, imgio.PNGEncoder()))
	return f
}

func (f fixture) job(opts Options) Job {
	return NewJob(f.lineArt, f.color, f.out, opts)
}

func (f fixture) assertCleaned(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "frame directory must be removed")
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.DrawingDuration = 1
	opts.RevealDuration = 1
	opts.FPS = 4
	opts.Style = style.LineArtFollowing
	opts.Seed = 7
	return opts
}

func TestRunFullMode(t *testing.T) {
	f := newFixture(t, image.Pt(40, 30))
	enc := &fakeEncoder{}
	preview := &countingOutput{}
	var phases []progress.Phase
	obs := progress.Func(func(e progress.Event) {
		if len(phases) == 0 || phases[len(phases)-1] != e.Phase {
			phases = append(phases, e.Phase)
		}
	})
	o, err := New(Config{Encoder: enc, WorkDir: f.workDir, Observer: obs, Preview: preview})
	require.NoError(t, err)

	res, err := o.Run(context.Background(), f.job(smallOptions()))
	require.NoError(t, err)

	// 4 drawing + 2 pause + 4 reveal + 4 hold.
	assert.True(t, res.Success)
	assert.Equal(t, 14, res.Frames)
	assert.Equal(t, 14, res.Params.TotalFrames())
	assert.Equal(t, f.out, res.OutputPath)
	assert.Positive(t, res.Points)
	assert.Positive(t, res.PlanPoints)

	assert.Equal(t, 14, enc.seq.Count)
	assert.Equal(t, 4, enc.fps)
	require.Len(t, enc.frames, 14)
	assert.Equal(t, "frame_000000.png", enc.frames[0])
	assert.Equal(t, "frame_000013.png", enc.frames[13])
	assert.Equal(t, 14, preview.frames)

	assert.Equal(t, []progress.Phase{
		progress.PhaseExtract, progress.PhaseLoad, progress.PhasePlan,
		progress.PhaseDrawing, progress.PhaseHold, progress.PhaseReveal,
		progress.PhaseFinalHold, progress.PhaseEncode, progress.PhaseDone,
	}, phases)

	assert.FileExists(t, f.out)
	f.assertCleaned(t)
}

func TestRunResizesColorImage(t *testing.T) {
	f := newFixture(t, image.Pt(20, 15))
	o, err := New(Config{Encoder: &fakeEncoder{}, WorkDir: f.workDir})
	require.NoError(t, err)

	res, err := o.Run(context.Background(), f.job(smallOptions()))

	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRunDrawingOnly(t *testing.T) {
	f := newFixture(t, image.Pt(40, 30))
	enc := &fakeEncoder{}
	o, err := New(Config{Encoder: enc, WorkDir: f.workDir})
	require.NoError(t, err)

	opts := smallOptions()
	opts.Mode = ModeDrawingOnly
	opts.LineColor = "#0000ff"
	opts.BackgroundColor = "#000"
	job := f.job(opts)
	job.ColorPath = ""

	res, err := o.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Frames)
	assert.Zero(t, res.PlanPoints)
	f.assertCleaned(t)
}

func TestRunCleansUpOnEncoderFailure(t *testing.T) {
	f := newFixture(t, image.Pt(40, 30))
	enc := &fakeEncoder{err: animerr.New(animerr.CodeEncode, "encoder exited with status 1")}
	var failed []progress.Event
	obs := progress.Func(func(e progress.Event) {
		if e.Phase == progress.PhaseFailed {
			failed = append(failed, e)
		}
	})
	o, err := New(Config{Encoder: enc, WorkDir: f.workDir, Observer: obs})
	require.NoError(t, err)

	res, err := o.Run(context.Background(), f.job(smallOptions()))

	assert.True(t, animerr.Is(err, animerr.CodeEncode))
	assert.False(t, res.Success)
	assert.Equal(t, "encoder exited with status 1", res.Error)
	assert.Len(t, enc.frames, 14, "frames existed while encoding")
	require.Len(t, failed, 1)
	f.assertCleaned(t)
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t, image.Pt(40, 30))
	o, err := New(Config{Encoder: &fakeEncoder{}, WorkDir: f.workDir})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := o.Run(ctx, f.job(smallOptions()))

	assert.True(t, animerr.Is(err, animerr.CodeCancelled))
	assert.Zero(t, res.Frames)
	f.assertCleaned(t)
}

func TestRunErrors(t *testing.T) {
	f := newFixture(t, image.Pt(40, 30))
	o, err := New(Config{Encoder: &fakeEncoder{}, WorkDir: f.workDir})
	require.NoError(t, err)

	missing := f.job(smallOptions())
	missing.LineArtPath = filepath.Join(f.dir, "missing.png")
	_, err = o.Run(context.Background(), missing)
	assert.True(t, animerr.Is(err, animerr.CodeLoad))

	noColor := f.job(smallOptions())
	noColor.ColorPath = ""
	_, err = o.Run(context.Background(), noColor)
	assert.True(t, animerr.Is(err, animerr.CodeValidation))

	badStyle := f.job(smallOptions())
	badStyle.Options.Style = 9
	res, err := o.Run(context.Background(), badStyle)
	assert.True(t, animerr.Is(err, animerr.CodeValidation))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	f.assertCleaned(t)
}

func TestNewRequiresEncoder(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, animerr.Is(err, animerr.CodeValidation))
}
