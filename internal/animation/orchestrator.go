package animation

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"os"
	"time"

	"github.com/anthonynsimon/bild/transform"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/speeddraw/internal/animerr"
	"github.com/bryanchriswhite/speeddraw/internal/compositor"
	"github.com/bryanchriswhite/speeddraw/internal/encoder"
	"github.com/bryanchriswhite/speeddraw/internal/lineart"
	"github.com/bryanchriswhite/speeddraw/internal/logger"
	"github.com/bryanchriswhite/speeddraw/internal/output"
	"github.com/bryanchriswhite/speeddraw/internal/progress"
	"github.com/bryanchriswhite/speeddraw/internal/style"
)

// Result describes a finished job.
type Result struct {
	JobID      string        `json:"job_id"`
	Success    bool          `json:"success"`
	OutputPath string        `json:"output_path,omitempty"`
	Style      string        `json:"style"`
	Frames     int           `json:"frames"`
	Params     Params        `json:"params"`
	Strokes    int           `json:"strokes"`
	Points     int           `json:"drawing_points"`
	PlanPoints int           `json:"reveal_points"`
	Elapsed    time.Duration `json:"elapsed"`
	Error      string        `json:"error,omitempty"`
}

// Config wires an Orchestrator.
type Config struct {
	Encoder encoder.Encoder
	// WorkDir is the parent of per-job frame directories; empty means the
	// system temp directory.
	WorkDir string
	// Observer receives progress events. Optional.
	Observer progress.Observer
	// Preview receives every frame alongside the frame directory. It must
	// already be started and must not keep the frames. Optional.
	Preview output.Output
}

// Orchestrator runs jobs. It holds no per-job state, so one Orchestrator may
// run several jobs concurrently.
type Orchestrator struct {
	cfg Config
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Encoder == nil {
		return nil, animerr.New(animerr.CodeValidation, "encoder is required")
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Run renders and encodes job. The returned Result is never nil; on failure
// Success is false and the error carries an animerr code. The frame
// directory is removed on every exit path.
func (o *Orchestrator) Run(ctx context.Context, job Job) (res *Result, err error) {
	log := logger.WithJob("animation", job.ID)
	obs := progress.Multi(o.cfg.Observer, progress.NewLogObserver(log))
	res = &Result{JobID: job.ID, Style: job.Options.Style.String()}
	start := time.Now()

	defer func() {
		res.Elapsed = time.Since(start)
		if err != nil {
			res.Error = animerr.UserMessage(err)
			log.Error().Err(err).Str("code", string(animerr.GetCode(err))).Msg("Animation failed")
			obs.Progress(progress.Event{JobID: job.ID, Phase: progress.PhaseFailed, Message: res.Error})
		}
	}()

	if err := job.validate(); err != nil {
		return res, err
	}
	opts := job.Options
	log.Info().
		Str("line_art", job.LineArtPath).
		Str("color", job.ColorPath).
		Str("style", opts.Style.String()).
		Str("mode", string(opts.Mode)).
		Msg("Starting animation")

	obs.Progress(progress.Event{JobID: job.ID, Phase: progress.PhaseExtract, Message: "Extracting drawing path"})
	path, err := lineart.ExtractFile(job.LineArtPath)
	if err != nil {
		return res, err
	}
	res.Strokes, res.Points = len(path.Strokes), len(path.Points)
	log.Info().
		Int("strokes", len(path.Strokes)).
		Int("points", len(path.Points)).
		Int("width", path.Width).
		Int("height", path.Height).
		Msg("Extracted drawing path")

	params := DeriveParams(path.Width, path.Height, opts)
	res.Params = params
	log.Info().
		Float64("scale", params.Scale).
		Int("stroke_thickness", params.Thickness).
		Int("step_size", params.StepSize).
		Int("drawing_frames", params.DrawingFrames).
		Int("pause_frames", params.PauseFrames).
		Int("reveal_frames", params.RevealFrames).
		Int("hold_frames", params.HoldFrames).
		Msg("Derived animation parameters")

	line, background, err := opts.colors()
	if err != nil {
		return res, err
	}
	scene := compositor.Scene{
		Width:         path.Width,
		Height:        path.Height,
		DrawingPoints: path.Points,
		DrawingFrames: params.DrawingFrames,
		PauseFrames:   params.PauseFrames,
		LineColor:     line,
		Background:    background,
	}

	if opts.Mode == ModeFull {
		obs.Progress(progress.Event{JobID: job.ID, Phase: progress.PhaseLoad, Message: "Loading color image"})
		color, err := loadColor(job.ColorPath, path.Width, path.Height, log)
		if err != nil {
			return res, err
		}

		obs.Progress(progress.Event{JobID: job.ID, Phase: progress.PhasePlan, Message: "Planning paint reveal"})
		plan, err := style.Generate(opts.Style, style.Request{
			Width:         path.Width,
			Height:        path.Height,
			StepSize:      params.StepSize,
			Thickness:     params.Thickness,
			RevealFrames:  params.RevealFrames,
			DrawingPoints: path.Points,
			Rand:          seededRand(opts.Seed),
		})
		if err != nil {
			return res, err
		}
		res.PlanPoints = len(plan.Points)
		log.Info().
			Str("style", plan.Style.String()).
			Int("points", len(plan.Points)).
			Int("points_per_frame", plan.PerFrame).
			Msg("Generated paint plan")

		scene.Reveal = &compositor.Reveal{
			Plan:       plan,
			Frames:     params.RevealFrames,
			Color:      color,
			HoldFrames: params.HoldFrames,
		}
	}

	dir, err := os.MkdirTemp(o.cfg.WorkDir, "speeddraw-")
	if err != nil {
		return res, animerr.Wrap(animerr.CodeFrameIO, err, "create frame directory")
	}
	disk := output.NewDiskOutput(dir)
	defer func() {
		if cerr := disk.Cleanup(); cerr != nil {
			log.Warn().Err(cerr).Str("dir", dir).Msg("Failed to remove frame directory")
			return
		}
		log.Debug().Str("dir", dir).Msg("Removed frame directory")
	}()
	if err := disk.Start(); err != nil {
		return res, animerr.Wrap(animerr.CodeFrameIO, err, "start frame output")
	}

	var out output.Output = disk
	if o.cfg.Preview != nil {
		out = output.Tee{disk, o.cfg.Preview}
	}

	frames, err := compositor.New(out, obs, job.ID, log).Render(ctx, scene)
	res.Frames = frames
	if stopErr := disk.Stop(); err == nil && stopErr != nil {
		err = animerr.Wrap(animerr.CodeFrameIO, stopErr, "stop frame output")
	}
	if err != nil {
		return res, err
	}
	log.Info().Int("frames", frames).Str("dir", dir).Msg("Frames written")

	obs.Progress(progress.Event{
		JobID:   job.ID,
		Phase:   progress.PhaseEncode,
		Message: fmt.Sprintf("Encoding %d frames with %s", frames, o.cfg.Encoder.Name()),
	})
	if err := o.cfg.Encoder.Encode(ctx, disk.Sequence(), opts.FPS, job.OutputPath); err != nil {
		return res, err
	}

	res.Success = true
	res.OutputPath = job.OutputPath
	obs.Progress(progress.Event{
		JobID:    job.ID,
		Phase:    progress.PhaseDone,
		Current:  frames,
		Total:    frames,
		Fraction: 1,
		Message:  "Animation complete",
	})
	log.Info().
		Str("output", job.OutputPath).
		Int("frames", frames).
		Dur("elapsed", time.Since(start)).
		Msg("Animation complete")
	return res, nil
}

// loadColor decodes the reference image onto a white background and fits it
// to the line-art canvas.
func loadColor(path string, width, height int, log *zerolog.Logger) (*image.RGBA, error) {
	img, err := lineart.LoadImage(path)
	if err != nil {
		return nil, err
	}
	img = lineart.FlattenAlpha(img)

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		log.Warn().
			Int("color_width", b.Dx()).
			Int("color_height", b.Dy()).
			Int("width", width).
			Int("height", height).
			Msg("Color image size differs from line art, resizing")
		return transform.Resize(img, width, height, transform.Linear), nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst, nil
}

// seededRand returns nil for seed 0 so the generator seeds from the clock.
func seededRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return style.NewRand(seed)
}
