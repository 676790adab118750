package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/speeddraw/internal/animation"
	"github.com/bryanchriswhite/speeddraw/internal/api"
	"github.com/bryanchriswhite/speeddraw/internal/config"
	"github.com/bryanchriswhite/speeddraw/internal/encoder"
	"github.com/bryanchriswhite/speeddraw/internal/output"
	"github.com/bryanchriswhite/speeddraw/internal/progress"
	"github.com/bryanchriswhite/speeddraw/internal/style"
)

var animateCmd = &cobra.Command{
	Use:   "animate LINE_ART [COLOR]",
	Short: "Render a speed-drawing animation",
	Long: `Render a video that draws LINE_ART stroke by stroke and then paints
COLOR into frame with the selected reveal style.

COLOR is required in full mode and ignored in drawing_only mode. Flags
override the values in the config file.`,
	Example: `  # Draw and reveal with the default style
  speeddraw animate sketch.png colored.png -o out.mp4

  # Follow the line art while painting, 24 fps
  speeddraw animate sketch.png colored.png --style line_art_following --fps 24

  # Drawing only, blue ink on black paper
  speeddraw animate sketch.png --mode drawing_only --line-color "#3060ff" --background-color "#000000"

  # Watch the frames in a browser while rendering
  speeddraw animate sketch.png colored.png --preview-port 8090`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnimate,
}

var (
	animateOutput string
	animateFormat string
)

func init() {
	rootCmd.AddCommand(animateCmd)

	f := animateCmd.Flags()
	f.StringVarP(&animateOutput, "output", "o", "", "output video path (default: <line art name>_speeddraw.mp4)")
	f.StringVarP(&animateFormat, "format", "f", "text", "result format (text or json)")
	f.StringP("style", "s", "", "reveal style, 1-5 or name (see 'speeddraw styles')")
	f.Float64("drawing-duration", 0, "speed-drawing phase length in seconds")
	f.Float64("reveal-duration", 0, "paint-reveal phase length in seconds")
	f.Int("fps", 0, "frames per second")
	f.Float64("multiplier", 0, "reveal area multiplier for brush size and step")
	f.String("mode", "", "full or drawing_only")
	f.String("line-color", "", "line color in drawing_only mode (hex)")
	f.String("background-color", "", "background color in drawing_only mode (hex)")
	f.Uint64("seed", 0, "random seed for the reveal style (0 = random)")
	f.String("encoder", "", "encoder backend (ffmpeg or gstreamer)")
	f.String("work-dir", "", "parent directory for temporary frames")
	f.Int("preview-port", 0, "serve a live preview on this port (0 = disabled)")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"animation.style":                  "style",
		"animation.drawing_duration":       "drawing-duration",
		"animation.reveal_duration":        "reveal-duration",
		"animation.fps":                    "fps",
		"animation.reveal_area_multiplier": "multiplier",
		"animation.mode":                   "mode",
		"animation.line_color":             "line-color",
		"animation.background_color":       "background-color",
		"animation.seed":                   "seed",
		"encoder.backend":                  "encoder",
		"work_dir":                         "work-dir",
		"preview.port":                     "preview-port",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}
}

// optionsFromConfig converts the animation section of the config into job
// options.
func optionsFromConfig(a config.AnimationConfig) (animation.Options, error) {
	s, err := style.Parse(a.Style)
	if err != nil {
		return animation.Options{}, err
	}
	mode, err := animation.ParseMode(a.Mode)
	if err != nil {
		return animation.Options{}, err
	}
	opts := animation.Options{
		Style:                s,
		DrawingDuration:      a.DrawingDuration,
		RevealDuration:       a.RevealDuration,
		FPS:                  a.FPS,
		RevealAreaMultiplier: a.RevealAreaMultiplier,
		Mode:                 mode,
		LineColor:            a.LineColor,
		BackgroundColor:      a.BackgroundColor,
		Seed:                 a.Seed,
	}
	return opts, opts.Validate()
}

// defaultOutputPath names the video after the line-art file, in the current
// directory.
func defaultOutputPath(lineArt string) string {
	base := filepath.Base(lineArt)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_speeddraw.mp4"
}

func runAnimate(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := optionsFromConfig(cfg.Animation)
	if err != nil {
		return err
	}
	enc, err := encoder.New(cfg.Encoder)
	if err != nil {
		return err
	}

	colorPath := ""
	if len(args) > 1 {
		colorPath = args[1]
	}
	out := animateOutput
	if out == "" {
		out = defaultOutputPath(args[0])
	}
	job := animation.NewJob(args[0], colorPath, out, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchCfg := animation.Config{Encoder: enc, WorkDir: cfg.WorkDir}
	if cfg.Preview.Port > 0 {
		shutdown, err := startPreview(cfg, &orchCfg)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	orch, err := animation.New(orchCfg)
	if err != nil {
		return err
	}
	res, runErr := orch.Run(ctx, job)
	if err := printResults(animateFormat, []*animation.Result{res}); err != nil {
		return err
	}
	return runErr
}

// startPreview starts the MJPEG preview server and wires it into orchCfg.
func startPreview(cfg *config.Config, orchCfg *animation.Config) (func(), error) {
	preview := output.NewMJPEGOutput(output.Config{FPS: cfg.Animation.FPS})
	if err := preview.Start(); err != nil {
		return nil, err
	}
	hub := progress.NewHub()
	server := api.NewServer(preview, hub, cfg)
	if err := server.Start(cfg.Preview.Port); err != nil {
		preview.Stop()
		return nil, err
	}
	orchCfg.Preview = preview
	orchCfg.Observer = hub

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		hub.Close()
		preview.Stop()
	}, nil
}

func printResults(format string, results []*animation.Result) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if len(results) == 1 {
			return encoder.Encode(results[0])
		}
		return encoder.Encode(results)
	case "text":
		for _, res := range results {
			if res.Success {
				fmt.Printf("✅ %s: %d frames (%s) in %s\n", res.OutputPath, res.Frames, res.Style, res.Elapsed.Round(time.Millisecond))
			} else {
				fmt.Printf("❌ job %s failed: %s\n", res.JobID, res.Error)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'text' or 'json')", format)
	}
}
