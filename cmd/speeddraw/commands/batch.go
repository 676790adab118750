package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/speeddraw/internal/animation"
	"github.com/bryanchriswhite/speeddraw/internal/config"
	"github.com/bryanchriswhite/speeddraw/internal/encoder"
	"github.com/bryanchriswhite/speeddraw/internal/logger"
)

var batchCmd = &cobra.Command{
	Use:   "batch MANIFEST",
	Short: "Render several animations from a YAML manifest",
	Long: `Render every job listed in MANIFEST. Each job runs in its own frame
directory with its own random source, and a failed job does not stop the
others.

The manifest's defaults section and each job accept the keys of the
animation section of the config file. Relative paths are resolved against
the manifest's directory.`,
	Example: `  # manifest.yaml
  defaults:
    style: line_art_following
    fps: 24
  jobs:
    - line_art: cat.png
      color: cat_color.png
      output: cat.mp4
    - line_art: dog.png
      output: dog.mp4
      mode: drawing_only

  speeddraw batch manifest.yaml --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var batchFormat string

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "table", "result format (table, text or json)")
	batchCmd.Flags().Int("workers", 0, "number of jobs rendered in parallel")

	viper.BindPFlag("batch.workers", batchCmd.Flags().Lookup("workers"))
}

// Manifest is a batch file.
type Manifest struct {
	Defaults map[string]any `yaml:"defaults"`
	Jobs     []ManifestJob  `yaml:"jobs"`
}

// ManifestJob is one manifest entry. Any other key overrides an animation
// setting for this job.
type ManifestJob struct {
	LineArt   string         `yaml:"line_art"`
	Color     string         `yaml:"color"`
	Output    string         `yaml:"output"`
	Overrides map[string]any `yaml:",inline"`
}

// LoadManifest reads a manifest and resolves its paths.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s has no jobs", path)
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if j.LineArt == "" {
			return nil, fmt.Errorf("job %d: line_art is required", i+1)
		}
		if j.Output == "" {
			j.Output = defaultOutputPath(j.LineArt)
		}
		j.LineArt, j.Color, j.Output = resolve(j.LineArt), resolve(j.Color), resolve(j.Output)
	}
	return &m, nil
}

// Build creates one animation job per manifest entry on top of base.
func (m *Manifest) Build(base config.AnimationConfig) ([]animation.Job, error) {
	defaults, err := config.MergeAnimation(base, m.Defaults)
	if err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	jobs := make([]animation.Job, 0, len(m.Jobs))
	for i, j := range m.Jobs {
		a, err := config.MergeAnimation(defaults, j.Overrides)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		opts, err := optionsFromConfig(a)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		jobs = append(jobs, animation.NewJob(j.LineArt, j.Color, j.Output, opts))
	}
	return jobs, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifest, err := LoadManifest(args[0])
	if err != nil {
		return err
	}
	jobs, err := manifest.Build(cfg.Animation)
	if err != nil {
		return err
	}
	enc, err := encoder.New(cfg.Encoder)
	if err != nil {
		return err
	}
	orch, err := animation.New(animation.Config{Encoder: enc, WorkDir: cfg.WorkDir})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithComponent("batch").Info().
		Int("jobs", len(jobs)).
		Int("workers", cfg.Batch.Workers).
		Msg("Starting batch")

	results := runJobs(ctx, orch, jobs, cfg.Batch.Workers)

	if batchFormat == "table" {
		printBatchTable(results)
	} else if err := printResults(batchFormat, results); err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	return nil
}

// runJobs renders jobs with at most workers in flight. Results keep the
// order of jobs.
func runJobs(ctx context.Context, orch *animation.Orchestrator, jobs []animation.Job, workers int) []*animation.Result {
	results := make([]*animation.Result, len(jobs))
	var g errgroup.Group
	g.SetLimit(max(1, workers))
	for i, job := range jobs {
		g.Go(func() error {
			// Failures are reported per job in the result.
			results[i], _ = orch.Run(ctx, job)
			return nil
		})
	}
	g.Wait()
	return results
}

func printBatchTable(results []*animation.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "JOB\tSTYLE\tFRAMES\tSTATUS\tOUTPUT")
	fmt.Fprintln(w, "---\t-----\t------\t------\t------")

	for _, res := range results {
		status := "ok"
		if !res.Success {
			status = "failed: " + res.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", res.JobID[:8], res.Style, res.Frames, status, res.OutputPath)
	}
}
