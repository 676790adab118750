package commands

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/speeddraw/internal/animation"
	"github.com/bryanchriswhite/speeddraw/internal/config"
	"github.com/bryanchriswhite/speeddraw/internal/output"
	"github.com/bryanchriswhite/speeddraw/internal/style"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "cat_speeddraw.mp4", defaultOutputPath("/art/cat.png"))
	assert.Equal(t, "sketch.v2_speeddraw.mp4", defaultOutputPath("sketch.v2.jpg"))
}

func TestOptionsFromConfig(t *testing.T) {
	a := config.Defaults().Animation
	a.Style = "5"
	a.Mode = "drawing_only"

	opts, err := optionsFromConfig(a)
	require.NoError(t, err)
	assert.Equal(t, style.LineArtFollowing, opts.Style)
	assert.Equal(t, animation.ModeDrawingOnly, opts.Mode)
	assert.Equal(t, 30, opts.FPS)

	a.LineColor = "blue"
	_, err = optionsFromConfig(a)
	assert.Error(t, err)
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
defaults:
  style: line_art_following
  fps: 24
jobs:
  - line_art: cat.png
    color: cat_color.png
    output: out/cat.mp4
  - line_art: /abs/dog.png
    mode: drawing_only
    line_color: "#ff0000"
`)
	m, err := LoadManifest(path)
	require.NoError(t, err)
	dir := filepath.Dir(path)

	require.Len(t, m.Jobs, 2)
	assert.Equal(t, filepath.Join(dir, "cat.png"), m.Jobs[0].LineArt)
	assert.Equal(t, filepath.Join(dir, "cat_color.png"), m.Jobs[0].Color)
	assert.Equal(t, filepath.Join(dir, "out", "cat.mp4"), m.Jobs[0].Output)
	assert.Equal(t, "/abs/dog.png", m.Jobs[1].LineArt)
	assert.Equal(t, "", m.Jobs[1].Color)
	assert.Equal(t, filepath.Join(dir, "dog_speeddraw.mp4"), m.Jobs[1].Output)

	jobs, err := m.Build(config.Defaults().Animation)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, style.LineArtFollowing, jobs[0].Options.Style)
	assert.Equal(t, 24, jobs[0].Options.FPS)
	assert.Equal(t, animation.ModeFull, jobs[0].Options.Mode)
	assert.Equal(t, animation.ModeDrawingOnly, jobs[1].Options.Mode)
	assert.Equal(t, "#ff0000", jobs[1].Options.LineColor)
	assert.Equal(t, 24, jobs[1].Options.FPS)
	assert.NotEqual(t, jobs[0].ID, jobs[1].ID)
}

func TestLoadManifestErrors(t *testing.T) {
	_, err := LoadManifest(writeManifest(t, "jobs: []\n"))
	assert.ErrorContains(t, err, "no jobs")

	_, err = LoadManifest(writeManifest(t, "jobs:\n  - color: a.png\n"))
	assert.ErrorContains(t, err, "line_art is required")

	m, err := LoadManifest(writeManifest(t, "jobs:\n  - line_art: a.png\n    brush: round\n"))
	require.NoError(t, err)
	_, err = m.Build(config.Defaults().Animation)
	assert.ErrorContains(t, err, "job 1")

	m, err = LoadManifest(writeManifest(t, "defaults:\n  style: watercolor\njobs:\n  - line_art: a.png\n"))
	require.NoError(t, err)
	_, err = m.Build(config.Defaults().Animation)
	assert.Error(t, err)
}

type touchEncoder struct{}

func (touchEncoder) Name() string { return "touch" }

func (touchEncoder) Encode(_ context.Context, _ output.Sequence, _ int, outPath string) error {
	return os.WriteFile(outPath, nil, 0644)
}

func TestRunJobsReportsEachJob(t *testing.T) {
	dir := t.TempDir()
	lineArt := filepath.Join(dir, "line.png")
	img := image.NewGray(image.Rect(0, 0, 24, 16))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for x := 4; x < 20; x++ {
		img.SetGray(x, 8, color.Gray{})
	}
	require.NoError(t, imgio.Save(lineArt, img, imgio.PNGEncoder()))

	opts := animation.DefaultOptions()
	opts.Mode = animation.ModeDrawingOnly
	opts.DrawingDuration = 1
	opts.FPS = 3
	jobs := []animation.Job{
		animation.NewJob(lineArt, "", filepath.Join(dir, "a.mp4"), opts),
		animation.NewJob(filepath.Join(dir, "missing.png"), "", filepath.Join(dir, "b.mp4"), opts),
		animation.NewJob(lineArt, "", filepath.Join(dir, "c.mp4"), opts),
	}
	orch, err := animation.New(animation.Config{Encoder: touchEncoder{}, WorkDir: dir})
	require.NoError(t, err)

	results := runJobs(context.Background(), orch, jobs, 2)

	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, jobs[i].ID, res.JobID)
	}
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].Success)
	assert.Equal(t, 3, results[2].Frames)
	assert.FileExists(t, filepath.Join(dir, "c.mp4"))
}
