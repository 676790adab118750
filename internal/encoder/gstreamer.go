package encoder

import (
	"context"
	"fmt"

	"github.com/bryanchriswhite/speeddraw/internal/output"
)

// GStreamer encodes with gst-launch-1.0:
// multifilesrc -> pngdec -> videoconvert -> x264enc -> mp4mux -> filesink
type GStreamer struct {
	binary string
}

// NewGStreamer creates a gst-launch based encoder
func NewGStreamer(binary string) *GStreamer {
	if binary == "" {
		binary = "gst-launch-1.0"
	}
	return &GStreamer{binary: binary}
}

func (g *GStreamer) Name() string {
	return BackendGStreamer
}

// Args returns the pipeline as gst-launch arguments. Each element and
// property is its own argument so paths with spaces survive without a shell.
func (g *GStreamer) Args(seq output.Sequence, fps int, outPath string) []string {
	return []string{
		"-q", "-e",
		"multifilesrc",
		"location=" + seq.Glob(),
		"index=0",
		fmt.Sprintf("stop-index=%d", seq.Count-1),
		fmt.Sprintf("caps=image/png,framerate=%d/1", fps),
		"!", "pngdec",
		"!", "videoconvert",
		"!", "video/x-raw,format=I420",
		"!", "x264enc", "speed-preset=medium",
		"!", "mp4mux",
		"!", "filesink", "location=" + outPath,
	}
}

func (g *GStreamer) Encode(ctx context.Context, seq output.Sequence, fps int, outPath string) error {
	if err := checkSequence(seq, fps); err != nil {
		return err
	}
	log := componentLog(g.Name())
	log.Info().
		Int("frames", seq.Count).
		Int("fps", fps).
		Str("output", outPath).
		Msg("Encoding video")
	if err := run(ctx, log, g.binary, g.Args(seq, fps, outPath)); err != nil {
		return err
	}
	log.Info().Str("output", outPath).Msg("Video encoding completed")
	return nil
}
