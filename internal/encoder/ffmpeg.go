package encoder

import (
	"context"
	"strconv"

	"github.com/bryanchriswhite/speeddraw/internal/output"
)

const defaultCodec = "libx264"

// FFmpeg encodes with an ffmpeg subprocess. The default codec is H.264 in
// yuv420p, padded to even dimensions so every player accepts it.
type FFmpeg struct {
	binary string
	codec  string
}

// NewFFmpeg creates an ffmpeg encoder. Empty arguments select "ffmpeg" and
// libx264.
func NewFFmpeg(binary, codec string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if codec == "" {
		codec = defaultCodec
	}
	return &FFmpeg{binary: binary, codec: codec}
}

func (f *FFmpeg) Name() string {
	return BackendFFmpeg
}

// Args returns the ffmpeg command line for seq.
func (f *FFmpeg) Args(seq output.Sequence, fps int, outPath string) []string {
	rate := strconv.Itoa(fps)
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-framerate", rate,
		"-start_number", "0",
		"-i", seq.Glob(),
		"-frames:v", strconv.Itoa(seq.Count),
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", f.codec,
		"-pix_fmt", "yuv420p",
		"-r", rate,
		outPath,
	}
}

func (f *FFmpeg) Encode(ctx context.Context, seq output.Sequence, fps int, outPath string) error {
	if err := checkSequence(seq, fps); err != nil {
		return err
	}
	log := componentLog(f.Name())
	log.Info().
		Int("frames", seq.Count).
		Int("fps", fps).
		Str("codec", f.codec).
		Str("output", outPath).
		Msg("Encoding video")
	if err := run(ctx, log, f.binary, f.Args(seq, fps, outPath)); err != nil {
		return err
	}
	log.Info().Str("output", outPath).Msg("Video encoding completed")
	return nil
}
