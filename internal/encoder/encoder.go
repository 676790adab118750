// Package encoder turns a PNG frame sequence into a video file by driving an
// external encoder process (ffmpeg or gst-launch-1.0).
package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/speeddraw/internal/animerr"
	"github.com/bryanchriswhite/speeddraw/internal/logger"
	"github.com/bryanchriswhite/speeddraw/internal/output"
)

// Encoder writes a video from an ordered frame sequence.
type Encoder interface {
	Encode(ctx context.Context, seq output.Sequence, fps int, outPath string) error
	Name() string
}

const (
	BackendFFmpeg    = "ffmpeg"
	BackendGStreamer = "gstreamer"
)

// Config selects and tunes the encoder backend.
type Config struct {
	Backend string `yaml:"backend" mapstructure:"backend" json:"backend"`
	// Binary overrides the executable looked up in PATH.
	Binary string `yaml:"binary" mapstructure:"binary" json:"binary"`
	// Codec is the ffmpeg video codec; ignored by gstreamer.
	Codec string `yaml:"codec" mapstructure:"codec" json:"codec"`
}

// New returns the encoder for cfg.Backend. An empty backend means ffmpeg.
func New(cfg Config) (Encoder, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFFmpeg:
		return NewFFmpeg(cfg.Binary, cfg.Codec), nil
	case BackendGStreamer, "gst":
		return NewGStreamer(cfg.Binary), nil
	}
	return nil, animerr.New(animerr.CodeValidation, "unknown encoder backend %q", cfg.Backend)
}

func checkSequence(seq output.Sequence, fps int) error {
	if seq.Count <= 0 {
		return animerr.New(animerr.CodeEncode, "no frames to encode")
	}
	if fps <= 0 {
		return animerr.New(animerr.CodeValidation, "fps must be positive, got %d", fps)
	}
	return nil
}

// run executes binary with args, streaming stderr into the log. On failure
// the last stderr lines are folded into the returned error.
func run(ctx context.Context, log *zerolog.Logger, binary string, args []string) error {
	path, err := exec.LookPath(binary)
	if err != nil {
		return animerr.Wrap(animerr.CodeEncode, err, "encoder %s not available", binary)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return animerr.Wrap(animerr.CodeEncode, err, "failed to get stderr pipe")
	}

	log.Debug().Str("cmd", path).Strs("args", args).Msg("Starting encoder")
	if err := cmd.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return animerr.Wrap(animerr.CodeCancelled, ctxErr, "encoding cancelled")
		}
		return animerr.Wrap(animerr.CodeEncode, err, "failed to start %s", binary)
	}

	// stderr must be drained before Wait closes the pipe.
	tail := &tailBuffer{max: 20}
	logStderr(log, stderr, tail)

	err = cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return animerr.Wrap(animerr.CodeCancelled, ctxErr, "encoding cancelled")
	}
	if err != nil {
		if lines := tail.String(); lines != "" {
			err = fmt.Errorf("%w: %s", err, lines)
		}
		return animerr.Wrap(animerr.CodeEncode, err, "%s failed", binary)
	}
	return nil
}

// logStderr logs encoder stderr output
func logStderr(log *zerolog.Logger, r io.Reader, tail *tailBuffer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail.add(line)
		log.Debug().Str("stderr", line).Msg("Encoder output")
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		log.Debug().Err(err).Msg("Encoder stderr closed")
	}
}

// tailBuffer keeps the last max lines.
type tailBuffer struct {
	max   int
	lines []string
}

func (t *tailBuffer) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	return strings.Join(t.lines, "; ")
}

func componentLog(name string) *zerolog.Logger {
	return logger.WithComponent("encoder-" + name)
}
