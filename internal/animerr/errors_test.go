package animerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "fps must be positive, got %d", 0)

	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "VALIDATION: fps must be positive, got 0", err.Error())
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(CodeLoad, cause, "decode %s", "lineart.png")

	assert.Equal(t, "LOAD: decode lineart.png: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(CodeLoad, nil, "nothing"))
}

func TestGetCodeThroughFmtWrapping(t *testing.T) {
	inner := New(CodeEncode, "ffmpeg exited with status 1")
	outer := fmt.Errorf("job abc: %w", inner)

	assert.Equal(t, CodeEncode, GetCode(outer))
	assert.True(t, Is(outer, CodeEncode))
	assert.False(t, Is(outer, CodeLoad))
	assert.Equal(t, Code(""), GetCode(errors.New("plain")))
}

func TestIsMatchesNestedCodes(t *testing.T) {
	inner := New(CodeCancelled, "render stopped")
	outer := Wrap(CodeProcessing, fmt.Errorf("frame 3: %w", inner), "paint reveal")

	assert.Equal(t, CodeProcessing, GetCode(outer))
	assert.True(t, Is(outer, CodeProcessing))
	assert.True(t, Is(outer, CodeCancelled))
	assert.False(t, Is(outer, CodeLoad))
	assert.False(t, Is(nil, CodeLoad))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "bad style", UserMessage(New(CodeValidation, "bad style")))
	assert.Equal(t, "write frame: disk full",
		UserMessage(Wrap(CodeFrameIO, errors.New("disk full"), "write frame")))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}
