package media

import (
	"errors"
	"fmt"
)

// ErrLaunch marks a failure to start an external codec binary. Wrapped by
// the spawn paths so callers can distinguish "ffmpeg missing" from a codec
// failing mid-stream.
var ErrLaunch = errors.New("failed to launch external process")

// ErrTruncatedStream reports EOF in the middle of a fixed-size frame. A
// clean end of stream only ever happens at a frame boundary.
var ErrTruncatedStream = errors.New("truncated frame stream")

// ExitError reports a non-zero exit of an external codec process, carrying
// the tail of its diagnostic output for the operator.
type ExitError struct {
	Binary string
	Status string
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with %s", e.Binary, e.Status)
	}
	return fmt.Sprintf("%s exited with %s: %s", e.Binary, e.Status, e.Stderr)
}

// stderrTailSize bounds how much diagnostic output is retained per process.
const stderrTailSize = 8 * 1024

// tailBuffer keeps the last stderrTailSize bytes written to it. The codec
// processes can be chatty on long inputs; only the tail matters when they
// fail.
type tailBuffer struct {
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > stderrTailSize {
		t.buf = t.buf[len(t.buf)-stderrTailSize:]
	}
	return len(p), nil
}

func (t *tailBuffer) Tail() string {
	return string(t.buf)
}
