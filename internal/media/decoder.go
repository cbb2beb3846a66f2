// Package media bridges external codec processes into typed frame streams.
//
// Decoding and encoding are delegated to ffmpeg children connected over OS
// pipes: the decoder is a producer of fixed-size raw RGB24 frames, the
// encoder a consumer of them. Pipe buffering gives natural backpressure, so
// a slow encoder throttles the whole pipeline without any in-process queue.
package media

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wep21/sam3-camera-detector/internal/types"
)

// FFmpegBin is the decode/encode binary. A package variable so tests and
// exotic deployments can substitute another rawvideo-speaking program.
var FFmpegBin = "ffmpeg"

// Decoder exposes an ffmpeg child process as a sequence of fixed-size raw
// RGB24 frames read from its stdout pipe.
type Decoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer

	width  int
	height int
	seq    uint64
	killed bool
}

// StartDecoder launches the decode process for the given source. The video
// stream is mapped exclusively (no audio/subtitle/data) and output pacing
// is disabled so frames arrive as fast as they decode. When rescale is set
// the decoder scales to width x height; otherwise the dimensions must match
// the probed source.
func StartDecoder(source string, width, height int, rescale bool) (*Decoder, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", source,
		"-map", "0:v:0", "-an", "-sn", "-dn",
	}
	if rescale {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", width, height))
	}
	args = append(args, "-vsync", "0", "-f", "rawvideo", "-pix_fmt", "rgb24", "-")

	cmd := exec.Command(FFmpegBin, args...)
	stderr := &tailBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s (is FFmpeg installed?): %v", ErrLaunch, FFmpegBin, err)
	}

	slog.Debug("decoder started",
		"bin", FFmpegBin,
		"source", source,
		"resolution", fmt.Sprintf("%dx%d", width, height),
		"rescale", rescale,
		"pid", cmd.Process.Pid,
	)

	return &Decoder{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		width:  width,
		height: height,
	}, nil
}

// FrameSize returns the exact byte length of one frame on the pipe.
func (d *Decoder) FrameSize() int {
	return types.FrameSize(d.width, d.height)
}

// ReadFrame blocks until a full frame is read from the child's stdout.
// Returns (nil, nil) on a clean end of stream. EOF inside a frame is a
// distinct, fatal ErrTruncatedStream.
func (d *Decoder) ReadFrame() (*types.Frame, error) {
	buf := make([]byte, d.FrameSize())
	n, err := io.ReadFull(d.stdout, buf)
	switch {
	case err == io.EOF:
		return nil, nil
	case err == io.ErrUnexpectedEOF:
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedStream, n, len(buf))
	case err != nil:
		return nil, fmt.Errorf("read frame from decoder: %w", err)
	}

	d.seq++
	return &types.Frame{
		Seq:       d.seq,
		Timestamp: time.Now(),
		Width:     d.width,
		Height:    d.height,
		Data:      buf,
		TraceID:   uuid.New().String(),
	}, nil
}

// Close waits for the child to exit and surfaces a non-zero status together
// with the captured diagnostic tail. Call only after the stream has been
// fully consumed; use Kill when abandoning the stream early.
func (d *Decoder) Close() error {
	err := d.cmd.Wait()
	if err == nil {
		return nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return &ExitError{
			Binary: FFmpegBin,
			Status: err.Error(),
			Stderr: strings.TrimSpace(d.stderr.Tail()),
		}
	}
	return fmt.Errorf("wait for decoder: %w", err)
}

// Kill forcibly terminates the child. Idempotent and safe to call on an
// already-exited process; the reaped status is deliberately ignored.
func (d *Decoder) Kill() {
	if d.killed {
		return
	}
	d.killed = true
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
	}
}
