package media

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wep21/sam3-camera-detector/internal/types"
)

// Encoder exposes an ffmpeg child process as a sink for fixed-size raw
// RGB24 frames written to its stdin pipe, producing an H.264 file.
type Encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer

	width  int
	height int
	killed bool
}

// StartEncoder launches the encode process writing to dest. Parent
// directories are created as needed. The child reads raw RGB24 frames of
// width x height at the given fps and writes a yuv420p H.264 file with a
// constant-quality preset.
func StartEncoder(dest string, width, height int, fps float64) (*Encoder, error) {
	if dir := filepath.Dir(dest); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%.3f", fps),
		"-i", "-",
		"-an", "-sn", "-dn",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-pix_fmt", "yuv420p",
		dest,
	}

	cmd := exec.Command(FFmpegBin, args...)
	stderr := &tailBuffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s (is FFmpeg installed?): %v", ErrLaunch, FFmpegBin, err)
	}

	slog.Debug("encoder started",
		"bin", FFmpegBin,
		"dest", dest,
		"resolution", fmt.Sprintf("%dx%d", width, height),
		"fps", fps,
		"pid", cmd.Process.Pid,
	)

	return &Encoder{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		width:  width,
		height: height,
	}, nil
}

// WriteFrame blocks until the frame's raw bytes are written to the child's
// stdin. A closed pipe (the encoder died) is fatal; nothing is retried.
func (e *Encoder) WriteFrame(frame *types.Frame) error {
	if len(frame.Data) != types.FrameSize(e.width, e.height) {
		return fmt.Errorf("frame size mismatch: got %d bytes, encoder expects %d",
			len(frame.Data), types.FrameSize(e.width, e.height))
	}
	if _, err := e.stdin.Write(frame.Data); err != nil {
		return fmt.Errorf("write frame to encoder: %w", err)
	}
	return nil
}

// Close signals end-of-stream by closing stdin, then waits for the child.
// Stdin must close before the wait: the child may be blocked flushing its
// own output and would otherwise never see EOF, deadlocking both sides.
// A non-zero exit surfaces the captured diagnostic tail.
func (e *Encoder) Close() error {
	_ = e.stdin.Close()
	err := e.cmd.Wait()
	if err == nil {
		return nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return &ExitError{
			Binary: FFmpegBin,
			Status: err.Error(),
			Stderr: strings.TrimSpace(e.stderr.Tail()),
		}
	}
	return fmt.Errorf("wait for encoder: %w", err)
}

// Kill forcibly terminates the child. Idempotent; used on teardown paths
// where Close was never reached.
func (e *Encoder) Kill() {
	if e.killed {
		return
	}
	e.killed = true
	_ = e.stdin.Close()
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
		_ = e.cmd.Wait()
	}
}
