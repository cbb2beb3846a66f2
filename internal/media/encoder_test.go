package media

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wep21/sam3-camera-detector/internal/types"
)

// --- Test 1: Frame validation ---

// TestEncoderFrameSizeMismatch validates the size check on write.
func TestEncoderFrameSizeMismatch(t *testing.T) {
	origBin := FFmpegBin
	defer func() { FFmpegBin = origBin }()

	FFmpegBin = writeStub(t, "encode-sink", `cat >/dev/null`)
	e, err := StartEncoder(filepath.Join(t.TempDir(), "out.mp4"), 4, 2, 25)
	if err != nil {
		t.Fatalf("StartEncoder() failed: %v", err)
	}
	defer e.Kill()

	err = e.WriteFrame(&types.Frame{Width: 2, Height: 2, Data: make([]byte, 12)})
	if err == nil || !strings.Contains(err.Error(), "size mismatch") {
		t.Errorf("expected size mismatch error, got %v", err)
	}
}

// --- Test 2: End-to-end write path ---

// TestEncoderWriteAndClose validates the shutdown ordering.
//
// Contract:
//   - every written frame reaches the child byte for byte
//   - Close signals EOF via stdin before waiting, so a child draining its
//     input exits cleanly instead of deadlocking
func TestEncoderWriteAndClose(t *testing.T) {
	origBin := FFmpegBin
	defer func() { FFmpegBin = origBin }()

	captured := filepath.Join(t.TempDir(), "captured.raw")
	// Child copies stdin to a file; it only exits once stdin hits EOF.
	FFmpegBin = writeStub(t, "encode-copy", `cat >`+captured)

	e, err := StartEncoder(filepath.Join(t.TempDir(), "out.mp4"), 2, 2, 25)
	if err != nil {
		t.Fatalf("StartEncoder() failed: %v", err)
	}

	frame := &types.Frame{Width: 2, Height: 2, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	for i := 0; i < 3; i++ {
		if err := e.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame() %d failed: %v", i, err)
		}
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(captured)
	if err != nil {
		t.Fatalf("read captured stream: %v", err)
	}
	if len(data) != 3*12 {
		t.Errorf("child received %d bytes, want %d", len(data), 3*12)
	}
}

// --- Test 3: Failing child ---

// TestEncoderExitError validates failure reporting on close.
func TestEncoderExitError(t *testing.T) {
	origBin := FFmpegBin
	defer func() { FFmpegBin = origBin }()

	FFmpegBin = writeStub(t, "encode-fail", `cat >/dev/null; echo 'height not divisible by 2' >&2; exit 1`)
	e, err := StartEncoder(filepath.Join(t.TempDir(), "out.mp4"), 2, 2, 25)
	if err != nil {
		t.Fatalf("StartEncoder() failed: %v", err)
	}

	var exitErr *ExitError
	if err := e.Close(); !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if !strings.Contains(exitErr.Stderr, "not divisible") {
		t.Errorf("ExitError should carry the stderr tail: %q", exitErr.Stderr)
	}
}

// --- Test 4: Output directory ---

// TestEncoderCreatesParentDirs validates destination directory creation.
func TestEncoderCreatesParentDirs(t *testing.T) {
	origBin := FFmpegBin
	defer func() { FFmpegBin = origBin }()

	FFmpegBin = writeStub(t, "encode-sink", `cat >/dev/null`)
	dest := filepath.Join(t.TempDir(), "nested", "dir", "out.mp4")
	e, err := StartEncoder(dest, 2, 2, 25)
	if err != nil {
		t.Fatalf("StartEncoder() failed: %v", err)
	}
	defer e.Kill()

	if _, err := os.Stat(filepath.Dir(dest)); err != nil {
		t.Errorf("parent directory should exist: %v", err)
	}
}
