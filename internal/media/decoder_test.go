package media

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// memDecoder builds a decoder reading frames from an in-memory stream, no
// child process involved. ReadFrame never touches cmd.
func memDecoder(width, height int, stream []byte) *Decoder {
	return &Decoder{
		stdout: io.NopCloser(bytes.NewReader(stream)),
		stderr: &tailBuffer{},
		width:  width,
		height: height,
	}
}

// --- Test 1: Frame framing ---

// TestReadFrameSequence validates fixed-size frame extraction.
//
// Contract:
//   - each read returns exactly width*height*3 bytes
//   - frames are numbered from 1 in stream order
//   - a stream ending on a frame boundary yields (nil, nil)
func TestReadFrameSequence(t *testing.T) {
	const w, h = 4, 2
	size := w * h * 3

	stream := make([]byte, 3*size)
	for i := range stream {
		stream[i] = byte(i / size) // frame n is filled with n-1
	}

	d := memDecoder(w, h, stream)
	for want := uint64(1); want <= 3; want++ {
		frame, err := d.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: ReadFrame() failed: %v", want, err)
		}
		if frame.Seq != want {
			t.Errorf("frame seq: got %d, want %d", frame.Seq, want)
		}
		if len(frame.Data) != size {
			t.Errorf("frame %d: got %d bytes, want %d", want, len(frame.Data), size)
		}
		if frame.Data[0] != byte(want-1) {
			t.Errorf("frame %d: wrong payload byte %d", want, frame.Data[0])
		}
		if frame.TraceID == "" {
			t.Errorf("frame %d: missing trace id", want)
		}
	}

	frame, err := d.ReadFrame()
	if frame != nil || err != nil {
		t.Errorf("end of stream: got (%v, %v), want (nil, nil)", frame, err)
	}
}

// --- Test 2: Truncated stream ---

// TestReadFrameTruncated validates mid-frame EOF handling.
//
// Contract:
//   - EOF inside a frame fails with ErrTruncatedStream, not a clean end
//   - the error reports how many bytes arrived
func TestReadFrameTruncated(t *testing.T) {
	d := memDecoder(4, 2, make([]byte, 10)) // frame needs 24 bytes

	_, err := d.ReadFrame()
	if !errors.Is(err, ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
	if !strings.Contains(err.Error(), "10 of 24") {
		t.Errorf("error should report byte counts: %v", err)
	}
}

// --- Test 3: Child process lifecycle ---

// TestDecoderProcess validates spawn, clean shutdown and failure reporting
// against stub child processes.
//
// Contract:
//   - frames stream from the child's stdout; exhaustion then Close is clean
//   - a non-zero exit surfaces an ExitError carrying the stderr tail
//   - a missing binary fails with ErrLaunch
//   - Kill is idempotent and reaps a still-running child
func TestDecoderProcess(t *testing.T) {
	origBin := FFmpegBin
	defer func() { FFmpegBin = origBin }()

	// Child emits exactly two 2x1 frames (6 bytes each) and exits cleanly.
	FFmpegBin = writeStub(t, "decode-ok", `head -c 12 /dev/zero`)
	d, err := StartDecoder("input.mp4", 2, 1, false)
	if err != nil {
		t.Fatalf("StartDecoder() failed: %v", err)
	}
	for i := 1; i <= 2; i++ {
		if frame, err := d.ReadFrame(); err != nil || frame == nil {
			t.Fatalf("frame %d: got (%v, %v)", i, frame, err)
		}
	}
	if frame, err := d.ReadFrame(); frame != nil || err != nil {
		t.Fatalf("end of stream: got (%v, %v)", frame, err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("clean exit should close without error: %v", err)
	}

	// Child dies with diagnostics on stderr.
	FFmpegBin = writeStub(t, "decode-fail", `echo 'input.mp4: No such file or directory' >&2; exit 1`)
	d, err = StartDecoder("input.mp4", 2, 1, false)
	if err != nil {
		t.Fatalf("StartDecoder() failed: %v", err)
	}
	if frame, err := d.ReadFrame(); frame != nil || err != nil {
		t.Fatalf("failed child stream: got (%v, %v)", frame, err)
	}
	var exitErr *ExitError
	if err := d.Close(); !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if !strings.Contains(exitErr.Stderr, "No such file") {
		t.Errorf("ExitError should carry the stderr tail: %q", exitErr.Stderr)
	}

	// Binary does not exist at all.
	FFmpegBin = "/nonexistent/ffmpeg"
	if _, err := StartDecoder("input.mp4", 2, 1, false); !errors.Is(err, ErrLaunch) {
		t.Errorf("expected ErrLaunch for missing binary, got %v", err)
	}

	// Kill reaps a child that would otherwise run forever.
	FFmpegBin = writeStub(t, "decode-hang", `sleep 60`)
	d, err = StartDecoder("input.mp4", 2, 1, false)
	if err != nil {
		t.Fatalf("StartDecoder() failed: %v", err)
	}
	d.Kill()
	d.Kill() // second call must be a no-op
}
