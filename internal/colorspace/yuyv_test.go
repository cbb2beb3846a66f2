package colorspace_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wep21/sam3-camera-detector/internal/colorspace"
	"github.com/wep21/sam3-camera-detector/internal/types"
)

// --- Test 1: Reference black point ---

// TestBlackMacropixel validates the BT.601 integer transform at the black
// point.
//
// Contract:
//   - macropixel (Y=16, U=128, Y=16, V=128) → RGB (0,0,0) for both pixels
func TestBlackMacropixel(t *testing.T) {
	rgb, err := colorspace.YUYVToRGB(2, 1, []byte{16, 128, 16, 128})
	if err != nil {
		t.Fatalf("YUYVToRGB() failed: %v", err)
	}
	want := []byte{0, 0, 0, 0, 0, 0}
	if !bytes.Equal(rgb, want) {
		t.Errorf("black macropixel: got %v, want %v", rgb, want)
	}
}

// --- Test 2: Reference white point ---

// TestWhiteMacropixel validates saturation at the white point.
//
// Contract:
//   - macropixel (Y=235, U=128, Y=235, V=128) → RGB (255,255,255) for both
//     pixels (298*219+128 >> 8 = 255 exactly, clamp not even needed)
func TestWhiteMacropixel(t *testing.T) {
	rgb, err := colorspace.YUYVToRGB(2, 1, []byte{235, 128, 235, 128})
	if err != nil {
		t.Fatalf("YUYVToRGB() failed: %v", err)
	}
	for i, v := range rgb {
		if v != 255 {
			t.Errorf("white macropixel: channel %d = %d, want 255", i, v)
		}
	}
}

// --- Test 3: Clamping ---

// TestClampSaturation validates that out-of-range intermediate values
// saturate to [0,255] rather than wrapping.
func TestClampSaturation(t *testing.T) {
	// Max luma on pixel 0 drives R above 255; min luma on pixel 1 with the
	// same extreme chroma drives B below 0.
	rgb, err := colorspace.YUYVToRGB(2, 1, []byte{255, 0, 16, 255})
	if err != nil {
		t.Fatalf("YUYVToRGB() failed: %v", err)
	}
	if rgb[0] != 255 {
		t.Errorf("R should saturate high: got %d", rgb[0])
	}
	if rgb[5] != 0 {
		t.Errorf("B should saturate low: got %d", rgb[5])
	}
}

// --- Test 4: Output sizing ---

// TestOutputLength validates the frame-buffer invariant.
//
// Contract:
//   - for all width,height > 0: len(output) == width*height*3
func TestOutputLength(t *testing.T) {
	cases := []struct{ w, h int }{
		{2, 1}, {4, 4}, {640, 480}, {1280, 720},
	}
	for _, c := range cases {
		yuyv := make([]byte, c.w*c.h*2)
		rgb, err := colorspace.YUYVToRGB(c.w, c.h, yuyv)
		if err != nil {
			t.Fatalf("YUYVToRGB(%dx%d) failed: %v", c.w, c.h, err)
		}
		if len(rgb) != c.w*c.h*3 {
			t.Errorf("%dx%d: got %d bytes, want %d", c.w, c.h, len(rgb), c.w*c.h*3)
		}
	}
}

// --- Test 5: Short input ---

// TestShortBuffer validates the size check.
//
// Contract:
//   - input shorter than width*height*2 fails with ErrShortBuffer carrying
//     both the actual and expected sizes
func TestShortBuffer(t *testing.T) {
	_, err := colorspace.YUYVToRGB(640, 480, make([]byte, 10))
	if err == nil {
		t.Fatal("expected error for short buffer, got nil")
	}

	var sizeErr *colorspace.ErrShortBuffer
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected *ErrShortBuffer, got %T: %v", err, err)
	}
	if sizeErr.Got != 10 || sizeErr.Expected != 640*480*2 {
		t.Errorf("ErrShortBuffer fields: got=%d expected=%d", sizeErr.Got, sizeErr.Expected)
	}
}

// --- Test 6: Frame wrapper ---

// TestFrameFromYUYV validates the Frame invariant on the conversion path.
func TestFrameFromYUYV(t *testing.T) {
	frame, err := colorspace.FrameFromYUYV(4, 2, make([]byte, 4*2*2))
	if err != nil {
		t.Fatalf("FrameFromYUYV() failed: %v", err)
	}
	if frame.Width != 4 || frame.Height != 2 {
		t.Errorf("frame dimensions: got %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Data) != types.FrameSize(4, 2) {
		t.Errorf("frame buffer: got %d bytes, want %d", len(frame.Data), types.FrameSize(4, 2))
	}
}
