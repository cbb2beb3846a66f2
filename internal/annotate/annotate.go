// Package annotate draws segmentation results onto raw RGB24 frames.
package annotate

import (
	"github.com/wep21/sam3-camera-detector/internal/types"
)

// palette cycles per segmentation index.
var palette = [][3]byte{
	{57, 255, 20},  // green
	{255, 64, 64},  // red
	{64, 160, 255}, // blue
	{255, 200, 0},  // amber
	{200, 64, 255}, // violet
	{0, 255, 220},  // cyan
}

// maskAlpha blends the mask overlay over the source pixel, out of 256.
const maskAlpha = 112

// Annotator renders boxes and optional mask overlays.
type Annotator struct {
	// Thickness of box outlines in pixels.
	Thickness int
	// ShowMask tints mask pixels with the segmentation color.
	ShowMask bool
}

// New returns an annotator with the default 2-pixel outline.
func New(showMask bool) *Annotator {
	return &Annotator{Thickness: 2, ShowMask: showMask}
}

// Annotate returns a copy of the frame with the result drawn on. The input
// frame is treated as read-only; raw frames keep flowing to sinks untouched
// on cadence-skip iterations.
func (a *Annotator) Annotate(frame *types.Frame, res *types.Result) *types.Frame {
	out := frame.Clone()
	if res == nil {
		return out
	}
	for i, seg := range res.Segmentations {
		color := palette[i%len(palette)]
		if a.ShowMask && len(seg.Mask) == frame.Width*frame.Height {
			overlayMask(out, seg.Mask, color)
		}
		box := seg.Box
		box.Clamp(out.Width, out.Height)
		drawRect(out, box, color, a.thickness())
	}
	return out
}

func (a *Annotator) thickness() int {
	if a.Thickness <= 0 {
		return 2
	}
	return a.Thickness
}

func overlayMask(f *types.Frame, mask []byte, color [3]byte) {
	for i, m := range mask {
		if m == 0 {
			continue
		}
		o := i * types.BytesPerPixel
		for c := 0; c < 3; c++ {
			src := int(f.Data[o+c])
			f.Data[o+c] = byte((src*(256-maskAlpha) + int(color[c])*maskAlpha) >> 8)
		}
	}
}

func drawRect(f *types.Frame, r types.PixelRect, color [3]byte, thickness int) {
	x1, y1 := r.X, r.Y
	x2, y2 := r.X+r.Width-1, r.Y+r.Height-1
	for t := 0; t < thickness; t++ {
		drawHLine(f, x1, x2, y1+t, color)
		drawHLine(f, x1, x2, y2-t, color)
		drawVLine(f, y1, y2, x1+t, color)
		drawVLine(f, y1, y2, x2-t, color)
	}
}

func drawHLine(f *types.Frame, x1, x2, y int, color [3]byte) {
	if y < 0 || y >= f.Height {
		return
	}
	for x := max(x1, 0); x <= min(x2, f.Width-1); x++ {
		setPixel(f, x, y, color)
	}
}

func drawVLine(f *types.Frame, y1, y2, x int, color [3]byte) {
	if x < 0 || x >= f.Width {
		return
	}
	for y := max(y1, 0); y <= min(y2, f.Height-1); y++ {
		setPixel(f, x, y, color)
	}
}

func setPixel(f *types.Frame, x, y int, color [3]byte) {
	o := (y*f.Width + x) * types.BytesPerPixel
	f.Data[o] = color[0]
	f.Data[o+1] = color[1]
	f.Data[o+2] = color[2]
}
