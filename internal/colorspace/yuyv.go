// Package colorspace converts packed camera pixel formats to the
// interleaved RGB24 layout the rest of the pipeline works in.
package colorspace

import (
	"fmt"

	"github.com/wep21/sam3-camera-detector/internal/types"
)

// ErrShortBuffer reports a source buffer smaller than the declared frame
// dimensions require.
type ErrShortBuffer struct {
	Got      int
	Expected int
}

func (e *ErrShortBuffer) Error() string {
	return fmt.Sprintf("yuyv buffer too small: got %d, expected %d", e.Got, e.Expected)
}

// YUYVToRGB converts a packed 4:2:2 YUYV buffer to interleaved RGB24.
//
// Each 4-byte macropixel (Y0,U,Y1,V) yields two RGB pixels sharing the
// chroma pair. The conversion is the integer BT.601 transform with a +128
// rounding bias before the 8-bit shift; downstream consumers depend on the
// exact output bytes, so the constants and clamp order are fixed.
func YUYVToRGB(width, height int, yuyv []byte) ([]byte, error) {
	expected := width * height * 2
	if len(yuyv) < expected {
		return nil, &ErrShortBuffer{Got: len(yuyv), Expected: expected}
	}

	rgb := make([]byte, types.FrameSize(width, height))
	di := 0

	for si := 0; si+3 < expected; si += 4 {
		y0 := int(yuyv[si])
		u := int(yuyv[si+1])
		y1 := int(yuyv[si+2])
		v := int(yuyv[si+3])

		d := u - 128
		e := v - 128

		for _, y := range [2]int{y0, y1} {
			c := y - 16

			r := (298*c + 409*e + 128) >> 8
			g := (298*c - 100*d - 208*e + 128) >> 8
			b := (298*c + 516*d + 128) >> 8

			rgb[di] = clamp8(r)
			rgb[di+1] = clamp8(g)
			rgb[di+2] = clamp8(b)
			di += 3
		}
	}

	return rgb, nil
}

// FrameFromYUYV converts and wraps the result as a Frame.
func FrameFromYUYV(width, height int, yuyv []byte) (*types.Frame, error) {
	rgb, err := YUYVToRGB(width, height, yuyv)
	if err != nil {
		return nil, err
	}
	return types.NewFrame(width, height, rgb)
}

func clamp8(x int) byte {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}
