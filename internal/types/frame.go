package types

import (
	"fmt"
	"time"
)

// BytesPerPixel is the size of one interleaved RGB sample.
const BytesPerPixel = 3

// Frame is a single uncompressed video frame: tightly packed, row-major,
// interleaved 8-bit RGB. Every frame exchanged with the decode/encode
// subprocesses has exactly Width*Height*3 bytes; that layout is the wire
// contract with both of them.
type Frame struct {
	// Seq is the monotonic sequence number assigned by the source.
	Seq uint64
	// Timestamp is when the frame was captured or decoded.
	Timestamp time.Time
	// Width in pixels.
	Width int
	// Height in pixels.
	Height int
	// Data holds the raw RGB24 samples, len == Width*Height*3.
	Data []byte
	// TraceID identifies the frame across the pipeline.
	TraceID string
}

// FrameSize returns the byte length of a packed RGB24 frame.
func FrameSize(width, height int) int {
	return width * height * BytesPerPixel
}

// NewFrame wraps data as a frame, rejecting buffers that do not match the
// packed RGB24 layout.
func NewFrame(width, height int, data []byte) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions: %dx%d", width, height)
	}
	if len(data) != FrameSize(width, height) {
		return nil, fmt.Errorf("frame buffer size mismatch: got %d, expected %d", len(data), FrameSize(width, height))
	}
	return &Frame{
		Timestamp: time.Now(),
		Width:     width,
		Height:    height,
		Data:      data,
	}, nil
}

// Size returns the expected byte length of the frame's buffer.
func (f *Frame) Size() int {
	return FrameSize(f.Width, f.Height)
}

// Clone returns a deep copy of the frame. Sources hand out frames under an
// immutability contract, so anything that draws on a frame copies it first.
func (f *Frame) Clone() *Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	c := *f
	c.Data = data
	return &c
}

// VideoInfo describes a video source, probed once at startup.
type VideoInfo struct {
	Width  int
	Height int
	FPS    float64
}

// DefaultFPS is assumed whenever the source does not report a frame rate.
const DefaultFPS = 30.0

// PixelRect is a rectangle in pixel coordinates.
type PixelRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the pixel area of the rectangle.
func (r *PixelRect) Area() int {
	return r.Width * r.Height
}

// Clamp shrinks the rectangle so it lies within the given frame dimensions.
func (r *PixelRect) Clamp(frameWidth, frameHeight int) {
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.X+r.Width > frameWidth {
		r.Width = frameWidth - r.X
	}
	if r.Y+r.Height > frameHeight {
		r.Height = frameHeight - r.Y
	}
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
}
