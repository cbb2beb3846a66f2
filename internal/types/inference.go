package types

import (
	"encoding/json"
	"time"
)

// Segmentation is a single detected object: a bounding box, a confidence
// score and an optional per-pixel mask (one byte per pixel, row-major,
// non-zero means "inside the object", same dimensions as the frame).
type Segmentation struct {
	Label      string    `json:"label" msgpack:"label"`
	Confidence float64   `json:"confidence" msgpack:"confidence"`
	Box        PixelRect `json:"box" msgpack:"box"`
	Mask       []byte    `json:"-" msgpack:"mask,omitempty"`
}

// Result is the outcome of one inference invocation on one frame.
type Result struct {
	FrameSeq      uint64         `json:"frame_seq"`
	TraceID       string         `json:"trace_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Segmentations []Segmentation `json:"segmentations"`
	TimingMS      float64        `json:"timing_ms"`
}

// ToJSON serializes the result for emission. Masks are omitted; downstream
// consumers only see boxes and scores.
func (r *Result) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
