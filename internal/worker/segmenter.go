// Package worker runs the segmentation model in an external runner process
// and exchanges frames/results with it over stdin/stdout.
package worker

import (
	"github.com/wep21/sam3-camera-detector/internal/types"
)

// Segmenter produces segmentations for a frame given the active prompts.
// Implementations are invoked synchronously from the pipeline driver; there
// is never more than one inference in flight.
type Segmenter interface {
	Infer(frame *types.Frame, prompts []types.Prompt) (*types.Result, error)
	Close() error
}
