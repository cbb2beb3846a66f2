// Package cadence decides when inference runs and which frame is shown on
// the iterations in between.
package cadence

import "github.com/wep21/sam3-camera-detector/internal/types"

// ShouldInfer reports whether inference runs for the 1-based frame index
// with the configured interval. An interval of 0 disables inference.
func ShouldInfer(frameIdx uint64, every uint) bool {
	return every > 0 && frameIdx%uint64(every) == 0
}

// Keeper holds the most recent annotated frame so cadence-skip iterations
// can keep showing it.
type Keeper struct {
	last *types.Frame
}

// Update records a freshly annotated frame.
func (k *Keeper) Update(annotated *types.Frame) {
	k.last = annotated
}

// Pick returns the frame to display for this iteration: the last annotated
// frame when one exists, otherwise the raw input. The first interval of a
// stream therefore shows unannotated frames.
func (k *Keeper) Pick(raw *types.Frame) *types.Frame {
	if k.last != nil {
		return k.last
	}
	return raw
}

// Last returns the most recent annotated frame, or nil.
func (k *Keeper) Last() *types.Frame {
	return k.last
}
