// Package camera acquires live frames from a local capture device.
package camera

import (
	"context"

	"github.com/wep21/sam3-camera-detector/internal/types"
)

// Provider is the contract for live frame acquisition.
//
// Implementations must guarantee:
//   - Start() returns immediately; frames arrive asynchronously
//   - the frame channel stays open until Stop()
//   - sends are non-blocking: when the consumer lags, frames are dropped
//     rather than queued (latency over completeness)
//   - Stop() is idempotent
type Provider interface {
	Start(ctx context.Context) error
	Frames() <-chan *types.Frame
	Stop() error
	Stats() Stats
}

// Stats is a snapshot of capture counters.
type Stats struct {
	FrameCount uint64
	Dropped    uint64
	BytesRead  uint64
}
