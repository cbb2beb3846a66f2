package core

import (
	"context"

	"github.com/wep21/sam3-camera-detector/internal/camera"
	"github.com/wep21/sam3-camera-detector/internal/types"
)

// cameraSource adapts a push-style capture provider to the pull-based loop.
type cameraSource struct {
	ctx    context.Context
	frames <-chan *types.Frame
}

// CameraSource wraps a started capture provider as a FrameSource. The
// source ends cleanly when the provider's channel closes or the context is
// cancelled.
func CameraSource(ctx context.Context, p camera.Provider) FrameSource {
	return &cameraSource{ctx: ctx, frames: p.Frames()}
}

func (s *cameraSource) ReadFrame() (*types.Frame, error) {
	select {
	case frame, ok := <-s.frames:
		if !ok {
			return nil, nil
		}
		return frame, nil
	case <-s.ctx.Done():
		return nil, nil
	}
}
