package core

import (
	"context"
	"testing"

	"github.com/wep21/sam3-camera-detector/internal/camera"
	"github.com/wep21/sam3-camera-detector/internal/types"
)

// fakeProvider satisfies camera.Provider over a plain channel.
type fakeProvider struct {
	frames chan *types.Frame
}

func (p *fakeProvider) Start(ctx context.Context) error { return nil }
func (p *fakeProvider) Frames() <-chan *types.Frame     { return p.frames }
func (p *fakeProvider) Stop() error                     { return nil }
func (p *fakeProvider) Stats() camera.Stats             { return camera.Stats{} }

// TestCameraSource validates the push-to-pull adaptation.
//
// Contract:
//   - frames arrive in channel order
//   - a closed channel is a clean end of stream
//   - cancellation ends the stream even while blocked on an empty channel
func TestCameraSource(t *testing.T) {
	ch := make(chan *types.Frame, 2)
	ch <- &types.Frame{Seq: 1}
	ch <- &types.Frame{Seq: 2}
	close(ch)

	src := CameraSource(context.Background(), &fakeProvider{frames: ch})
	for want := uint64(1); want <= 2; want++ {
		frame, err := src.ReadFrame()
		if err != nil || frame == nil {
			t.Fatalf("frame %d: got (%v, %v)", want, frame, err)
		}
		if frame.Seq != want {
			t.Errorf("seq: got %d, want %d", frame.Seq, want)
		}
	}
	if frame, err := src.ReadFrame(); frame != nil || err != nil {
		t.Errorf("closed channel: got (%v, %v), want (nil, nil)", frame, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src = CameraSource(ctx, &fakeProvider{frames: make(chan *types.Frame)})
	if frame, err := src.ReadFrame(); frame != nil || err != nil {
		t.Errorf("cancelled context: got (%v, %v), want (nil, nil)", frame, err)
	}
}
