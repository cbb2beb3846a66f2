package camera

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wep21/sam3-camera-detector/internal/types"
)

// MockCamera generates synthetic gradient frames for tests and dry runs.
type MockCamera struct {
	width  int
	height int
	fps    int
	limit  uint64 // 0 = unlimited

	frames chan *types.Frame
	wg     sync.WaitGroup

	mu      sync.Mutex
	cancel  context.CancelFunc
	seq     uint64
	dropped uint64
}

// NewMockCamera creates a synthetic camera. limit bounds the number of
// frames emitted; 0 streams until Stop.
func NewMockCamera(width, height, fps int, limit uint64) *MockCamera {
	return &MockCamera{
		width:  width,
		height: height,
		fps:    fps,
		limit:  limit,
		frames: make(chan *types.Frame, 4),
	}
}

// Start begins generating frames.
func (m *MockCamera) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return fmt.Errorf("camera already started")
	}
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.generate(ctx)
	return nil
}

func (m *MockCamera) generate(ctx context.Context) {
	defer m.wg.Done()
	defer close(m.frames)

	interval := time.Second / time.Duration(max(m.fps, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq := atomic.AddUint64(&m.seq, 1)
			if m.limit > 0 && seq > m.limit {
				return
			}
			frame := m.synthesize(seq)
			select {
			case m.frames <- frame:
			default:
				atomic.AddUint64(&m.dropped, 1)
			}
		}
	}
}

// synthesize builds a moving diagonal gradient so consecutive frames differ.
func (m *MockCamera) synthesize(seq uint64) *types.Frame {
	data := make([]byte, types.FrameSize(m.width, m.height))
	shift := int(seq)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			o := (y*m.width + x) * types.BytesPerPixel
			data[o] = byte(x + shift)
			data[o+1] = byte(y + shift)
			data[o+2] = byte(x + y)
		}
	}
	return &types.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     m.width,
		Height:    m.height,
		Data:      data,
		TraceID:   uuid.New().String(),
	}
}

// Frames returns the synthetic frame channel.
func (m *MockCamera) Frames() <-chan *types.Frame {
	return m.frames
}

// Stop halts generation. Idempotent.
func (m *MockCamera) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	m.cancel = nil
	m.wg.Wait()
	return nil
}

// Stats returns generation counters.
func (m *MockCamera) Stats() Stats {
	count := atomic.LoadUint64(&m.seq)
	return Stats{
		FrameCount: count,
		Dropped:    atomic.LoadUint64(&m.dropped),
		BytesRead:  count * uint64(types.FrameSize(m.width, m.height)),
	}
}
