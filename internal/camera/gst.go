package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/wep21/sam3-camera-detector/internal/colorspace"
	"github.com/wep21/sam3-camera-detector/internal/types"
)

// GstCamera captures YUYV frames from a V4L2 device through a GStreamer
// pipeline and publishes them converted to RGB24. The chroma conversion is
// done in Go (colorspace package) so the exact BT.601 integer transform is
// applied, not whatever videoconvert negotiates.
type GstCamera struct {
	device string
	width  int
	height int

	pipeline *gst.Pipeline

	frames chan *types.Frame
	mu     sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	frameCount uint64
	dropped    uint64
	bytesRead  uint64
	seq        uint64
}

// NewGstCamera creates a camera for the given device path, requesting the
// target capture resolution (the driver may negotiate it down).
func NewGstCamera(device string, width, height int) (*GstCamera, error) {
	if device == "" {
		return nil, fmt.Errorf("camera device is required")
	}
	if width <= 0 || height <= 0 || width%2 != 0 {
		return nil, fmt.Errorf("invalid capture resolution: %dx%d", width, height)
	}
	return &GstCamera{
		device: device,
		width:  width,
		height: height,
		frames: make(chan *types.Frame, 4),
	}, nil
}

// Start builds the pipeline and begins capture.
func (c *GstCamera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return fmt.Errorf("camera already started")
	}

	gst.Init(nil)
	c.ctx, c.cancel = context.WithCancel(ctx)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	c.pipeline = pipeline

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return fmt.Errorf("failed to create v4l2src: %w", err)
	}
	src.SetProperty("device", c.device)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("failed to create capsfilter: %w", err)
	}
	caps := gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=YUY2,width=%d,height=%d",
		c.width, c.height,
	))
	capsfilter.SetProperty("caps", caps)

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return c.onNewSample(sink)
		},
	})

	pipeline.AddMany(src, capsfilter, appsink.Element)
	gst.ElementLinkMany(src, capsfilter, appsink.Element)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to set pipeline to playing: %w", err)
	}

	c.wg.Add(1)
	go c.watchBus()

	slog.Info("camera capture starting",
		"device", c.device,
		"resolution", fmt.Sprintf("%dx%d", c.width, c.height),
		"format", "YUY2",
	)

	return nil
}

// watchBus drives the pipeline bus until cancellation, EOS or error.
func (c *GstCamera) watchBus() {
	defer c.wg.Done()
	defer close(c.frames)

	bus := c.pipeline.GetPipelineBus()
	for {
		select {
		case <-c.ctx.Done():
			c.pipeline.SetState(gst.StateNull)
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("camera end of stream")
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			slog.Error("camera pipeline error",
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			return
		}
	}
}

// onNewSample converts one YUYV capture buffer and publishes it.
func (c *GstCamera) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowEOS
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowError
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	defer buffer.Unmap()

	if len(data) == 0 {
		return gst.FlowOK
	}

	frame, err := colorspace.FrameFromYUYV(c.width, c.height, data)
	if err != nil {
		slog.Error("camera frame conversion failed", "error", err)
		return gst.FlowError
	}
	frame.Seq = atomic.AddUint64(&c.seq, 1)
	frame.TraceID = uuid.New().String()

	atomic.AddUint64(&c.bytesRead, uint64(len(data)))

	select {
	case c.frames <- frame:
		atomic.AddUint64(&c.frameCount, 1)
	default:
		atomic.AddUint64(&c.dropped, 1)
	}

	return gst.FlowOK
}

// Frames returns the capture channel; closed when the pipeline stops.
func (c *GstCamera) Frames() <-chan *types.Frame {
	return c.frames
}

// Stop shuts down the pipeline, waiting briefly for the bus loop.
func (c *GstCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return nil
	}
	c.cancel()
	c.cancel = nil

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("camera stopped",
			"frames", atomic.LoadUint64(&c.frameCount),
			"dropped", atomic.LoadUint64(&c.dropped),
		)
		return nil
	case <-time.After(3 * time.Second):
		return fmt.Errorf("camera stop timeout")
	}
}

// Stats returns capture counters.
func (c *GstCamera) Stats() Stats {
	return Stats{
		FrameCount: atomic.LoadUint64(&c.frameCount),
		Dropped:    atomic.LoadUint64(&c.dropped),
		BytesRead:  atomic.LoadUint64(&c.bytesRead),
	}
}
