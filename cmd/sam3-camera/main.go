// Command sam3-camera runs prompted segmentation on a live V4L2 camera.
//
// Frames are captured as packed YUYV, converted to RGB24 in-process, and
// shown in a display window with the usual keyboard controls.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wep21/sam3-camera-detector/internal/annotate"
	"github.com/wep21/sam3-camera-detector/internal/camera"
	"github.com/wep21/sam3-camera-detector/internal/config"
	"github.com/wep21/sam3-camera-detector/internal/core"
	"github.com/wep21/sam3-camera-detector/internal/display"
	"github.com/wep21/sam3-camera-detector/internal/emitter"
	"github.com/wep21/sam3-camera-detector/internal/types"
	"github.com/wep21/sam3-camera-detector/internal/worker"
)

type promptList []string

func (p *promptList) String() string { return strings.Join(*p, "|") }

func (p *promptList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var prompts promptList
	configPath := flag.String("config", "", "path to YAML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	device := flag.String("device", "/dev/video0", "V4L2 capture device")
	width := flag.Int("width", 640, "capture width (best-effort)")
	height := flag.Int("height", 480, "capture height (best-effort)")
	inferEvery := flag.Uint("infer-every", 3, "run inference every N frames (0 disables)")
	conf := flag.Float64("conf", 0.5, "confidence threshold")
	showMask := flag.Bool("show-mask", false, "overlay segmentation masks")
	saveDir := flag.String("save-dir", "runs", "directory for interactively saved frames")
	mock := flag.Bool("mock", false, "use a synthetic camera (no device required)")
	flag.Parse()

	setupLogging(*debug)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("configuration error", "error", err)
	}
	cfg.Inference.Every = *inferEvery
	cfg.Inference.ShowMask = *showMask
	cfg.Inference.SaveDir = *saveDir
	cfg.Model.Confidence = *conf
	cfg.Camera.Device = *device
	cfg.Camera.Width = *width
	cfg.Camera.Height = *height
	if len(prompts) > 0 {
		cfg.Prompts = prompts
	}
	if err := config.Validate(cfg); err != nil {
		fatal("configuration error", "error", err)
	}

	var promptSet []types.Prompt
	if cfg.Inference.Every > 0 {
		promptSet, err = types.ParsePrompts(cfg.Prompts)
		if err != nil {
			fatal("prompt error", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cam camera.Provider
	if *mock {
		cam = camera.NewMockCamera(cfg.Camera.Width, cfg.Camera.Height, 30, 0)
	} else {
		cam, err = camera.NewGstCamera(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height)
		if err != nil {
			fatal("failed to create camera", "error", err)
		}
	}
	if err := cam.Start(ctx); err != nil {
		fatal("failed to start camera", "error", err)
	}
	defer cam.Stop()

	slog.Info("camera format",
		"device", cfg.Camera.Device,
		"resolution", fmt.Sprintf("%dx%d", cfg.Camera.Width, cfg.Camera.Height),
		"mock", *mock,
	)

	win := display.NewWindow("sam3-camera", cfg.Inference.SaveDir)
	defer win.Close()

	pipe := &core.Pipeline{
		Source:     core.CameraSource(ctx, cam),
		Annotator:  annotate.New(cfg.Inference.ShowMask),
		Prompts:    promptSet,
		InferEvery: cfg.Inference.Every,
		Window:     win,
		DelayMS:    1,
	}

	if cfg.Inference.Every > 0 {
		seg, err := worker.NewProcessSegmenter(cfg.Model)
		if err != nil {
			fatal("failed to start model runner", "error", err)
		}
		defer seg.Close()
		pipe.Segmenter = seg
	}

	if cfg.MQTT.Broker != "" {
		em := emitter.NewMQTTEmitter(cfg.MQTT)
		if err := em.Connect(); err != nil {
			fatal("failed to connect mqtt", "error", err)
		}
		defer em.Disconnect()
		pipe.Emitter = em
	}

	slog.Info("controls: ESC/q quit, p update prompt, s save frame")

	if err := pipe.Run(ctx); err != nil {
		fatal("pipeline failed", "error", err)
	}

	stats := cam.Stats()
	slog.Info("done",
		"frames", pipe.Frames(),
		"captured", stats.FrameCount,
		"dropped", stats.Dropped,
	)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
