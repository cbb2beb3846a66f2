// Command sam3-video runs prompted segmentation over a video file.
//
// The file is decoded by an external ffmpeg process into raw RGB24 frames,
// inference runs every N frames, and the annotated stream goes to a
// display window or, with -save-video, to a re-encoded H.264 file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wep21/sam3-camera-detector/internal/annotate"
	"github.com/wep21/sam3-camera-detector/internal/config"
	"github.com/wep21/sam3-camera-detector/internal/core"
	"github.com/wep21/sam3-camera-detector/internal/display"
	"github.com/wep21/sam3-camera-detector/internal/emitter"
	"github.com/wep21/sam3-camera-detector/internal/media"
	"github.com/wep21/sam3-camera-detector/internal/progress"
	"github.com/wep21/sam3-camera-detector/internal/types"
	"github.com/wep21/sam3-camera-detector/internal/worker"
)

// promptList collects repeatable -p flags.
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
	width := flag.Int("width", 0, "scale output width (requires -height too)")
	height := flag.Int("height", 0, "scale output height (requires -width too)")
	fpsFlag := flag.Float64("fps", 0, "override playback FPS (default: probed, fallback 30)")
	inferEvery := flag.Uint("infer-every", 3, "run inference every N frames (0 disables)")
	conf := flag.Float64("conf", 0.5, "confidence threshold")
	showMask := flag.Bool("show-mask", false, "overlay segmentation masks")
	saveVideo := flag.String("save-video", "", "write annotated video to path (disables display window)")
	saveDir := flag.String("save-dir", "runs", "directory for interactively saved frames")
	flag.Var(&prompts, "p", `prompt (repeatable): -p shoe or -p "pos:480,290,110,360"`)
	flag.Parse()

	setupLogging(*debug)

	if flag.NArg() != 1 {
		fatal("usage: sam3-video [flags] <input video>")
	}
	input := flag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("configuration error", "error", err)
	}
	cfg.Inference.Every = *inferEvery
	cfg.Inference.ShowMask = *showMask
	cfg.Inference.SaveDir = *saveDir
	cfg.Model.Confidence = *conf
	if len(prompts) > 0 {
		cfg.Prompts = prompts
	}

	var promptSet []types.Prompt
	if cfg.Inference.Every > 0 {
		promptSet, err = types.ParsePrompts(cfg.Prompts)
		if err != nil {
			fatal("prompt error", "error", err)
		}
	}

	probed, err := media.Probe(input)
	if err != nil {
		fatal("failed to probe input", "input", input, "error", err)
	}

	outW, outH, rescale := probed.Width, probed.Height, false
	switch {
	case *width > 0 && *height > 0:
		outW, outH, rescale = *width, *height, true
	case *width > 0 || *height > 0:
		fatal("specify both -width and -height (or neither)")
	}

	fps := probed.FPS
	if *fpsFlag > 0 {
		fps = *fpsFlag
	}
	fps = math.Max(fps, 0.1)
	delayMS := int(math.Round(1000 / fps))
	if delayMS < 1 {
		delayMS = 1
	} else if delayMS > 1000 {
		delayMS = 1000
	}

	slog.Info("video input",
		"path", input,
		"resolution", fmt.Sprintf("%dx%d", outW, outH),
		"fps", fmt.Sprintf("%.3f", fps),
	)

	headless := *saveVideo != ""
	var totalFrames uint64
	if n, ok := media.TotalFrames(input, fps); ok {
		totalFrames = n
		slog.Info("frame estimate", "total", n)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	decoder, err := media.StartDecoder(input, outW, outH, rescale)
	if err != nil {
		fatal("failed to start decoder", "error", err)
	}
	defer decoder.Kill()

	pipe := &core.Pipeline{
		Source:     decoder,
		Annotator:  annotate.New(cfg.Inference.ShowMask),
		Prompts:    promptSet,
		InferEvery: cfg.Inference.Every,
		DelayMS:    delayMS,
		Progress:   progress.New(headless, fps, totalFrames),
	}

	if cfg.Inference.Every > 0 {
		seg, err := worker.NewProcessSegmenter(cfg.Model)
		if err != nil {
			fatal("failed to start model runner", "error", err)
		}
		defer seg.Close()
		pipe.Segmenter = seg
	}

	var encoder *media.Encoder
	if headless {
		encoder, err = media.StartEncoder(*saveVideo, outW, outH, fps)
		if err != nil {
			fatal("failed to start encoder", "error", err)
		}
		defer encoder.Kill()
		pipe.Encoder = encoder
		slog.Info("writing annotated video", "path", *saveVideo)
	} else {
		win := display.NewWindow("sam3-video", cfg.Inference.SaveDir)
		defer win.Close()
		pipe.Window = win
		slog.Info("controls: ESC/q quit, p update prompt, s save frame")
	}

	if cfg.MQTT.Broker != "" {
		em := emitter.NewMQTTEmitter(cfg.MQTT)
		if err := em.Connect(); err != nil {
			fatal("failed to connect mqtt", "error", err)
		}
		defer em.Disconnect()
		pipe.Emitter = em
	}

	runErr := pipe.Run(ctx)

	// The encoder is always finished properly, even after cancellation or
	// an error, so the partially written file stays valid.
	if encoder != nil {
		if err := encoder.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}

	pipe.Progress.Finish(pipe.Frames())

	// A decoder abandoned mid-stream is killed, not drained; only natural
	// exhaustion waits for its exit status.
	if runErr == nil && !pipe.StoppedEarly() {
		runErr = decoder.Close()
	} else {
		decoder.Kill()
	}

	if runErr != nil {
		fatal("pipeline failed", "error", runErr)
	}

	slog.Info("done", "frames", pipe.Frames())
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
