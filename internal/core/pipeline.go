// Package core drives the per-frame processing loop.
//
// Exactly one logical thread executes the loop; the decode and encode
// subprocesses run concurrently as separate OS processes behind pipes, so
// parallelism comes for free and backpressure comes from the pipes. Frames
// move strictly in order: frame n is read, processed and forwarded before
// frame n+1 is read.
package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/wep21/sam3-camera-detector/internal/annotate"
	"github.com/wep21/sam3-camera-detector/internal/cadence"
	"github.com/wep21/sam3-camera-detector/internal/display"
	"github.com/wep21/sam3-camera-detector/internal/progress"
	"github.com/wep21/sam3-camera-detector/internal/types"
	"github.com/wep21/sam3-camera-detector/internal/worker"
)

// FrameSource produces frames in order. ReadFrame blocks for the next
// frame and returns (nil, nil) on a clean end of stream.
type FrameSource interface {
	ReadFrame() (*types.Frame, error)
}

// FrameSink consumes frames in order. Write failures are fatal.
type FrameSink interface {
	WriteFrame(*types.Frame) error
}

// Viewer is the interactive display collaborator.
type Viewer interface {
	Closed() bool
	Show(*types.Frame) error
	Poll(delayMS int) display.Action
	Save(*types.Frame) (string, error)
}

// ResultEmitter receives inference results as they are produced.
type ResultEmitter interface {
	Publish(*types.Result) error
}

// Pipeline composes a source, the inference collaborators and the sinks
// into the per-frame loop.
type Pipeline struct {
	Source    FrameSource
	Segmenter worker.Segmenter // nil disables inference
	Annotator *annotate.Annotator
	Prompts   []types.Prompt
	// InferEvery runs inference once per N frames; 0 disables it.
	InferEvery uint

	Encoder  FrameSink          // optional
	Window   Viewer             // optional
	Emitter  ResultEmitter      // optional
	Progress *progress.Reporter // optional
	// DelayMS is the window poll delay per iteration (playback pacing).
	DelayMS int
	// PromptInput feeds interactive prompt updates; defaults to stdin.
	PromptInput io.Reader

	keeper       cadence.Keeper
	frameIdx     uint64
	stoppedEarly bool
	promptReader *bufio.Reader
}

// Run executes the loop until the source is exhausted, the window is
// closed, a quit control arrives or the context is cancelled. Cancellation
// is cooperative: checked once per iteration, never pre-empting a blocking
// pipe read or write.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			p.stoppedEarly = true
			return nil
		}

		frame, err := p.Source.ReadFrame()
		if err != nil {
			return err
		}
		if frame == nil {
			return nil
		}

		p.frameIdx++
		if p.Progress != nil {
			p.Progress.Update(p.frameIdx)
		}

		if cadence.ShouldInfer(p.frameIdx, p.InferEvery) && p.Segmenter != nil {
			res, err := p.Segmenter.Infer(frame, p.Prompts)
			if err != nil {
				return fmt.Errorf("inference on frame %d: %w", p.frameIdx, err)
			}
			p.keeper.Update(p.Annotator.Annotate(frame, res))

			if p.Emitter != nil {
				if err := p.Emitter.Publish(res); err != nil {
					slog.Warn("result emission failed", "frame", p.frameIdx, "error", err)
				}
			}
		}

		shown := p.keeper.Pick(frame)

		if p.Encoder != nil {
			if err := p.Encoder.WriteFrame(shown); err != nil {
				return err
			}
		}

		if p.Window != nil {
			if p.Window.Closed() {
				p.stoppedEarly = true
				return nil
			}
			if err := p.Window.Show(shown); err != nil {
				return err
			}
			switch p.Window.Poll(p.DelayMS) {
			case display.ActionQuit:
				p.stoppedEarly = true
				return nil
			case display.ActionSave:
				if last := p.keeper.Last(); last != nil {
					if _, err := p.Window.Save(last); err != nil {
						slog.Warn("frame save failed", "error", err)
					}
				}
			case display.ActionUpdatePrompts:
				p.updatePrompts()
			}
		}
	}
}

// StoppedEarly reports whether the loop ended before source exhaustion
// (quit control, closed window or cancellation). The caller kills the
// decoder in that case instead of draining it.
func (p *Pipeline) StoppedEarly() bool {
	return p.stoppedEarly
}

// Frames returns how many frames the loop has processed.
func (p *Pipeline) Frames() uint64 {
	return p.frameIdx
}

// updatePrompts reads a `|`-separated prompt line from PromptInput.
// An empty line keeps the current set; a malformed line is reported and
// ignored.
func (p *Pipeline) updatePrompts() {
	if p.promptReader == nil {
		in := p.PromptInput
		if in == nil {
			in = os.Stdin
		}
		p.promptReader = bufio.NewReader(in)
	}

	fmt.Fprint(os.Stderr, "New prompt(s) (split with `|`, empty keeps current): ")
	line, err := p.promptReader.ReadString('\n')
	if err != nil && line == "" {
		slog.Warn("failed to read prompt update", "error", err)
		return
	}

	prompts, err := types.ParsePromptLine(line)
	if err != nil {
		slog.Warn("invalid prompt update", "error", err)
		return
	}
	if prompts == nil {
		return
	}

	p.Prompts = prompts
	slog.Info("prompts updated", "prompts", fmt.Sprintf("%v", prompts))
}
