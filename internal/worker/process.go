package worker

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wep21/sam3-camera-detector/internal/config"
	"github.com/wep21/sam3-camera-detector/internal/types"
)

// stopGrace is how long Close waits for the runner to exit before killing it.
const stopGrace = 2 * time.Second

// request is one frame sent to the runner. Raw bytes travel as-is; msgpack
// handles binary natively, so there is no base64 overhead.
type request struct {
	FrameData []byte         `msgpack:"frame_data"`
	Width     int            `msgpack:"width"`
	Height    int            `msgpack:"height"`
	Prompts   []types.Prompt `msgpack:"prompts"`
	Meta      requestMeta    `msgpack:"meta"`
}

type requestMeta struct {
	Seq       uint64 `msgpack:"seq"`
	TraceID   string `msgpack:"trace_id"`
	Timestamp string `msgpack:"timestamp"`
}

// response is one inference result read back from the runner.
type response struct {
	Segmentations []types.Segmentation `msgpack:"segmentations"`
	TimingMS      float64              `msgpack:"timing_ms"`
	Error         string               `msgpack:"error,omitempty"`
}

// ProcessSegmenter wraps the model runner subprocess. Messages in both
// directions are msgpack blobs framed with a 4-byte big-endian length
// prefix, so each side can find message boundaries in the byte stream.
type ProcessSegmenter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	done   chan struct{}
}

// NewProcessSegmenter spawns the runner configured in cfg and waits for it
// to accept frames. The runner's stderr is forwarded to the process log.
func NewProcessSegmenter(cfg config.ModelConfig) (*ProcessSegmenter, error) {
	args := []string{
		"--device", cfg.Device,
		"--dtype", cfg.DType,
		"--confidence", fmt.Sprintf("%.2f", cfg.Confidence),
	}
	if cfg.Path != "" {
		args = append(args, "--model", cfg.Path)
	}

	cmd := exec.Command(cfg.Runner, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("runner stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("runner stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("runner stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start model runner %s: %w", cfg.Runner, err)
	}

	slog.Info("model runner started",
		"runner", cfg.Runner,
		"model", cfg.Path,
		"device", cfg.Device,
		"dtype", cfg.DType,
		"confidence", cfg.Confidence,
		"pid", cmd.Process.Pid,
	)

	w := &ProcessSegmenter{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		done:   make(chan struct{}),
	}

	go w.logStderr(stderr)
	go w.waitProcess()

	return w, nil
}

// Infer sends one frame and blocks for its result. The driver never issues
// overlapping calls, so request/response pairing is positional.
func (w *ProcessSegmenter) Infer(frame *types.Frame, prompts []types.Prompt) (*types.Result, error) {
	req := request{
		FrameData: frame.Data,
		Width:     frame.Width,
		Height:    frame.Height,
		Prompts:   prompts,
		Meta: requestMeta{
			Seq:       frame.Seq,
			TraceID:   frame.TraceID,
			Timestamp: frame.Timestamp.Format(time.RFC3339Nano),
		},
	}

	payload, err := msgpack.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("marshal inference request: %w", err)
	}
	if err := writeFramed(w.stdin, payload); err != nil {
		return nil, fmt.Errorf("send frame %d to model runner: %w", frame.Seq, err)
	}

	raw, err := readFramed(w.stdout)
	if err != nil {
		return nil, fmt.Errorf("read result for frame %d: %w", frame.Seq, err)
	}

	var resp response
	if err := msgpack.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal inference result: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("model runner: %s", resp.Error)
	}

	for i := range resp.Segmentations {
		resp.Segmentations[i].Box.Clamp(frame.Width, frame.Height)
	}

	return &types.Result{
		FrameSeq:      frame.Seq,
		TraceID:       frame.TraceID,
		Timestamp:     time.Now(),
		Segmentations: resp.Segmentations,
		TimingMS:      resp.TimingMS,
	}, nil
}

// Close signals end-of-input and waits for the runner, killing it after the
// grace period. Safe to call after the runner already exited.
func (w *ProcessSegmenter) Close() error {
	_ = w.stdin.Close()

	select {
	case <-w.done:
		return nil
	case <-time.After(stopGrace):
	}

	slog.Warn("model runner did not exit, killing", "pid", w.cmd.Process.Pid)
	_ = w.cmd.Process.Kill()
	<-w.done
	return nil
}

// logStderr maps the runner's log lines onto slog levels.
func (w *ProcessSegmenter) logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "[ERROR]") || strings.Contains(line, "[CRITICAL]"):
			slog.Error("model runner", "output", line)
		case strings.Contains(line, "[WARNING]") || strings.Contains(line, "[WARN]"):
			slog.Warn("model runner", "output", line)
		default:
			slog.Debug("model runner", "output", line)
		}
	}
}

// waitProcess reaps the runner so it never lingers as a zombie.
func (w *ProcessSegmenter) waitProcess() {
	err := w.cmd.Wait()
	if err != nil {
		slog.Debug("model runner exited", "error", err)
	}
	close(w.done)
}

func writeFramed(dst io.Writer, payload []byte) error {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := dst.Write(prefix[:]); err != nil {
		return err
	}
	_, err := dst.Write(payload)
	return err
}

func readFramed(src io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(src, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("model runner closed its output")
		}
		return nil, err
	}
	payload := make([]byte, binary.BigEndian.Uint32(prefix[:]))
	if _, err := io.ReadFull(src, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
