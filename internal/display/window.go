// Package display shows annotated frames in a desktop window and turns
// keystrokes into pipeline control actions.
package display

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"github.com/wep21/sam3-camera-detector/internal/types"
)

// Action is a control input polled once per loop iteration.
type Action int

const (
	ActionNone Action = iota
	// ActionQuit ends the stream (ESC or q).
	ActionQuit
	// ActionSave writes the last annotated frame to the save dir (s).
	ActionSave
	// ActionUpdatePrompts re-reads the prompt set from stdin (p).
	ActionUpdatePrompts
)

// Window wraps a gocv highgui window as a frame sink.
type Window struct {
	win     *gocv.Window
	saveDir string
}

// NewWindow opens a named window. saveDir receives interactively saved
// frames.
func NewWindow(title, saveDir string) *Window {
	return &Window{
		win:     gocv.NewWindow(title),
		saveDir: saveDir,
	}
}

// Closed reports whether the user closed the window.
func (w *Window) Closed() bool {
	return w.win.GetWindowProperty(gocv.WindowPropertyVisible) < 1
}

// Show displays one RGB24 frame.
func (w *Window) Show(frame *types.Frame) error {
	rgb, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return fmt.Errorf("wrap frame as mat: %w", err)
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)

	w.win.IMShow(bgr)
	return nil
}

// Poll waits up to delayMS for a keystroke and maps it to an action.
func (w *Window) Poll(delayMS int) Action {
	switch w.win.WaitKey(delayMS) {
	case 27, 'q': // ESC
		return ActionQuit
	case 's':
		return ActionSave
	case 'p':
		return ActionUpdatePrompts
	default:
		return ActionNone
	}
}

// Save writes the frame as a timestamped JPEG into the save dir and returns
// the path.
func (w *Window) Save(frame *types.Frame) (string, error) {
	if frame == nil {
		return "", fmt.Errorf("no frame to save")
	}
	if err := os.MkdirAll(w.saveDir, 0o755); err != nil {
		return "", fmt.Errorf("create save directory %s: %w", w.saveDir, err)
	}

	rgb, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return "", fmt.Errorf("wrap frame as mat: %w", err)
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)

	path := filepath.Join(w.saveDir, time.Now().Format("20060102-150405.000")+".jpg")
	if ok := gocv.IMWrite(path, bgr); !ok {
		return "", fmt.Errorf("failed to write %s", path)
	}

	slog.Info("frame saved", "path", path)
	return path, nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
