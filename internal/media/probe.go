package media

import (
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/wep21/sam3-camera-detector/internal/types"
)

// FFprobeBin is the metadata probe binary, substitutable like FFmpegBin.
var FFprobeBin = "ffprobe"

// Probe queries width, height and frame rate of the first video stream.
// Width and height are required; a missing or unparseable frame rate falls
// back to types.DefaultFPS.
func Probe(source string) (types.VideoInfo, error) {
	out, err := exec.Command(FFprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		source,
	).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return types.VideoInfo{}, fmt.Errorf("probe %s: %s", source, strings.TrimSpace(string(ee.Stderr)))
		}
		return types.VideoInfo{}, fmt.Errorf("%w: %s (is FFmpeg installed?): %v", ErrLaunch, FFprobeBin, err)
	}

	var fields []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fields = append(fields, line)
		}
	}
	if len(fields) < 2 {
		return types.VideoInfo{}, fmt.Errorf("probe %s: missing width/height in output", source)
	}

	width, err := strconv.Atoi(fields[0])
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("probe %s: parse width: %w", source, err)
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("probe %s: parse height: %w", source, err)
	}

	fps := types.DefaultFPS
	if len(fields) >= 3 {
		if v, ok := ParseRate(fields[2]); ok {
			fps = v
		}
	}

	return types.VideoInfo{Width: width, Height: height, FPS: fps}, nil
}

// ProbeDuration returns the container duration in seconds, or false when
// the probe fails or the field is absent. Degraded metadata never aborts.
func ProbeDuration(source string) (float64, bool) {
	v, ok := probeValue(source, "-show_entries", "format=duration")
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(d, 0) || math.IsNaN(d) || d <= 0 {
		return 0, false
	}
	return d, true
}

// ProbeFrameCount returns the stream frame count, or false when unknown.
func ProbeFrameCount(source string) (uint64, bool) {
	v, ok := probeValue(source, "-select_streams", "v:0", "-show_entries", "stream=nb_frames")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// TotalFrames estimates the total frame count for progress reporting:
// the stream's declared count when present, otherwise duration * fps.
func TotalFrames(source string, fps float64) (uint64, bool) {
	if n, ok := ProbeFrameCount(source); ok {
		return n, true
	}
	if d, ok := ProbeDuration(source); ok {
		n := uint64(math.Round(d * fps))
		if n > 0 {
			return n, true
		}
	}
	return 0, false
}

// ParseRate parses a frame rate string: rational "num/den" or a plain
// decimal. Returns false for empty, malformed, non-finite or non-positive
// values.
func ParseRate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return validRate(n / d)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return validRate(v)
}

func validRate(v float64) (float64, bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
		return 0, false
	}
	return v, true
}

// probeValue runs ffprobe with the given selector args and returns the
// first non-empty line of output. "N/A" counts as absent.
func probeValue(source string, args ...string) (string, bool) {
	full := append([]string{"-v", "error"}, args...)
	full = append(full, "-of", "default=noprint_wrappers=1:nokey=1", source)
	out, err := exec.Command(FFprobeBin, full...).Output()
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && line != "N/A" {
			return line, true
		}
	}
	return "", false
}
