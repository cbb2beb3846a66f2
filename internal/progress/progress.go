// Package progress renders throttled throughput/ETA reporting for long
// batch jobs. Enabled only in headless encode mode; an interactive window
// already shows the stream.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// updateInterval caps how often a report is rendered, independent of the
// frame rate.
const updateInterval = 500 * time.Millisecond

// Stats are the derived quantities for one report.
type Stats struct {
	FrameIdx  uint64
	Total     uint64 // 0 = unknown
	ElapsedS  float64
	SpeedFPS  float64
	PositionS float64
	Percent   float64 // valid only when HasETA
	ETAS      float64 // valid only when HasETA
	HasETA    bool
}

// Derive computes the report quantities from a frame counter, the stream
// fps and the elapsed wall-clock time.
func Derive(frameIdx, total uint64, fps float64, elapsed time.Duration) Stats {
	s := Stats{FrameIdx: frameIdx, Total: total, ElapsedS: elapsed.Seconds()}
	if s.ElapsedS > 0 {
		s.SpeedFPS = float64(frameIdx) / s.ElapsedS
	}
	s.PositionS = float64(frameIdx) / math.Max(fps, 0.001)
	if total > 0 && s.SpeedFPS > 0 {
		remaining := float64(0)
		if frameIdx < total {
			remaining = float64(total - frameIdx)
		}
		s.Percent = float64(frameIdx) / float64(total) * 100
		s.ETAS = remaining / s.SpeedFPS
		s.HasETA = true
	}
	return s
}

// Reporter emits at most one progress report per update interval. On a
// terminal it rewrites a single line in place; otherwise each report is a
// discrete log line.
type Reporter struct {
	enabled    bool
	tty        bool
	total      uint64
	fps        float64
	started    time.Time
	lastUpdate time.Time

	out io.Writer
	now func() time.Time
}

// New creates a reporter. total of 0 means the stream length is unknown and
// percent/ETA are omitted from every report.
func New(enabled bool, fps float64, total uint64) *Reporter {
	r := &Reporter{
		enabled: enabled,
		tty:     isatty.IsTerminal(os.Stderr.Fd()),
		total:   total,
		fps:     fps,
		out:     os.Stderr,
		now:     time.Now,
	}
	r.started = r.now()
	r.lastUpdate = r.started
	return r
}

// Update renders a report for the given 1-based frame index. The first
// frame always renders; afterwards calls inside the update interval are
// no-ops.
func (r *Reporter) Update(frameIdx uint64) {
	if !r.enabled {
		return
	}
	now := r.now()
	if frameIdx != 1 && now.Sub(r.lastUpdate) < updateInterval {
		return
	}
	r.lastUpdate = now
	r.render(Derive(frameIdx, r.total, r.fps, now.Sub(r.started)))
}

// Finish forces one final report past the throttle and, in terminal mode,
// ends the in-place line with a newline.
func (r *Reporter) Finish(frameIdx uint64) {
	if !r.enabled {
		return
	}
	r.lastUpdate = r.now().Add(-time.Second)
	r.Update(frameIdx)
	if r.tty {
		fmt.Fprintln(r.out)
	}
}

func (r *Reporter) render(s Stats) {
	switch {
	case r.tty && s.HasETA:
		fmt.Fprintf(r.out, "\rframe %d/%d (%5.1f%%) pos %s elapsed %s speed %5.1f fps ETA %s",
			s.FrameIdx, s.Total, s.Percent, FormatHMS(s.PositionS), FormatHMS(s.ElapsedS), s.SpeedFPS, FormatHMS(s.ETAS))
	case r.tty && s.Total > 0:
		fmt.Fprintf(r.out, "\rframe %d/%d pos %s elapsed %s speed %5.1f fps",
			s.FrameIdx, s.Total, FormatHMS(s.PositionS), FormatHMS(s.ElapsedS), s.SpeedFPS)
	case r.tty:
		fmt.Fprintf(r.out, "\rframe %d pos %s elapsed %s speed %5.1f fps",
			s.FrameIdx, FormatHMS(s.PositionS), FormatHMS(s.ElapsedS), s.SpeedFPS)
	case s.HasETA:
		slog.Info("progress",
			"frame", s.FrameIdx,
			"total", s.Total,
			"percent", fmt.Sprintf("%.1f", s.Percent),
			"pos", FormatHMS(s.PositionS),
			"elapsed", FormatHMS(s.ElapsedS),
			"speed_fps", fmt.Sprintf("%.1f", s.SpeedFPS),
			"eta", FormatHMS(s.ETAS),
		)
	case s.Total > 0:
		slog.Info("progress",
			"frame", s.FrameIdx,
			"total", s.Total,
			"pos", FormatHMS(s.PositionS),
			"elapsed", FormatHMS(s.ElapsedS),
			"speed_fps", fmt.Sprintf("%.1f", s.SpeedFPS),
		)
	default:
		slog.Info("progress",
			"frame", s.FrameIdx,
			"pos", FormatHMS(s.PositionS),
			"elapsed", FormatHMS(s.ElapsedS),
			"speed_fps", fmt.Sprintf("%.1f", s.SpeedFPS),
		)
	}
}

// FormatHMS renders seconds as zero-padded HH:MM:SS.mmm. Negative input is
// clamped to zero.
func FormatHMS(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMS := uint64(math.Round(seconds * 1000))
	ms := totalMS % 1000
	totalS := totalMS / 1000
	s := totalS % 60
	totalM := totalS / 60
	m := totalM % 60
	h := totalM / 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
