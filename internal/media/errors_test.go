package media

import (
	"strings"
	"testing"
)

// TestTailBuffer validates the bounded stderr capture.
//
// Contract:
//   - short writes are kept verbatim
//   - only the last stderrTailSize bytes survive a chatty process
func TestTailBuffer(t *testing.T) {
	var tb tailBuffer
	tb.Write([]byte("first "))
	tb.Write([]byte("second"))
	if tb.Tail() != "first second" {
		t.Errorf("short writes: got %q", tb.Tail())
	}

	tb = tailBuffer{}
	tb.Write([]byte(strings.Repeat("x", stderrTailSize)))
	tb.Write([]byte("the end"))
	tail := tb.Tail()
	if len(tail) != stderrTailSize {
		t.Errorf("tail length: got %d, want %d", len(tail), stderrTailSize)
	}
	if !strings.HasSuffix(tail, "the end") {
		t.Error("tail should keep the most recent bytes")
	}
}
