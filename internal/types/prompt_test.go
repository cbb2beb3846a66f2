package types_test

import (
	"testing"

	"github.com/wep21/sam3-camera-detector/internal/types"
)

// --- Test 1: Single prompt forms ---

// TestParsePrompt validates the two prompt forms.
//
// Contract:
//   - plain text becomes a text prompt
//   - "pos:x,y,w,h" becomes a box prompt
//   - malformed positional prompts and empty strings fail
func TestParsePrompt(t *testing.T) {
	p, err := types.ParsePrompt("shoe")
	if err != nil {
		t.Fatalf("ParsePrompt(shoe) failed: %v", err)
	}
	if p.Text != "shoe" || p.Box != nil {
		t.Errorf("text prompt: got %+v", p)
	}

	p, err = types.ParsePrompt("pos:10,20,100,80")
	if err != nil {
		t.Fatalf("ParsePrompt(pos:...) failed: %v", err)
	}
	if p.Box == nil {
		t.Fatal("positional prompt should carry a box")
	}
	if p.Box.X != 10 || p.Box.Y != 20 || p.Box.Width != 100 || p.Box.Height != 80 {
		t.Errorf("box: got %+v", *p.Box)
	}
	if p.String() != "pos:10,20,100,80" {
		t.Errorf("round trip: got %q", p.String())
	}

	for _, bad := range []string{"", "   ", "pos:1,2,3", "pos:1,2,3,4,5", "pos:a,b,c,d"} {
		if _, err := types.ParsePrompt(bad); err == nil {
			t.Errorf("ParsePrompt(%q) should fail", bad)
		}
	}
}

// --- Test 2: Prompt lists ---

// TestParsePrompts validates the repeatable-argument form.
func TestParsePrompts(t *testing.T) {
	prompts, err := types.ParsePrompts([]string{"shoe", "pos:0,0,10,10"})
	if err != nil {
		t.Fatalf("ParsePrompts() failed: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("got %d prompts, want 2", len(prompts))
	}

	if _, err := types.ParsePrompts(nil); err == nil {
		t.Error("empty list should fail: inference needs at least one prompt")
	}
}

// --- Test 3: Interactive update lines ---

// TestParsePromptLine validates the `|`-separated interactive form.
//
// Contract:
//   - pieces are split on `|` and trimmed
//   - an empty line yields (nil, nil): keep the current prompt set
func TestParsePromptLine(t *testing.T) {
	prompts, err := types.ParsePromptLine(" shoe | pos:1,2,3,4 ")
	if err != nil {
		t.Fatalf("ParsePromptLine() failed: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("got %d prompts, want 2", len(prompts))
	}
	if prompts[0].Text != "shoe" || prompts[1].Box == nil {
		t.Errorf("parsed prompts: %+v", prompts)
	}

	prompts, err = types.ParsePromptLine("   ")
	if prompts != nil || err != nil {
		t.Errorf("blank line: got (%v, %v), want (nil, nil)", prompts, err)
	}
}
