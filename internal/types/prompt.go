package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Prompt tells the segmentation model what to look for: either free text
// ("shoe") or a positional box ("pos:x,y,w,h").
type Prompt struct {
	Text string     `json:"text,omitempty" msgpack:"text,omitempty"`
	Box  *PixelRect `json:"box,omitempty" msgpack:"box,omitempty"`
}

// String renders the prompt back in its command-line form.
func (p Prompt) String() string {
	if p.Box != nil {
		return fmt.Sprintf("pos:%d,%d,%d,%d", p.Box.X, p.Box.Y, p.Box.Width, p.Box.Height)
	}
	return p.Text
}

// ParsePrompt parses a single prompt argument.
func ParsePrompt(s string) (Prompt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Prompt{}, fmt.Errorf("empty prompt")
	}
	rest, ok := strings.CutPrefix(s, "pos:")
	if !ok {
		return Prompt{Text: s}, nil
	}
	parts := strings.Split(rest, ",")
	if len(parts) != 4 {
		return Prompt{}, fmt.Errorf("positional prompt %q: want pos:x,y,w,h", s)
	}
	vals := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Prompt{}, fmt.Errorf("positional prompt %q: %w", s, err)
		}
		vals[i] = v
	}
	return Prompt{Box: &PixelRect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}}, nil
}

// ParsePrompts parses the repeatable -p arguments. At least one prompt is
// required to run inference.
func ParsePrompts(raw []string) ([]Prompt, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf(`no prompt: use -p "text" or -p "pos:x,y,w,h"`)
	}
	prompts := make([]Prompt, 0, len(raw))
	for _, s := range raw {
		p, err := ParsePrompt(s)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// ParsePromptLine splits an interactive update line on `|` and parses each
// piece. An empty line yields nil prompts, meaning "keep the current set".
func ParsePromptLine(line string) ([]Prompt, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	var raw []string
	for _, part := range strings.Split(line, "|") {
		if part = strings.TrimSpace(part); part != "" {
			raw = append(raw, part)
		}
	}
	return ParsePrompts(raw)
}
