package utils

import (
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0.0B"},
		{512, "512.0B"},
		{1024, "1.0KiB"},
		{1536, "1.5KiB"},
		{1073741824, "1.0GiB"},
	}
	for _, c := range cases {
		if got := FormatBytes(c.in); got != c.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSplitMessageShortText(t *testing.T) {
	chunks := SplitMessage("hello\nworld")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello\nworld" {
		t.Errorf("Chunk content changed: %q", chunks[0])
	}
}

func TestSplitMessageRoundTrip(t *testing.T) {
	// Build a listing of well over one message worth of lines.
	var lines []string
	for len(strings.Join(lines, "\n")) < 5000 {
		lines = append(lines, strings.Repeat("x", 40))
	}
	text := strings.Join(lines, "\n")

	chunks := SplitMessage(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected at least 2 chunks for %d chars, got %d", len(text), len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > MaxMessageLength {
			t.Errorf("Chunk %d exceeds budget: %d chars", i, len(chunk))
		}
		if strings.HasSuffix(chunk, "\n") {
			t.Errorf("Chunk %d ends with a newline", i)
		}
	}
	if got := strings.Join(chunks, "\n"); got != text {
		t.Error("Rejoined chunks do not reproduce the input")
	}
}

func TestSplitMessageDropsEmptyChunks(t *testing.T) {
	inputs := []string{
		"\n" + strings.Repeat("x", MaxMessageLength+100),
		"\n\n" + strings.Repeat("a\n", 3000),
		strings.Repeat("b", MaxMessageLength) + "\n\n" + strings.Repeat("c", 100),
	}
	for _, text := range inputs {
		for i, chunk := range SplitMessage(text) {
			if chunk == "" {
				t.Errorf("Chunk %d of %d-char input is empty", i, len(text))
			}
		}
	}
}

func TestSplitMessageOversizedLine(t *testing.T) {
	// A single line longer than the budget is emitted whole rather
	// than cut mid-line.
	line := strings.Repeat("y", MaxMessageLength+100)
	chunks := SplitMessage(line)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != line {
		t.Error("Oversized line was modified")
	}
}
