package utils

import (
	"fmt"
	"strings"
)

// MaxMessageLength is the chat transport's hard limit per message.
const MaxMessageLength = 4096

// FormatBytes renders a byte count in human-readable binary units.
func FormatBytes(num int64) string {
	value := float64(num)
	for _, unit := range []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei", "Zi"} {
		if value < 1024.0 && value > -1024.0 {
			return fmt.Sprintf("%3.1f%sB", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.1fYiB", value)
}

// SplitMessage splits text into chunks of at most MaxMessageLength
// characters. Splits happen only immediately after a newline, so no
// line is ever cut in half. A single line longer than the limit is
// emitted whole as an oversized chunk rather than corrupted. Empty
// chunks are dropped, the transport rejects empty message text.
func SplitMessage(text string) []string {
	if len(text) <= MaxMessageLength {
		return []string{text}
	}

	var parts []string
	for len(text) > MaxMessageLength {
		cut := strings.LastIndexByte(text[:MaxMessageLength+1], '\n')
		if cut < 0 {
			// No newline within budget: take the whole oversized line.
			end := strings.IndexByte(text, '\n')
			if end < 0 {
				break
			}
			if end > 0 {
				parts = append(parts, text[:end])
			}
			text = text[end+1:]
			continue
		}
		if cut > 0 {
			parts = append(parts, text[:cut])
		}
		text = text[cut+1:]
	}
	if len(text) > 0 {
		parts = append(parts, text)
	}
	return parts
}
