package util

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncateChars keeps the first maxChars characters of input and appends a
// marker reporting how many characters were dropped.
func TruncateChars(input string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return input, false
	}
	total := utf8.RuneCountInString(input)
	if total <= maxChars {
		return input, false
	}
	cut := 0
	for i := range input {
		if cut == maxChars {
			return input[:i] + fmt.Sprintf("\n... (truncated, %d more chars)", total-maxChars), true
		}
		cut++
	}
	return input, false
}

// TruncateLinesAndBytes limits lines and total byte count.
func TruncateLinesAndBytes(lines []string, maxLines int, maxBytes int) (out []string, truncated bool, byteCount int) {
	if maxLines <= 0 && maxBytes <= 0 {
		return lines, false, len(strings.Join(lines, "\n"))
	}
	for _, line := range lines {
		if maxLines > 0 && len(out) >= maxLines {
			truncated = true
			break
		}
		lineBytes := len(line)
		sep := 0
		if len(out) > 0 {
			sep = 1
		}
		if maxBytes > 0 && byteCount+sep+lineBytes > maxBytes {
			truncated = true
			break
		}
		if sep == 1 {
			byteCount++
		}
		byteCount += lineBytes
		out = append(out, line)
	}
	return out, truncated, byteCount
}

// Preview returns a short preview of text by limiting lines and bytes.
func Preview(text string, maxLines int, maxBytes int) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	trimmed, _, _ := TruncateLinesAndBytes(lines, maxLines, maxBytes)
	return strings.Join(trimmed, "\n")
}
