package chunker

import "strings"

// Normalize removes NUL characters, converts CRLF line endings to LF and collapses
// runs of three or more newlines into a single paragraph break. The result is trimmed.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	t := strings.ReplaceAll(text, "\x00", "")
	// "\r\r\n" becomes "\r\n" after one pass
	for strings.Contains(t, "\r\n") {
		t = strings.ReplaceAll(t, "\r\n", "\n")
	}
	for strings.Contains(t, "\n\n\n") {
		t = strings.ReplaceAll(t, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(t)
}
