// Package chunker turns normalized document text into bounded, paragraph aligned chunks.
//
// Paragraphs (separated by a blank line) are packed greedily while the packed text fits
// in the configured size. A paragraph that is larger than the size on its own is cut into
// fixed windows that overlap by the configured amount. Lengths are counted in runes.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pdf-rag/internal/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
)

var separatorLen = utf8.RuneCountInString(models.ParagraphSeparator)

// Chunker splits text into chunks of at most size runes.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker. size must be positive and overlap must be in [0, size).
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be > 0, got %d", models.ErrConfigInvalid, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be >= 0 and < %d, got %d", models.ErrConfigInvalid, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks text with the given size and overlap.
func Split(text string, size, overlap int) ([]string, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// Size returns the maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared by consecutive hard-split windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the chunks of text in document order. Chunks whose trimmed length
// is at most models.MinChunkLength runes are dropped.
func (c *Chunker) Split(text string) []string {
	var (
		chunks    []string
		buffer    string
		bufferLen int
	)

	for _, p := range paragraphs(text) {
		pLen := utf8.RuneCountInString(p)

		candidateLen := pLen
		if buffer != "" {
			candidateLen = bufferLen + separatorLen + pLen
		}
		if candidateLen <= c.size {
			if buffer != "" {
				buffer += models.ParagraphSeparator + p
			} else {
				buffer = p
			}
			bufferLen = candidateLen
			continue
		}

		if buffer != "" {
			chunks = append(chunks, buffer)
			buffer, bufferLen = "", 0
		}

		if pLen > c.size {
			chunks = append(chunks, c.hardSplit(p)...)
			continue
		}
		buffer, bufferLen = p, pLen
	}

	if buffer != "" {
		chunks = append(chunks, buffer)
	}

	return keepLong(chunks)
}

// hardSplit cuts p into windows [start, start+size) advancing by size-overlap.
// The last window ends at the end of p.
func (c *Chunker) hardSplit(p string) []string {
	runes := []rune(p)
	n := len(runes)

	var windows []string
	for start := 0; start < n; {
		end := min(start+c.size, n)
		windows = append(windows, string(runes[start:end]))
		if end == n {
			break
		}
		start = end - c.overlap
	}
	return windows
}

func paragraphs(text string) []string {
	parts := strings.Split(text, models.ParagraphSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func keepLong(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		ch = strings.TrimSpace(ch)
		if utf8.RuneCountInString(ch) > models.MinChunkLength {
			out = append(out, ch)
		}
	}
	return out
}
