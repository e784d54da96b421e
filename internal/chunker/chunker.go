// Package chunker splits document text into overlapping, break-aware
// segments sized for embedding.
package chunker

import (
	"strings"
	"time"
	"unicode/utf8"

	"docqa/internal/models"
)

const (
	defaultChunkSize    = models.DefaultChunkSize
	defaultChunkOverlap = models.DefaultChunkOverlap
)

// Options controls chunk sizing. Zero values fall back to the defaults.
type Options struct {
	ChunkSize int
	Overlap   int
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.ChunkSize {
		o.Overlap = o.ChunkSize / 2
	}
	return o
}

// Split cuts text into overlapping chunks. A proposed cut is snapped back to
// the last period or newline when that break falls in the trailing half of
// the window; otherwise the hard cutoff stands. The final chunk may be
// shorter than the target size. Empty input yields no chunks.
func Split(text string, opts Options) []string {
	opts = opts.normalized()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + opts.ChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = runeStart(text, end)
			if bp := breakPoint(text, start, end); bp > start+opts.ChunkSize/2 {
				end = bp + 1
			}
			if end <= start {
				_, w := utf8.DecodeRuneInString(text[start:])
				end = start + w
			}
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(text) {
			break
		}
		// Snapping can pull end back so far that the overlap would move the
		// window backwards; the next window then starts at end instead.
		next := end - opts.Overlap
		if next <= start {
			next = end
		} else if next = runeStart(text, next); next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// runeStart walks idx back to the nearest rune boundary so byte-indexed
// cuts never split a multi-byte character.
func runeStart(text string, idx int) int {
	for idx > 0 && !utf8.RuneStart(text[idx]) {
		idx--
	}
	return idx
}

// breakPoint returns the index of the last period or newline in
// text[start:end], or -1 when none exists.
func breakPoint(text string, start, end int) int {
	for i := end - 1; i > start; i-- {
		if text[i] == '.' || text[i] == '\n' {
			return i
		}
	}
	return -1
}

// Chunks splits text and tags every chunk with its document metadata.
func Chunks(text, sourceURL, title string, opts Options) []models.Chunk {
	parts := Split(text, opts)
	now := time.Now().UTC()
	chunks := make([]models.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, models.Chunk{
			Text:        part,
			Index:       i,
			TotalChunks: len(parts),
			SourceURL:   sourceURL,
			Title:       title,
			CreatedAt:   now,
		})
	}
	return chunks
}
