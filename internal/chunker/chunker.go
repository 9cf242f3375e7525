// Package chunker splits large texts into pieces that fit under a request
// payload limit. Splits happen only at sentence boundaries (periods), so a
// translator never sees half a sentence.
package chunker

import (
	"strings"
)

const (
	// DefaultMaxBytes is the largest payload the translation backend accepts
	// in a single request.
	DefaultMaxBytes = 128 * 1024
)

// Split breaks text into chunks of at most maxBytes UTF-8 bytes each.
//
// The text is cut on '.' into sentence fragments. Fragments are accumulated
// greedily, each followed by its period again; when the next fragment would
// push the running size over maxBytes the current chunk is closed (trimmed)
// and a new one is started with that fragment.
//
// A single fragment longer than maxBytes is emitted as its own oversized
// chunk. Split never cuts inside a sentence.
//
// If maxBytes ≤ 0 the whole (trimmed) text is returned as one chunk.
// Blank text yields no chunks.
func Split(text string, maxBytes int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxBytes <= 0 {
		return []string{strings.TrimSpace(text)}
	}

	fragments := strings.Split(text, ".")
	// A terminal period leaves one blank fragment behind; it must not turn
	// into an extra "." at the end of the last chunk.
	if n := len(fragments); n > 1 && strings.TrimSpace(fragments[n-1]) == "" {
		fragments = fragments[:n-1]
	}

	var chunks []string
	var current strings.Builder

	for _, fragment := range fragments {
		piece := fragment + "."
		if current.Len() > 0 && current.Len()+len(piece) > maxBytes {
			if chunk := strings.TrimSpace(current.String()); chunk != "" {
				chunks = append(chunks, chunk)
			}
			current.Reset()
		}
		current.WriteString(piece)
	}

	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

// Oversized reports whether chunk is larger than maxBytes. This only happens
// for a single sentence that alone exceeds the limit.
func Oversized(chunk string, maxBytes int) bool {
	return maxBytes > 0 && len(chunk) > maxBytes
}
