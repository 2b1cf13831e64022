// Package text splits extracted document text into the overlapping windows
// the vector index stores as retrieval units.
package text

import "errors"

// ErrInvalidChunking is returned when the window parameters cannot produce a
// terminating sequence (the window must advance on every step).
var ErrInvalidChunking = errors.New("chunk overlap must be smaller than chunk size")

// Chunks splits text into windows of at most size runes, each overlapping the
// previous window by overlap runes. The final window may be shorter than
// size. Boundaries are computed over runes, not bytes, so multi-byte input
// never splits mid-character.
//
// The output is fully determined by the input and parameters; document
// fingerprints are computed over the raw text, but reproducible boundaries
// keep chunk ids stable across restarts.
func Chunks(text string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidChunking
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
