package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	t.Run("overlapping windows", func(t *testing.T) {
		chunks, err := Chunks("abcdefgh", 4, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"abcd", "cdef", "efgh"}, chunks)
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := Chunks("the quick brown fox jumps over the lazy dog", 10, 3)
		require.NoError(t, err)
		second, err := Chunks("the quick brown fox jumps over the lazy dog", 10, 3)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("short final window", func(t *testing.T) {
		chunks, err := Chunks("abcdefghij", 4, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)
	})

	t.Run("text shorter than window", func(t *testing.T) {
		chunks, err := Chunks("abc", 10, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"abc"}, chunks)
	})

	t.Run("empty text", func(t *testing.T) {
		chunks, err := Chunks("", 10, 2)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("overlap equal to size", func(t *testing.T) {
		_, err := Chunks("abcdef", 4, 4)
		assert.ErrorIs(t, err, ErrInvalidChunking)
	})

	t.Run("overlap above size", func(t *testing.T) {
		_, err := Chunks("abcdef", 4, 6)
		assert.ErrorIs(t, err, ErrInvalidChunking)
	})

	t.Run("zero size", func(t *testing.T) {
		_, err := Chunks("abcdef", 0, 0)
		assert.ErrorIs(t, err, ErrInvalidChunking)
	})

	t.Run("rune boundaries", func(t *testing.T) {
		chunks, err := Chunks("héllo wörld", 4, 1)
		require.NoError(t, err)
		for _, c := range chunks {
			assert.True(t, strings.ToValidUTF8(c, "") == c, "chunk %q is not valid utf-8", c)
		}
	})

	t.Run("full coverage", func(t *testing.T) {
		input := strings.Repeat("x", 1207)
		chunks, err := Chunks(input, 500, 50)
		require.NoError(t, err)
		// Every rune of the input appears in at least one chunk.
		total := 0
		for i, c := range chunks {
			if i > 0 {
				total -= 50
			}
			total += len(c)
		}
		assert.Equal(t, len(input), total)
	})
}
