package chat

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManagerTracksSessions(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	m := NewManager(logger)
	assert.Equal(t, 0, m.Count())

	a := NewSession(newFakeConn(), testSecret, &fakeReader{}, &fakeIngestor{}, &fakeResponder{}, 5, logger)
	b := NewSession(newFakeConn(), testSecret, &fakeReader{}, &fakeIngestor{}, &fakeResponder{}, 5, logger)

	m.Add(a)
	m.Add(b)
	assert.Equal(t, 2, m.Count())

	m.Remove(a)
	assert.Equal(t, 1, m.Count())

	// Removing twice is harmless.
	m.Remove(a)
	assert.Equal(t, 1, m.Count())

	m.Remove(b)
	assert.Equal(t, 0, m.Count())
}
