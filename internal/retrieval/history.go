package retrieval

import "sync"

// Turn is one completed user/assistant exchange.
type Turn struct {
	Query  string
	Answer string
}

// History is a bounded conversation memory. Once full, adding a turn
// evicts the oldest one.
type History struct {
	mu    sync.Mutex
	max   int
	turns []Turn
}

func NewHistory(maxTurns int) *History {
	return &History{max: maxTurns}
}

func (h *History) Add(query, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, Turn{Query: query, Answer: answer})
	if len(h.turns) > h.max {
		h.turns = h.turns[len(h.turns)-h.max:]
	}
}

func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
