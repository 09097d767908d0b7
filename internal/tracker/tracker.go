package tracker

import (
	"sync"

	"chart-terminal/internal/timerange"
)

// Tracker records which symbols are currently displayed and at what
// range, so the background refresh only fetches what a chart is showing.
type Tracker struct {
	mu        sync.RWMutex
	displayed map[string]timerange.Range
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{displayed: make(map[string]timerange.Range)}
}

// Register marks a symbol as displayed at the given range, replacing any
// previous range for the symbol.
func (t *Tracker) Register(symbol string, r timerange.Range) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.displayed[symbol] = r
}

// Unregister marks a symbol as no longer displayed.
func (t *Tracker) Unregister(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.displayed, symbol)
}

// Displayed returns a snapshot of displayed symbols and their ranges.
func (t *Tracker) Displayed() map[string]timerange.Range {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]timerange.Range, len(t.displayed))
	for s, r := range t.displayed {
		out[s] = r
	}
	return out
}

// IsDisplayed checks if a symbol is currently on screen.
func (t *Tracker) IsDisplayed(symbol string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.displayed[symbol]
	return ok
}

// Count returns the number of displayed symbols.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.displayed)
}
