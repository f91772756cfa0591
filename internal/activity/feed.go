package activity

import "sync"

// Feed is a ring-buffer subscriber holding the most recent entries.
type Feed struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	ch      chan Entry
}

// NewFeed keeps at most max entries; older ones fall off.
func NewFeed(max int) *Feed {
	if max < 1 {
		max = 1
	}
	return &Feed{max: max, ch: make(chan Entry, 64)}
}

func (f *Feed) Channel() chan Entry { return f.ch }

func (f *Feed) OnActivity(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	if len(f.entries) > f.max {
		f.entries = f.entries[len(f.entries)-f.max:]
	}
}

// Recent returns up to limit entries, newest first. limit <= 0 means
// all retained entries.
func (f *Feed) Recent(limit int) []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(f.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, f.entries[i])
	}
	return out
}

// Clear drops all retained entries.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
}
