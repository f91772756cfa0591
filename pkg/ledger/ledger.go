// Package ledger maintains an append-only, hash-linked sequence of
// governance events and detects any post-hoc modification.
package ledger

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/juanpablocruz/flightrec/pkg/hashutil"
	"github.com/juanpablocruz/flightrec/pkg/storage"
)

// Ledger is a single-writer, read-many hash chain. Append serializes the
// read-compute-append-persist sequence; reads take a consistent snapshot.
type Ledger struct {
	mu     sync.RWMutex
	events []Event
	store  storage.Store
}

// New loads the chain from store. A corrupt or unreadable store yields an
// empty ledger rather than an error.
func New(store storage.Store) *Ledger {
	l := &Ledger{store: store}
	records, err := store.Load()
	if err != nil {
		return l
	}
	events := make([]Event, 0, len(records))
	for _, rec := range records {
		var e Event
		if err := json.Unmarshal(rec, &e); err != nil {
			// Undecodable record poisons the chain: start fresh.
			return l
		}
		events = append(events, e)
	}
	l.events = events
	return l
}

// Append assigns the next id, links the event to the current tail and
// persists the chain. Storage write failures propagate and leave the
// in-memory chain unchanged.
func (l *Ledger) Append(in EventInput) (Event, error) {
	if err := in.validate(); err != nil {
		return Event{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := hashutil.Genesis
	if n := len(l.events); n > 0 {
		prev = l.events[n-1].Hash
	}

	e := Event{
		ID:          len(l.events),
		EventType:   in.EventType,
		Description: in.Description,
		Metadata:    in.Metadata,
		Timestamp:   time.Now().UTC(),
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	e.PreviousHash = prev

	hash, err := hashutil.Chain(prev, hashPayload(e))
	if err != nil {
		return Event{}, fmt.Errorf("hash event: %w", err)
	}
	e.Hash = hash

	l.events = append(l.events, e)
	if err := l.persistLocked(); err != nil {
		l.events = l.events[:len(l.events)-1]
		return Event{}, err
	}
	return e, nil
}

// Get returns the event with the given id.
func (l *Ledger) Get(id int) (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id < 0 || id >= len(l.events) {
		return Event{}, false
	}
	return l.events[id], true
}

// List returns events newest-first. A non-empty typeFilter is applied
// before limit; limit <= 0 means no limit.
func (l *Ledger) List(typeFilter EventType, limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, 0, len(l.events))
	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if typeFilter != "" && e.EventType != typeFilter {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Events returns a copy of the full chain, oldest first.
func (l *Ledger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.events...)
}

// Len returns the number of events in the chain.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// LatestHash returns the tail hash, or "" for an empty chain.
func (l *Ledger) LatestHash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.events) == 0 {
		return ""
	}
	return l.events[len(l.events)-1].Hash
}

// Hashes returns the ordered event hashes, the leaf set for Merkle proofs.
func (l *Ledger) Hashes() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	hs := make([]string, len(l.events))
	for i, e := range l.events {
		hs[i] = e.Hash
	}
	return hs
}

// CountByType counts events carrying the given tag.
func (l *Ledger) CountByType(t EventType) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.events {
		if e.EventType == t {
			n++
		}
	}
	return n
}

// LastEventTime returns the newest event timestamp, zero when empty.
func (l *Ledger) LastEventTime() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.events) == 0 {
		return time.Time{}
	}
	return l.events[len(l.events)-1].Timestamp
}

// Reset drops every event. Demo use only.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
	return l.persistLocked()
}

func (l *Ledger) persistLocked() error {
	records := make([][]byte, len(l.events))
	for i, e := range l.events {
		rec, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", e.ID, err)
		}
		records[i] = rec
	}
	if err := l.store.Save(records); err != nil {
		return fmt.Errorf("persist chain: %w", err)
	}
	return nil
}
