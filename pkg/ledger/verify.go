package ledger

import (
	"fmt"

	"github.com/juanpablocruz/flightrec/pkg/hashutil"
)

// VerificationResult reports the outcome of a full chain walk. A broken
// chain is an expected, reportable outcome, not an error.
type VerificationResult struct {
	IsValid           bool   `json:"is_valid"`
	CheckedEvents     int    `json:"checked_events"`
	FirstInvalidIndex *int   `json:"first_invalid_index,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// VerifyChain walks the chain oldest-first. At each index it checks the
// previous-hash link, then recomputes the chain hash from the stored
// fields. It stops at the first failure; an empty chain is vacuously valid.
func (l *Ledger) VerifyChain() VerificationResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, e := range l.events {
		expectedPrev := hashutil.Genesis
		if i > 0 {
			expectedPrev = l.events[i-1].Hash
		}

		if e.PreviousHash != expectedPrev {
			idx := i
			return VerificationResult{
				CheckedEvents:     i + 1,
				FirstInvalidIndex: &idx,
				ErrorMessage:      fmt.Sprintf("Event %d: previous hash mismatch", i),
			}
		}

		if !hashutil.VerifyChain(e.PreviousHash, hashPayload(e), e.Hash) {
			idx := i
			return VerificationResult{
				CheckedEvents:     i + 1,
				FirstInvalidIndex: &idx,
				ErrorMessage:      fmt.Sprintf("Event %d: hash verification failed (data tampered)", i),
			}
		}
	}

	return VerificationResult{IsValid: true, CheckedEvents: len(l.events)}
}

// Tamper overwrites mutable fields of a stored event while keeping its hash,
// the only way to make VerifyChain fail. Demo and test use only; Append can
// never produce this state. Returns false when no event has the given id.
func (l *Ledger) Tamper(id int, newDescription string, newMetadata map[string]any) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id < 0 || id >= len(l.events) {
		return false, nil
	}
	prev := l.events[id]
	e := &l.events[id]
	if newDescription != "" {
		e.Description = newDescription
	}
	if newMetadata != nil {
		e.Metadata = newMetadata
	}
	// Persist the corrupted record too, so the broken chain survives a
	// restart just like a real on-disk modification would.
	if err := l.persistLocked(); err != nil {
		l.events[id] = prev
		return false, fmt.Errorf("persist tamper: %w", err)
	}
	return true, nil
}
