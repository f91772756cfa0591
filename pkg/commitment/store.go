package commitment

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/juanpablocruz/flightrec/pkg/ledger"
	"github.com/juanpablocruz/flightrec/pkg/storage"
)

// CountProvider reads the live count of events of a type at commitment
// creation time. It is the scheme's only coupling to the ledger.
type CountProvider func(ledger.EventType) int

// record is the persisted form of a commitment, private pair included.
type record struct {
	ID             string           `json:"id"`
	CommitmentHash string           `json:"commitment_hash"`
	EventType      ledger.EventType `json:"event_type"`
	Timestamp      time.Time        `json:"timestamp"`
	Count          int              `json:"count"`
	BlindingFactor string           `json:"blinding_factor"`
}

func (r record) public() Commitment {
	return Commitment{
		ID:             r.ID,
		CommitmentHash: r.CommitmentHash,
		EventType:      r.EventType,
		Timestamp:      r.Timestamp,
	}
}

// Store holds commitments and generates threshold proofs from them.
type Store struct {
	mu      sync.Mutex
	records map[string]record
	order   []string
	store   storage.Store
	count   CountProvider
}

// NewStore loads previously issued commitments from store. A corrupt store
// yields an empty set.
func NewStore(store storage.Store, count CountProvider) *Store {
	s := &Store{
		records: make(map[string]record),
		store:   store,
		count:   count,
	}
	raw, err := store.Load()
	if err != nil {
		return s
	}
	for _, b := range raw {
		var r record
		if err := json.Unmarshal(b, &r); err != nil {
			s.records = make(map[string]record)
			s.order = nil
			return s
		}
		s.records[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	return s
}

// Create commits to the current count for eventType. The count read and the
// commitment write happen under one lock, so the committed value is the
// count at a single point in time.
func (s *Store) Create(eventType ledger.EventType) (Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	if s.count != nil {
		count = s.count(eventType)
	}

	blinding, err := newBlinding()
	if err != nil {
		return Commitment{}, err
	}

	r := record{
		ID:             uuid.NewString(),
		CommitmentHash: commitmentHash(count, blinding),
		EventType:      eventType,
		Timestamp:      time.Now().UTC(),
		Count:          count,
		BlindingFactor: blinding,
	}

	s.records[r.ID] = r
	s.order = append(s.order, r.ID)
	if err := s.persistLocked(); err != nil {
		delete(s.records, r.ID)
		s.order = s.order[:len(s.order)-1]
		return Commitment{}, err
	}
	return r.public(), nil
}

// Get returns the public view of a commitment.
func (s *Store) Get(id string) (Commitment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return Commitment{}, false
	}
	return r.public(), true
}

// List returns all public commitments in issue order.
func (s *Store) List() []Commitment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Commitment, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].public())
	}
	return out
}

// GenerateProof builds a threshold proof for a stored commitment. A
// threshold above the committed count yields a structured, invalid proof
// rather than an error; an unknown id reports not-found.
func (s *Store) GenerateProof(id string, threshold int) (Proof, bool) {
	s.mu.Lock()
	r, ok := s.records[id]
	s.mu.Unlock()
	if !ok {
		return Proof{}, false
	}

	p := Proof{
		CommitmentID: id,
		Threshold:    threshold,
		Timestamp:    time.Now().UTC(),
	}

	if r.Count < threshold {
		p.ProofData = map[string]string{proofErrorKey: "Count does not meet threshold"}
		return p, true
	}

	excess := r.Count - threshold
	excessBlinding, err := newBlinding()
	if err != nil {
		p.ProofData = map[string]string{proofErrorKey: fmt.Sprintf("blinding: %v", err)}
		return p, true
	}
	excessCommitment := commitmentHash(excess, excessBlinding)

	p.IsValid = true
	p.ExcessCommitment = excessCommitment
	p.ProofData = map[string]string{
		"threshold_blinding": thresholdBlinding(r.BlindingFactor, excessBlinding, threshold, excess),
		"verification_hash":  verificationHash(r.CommitmentHash, threshold, excessCommitment),
	}
	return p, true
}

// Reset drops all commitments. Demo use only.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]record)
	s.order = nil
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	records := make([][]byte, 0, len(s.order))
	for _, id := range s.order {
		b, err := json.Marshal(s.records[id])
		if err != nil {
			return fmt.Errorf("encode commitment %s: %w", id, err)
		}
		records = append(records, b)
	}
	if err := s.store.Save(records); err != nil {
		return fmt.Errorf("persist commitments: %w", err)
	}
	return nil
}
