// Package mirror simulates independently-held replicas of the event
// ledger. Each party keeps its own copy; comparing replica hashes
// shows whether any single holder has silently rewritten history.
package mirror

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/juanpablocruz/flightrec/pkg/hashutil"
	"github.com/juanpablocruz/flightrec/pkg/ledger"
	"github.com/juanpablocruz/flightrec/pkg/storage"
)

// Location identifies which party holds a replica.
type Location string

const (
	LocationLab        Location = "lab"
	LocationAuditor    Location = "auditor"
	LocationGovernment Location = "government"
)

// Locations lists every replica holder, in declaration order.
func Locations() []Location {
	return []Location{LocationLab, LocationAuditor, LocationGovernment}
}

// EmptyHash marks a replica that has never synced any events.
var EmptyHash = "empty_" + strings.Repeat("0", 58)

// TamperAction names a way a replica can be corrupted.
type TamperAction string

const (
	TamperModify TamperAction = "modify_event"
	TamperDelete TamperAction = "delete_event"
	TamperInject TamperAction = "inject_event"
)

// Replica is one party's copy of the ledger.
type Replica struct {
	Location  Location       `json:"location"`
	Events    []ledger.Event `json:"events"`
	LastSync  time.Time      `json:"last_sync"`
	SyncCount int            `json:"sync_count"`
	Tampered  bool           `json:"tampered"`
}

// Hash fingerprints the replica's full event records. Hashing the
// complete records, not just each event's own hash field, means an
// edit that leaves the per-event hash intact still changes the
// fingerprint. An event-free replica reports EmptyHash.
func (r *Replica) Hash() string {
	if len(r.Events) == 0 {
		return EmptyHash
	}
	h, err := hashutil.Canonical(r.Events)
	if err != nil {
		panic(fmt.Sprintf("mirror: hash replica: %v", err))
	}
	return h
}

// Comparison is the result of checking all replicas against each other.
type Comparison struct {
	Hashes        map[Location]string `json:"mirror_hashes"`
	ConsensusHash string              `json:"consensus_hash"`
	InAgreement   []Location          `json:"in_agreement"`
	Divergent     []Location          `json:"divergent"`
	AllConsistent bool                `json:"all_consistent"`
	Message       string              `json:"message"`
}

type networkState struct {
	Replicas map[Location]*Replica `json:"replicas"`
}

// Network holds the full set of replicas. Safe for concurrent use.
type Network struct {
	mu    sync.RWMutex
	state networkState
	file  *storage.StateFile
}

// New loads replica state from file, creating empty replicas for every
// location that has none.
func New(file *storage.StateFile) *Network {
	n := &Network{file: file}
	if file != nil {
		var st networkState
		if file.Load(&st) {
			n.state = st
		}
	}
	if n.state.Replicas == nil {
		n.state.Replicas = map[Location]*Replica{}
	}
	for _, loc := range Locations() {
		if n.state.Replicas[loc] == nil {
			n.state.Replicas[loc] = &Replica{Location: loc}
		}
	}
	return n
}

func (n *Network) persistLocked() error {
	if n.file == nil {
		return nil
	}
	return n.file.Save(n.state)
}

// SyncAll copies the source events into every replica. A tampered
// replica is overwritten; sync is how a corrupted holder recovers.
func (n *Network) SyncAll(events []ledger.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UTC()
	prev := make(map[Location]Replica, len(n.state.Replicas))
	for loc, r := range n.state.Replicas {
		prev[loc] = *r
		r.Events = append([]ledger.Event(nil), events...)
		r.LastSync = now
		r.SyncCount++
		r.Tampered = false
	}
	if err := n.persistLocked(); err != nil {
		for loc := range n.state.Replicas {
			restored := prev[loc]
			n.state.Replicas[loc] = &restored
		}
		return fmt.Errorf("persist sync: %w", err)
	}
	return nil
}

// Get returns a snapshot of one replica.
func (n *Network) Get(loc Location) (Replica, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	r, ok := n.state.Replicas[loc]
	if !ok {
		return Replica{}, fmt.Errorf("unknown mirror location %q", loc)
	}
	cp := *r
	cp.Events = append([]ledger.Event(nil), r.Events...)
	return cp, nil
}

// Hashes returns the current fingerprint of every replica.
func (n *Network) Hashes() map[Location]string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[Location]string, len(n.state.Replicas))
	for loc, r := range n.state.Replicas {
		out[loc] = r.Hash()
	}
	return out
}

// Compare checks all replicas against each other. Consensus is the
// hash held by the majority of replicas; any minority is divergent.
// With no majority every replica is reported divergent.
func (n *Network) Compare() Comparison {
	n.mu.RLock()
	defer n.mu.RUnlock()

	c := Comparison{Hashes: map[Location]string{}}
	counts := map[string]int{}
	for loc, r := range n.state.Replicas {
		h := r.Hash()
		c.Hashes[loc] = h
		counts[h]++
	}

	majority := len(n.state.Replicas)/2 + 1
	for h, cnt := range counts {
		if cnt >= majority {
			c.ConsensusHash = h
			break
		}
	}

	for _, loc := range Locations() {
		h, ok := c.Hashes[loc]
		if !ok {
			continue
		}
		if c.ConsensusHash != "" && h == c.ConsensusHash {
			c.InAgreement = append(c.InAgreement, loc)
		} else {
			c.Divergent = append(c.Divergent, loc)
		}
	}

	c.AllConsistent = len(c.Divergent) == 0
	switch {
	case c.AllConsistent:
		c.Message = "All mirrors agree"
	case c.ConsensusHash == "":
		c.Message = "No majority: every mirror diverges"
	default:
		names := make([]string, len(c.Divergent))
		for i, loc := range c.Divergent {
			names[i] = string(loc)
		}
		c.Message = fmt.Sprintf("Mirrors diverge from consensus: %s", strings.Join(names, ", "))
	}
	return c
}

// Tamper corrupts one replica in place. Modify rewrites the last
// event's description without touching its hash, delete drops the last
// event, inject appends a fabricated event.
func (n *Network) Tamper(loc Location, action TamperAction) (Replica, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	r, ok := n.state.Replicas[loc]
	if !ok {
		return Replica{}, fmt.Errorf("unknown mirror location %q", loc)
	}

	prev := *r
	prev.Events = append([]ledger.Event(nil), r.Events...)

	switch action {
	case TamperModify:
		if len(r.Events) == 0 {
			return Replica{}, fmt.Errorf("mirror %s has no events to modify", loc)
		}
		r.Events[len(r.Events)-1].Description = "[TAMPERED] " + r.Events[len(r.Events)-1].Description
	case TamperDelete:
		if len(r.Events) == 0 {
			return Replica{}, fmt.Errorf("mirror %s has no events to delete", loc)
		}
		r.Events = r.Events[:len(r.Events)-1]
	case TamperInject:
		fake := ledger.Event{
			ID:          len(r.Events),
			EventType:   ledger.SafetyEvalPassed,
			Description: "Fabricated passing evaluation",
			Timestamp:   time.Now().UTC(),
			Hash:        strings.Repeat("f", 64),
		}
		if len(r.Events) > 0 {
			fake.PreviousHash = r.Events[len(r.Events)-1].Hash
		} else {
			fake.PreviousHash = hashutil.Genesis
		}
		r.Events = append(r.Events, fake)
	default:
		return Replica{}, fmt.Errorf("unknown tamper action %q", action)
	}
	r.Tampered = true

	if err := n.persistLocked(); err != nil {
		*n.state.Replicas[loc] = prev
		return Replica{}, fmt.Errorf("persist tamper: %w", err)
	}
	cp := *r
	cp.Events = append([]ledger.Event(nil), r.Events...)
	return cp, nil
}

// Detection reports, per replica, whether it matches the source and
// which event positions diverge.
type Detection struct {
	SourceHash    string             `json:"source_hash"`
	Matches       map[Location]bool  `json:"matches"`
	Diverging     map[Location][]int `json:"diverging_events,omitempty"`
	TamperedCount int                `json:"tampered_count"`
	Comparison    Comparison         `json:"comparison"`
}

// DetectTampering compares every replica against the true source.
func (n *Network) DetectTampering(sourceEvents []ledger.Event) Detection {
	src := Replica{Events: sourceEvents}
	d := Detection{
		SourceHash: src.Hash(),
		Matches:    map[Location]bool{},
		Diverging:  map[Location][]int{},
		Comparison: n.Compare(),
	}
	n.mu.RLock()
	for loc, r := range n.state.Replicas {
		match := r.Hash() == d.SourceHash
		d.Matches[loc] = match
		if match {
			continue
		}
		d.TamperedCount++
		d.Diverging[loc] = divergingEvents(sourceEvents, r.Events)
	}
	n.mu.RUnlock()
	return d
}

// divergingEvents lists positions where a replica's record differs
// from the source, including positions present on only one side.
func divergingEvents(source, replica []ledger.Event) []int {
	n := len(source)
	if len(replica) > n {
		n = len(replica)
	}
	var out []int
	for i := 0; i < n; i++ {
		switch {
		case i >= len(source) || i >= len(replica):
			out = append(out, i)
		case source[i].Hash != replica[i].Hash ||
			source[i].Description != replica[i].Description:
			out = append(out, i)
		}
	}
	return out
}

// Reset restores every replica to its initial empty state.
func (n *Network) Reset() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.Replicas = map[Location]*Replica{}
	for _, loc := range Locations() {
		n.state.Replicas[loc] = &Replica{Location: loc}
	}
	return n.persistLocked()
}
