// Package activity fans recorder actions out to subscribers and keeps
// a bounded recent-activity feed for the API.
package activity

import (
	"context"
	"sync"
	"time"
)

// Kind classifies an activity entry.
type Kind string

const (
	KindEventAppended      Kind = "event_appended"
	KindEventTampered      Kind = "event_tampered"
	KindCommitmentCreated  Kind = "commitment_created"
	KindConcernRaised      Kind = "concern_raised"
	KindConcernResolved    Kind = "concern_resolved"
	KindComplianceFiled    Kind = "compliance_filed"
	KindComplianceReviewed Kind = "compliance_reviewed"
	KindMirrorsSynced      Kind = "mirrors_synced"
	KindMirrorTampered     Kind = "mirror_tampered"
)

// Entry is one recorded action.
type Entry struct {
	Kind      Kind           `json:"kind"`
	Summary   string         `json:"summary"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Subscriber consumes entries on its own channel. The bus owns a
// goroutine per subscriber; subscribers must not close their channel.
type Subscriber interface {
	OnActivity(Entry)
	Channel() chan Entry
}

// Bus delivers every published entry to every subscriber. Publish
// blocks when a subscriber falls behind, giving backpressure instead
// of dropped audit records.
type Bus struct {
	mu   sync.RWMutex
	subs map[Subscriber]struct{}

	ctx    context.Context
	cancel context.CancelFunc

	workers sync.WaitGroup
	pending sync.WaitGroup
}

func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		subs:   make(map[Subscriber]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Subscribe registers s and starts consuming its channel.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	if _, ok := b.subs[s]; ok {
		b.mu.Unlock()
		return
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	b.workers.Add(1)
	go func() {
		defer b.workers.Done()
		ch := s.Channel()
		for {
			select {
			case e := <-ch:
				s.OnActivity(e)
				b.pending.Done()
			case <-b.ctx.Done():
				return
			}
		}
	}()
}

// Publish stamps the entry and delivers it to the current subscribers.
func (b *Bus) Publish(kind Kind, summary string, details map[string]any) {
	e := Entry{Kind: kind, Summary: summary, Details: details, Timestamp: time.Now().UTC()}

	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.subs))
	for s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		b.pending.Add(1)
		select {
		case s.Channel() <- e:
		case <-b.ctx.Done():
			b.pending.Done()
		}
	}
}

// Wait blocks until every published entry has been handled.
func (b *Bus) Wait() {
	b.pending.Wait()
}

// Close stops subscriber workers after in-flight entries are handled.
func (b *Bus) Close() {
	b.pending.Wait()
	b.cancel()
	b.workers.Wait()
}
