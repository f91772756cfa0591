package ledger

import (
	"fmt"
	"time"
)

// EventType tags a governance event in the log.
type EventType string

const (
	TrainingStarted   EventType = "training_started"
	TrainingCompleted EventType = "training_completed"
	SafetyEvalRun     EventType = "safety_eval_run"
	SafetyEvalPassed  EventType = "safety_eval_passed"
	SafetyEvalFailed  EventType = "safety_eval_failed"
	ModelDeployed     EventType = "model_deployed"
	IncidentReported  EventType = "incident_reported"
)

// EventTypes lists every valid tag, in declaration order.
func EventTypes() []EventType {
	return []EventType{
		TrainingStarted, TrainingCompleted,
		SafetyEvalRun, SafetyEvalPassed, SafetyEvalFailed,
		ModelDeployed, IncidentReported,
	}
}

func (t EventType) Valid() bool {
	switch t {
	case TrainingStarted, TrainingCompleted,
		SafetyEvalRun, SafetyEvalPassed, SafetyEvalFailed,
		ModelDeployed, IncidentReported:
		return true
	}
	return false
}

// maxDescriptionLen bounds event descriptions.
const maxDescriptionLen = 1000

// EventInput is the caller-supplied part of an event.
type EventInput struct {
	EventType   EventType      `json:"event_type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

func (in EventInput) validate() error {
	if !in.EventType.Valid() {
		return fmt.Errorf("unknown event type %q", in.EventType)
	}
	if in.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(in.Description) > maxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLen)
	}
	return nil
}

// Event is one immutable, hash-linked entry of the ledger.
type Event struct {
	ID           int            `json:"id"`
	EventType    EventType      `json:"event_type"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata"`
	Timestamp    time.Time      `json:"timestamp"`
	PreviousHash string         `json:"previous_hash"`
	Hash         string         `json:"hash"`
}

// hashPayload is the exact record shape committed to by the event hash.
// Changing a key here invalidates every stored chain.
func hashPayload(e Event) map[string]any {
	return map[string]any{
		"id":          e.ID,
		"event_type":  string(e.EventType),
		"description": e.Description,
		"metadata":    e.Metadata,
		"timestamp":   e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
