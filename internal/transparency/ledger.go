// Package transparency implements the shared concern-and-compliance
// ledger that labs, whistleblowers and auditors all write to. Every
// record carries a canonical hash so an export can be checked for
// tampering offline.
package transparency

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/juanpablocruz/flightrec/pkg/hashutil"
	"github.com/juanpablocruz/flightrec/pkg/storage"
)

// DefaultRequiredTemplates are the documents a deployment must have
// verified before it can clear the compliance gate.
var DefaultRequiredTemplates = []TemplateType{
	TemplateSafetyEvaluation,
	TemplateCapabilityAssessment,
	TemplateRedTeamReport,
}

var (
	ErrConcernNotFound    = errors.New("concern not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 5000
)

type ledgerState struct {
	Concerns    []Concern    `json:"concerns"`
	Responses   []Response   `json:"responses"`
	Resolutions []Resolution `json:"resolutions"`
	Submissions []Submission `json:"submissions"`
}

// Ledger holds concerns, responses, resolutions and compliance
// submissions. All methods are safe for concurrent use.
type Ledger struct {
	mu    sync.RWMutex
	state ledgerState
	file  *storage.StateFile

	requiredTemplates []TemplateType
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRequiredTemplates overrides the compliance gate's template list.
func WithRequiredTemplates(ts []TemplateType) Option {
	return func(l *Ledger) {
		l.requiredTemplates = ts
	}
}

// New loads the ledger from file. A missing or corrupt file starts an
// empty ledger rather than failing.
func New(file *storage.StateFile, opts ...Option) *Ledger {
	l := &Ledger{
		file:              file,
		requiredTemplates: DefaultRequiredTemplates,
	}
	for _, opt := range opts {
		opt(l)
	}
	if file != nil {
		var st ledgerState
		if file.Load(&st) {
			l.state = st
		}
	}
	return l
}

func (l *Ledger) persistLocked() error {
	if l.file == nil {
		return nil
	}
	return l.file.Save(l.state)
}

func recordHash(fields map[string]any) string {
	h, err := hashutil.Canonical(fields)
	if err != nil {
		// Fields are plain strings and times rendered to strings;
		// canonicalization cannot fail on them.
		panic(fmt.Sprintf("transparency: canonical hash: %v", err))
	}
	return h
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func concernHash(c Concern) string {
	return recordHash(map[string]any{
		"id":             c.ID,
		"category":       string(c.Category),
		"title":          c.Title,
		"description":    c.Description,
		"submitter_id":   c.SubmitterID,
		"submitter_role": string(c.SubmitterRole),
		"evidence_hash":  c.EvidenceHash,
		"deployment_id":  c.DeploymentID,
		"model_id":       c.ModelID,
		"timestamp":      stamp(c.Timestamp),
	})
}

func responseHash(r Response) string {
	return recordHash(map[string]any{
		"id":             r.ID,
		"concern_id":     r.ConcernID,
		"response_text":  r.ResponseText,
		"responder_id":   r.ResponderID,
		"responder_role": string(r.ResponderRole),
		"evidence_hash":  r.EvidenceHash,
		"timestamp":      stamp(r.Timestamp),
	})
}

func resolutionHash(r Resolution) string {
	return recordHash(map[string]any{
		"id":               r.ID,
		"concern_id":       r.ConcernID,
		"resolution_notes": r.ResolutionNotes,
		"auditor_id":       r.AuditorID,
		"timestamp":        stamp(r.Timestamp),
	})
}

func submissionHash(s Submission) string {
	return recordHash(map[string]any{
		"id":            s.ID,
		"template_type": string(s.TemplateType),
		"deployment_id": s.DeploymentID,
		"model_id":      s.ModelID,
		"lab_id":        s.LabID,
		"title":         s.Title,
		"summary":       s.Summary,
		"evidence_hash": s.EvidenceHash,
		"metadata":      s.Metadata,
		"submitted_at":  stamp(s.SubmittedAt),
	})
}

// RaiseConcern appends a new open concern.
func (l *Ledger) RaiseConcern(in ConcernInput, submitterID string, role SubmitterRole) (Concern, error) {
	if !in.Category.Valid() {
		return Concern{}, fmt.Errorf("invalid category %q", in.Category)
	}
	if in.Title == "" {
		return Concern{}, errors.New("title is required")
	}
	if len(in.Title) > maxTitleLen {
		return Concern{}, fmt.Errorf("title exceeds %d characters", maxTitleLen)
	}
	if in.Description == "" {
		return Concern{}, errors.New("description is required")
	}
	if len(in.Description) > maxDescriptionLen {
		return Concern{}, fmt.Errorf("description exceeds %d characters", maxDescriptionLen)
	}
	if submitterID == "" {
		return Concern{}, errors.New("submitter id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c := Concern{
		ID:            "concern_" + uuid.NewString(),
		Category:      in.Category,
		Title:         in.Title,
		Description:   in.Description,
		SubmitterID:   submitterID,
		SubmitterRole: role,
		Status:        ConcernOpen,
		EvidenceHash:  in.EvidenceHash,
		DeploymentID:  in.DeploymentID,
		ModelID:       in.ModelID,
		Timestamp:     time.Now().UTC(),
	}
	c.Hash = concernHash(c)

	l.state.Concerns = append(l.state.Concerns, c)
	if err := l.persistLocked(); err != nil {
		l.state.Concerns = l.state.Concerns[:len(l.state.Concerns)-1]
		return Concern{}, fmt.Errorf("persist concern: %w", err)
	}
	return c, nil
}

// GetConcern returns a concern by id.
func (l *Ledger) GetConcern(id string) (Concern, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.state.Concerns {
		if c.ID == id {
			return c, nil
		}
	}
	return Concern{}, ErrConcernNotFound
}

// ConcernFilter narrows ListConcerns. Zero values match everything.
type ConcernFilter struct {
	Status       ConcernStatus
	Category     ConcernCategory
	DeploymentID string
}

// ListConcerns returns matching concerns, newest first.
func (l *Ledger) ListConcerns(f ConcernFilter) []Concern {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Concern, 0, len(l.state.Concerns))
	for i := len(l.state.Concerns) - 1; i >= 0; i-- {
		c := l.state.Concerns[i]
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.DeploymentID != "" && c.DeploymentID != f.DeploymentID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Respond records a reply to a concern and marks it addressed. A
// disputed or resolved concern can still be responded to; resolution
// is final, so it keeps its status.
func (l *Ledger) Respond(in ResponseInput, responderID string, role SubmitterRole) (Response, error) {
	if in.ResponseText == "" {
		return Response{}, errors.New("response text is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, c := range l.state.Concerns {
		if c.ID == in.ConcernID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Response{}, ErrConcernNotFound
	}

	r := Response{
		ID:            "response_" + uuid.NewString(),
		ConcernID:     in.ConcernID,
		ResponseText:  in.ResponseText,
		ResponderID:   responderID,
		ResponderRole: role,
		EvidenceHash:  in.EvidenceHash,
		Timestamp:     time.Now().UTC(),
	}
	r.Hash = responseHash(r)

	prevStatus := l.state.Concerns[idx].Status
	l.state.Responses = append(l.state.Responses, r)
	if prevStatus == ConcernOpen || prevStatus == ConcernDisputed {
		l.state.Concerns[idx].Status = ConcernAddressed
	}
	if err := l.persistLocked(); err != nil {
		l.state.Responses = l.state.Responses[:len(l.state.Responses)-1]
		l.state.Concerns[idx].Status = prevStatus
		return Response{}, fmt.Errorf("persist response: %w", err)
	}
	return r, nil
}

// Responses returns all replies to a concern, oldest first.
func (l *Ledger) Responses(concernID string) []Response {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Response
	for _, r := range l.state.Responses {
		if r.ConcernID == concernID {
			out = append(out, r)
		}
	}
	return out
}

// Dispute flags an addressed concern as contested by its submitter.
func (l *Ledger) Dispute(concernID string) (Concern, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, c := range l.state.Concerns {
		if c.ID != concernID {
			continue
		}
		if c.Status != ConcernAddressed {
			return Concern{}, fmt.Errorf("%w: cannot dispute a %s concern", ErrInvalidTransition, c.Status)
		}
		prev := c.Status
		l.state.Concerns[i].Status = ConcernDisputed
		if err := l.persistLocked(); err != nil {
			l.state.Concerns[i].Status = prev
			return Concern{}, fmt.Errorf("persist dispute: %w", err)
		}
		return l.state.Concerns[i], nil
	}
	return Concern{}, ErrConcernNotFound
}

// Resolve closes a concern with an auditor's notes. Resolution is
// terminal.
func (l *Ledger) Resolve(concernID, notes, auditorID string) (Resolution, error) {
	if notes == "" {
		return Resolution{}, errors.New("resolution notes are required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, c := range l.state.Concerns {
		if c.ID == concernID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Resolution{}, ErrConcernNotFound
	}
	if l.state.Concerns[idx].Status == ConcernResolved {
		return Resolution{}, fmt.Errorf("%w: concern already resolved", ErrInvalidTransition)
	}

	r := Resolution{
		ID:              "resolution_" + uuid.NewString(),
		ConcernID:       concernID,
		ResolutionNotes: notes,
		AuditorID:       auditorID,
		Timestamp:       time.Now().UTC(),
	}
	r.Hash = resolutionHash(r)

	prev := l.state.Concerns[idx].Status
	l.state.Resolutions = append(l.state.Resolutions, r)
	l.state.Concerns[idx].Status = ConcernResolved
	if err := l.persistLocked(); err != nil {
		l.state.Resolutions = l.state.Resolutions[:len(l.state.Resolutions)-1]
		l.state.Concerns[idx].Status = prev
		return Resolution{}, fmt.Errorf("persist resolution: %w", err)
	}
	return r, nil
}

// Resolutions returns the resolutions recorded for a concern, oldest
// first. Normally at most one.
func (l *Ledger) Resolutions(concernID string) []Resolution {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Resolution
	for _, r := range l.state.Resolutions {
		if r.ConcernID == concernID {
			out = append(out, r)
		}
	}
	return out
}

// VerifyRecordHashes recomputes every stored record hash and reports
// the ids whose contents no longer match. An empty slice means the
// export is intact.
func (l *Ledger) VerifyRecordHashes() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var bad []string
	for _, c := range l.state.Concerns {
		if concernHash(c) != c.Hash {
			bad = append(bad, c.ID)
		}
	}
	for _, r := range l.state.Responses {
		if responseHash(r) != r.Hash {
			bad = append(bad, r.ID)
		}
	}
	for _, r := range l.state.Resolutions {
		if resolutionHash(r) != r.Hash {
			bad = append(bad, r.ID)
		}
	}
	for _, s := range l.state.Submissions {
		if submissionHash(s) != s.Hash {
			bad = append(bad, s.ID)
		}
	}
	return bad
}

// Reset clears all ledger contents.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = ledgerState{}
	return l.persistLocked()
}
