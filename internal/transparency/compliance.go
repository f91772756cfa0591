package transparency

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubmitCompliance files a compliance document on behalf of a lab.
func (l *Ledger) SubmitCompliance(in SubmissionInput, labID string) (Submission, error) {
	if !in.TemplateType.Valid() {
		return Submission{}, fmt.Errorf("invalid template type %q", in.TemplateType)
	}
	if in.DeploymentID == "" {
		return Submission{}, errors.New("deployment id is required")
	}
	if in.Title == "" {
		return Submission{}, errors.New("title is required")
	}
	if in.EvidenceHash == "" {
		return Submission{}, errors.New("evidence hash is required")
	}
	if labID == "" {
		return Submission{}, errors.New("lab id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := Submission{
		ID:           "submission_" + uuid.NewString(),
		TemplateType: in.TemplateType,
		DeploymentID: in.DeploymentID,
		ModelID:      in.ModelID,
		LabID:        labID,
		Title:        in.Title,
		Summary:      in.Summary,
		EvidenceHash: in.EvidenceHash,
		Metadata:     in.Metadata,
		Status:       SubmissionSubmitted,
		SubmittedAt:  time.Now().UTC(),
	}
	s.Hash = submissionHash(s)

	l.state.Submissions = append(l.state.Submissions, s)
	if err := l.persistLocked(); err != nil {
		l.state.Submissions = l.state.Submissions[:len(l.state.Submissions)-1]
		return Submission{}, fmt.Errorf("persist submission: %w", err)
	}
	return s, nil
}

// GetSubmission returns a compliance submission by id.
func (l *Ledger) GetSubmission(id string) (Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.state.Submissions {
		if s.ID == id {
			return s, nil
		}
	}
	return Submission{}, ErrSubmissionNotFound
}

// SubmissionFilter narrows ListSubmissions. Zero values match everything.
type SubmissionFilter struct {
	DeploymentID string
	TemplateType TemplateType
	Status       SubmissionStatus
	LabID        string
}

// ListSubmissions returns matching submissions, newest first.
func (l *Ledger) ListSubmissions(f SubmissionFilter) []Submission {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Submission, 0, len(l.state.Submissions))
	for i := len(l.state.Submissions) - 1; i >= 0; i-- {
		s := l.state.Submissions[i]
		if f.DeploymentID != "" && s.DeploymentID != f.DeploymentID {
			continue
		}
		if f.TemplateType != "" && s.TemplateType != f.TemplateType {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.LabID != "" && s.LabID != f.LabID {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Review records an auditor verdict on a submission. The submission's
// record hash is recomputed first; a submission whose stored contents
// no longer match its hash is rejected outright regardless of the
// requested verdict.
func (l *Ledger) Review(in ReviewInput, auditorID string) (Submission, error) {
	if in.Status != SubmissionVerified && in.Status != SubmissionRejected && in.Status != SubmissionUnderReview {
		return Submission{}, fmt.Errorf("invalid review status %q", in.Status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, s := range l.state.Submissions {
		if s.ID == in.SubmissionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Submission{}, ErrSubmissionNotFound
	}

	prev := l.state.Submissions[idx]

	status := in.Status
	notes := in.Notes
	if submissionHash(prev) != prev.Hash {
		status = SubmissionRejected
		notes = "record hash mismatch: submission contents were altered after filing"
	} else if status == SubmissionVerified && !in.EvidenceVerified {
		return Submission{}, errors.New("cannot verify a submission without verified evidence")
	}

	now := time.Now().UTC()
	l.state.Submissions[idx].Status = status
	l.state.Submissions[idx].ReviewedAt = &now
	l.state.Submissions[idx].ReviewedBy = auditorID
	l.state.Submissions[idx].ReviewNotes = notes
	if err := l.persistLocked(); err != nil {
		l.state.Submissions[idx] = prev
		return Submission{}, fmt.Errorf("persist review: %w", err)
	}
	return l.state.Submissions[idx], nil
}
