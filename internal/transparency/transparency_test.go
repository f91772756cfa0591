package transparency

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juanpablocruz/flightrec/pkg/storage"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(storage.NewStateFile(filepath.Join(t.TempDir(), "transparency.json")))
}

func raise(t *testing.T, l *Ledger, deploymentID string) Concern {
	t.Helper()
	c, err := l.RaiseConcern(ConcernInput{
		Category:     CategorySafetyEval,
		Title:        "Eval run skipped",
		Description:  "The dangerous-capabilities eval was not run before release",
		DeploymentID: deploymentID,
	}, "party_wb1", SubmitterWhistleblower)
	if err != nil {
		t.Fatalf("RaiseConcern: %v", err)
	}
	return c
}

func TestConcernLifecycle(t *testing.T) {
	l := newTestLedger(t)
	c := raise(t, l, "deploy_1")

	if c.Status != ConcernOpen {
		t.Fatalf("new concern status = %s, want open", c.Status)
	}
	if c.Hash == "" || len(c.Hash) != 64 {
		t.Fatalf("concern hash = %q, want 64 hex chars", c.Hash)
	}

	if _, err := l.Dispute(c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("dispute of open concern err = %v, want ErrInvalidTransition", err)
	}

	r, err := l.Respond(ResponseInput{ConcernID: c.ID, ResponseText: "Eval was run under a different name"}, "party_lab1", SubmitterLab)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	got, _ := l.GetConcern(c.ID)
	if got.Status != ConcernAddressed {
		t.Fatalf("status after respond = %s, want addressed", got.Status)
	}
	if rs := l.Responses(c.ID); len(rs) != 1 || rs[0].ID != r.ID {
		t.Fatalf("Responses = %v, want the one recorded response", rs)
	}

	if _, err := l.Dispute(c.ID); err != nil {
		t.Fatalf("Dispute: %v", err)
	}
	got, _ = l.GetConcern(c.ID)
	if got.Status != ConcernDisputed {
		t.Fatalf("status after dispute = %s, want disputed", got.Status)
	}

	if _, err := l.Resolve(c.ID, "Confirmed with eval logs", "party_aud1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, _ = l.GetConcern(c.ID)
	if got.Status != ConcernResolved {
		t.Fatalf("status after resolve = %s, want resolved", got.Status)
	}

	if _, err := l.Resolve(c.ID, "again", "party_aud1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double resolve err = %v, want ErrInvalidTransition", err)
	}
}

func TestRaiseConcernValidation(t *testing.T) {
	l := newTestLedger(t)

	cases := []struct {
		name string
		in   ConcernInput
	}{
		{"bad category", ConcernInput{Category: "nonsense", Title: "t", Description: "d"}},
		{"missing title", ConcernInput{Category: CategoryProcess, Description: "d"}},
		{"missing description", ConcernInput{Category: CategoryProcess, Title: "t"}},
		{"long title", ConcernInput{Category: CategoryProcess, Title: strings.Repeat("x", maxTitleLen+1), Description: "d"}},
		{"long description", ConcernInput{Category: CategoryProcess, Title: "t", Description: strings.Repeat("x", maxDescriptionLen+1)}},
	}
	for _, tc := range cases {
		if _, err := l.RaiseConcern(tc.in, "party_1", SubmitterAuditor); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
	if _, err := l.RaiseConcern(ConcernInput{Category: CategoryProcess, Title: "t", Description: "d"}, "", SubmitterAuditor); err == nil {
		t.Error("missing submitter id: expected error")
	}
}

func TestListConcernsFilters(t *testing.T) {
	l := newTestLedger(t)
	a := raise(t, l, "deploy_a")
	raise(t, l, "deploy_b")
	if _, err := l.Respond(ResponseInput{ConcernID: a.ID, ResponseText: "ack"}, "party_lab1", SubmitterLab); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if got := l.ListConcerns(ConcernFilter{}); len(got) != 2 {
		t.Fatalf("unfiltered list = %d concerns, want 2", len(got))
	}
	if got := l.ListConcerns(ConcernFilter{DeploymentID: "deploy_a"}); len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("deployment filter = %v, want only deploy_a concern", got)
	}
	if got := l.ListConcerns(ConcernFilter{Status: ConcernOpen}); len(got) != 1 {
		t.Fatalf("status filter = %d concerns, want 1 open", len(got))
	}
	if got := l.ListConcerns(ConcernFilter{Category: CategoryOther}); len(got) != 0 {
		t.Fatalf("category filter = %d concerns, want 0", len(got))
	}
}

func submit(t *testing.T, l *Ledger, deployID string, tt TemplateType) Submission {
	t.Helper()
	s, err := l.SubmitCompliance(SubmissionInput{
		TemplateType: tt,
		DeploymentID: deployID,
		ModelID:      "model_x",
		Title:        string(tt) + " for model_x",
		Summary:      "summary",
		EvidenceHash: strings.Repeat("ab", 32),
	}, "party_lab1")
	if err != nil {
		t.Fatalf("SubmitCompliance(%s): %v", tt, err)
	}
	return s
}

func verify(t *testing.T, l *Ledger, id string) {
	t.Helper()
	if _, err := l.Review(ReviewInput{SubmissionID: id, Status: SubmissionVerified, Notes: "ok", EvidenceVerified: true}, "party_aud1"); err != nil {
		t.Fatalf("Review(%s): %v", id, err)
	}
}

func TestComplianceReview(t *testing.T) {
	l := newTestLedger(t)
	s := submit(t, l, "deploy_1", TemplateSafetyEvaluation)

	if s.Status != SubmissionSubmitted {
		t.Fatalf("new submission status = %s, want submitted", s.Status)
	}

	if _, err := l.Review(ReviewInput{SubmissionID: s.ID, Status: SubmissionVerified, EvidenceVerified: false}, "party_aud1"); err == nil {
		t.Fatal("verified without evidence: expected error")
	}
	if _, err := l.Review(ReviewInput{SubmissionID: "submission_nope", Status: SubmissionVerified, EvidenceVerified: true}, "party_aud1"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("unknown submission err = %v, want ErrSubmissionNotFound", err)
	}

	verify(t, l, s.ID)
	got, _ := l.GetSubmission(s.ID)
	if got.Status != SubmissionVerified || got.ReviewedAt == nil || got.ReviewedBy != "party_aud1" {
		t.Fatalf("reviewed submission = %+v, want verified by party_aud1", got)
	}
}

func TestReviewRejectsTamperedSubmission(t *testing.T) {
	l := newTestLedger(t)
	s := submit(t, l, "deploy_1", TemplateRedTeamReport)

	// Corrupt the stored record directly, keeping its original hash.
	l.mu.Lock()
	for i := range l.state.Submissions {
		if l.state.Submissions[i].ID == s.ID {
			l.state.Submissions[i].Summary = "edited after filing"
		}
	}
	l.mu.Unlock()

	got, err := l.Review(ReviewInput{SubmissionID: s.ID, Status: SubmissionVerified, EvidenceVerified: true}, "party_aud1")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got.Status != SubmissionRejected {
		t.Fatalf("tampered submission status = %s, want rejected", got.Status)
	}
	if bad := l.VerifyRecordHashes(); len(bad) != 1 || bad[0] != s.ID {
		t.Fatalf("VerifyRecordHashes = %v, want [%s]", bad, s.ID)
	}
}

func TestComplianceGate(t *testing.T) {
	l := newTestLedger(t)
	const deploy = "deploy_gate"

	st := l.ComplianceStatusFor(deploy)
	if st.IsCleared {
		t.Fatal("empty deployment should not be cleared")
	}
	if len(st.MissingTemplates) != len(DefaultRequiredTemplates) {
		t.Fatalf("missing = %v, want all required templates", st.MissingTemplates)
	}

	// File and verify two of three required documents.
	verify(t, l, submit(t, l, deploy, TemplateSafetyEvaluation).ID)
	verify(t, l, submit(t, l, deploy, TemplateCapabilityAssessment).ID)
	st = l.ComplianceStatusFor(deploy)
	if st.IsCleared || len(st.MissingTemplates) != 1 || st.MissingTemplates[0] != TemplateRedTeamReport {
		t.Fatalf("status = %+v, want only red_team_report missing", st)
	}

	// Third document filed but rejected still blocks.
	rt := submit(t, l, deploy, TemplateRedTeamReport)
	if _, err := l.Review(ReviewInput{SubmissionID: rt.ID, Status: SubmissionRejected, Notes: "evidence hash did not match"}, "party_aud1"); err != nil {
		t.Fatalf("Review: %v", err)
	}
	st = l.ComplianceStatusFor(deploy)
	if st.IsCleared || len(st.RejectedTemplates) != 1 {
		t.Fatalf("status after rejection = %+v, want blocked with 1 rejected", st)
	}

	// Refiled and verified clears the template side.
	verify(t, l, submit(t, l, deploy, TemplateRedTeamReport).ID)
	st = l.ComplianceStatusFor(deploy)
	if !st.ComplianceComplete {
		t.Fatalf("status = %+v, want compliance complete", st)
	}
	if !st.IsCleared {
		t.Fatalf("status = %+v, want cleared with no concerns", st)
	}

	// An open concern blocks an otherwise compliant deployment.
	c := raise(t, l, deploy)
	st = l.ComplianceStatusFor(deploy)
	if st.IsCleared || st.UnresolvedConcerns != 1 {
		t.Fatalf("status with open concern = %+v, want blocked", st)
	}
	if _, err := l.Resolve(c.ID, "verified fixed", "party_aud1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	st = l.ComplianceStatusFor(deploy)
	if !st.IsCleared {
		t.Fatalf("status after resolution = %+v, want cleared", st)
	}
}

func TestCheckClearance(t *testing.T) {
	l := newTestLedger(t)
	const deploy = "deploy_clr"

	cl := l.CheckClearance(deploy)
	if !cl.IsCleared || cl.TotalConcerns != 0 {
		t.Fatalf("clearance with no concerns = %+v, want trivially cleared", cl)
	}

	c1 := raise(t, l, deploy)
	raise(t, l, deploy)
	cl = l.CheckClearance(deploy)
	if cl.IsCleared || cl.OpenConcerns != 2 {
		t.Fatalf("clearance = %+v, want 2 open and not cleared", cl)
	}

	if _, err := l.Resolve(c1.ID, "done", "party_aud1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cl = l.CheckClearance(deploy)
	if cl.IsCleared || cl.ResolvedConcerns != 1 || cl.OpenConcerns != 1 {
		t.Fatalf("clearance = %+v, want 1 resolved 1 open", cl)
	}
}

func TestStatistics(t *testing.T) {
	l := newTestLedger(t)
	c := raise(t, l, "deploy_1")
	if _, err := l.Respond(ResponseInput{ConcernID: c.ID, ResponseText: "ack"}, "party_lab1", SubmitterLab); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	submit(t, l, "deploy_1", TemplateSafetyEvaluation)

	s := l.Statistics()
	if s.TotalConcerns != 1 || s.TotalResponses != 1 || s.TotalSubmissions != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if s.ConcernsByStatus[ConcernAddressed] != 1 {
		t.Errorf("concerns by status = %v, want 1 addressed", s.ConcernsByStatus)
	}
	if s.ComplianceByTemplate[TemplateSafetyEvaluation] != 1 {
		t.Errorf("compliance by template = %v", s.ComplianceByTemplate)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transparency.json")

	l := New(storage.NewStateFile(path))
	c := raise(t, l, "deploy_1")
	submit(t, l, "deploy_1", TemplateSafetyEvaluation)

	reloaded := New(storage.NewStateFile(path))
	got, err := reloaded.GetConcern(c.ID)
	if err != nil {
		t.Fatalf("GetConcern after reload: %v", err)
	}
	if got.Hash != c.Hash {
		t.Fatalf("reloaded hash = %s, want %s", got.Hash, c.Hash)
	}
	if bad := reloaded.VerifyRecordHashes(); len(bad) != 0 {
		t.Fatalf("VerifyRecordHashes after reload = %v, want none", bad)
	}
	if reloaded.Statistics().TotalSubmissions != 1 {
		t.Fatal("submission not persisted")
	}
}

func TestWithRequiredTemplates(t *testing.T) {
	l := New(nil, WithRequiredTemplates([]TemplateType{TemplateIncidentReport}))
	verify(t, l, submit(t, l, "deploy_1", TemplateIncidentReport).ID)
	st := l.ComplianceStatusFor("deploy_1")
	if !st.IsCleared {
		t.Fatalf("status = %+v, want cleared with custom template list", st)
	}
}
