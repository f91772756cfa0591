package transparency

import "fmt"

// CheckClearance reports whether every concern raised against a
// deployment has been resolved.
func (l *Ledger) CheckClearance(deploymentID string) Clearance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c := Clearance{DeploymentID: deploymentID}
	for _, con := range l.state.Concerns {
		if con.DeploymentID != deploymentID {
			continue
		}
		c.TotalConcerns++
		switch con.Status {
		case ConcernOpen, ConcernDisputed:
			c.OpenConcerns++
		case ConcernAddressed:
			c.AddressedConcerns++
		case ConcernResolved:
			c.ResolvedConcerns++
		}
	}

	c.IsCleared = c.TotalConcerns == c.ResolvedConcerns
	switch {
	case c.TotalConcerns == 0:
		c.Message = "No concerns raised against this deployment"
	case c.IsCleared:
		c.Message = fmt.Sprintf("All %d concerns resolved", c.TotalConcerns)
	default:
		c.Message = fmt.Sprintf("%d of %d concerns still unresolved",
			c.TotalConcerns-c.ResolvedConcerns, c.TotalConcerns)
	}
	return c
}

// ComplianceStatusFor runs the unified deployment gate: every required
// template must be verified and every concern resolved.
func (l *Ledger) ComplianceStatusFor(deploymentID string) ComplianceStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := ComplianceStatus{
		DeploymentID:      deploymentID,
		RequiredTemplates: append([]TemplateType(nil), l.requiredTemplates...),
	}

	// Latest submission per template wins; a lab can refile after a
	// rejection.
	latest := map[TemplateType]Submission{}
	for _, s := range l.state.Submissions {
		if s.DeploymentID != deploymentID {
			continue
		}
		latest[s.TemplateType] = s
		if st.ModelID == "" {
			st.ModelID = s.ModelID
		}
	}
	for t, s := range latest {
		st.SubmittedTemplates = append(st.SubmittedTemplates, t)
		switch s.Status {
		case SubmissionVerified:
			st.VerifiedTemplates = append(st.VerifiedTemplates, t)
		case SubmissionRejected:
			st.RejectedTemplates = append(st.RejectedTemplates, t)
		}
	}
	verified := map[TemplateType]bool{}
	for _, t := range st.VerifiedTemplates {
		verified[t] = true
	}
	for _, t := range st.RequiredTemplates {
		if !verified[t] {
			st.MissingTemplates = append(st.MissingTemplates, t)
		}
	}

	for _, con := range l.state.Concerns {
		if con.DeploymentID != deploymentID {
			continue
		}
		switch con.Status {
		case ConcernResolved:
			st.ResolvedConcerns++
		case ConcernOpen, ConcernDisputed:
			st.OpenConcerns++
			st.UnresolvedConcerns++
		default:
			st.UnresolvedConcerns++
		}
	}

	st.ComplianceComplete = len(st.MissingTemplates) == 0
	st.ConcernsResolved = st.UnresolvedConcerns == 0
	st.IsCleared = st.ComplianceComplete && st.ConcernsResolved
	switch {
	case st.IsCleared:
		st.Message = "Deployment cleared: all compliance documents verified and all concerns resolved"
	case !st.ComplianceComplete && !st.ConcernsResolved:
		st.Message = fmt.Sprintf("Blocked: %d compliance documents missing or unverified, %d concerns unresolved",
			len(st.MissingTemplates), st.UnresolvedConcerns)
	case !st.ComplianceComplete:
		st.Message = fmt.Sprintf("Blocked: %d compliance documents missing or unverified", len(st.MissingTemplates))
	default:
		st.Message = fmt.Sprintf("Blocked: %d concerns unresolved", st.UnresolvedConcerns)
	}
	return st
}

// Statistics aggregates counts across the whole ledger.
func (l *Ledger) Statistics() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Stats{
		TotalConcerns:        len(l.state.Concerns),
		TotalResponses:       len(l.state.Responses),
		TotalResolutions:     len(l.state.Resolutions),
		TotalSubmissions:     len(l.state.Submissions),
		ConcernsByStatus:     map[ConcernStatus]int{},
		ConcernsByRole:       map[SubmitterRole]int{},
		ComplianceByStatus:   map[SubmissionStatus]int{},
		ComplianceByTemplate: map[TemplateType]int{},
	}
	for _, c := range l.state.Concerns {
		s.ConcernsByStatus[c.Status]++
		s.ConcernsByRole[c.SubmitterRole]++
	}
	for _, sub := range l.state.Submissions {
		s.ComplianceByStatus[sub.Status]++
		s.ComplianceByTemplate[sub.TemplateType]++
	}
	return s
}
