package server

import (
	"errors"
	"net/http"

	"github.com/juanpablocruz/flightrec/internal/activity"
	"github.com/juanpablocruz/flightrec/internal/auth"
	"github.com/juanpablocruz/flightrec/internal/transparency"
)

func submitterRole(role auth.Role) transparency.SubmitterRole {
	switch role {
	case auth.RoleLab:
		return transparency.SubmitterLab
	case auth.RoleAuditor, auth.RoleGovernment:
		return transparency.SubmitterAuditor
	default:
		return transparency.SubmitterWhistleblower
	}
}

func (s *Server) handleRaiseConcern(w http.ResponseWriter, r *http.Request, party auth.Party) {
	var in struct {
		transparency.ConcernInput
		// Anonymous submissions replace the party id with a derived
		// pseudonym and are recorded as whistleblower concerns.
		AnonymousID string `json:"anonymous_id"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	submitterID := party.ID
	role := submitterRole(party.Role)
	if in.AnonymousID != "" {
		submitterID = in.AnonymousID
		role = transparency.SubmitterWhistleblower
	}

	c, err := s.transparency.RaiseConcern(in.ConcernInput, submitterID, role)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload(err.Error()))
		return
	}
	s.log.Info("concern raised", "id", c.ID, "category", c.Category, "role", c.SubmitterRole)
	s.bus.Publish(activity.KindConcernRaised, c.Title, map[string]any{
		"concern_id": c.ID, "category": c.Category, "role": c.SubmitterRole,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "concern": c})
}

func (s *Server) handleListConcerns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list := s.transparency.ListConcerns(transparency.ConcernFilter{
		Status:       transparency.ConcernStatus(q.Get("status")),
		Category:     transparency.ConcernCategory(q.Get("category")),
		DeploymentID: q.Get("deployment_id"),
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "concerns": list, "count": len(list)})
}

func (s *Server) handleGetConcern(w http.ResponseWriter, r *http.Request) {
	c, err := s.transparency.GetConcern(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorPayload("concern not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "concern": c})
}

func (s *Server) handleConcernResponses(w http.ResponseWriter, r *http.Request) {
	if _, err := s.transparency.GetConcern(r.PathValue("id")); err != nil {
		writeJSON(w, http.StatusNotFound, errorPayload("concern not found"))
		return
	}
	list := s.transparency.Responses(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "responses": list, "count": len(list)})
}

func (s *Server) handleConcernResolutions(w http.ResponseWriter, r *http.Request) {
	if _, err := s.transparency.GetConcern(r.PathValue("id")); err != nil {
		writeJSON(w, http.StatusNotFound, errorPayload("concern not found"))
		return
	}
	list := s.transparency.Resolutions(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "resolutions": list, "count": len(list)})
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request, party auth.Party) {
	var in transparency.ResponseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ConcernID = r.PathValue("id")
	resp, err := s.transparency.Respond(in, party.ID, submitterRole(party.Role))
	if err != nil {
		writeJSON(w, transparencyStatus(err), errorPayload(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "response": resp})
}

func (s *Server) handleDispute(w http.ResponseWriter, r *http.Request, party auth.Party) {
	c, err := s.transparency.Dispute(r.PathValue("id"))
	if err != nil {
		writeJSON(w, transparencyStatus(err), errorPayload(err.Error()))
		return
	}
	s.log.Info("concern disputed", "id", c.ID, "by", party.ID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "concern": c})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request, party auth.Party) {
	var in struct {
		Notes string `json:"notes"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.transparency.Resolve(r.PathValue("id"), in.Notes, party.ID)
	if err != nil {
		writeJSON(w, transparencyStatus(err), errorPayload(err.Error()))
		return
	}
	s.log.Info("concern resolved", "id", res.ConcernID, "auditor", party.ID)
	s.bus.Publish(activity.KindConcernResolved, "concern resolved", map[string]any{
		"concern_id": res.ConcernID, "auditor": party.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "resolution": res})
}

func (s *Server) handleSubmitCompliance(w http.ResponseWriter, r *http.Request, party auth.Party) {
	var in transparency.SubmissionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sub, err := s.transparency.SubmitCompliance(in, party.ID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload(err.Error()))
		return
	}
	s.log.Info("compliance submitted", "id", sub.ID, "template", sub.TemplateType, "deployment", sub.DeploymentID)
	s.bus.Publish(activity.KindComplianceFiled, sub.Title, map[string]any{
		"submission_id": sub.ID, "template": sub.TemplateType, "deployment_id": sub.DeploymentID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "submission": sub})
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list := s.transparency.ListSubmissions(transparency.SubmissionFilter{
		DeploymentID: q.Get("deployment_id"),
		TemplateType: transparency.TemplateType(q.Get("template_type")),
		Status:       transparency.SubmissionStatus(q.Get("status")),
		LabID:        q.Get("lab_id"),
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "submissions": list, "count": len(list)})
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.transparency.GetSubmission(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorPayload("submission not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "submission": sub})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request, party auth.Party) {
	var in transparency.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.SubmissionID = r.PathValue("id")
	sub, err := s.transparency.Review(in, party.ID)
	if err != nil {
		writeJSON(w, transparencyStatus(err), errorPayload(err.Error()))
		return
	}
	s.log.Info("submission reviewed", "id", sub.ID, "status", sub.Status, "auditor", party.ID)
	s.bus.Publish(activity.KindComplianceReviewed, "compliance submission reviewed", map[string]any{
		"submission_id": sub.ID, "status": sub.Status, "auditor": party.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "submission": sub})
}

func (s *Server) handleComplianceTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"templates": transparency.TemplateTypes(),
		"required":  transparency.DefaultRequiredTemplates,
	})
}

func (s *Server) handleComplianceStatus(w http.ResponseWriter, r *http.Request) {
	st := s.transparency.ComplianceStatusFor(r.PathValue("deployment"))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": st})
}

func (s *Server) handleClearance(w http.ResponseWriter, r *http.Request) {
	cl := s.transparency.CheckClearance(r.PathValue("deployment"))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "clearance": cl})
}

func (s *Server) handleTransparencyStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stats": s.transparency.Statistics()})
}

func (s *Server) handleTransparencyIntegrity(w http.ResponseWriter, r *http.Request) {
	bad := s.transparency.VerifyRecordHashes()
	status := http.StatusOK
	if len(bad) > 0 {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"ok": len(bad) == 0, "tampered_records": bad})
}

func transparencyStatus(err error) int {
	switch {
	case errors.Is(err, transparency.ErrConcernNotFound), errors.Is(err, transparency.ErrSubmissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, transparency.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
