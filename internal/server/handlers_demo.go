package server

import (
	"net/http"

	"github.com/juanpablocruz/flightrec/internal/activity"
	"github.com/juanpablocruz/flightrec/pkg/ledger"
)

// handleDemoTamper corrupts a stored event in place to show chain
// verification catching it. Only routed in demo mode.
func (s *Server) handleDemoTamper(w http.ResponseWriter, r *http.Request) {
	var in struct {
		EventID     int            `json:"event_id"`
		Description string         `json:"description"`
		Metadata    map[string]any `json:"metadata"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	ok, err := s.ledger.Tamper(in.EventID, in.Description, in.Metadata)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorPayload(err.Error()))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload("event not found"))
		return
	}
	s.log.Warn("event tampered for demo", "id", in.EventID)
	s.bus.Publish(activity.KindEventTampered, "stored event modified in place", map[string]any{"event_id": in.EventID})
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "event modified in place; run /api/verify to see detection",
	})
}

func (s *Server) handleDemoReset(w http.ResponseWriter, r *http.Request) {
	for name, reset := range map[string]func() error{
		"ledger":       s.ledger.Reset,
		"commitments":  s.commitments.Reset,
		"parties":      s.parties.Reset,
		"transparency": s.transparency.Reset,
		"mirrors":      s.mirrors.Reset,
	} {
		if err := reset(); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorPayload("reset "+name+": "+err.Error()))
			return
		}
	}
	s.limiter.Reset()
	s.bus.Wait()
	s.feed.Clear()
	s.log.Info("demo state reset")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

var demoEvents = []ledger.EventInput{
	{EventType: ledger.TrainingStarted, Description: "Training run started for frontier-7b", Metadata: map[string]any{"model_id": "frontier-7b", "compute_budget_flops": 1e24}},
	{EventType: ledger.TrainingCompleted, Description: "Training run completed after 31 days", Metadata: map[string]any{"model_id": "frontier-7b"}},
	{EventType: ledger.SafetyEvalRun, Description: "Dangerous capabilities evaluation executed", Metadata: map[string]any{"model_id": "frontier-7b", "suite": "dc-evals-v3"}},
	{EventType: ledger.SafetyEvalPassed, Description: "Dangerous capabilities evaluation passed", Metadata: map[string]any{"model_id": "frontier-7b", "suite": "dc-evals-v3"}},
	{EventType: ledger.SafetyEvalRun, Description: "Autonomy evaluation executed", Metadata: map[string]any{"model_id": "frontier-7b", "suite": "autonomy-v1"}},
	{EventType: ledger.SafetyEvalPassed, Description: "Autonomy evaluation passed", Metadata: map[string]any{"model_id": "frontier-7b", "suite": "autonomy-v1"}},
	{EventType: ledger.ModelDeployed, Description: "Model deployed to limited availability", Metadata: map[string]any{"model_id": "frontier-7b", "deployment_id": "deploy_frontier_7b_la"}},
}

// handleDemoPopulate seeds a plausible training-to-deployment history
// and syncs the mirrors to it.
func (s *Server) handleDemoPopulate(w http.ResponseWriter, r *http.Request) {
	appended := 0
	for _, in := range demoEvents {
		if _, err := s.ledger.Append(in); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorPayload(err.Error()))
			return
		}
		appended++
	}
	if err := s.mirrors.SyncAll(s.ledger.Events()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorPayload(err.Error()))
		return
	}
	s.log.Info("demo data populated", "events", appended)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"events_added": appended,
		"total_events": s.ledger.Len(),
	})
}
