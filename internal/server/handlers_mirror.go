package server

import (
	"net/http"

	"github.com/juanpablocruz/flightrec/internal/activity"
	"github.com/juanpablocruz/flightrec/internal/mirror"
)

func (s *Server) handleMirrorSync(w http.ResponseWriter, r *http.Request) {
	events := s.ledger.Events()
	if err := s.mirrors.SyncAll(events); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorPayload(err.Error()))
		return
	}
	s.log.Info("mirrors synced", "events", len(events))
	s.bus.Publish(activity.KindMirrorsSynced, "mirrors synced to source", map[string]any{"events": len(events)})
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"synced": len(events),
		"hashes": s.mirrors.Hashes(),
	})
}

func (s *Server) handleMirrorStatus(w http.ResponseWriter, r *http.Request) {
	type mirrorStatus struct {
		Location  mirror.Location `json:"location"`
		Hash      string          `json:"hash"`
		Events    int             `json:"event_count"`
		SyncCount int             `json:"sync_count"`
		Tampered  bool            `json:"tampered"`
	}
	var out []mirrorStatus
	for _, loc := range mirror.Locations() {
		rep, err := s.mirrors.Get(loc)
		if err != nil {
			continue
		}
		out = append(out, mirrorStatus{
			Location:  loc,
			Hash:      rep.Hash(),
			Events:    len(rep.Events),
			SyncCount: rep.SyncCount,
			Tampered:  rep.Tampered,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "mirrors": out})
}

func (s *Server) handleMirrorCompare(w http.ResponseWriter, r *http.Request) {
	c := s.mirrors.Compare()
	status := http.StatusOK
	if !c.AllConsistent {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"ok": c.AllConsistent, "comparison": c})
}

func (s *Server) handleMirrorDetect(w http.ResponseWriter, r *http.Request) {
	d := s.mirrors.DetectTampering(s.ledger.Events())
	status := http.StatusOK
	if d.TamperedCount > 0 {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"ok": d.TamperedCount == 0, "detection": d})
}

func (s *Server) handleMirrorTamper(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.DemoMode {
		writeJSON(w, http.StatusForbidden, errorPayload("tamper simulation requires demo mode"))
		return
	}
	var in struct {
		Action mirror.TamperAction `json:"action"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	loc := mirror.Location(r.PathValue("location"))
	rep, err := s.mirrors.Tamper(loc, in.Action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload(err.Error()))
		return
	}
	s.log.Warn("mirror tampered", "location", loc, "action", in.Action)
	s.bus.Publish(activity.KindMirrorTampered, "mirror tampered for demo", map[string]any{
		"location": loc, "action": in.Action,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"location": loc,
		"action":   in.Action,
		"hash":     rep.Hash(),
	})
}
