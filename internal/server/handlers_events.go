package server

import (
	"net/http"
	"strconv"

	"github.com/juanpablocruz/flightrec/internal/activity"
	"github.com/juanpablocruz/flightrec/internal/auth"
	"github.com/juanpablocruz/flightrec/pkg/ledger"
	"github.com/juanpablocruz/flightrec/pkg/merkle"
)

func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request, party auth.Party) {
	var in ledger.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Metadata == nil {
		in.Metadata = map[string]any{}
	}
	in.Metadata["recorded_by"] = party.ID

	event, err := s.ledger.Append(in)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload(err.Error()))
		return
	}
	s.log.Info("event appended", "id", event.ID, "type", event.EventType, "party", party.ID)
	s.bus.Publish(activity.KindEventAppended, event.Description, map[string]any{
		"event_id": event.ID, "event_type": event.EventType, "party": party.ID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "event": event})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	typeFilter := ledger.EventType(r.URL.Query().Get("event_type"))
	if typeFilter != "" && !typeFilter.Valid() {
		writeJSON(w, http.StatusBadRequest, errorPayload("unknown event type"))
		return
	}
	events := s.ledger.List(typeFilter, limit)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "events": events, "count": len(events)})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload("event id must be an integer"))
		return
	}
	event, ok := s.ledger.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload("event not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "event": event})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts := map[ledger.EventType]int{}
	for _, t := range ledger.EventTypes() {
		if n := s.ledger.CountByType(t); n > 0 {
			counts[t] = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"total_events":   s.ledger.Len(),
		"latest_hash":    s.ledger.LatestHash(),
		"merkle_root":    merkle.New(s.ledger.Hashes()).Root(),
		"events_by_type": counts,
		"last_event_at":  s.ledger.LastEventTime(),
	})
}

func (s *Server) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	result := s.ledger.VerifyChain()
	status := http.StatusOK
	if !result.IsValid {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"ok": result.IsValid, "result": result})
}

func (s *Server) handleMerkleRoot(w http.ResponseWriter, r *http.Request) {
	tree := merkle.New(s.ledger.Hashes())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"root":       tree.Root(),
		"leaf_count": tree.LeafCount(),
	})
}

func (s *Server) handleMerkleProof(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload("event id must be an integer"))
		return
	}
	event, ok := s.ledger.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload("event not found"))
		return
	}
	tree := merkle.New(s.ledger.Hashes())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"event_id":   id,
		"leaf_hash":  event.Hash,
		"proof":      tree.Proof(id),
		"root":       tree.Root(),
		"leaf_count": tree.LeafCount(),
	})
}

func (s *Server) handleMerkleVerify(w http.ResponseWriter, r *http.Request) {
	var in struct {
		LeafHash string             `json:"leaf_hash"`
		Proof    []merkle.ProofStep `json:"proof"`
		Root     string             `json:"root"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.LeafHash == "" || in.Root == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload("leaf_hash and root are required"))
		return
	}
	valid := merkle.Verify(in.LeafHash, in.Proof, in.Root)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "valid": valid})
}
