package server

import (
	"net/http"

	"github.com/juanpablocruz/flightrec/internal/activity"
	"github.com/juanpablocruz/flightrec/internal/auth"
	"github.com/juanpablocruz/flightrec/pkg/commitment"
	"github.com/juanpablocruz/flightrec/pkg/ledger"
)

func (s *Server) handleCreateCommitment(w http.ResponseWriter, r *http.Request, party auth.Party) {
	var in struct {
		EventType ledger.EventType `json:"event_type"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := s.commitments.Create(in.EventType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload(err.Error()))
		return
	}
	s.log.Info("commitment created", "id", c.ID, "type", c.EventType, "party", party.ID)
	s.bus.Publish(activity.KindCommitmentCreated, "count commitment created", map[string]any{
		"commitment_id": c.ID, "event_type": c.EventType,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "commitment": c})
}

func (s *Server) handleListCommitments(w http.ResponseWriter, r *http.Request) {
	list := s.commitments.List()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "commitments": list, "count": len(list)})
}

func (s *Server) handleGetCommitment(w http.ResponseWriter, r *http.Request) {
	c, ok := s.commitments.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload("commitment not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "commitment": c})
}

func (s *Server) handleGenerateProof(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Threshold int `json:"threshold"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Threshold < 0 {
		writeJSON(w, http.StatusBadRequest, errorPayload("threshold must not be negative"))
		return
	}
	proof, ok := s.commitments.GenerateProof(r.PathValue("id"), in.Threshold)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload("commitment not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "proof": proof})
}

func (s *Server) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CommitmentHash   string            `json:"commitment_hash"`
		Threshold        int               `json:"threshold"`
		ExcessCommitment string            `json:"excess_commitment"`
		ProofData        map[string]string `json:"proof_data"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.CommitmentHash == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload("commitment_hash is required"))
		return
	}
	valid, msg := commitment.VerifyProof(in.CommitmentHash, in.Threshold, in.ExcessCommitment, in.ProofData)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "valid": valid, "message": msg})
}
