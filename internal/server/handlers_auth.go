package server

import (
	"net/http"

	"github.com/juanpablocruz/flightrec/internal/auth"
	"github.com/juanpablocruz/flightrec/pkg/hashutil"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.registerLimiter.Allow(clientKey(r)) {
		writeJSON(w, http.StatusTooManyRequests, errorPayload("registration rate limit exceeded"))
		return
	}
	var in struct {
		Name string    `json:"name"`
		Role auth.Role `json:"role"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	party, key, err := s.parties.Register(in.Name, in.Role)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload(err.Error()))
		return
	}
	s.log.Info("party registered", "id", party.ID, "role", party.Role)
	// The plaintext key appears only in this response.
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "party": party, "api_key": key})
}

// handleAnonymousID derives a stable pseudonym so a whistleblower can
// file repeat concerns without revealing who they are.
func (s *Server) handleAnonymousID(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Identity string `json:"identity"`
		Salt     string `json:"salt"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Identity == "" || in.Salt == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload("identity and salt are required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"anonymous_id": hashutil.DeriveID(in.Identity, in.Salt),
	})
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request, party auth.Party) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "party": party})
}

func (s *Server) handleListParties(w http.ResponseWriter, r *http.Request, party auth.Party) {
	list := s.parties.List()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "parties": list, "count": len(list)})
}

func (s *Server) handleRevokeParty(w http.ResponseWriter, r *http.Request, party auth.Party) {
	id := r.PathValue("id")
	if !s.parties.Revoke(id) {
		writeJSON(w, http.StatusNotFound, errorPayload("party not found"))
		return
	}
	s.log.Info("party revoked", "id", id, "by", party.ID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRotateKey(w http.ResponseWriter, r *http.Request, party auth.Party) {
	id := r.PathValue("id")
	// A party rotates its own key; auditors can rotate anyone's.
	if id != party.ID && party.Role != auth.RoleAuditor {
		writeJSON(w, http.StatusForbidden, errorPayload("cannot rotate another party's key"))
		return
	}
	key, ok := s.parties.RotateKey(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload("party not found or inactive"))
		return
	}
	s.log.Info("api key rotated", "id", id, "by", party.ID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "api_key": key})
}
