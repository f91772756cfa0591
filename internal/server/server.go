// Package server exposes the recorder over HTTP. Writes are gated by
// API key and role, reads are open, and everything is rate limited.
package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/juanpablocruz/flightrec/internal/activity"
	"github.com/juanpablocruz/flightrec/internal/auth"
	"github.com/juanpablocruz/flightrec/internal/config"
	"github.com/juanpablocruz/flightrec/internal/mirror"
	"github.com/juanpablocruz/flightrec/internal/transparency"
	"github.com/juanpablocruz/flightrec/pkg/commitment"
	"github.com/juanpablocruz/flightrec/pkg/ledger"
)

// Server wires every recorder component behind one mux.
type Server struct {
	cfg          config.Config
	log          *slog.Logger
	ledger       *ledger.Ledger
	commitments  *commitment.Store
	parties      *auth.Store
	limiter      *auth.RateLimiter
	transparency *transparency.Ledger
	mirrors      *mirror.Network

	bus  *activity.Bus
	feed *activity.Feed

	// registerLimiter throttles party registration harder than the
	// global limit.
	registerLimiter *auth.RateLimiter
}

func New(cfg config.Config, log *slog.Logger, l *ledger.Ledger, c *commitment.Store,
	p *auth.Store, t *transparency.Ledger, m *mirror.Network) *Server {
	bus := activity.NewBus()
	feed := activity.NewFeed(500)
	bus.Subscribe(feed)
	return &Server{
		cfg:          cfg,
		log:          log,
		ledger:       l,
		commitments:  c,
		parties:      p,
		limiter:      auth.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		transparency: t,
		mirrors:      m,
		bus:          bus,
		feed:         feed,

		registerLimiter: auth.NewRateLimiter(5, time.Minute),
	}
}

// Close flushes and stops the activity bus.
func (s *Server) Close() {
	s.bus.Close()
}

// Routes builds the full API surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/events", s.requireRole(s.handleAppendEvent, auth.RoleLab))
	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/verify", s.handleVerifyChain)

	mux.HandleFunc("GET /api/merkle/root", s.handleMerkleRoot)
	mux.HandleFunc("GET /api/merkle/proof/{id}", s.handleMerkleProof)
	mux.HandleFunc("POST /api/merkle/verify", s.handleMerkleVerify)

	mux.HandleFunc("POST /api/zk/commitments", s.requireRole(s.handleCreateCommitment, auth.RoleLab))
	mux.HandleFunc("GET /api/zk/commitments", s.handleListCommitments)
	mux.HandleFunc("GET /api/zk/commitments/{id}", s.handleGetCommitment)
	mux.HandleFunc("POST /api/zk/commitments/{id}/prove", s.handleGenerateProof)
	mux.HandleFunc("POST /api/zk/verify", s.handleVerifyProof)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/anonymous", s.handleAnonymousID)
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleWhoAmI))
	mux.HandleFunc("GET /api/auth/parties", s.requireAuth(s.handleListParties))
	mux.HandleFunc("POST /api/auth/parties/{id}/revoke", s.requireRole(s.handleRevokeParty, auth.RoleAuditor, auth.RoleGovernment))
	mux.HandleFunc("POST /api/auth/parties/{id}/rotate", s.requireAuth(s.handleRotateKey))

	mux.HandleFunc("POST /api/concerns", s.requireAuth(s.handleRaiseConcern))
	mux.HandleFunc("GET /api/concerns", s.handleListConcerns)
	mux.HandleFunc("GET /api/concerns/{id}", s.handleGetConcern)
	mux.HandleFunc("GET /api/concerns/{id}/responses", s.handleConcernResponses)
	mux.HandleFunc("GET /api/concerns/{id}/resolutions", s.handleConcernResolutions)
	mux.HandleFunc("POST /api/concerns/{id}/respond", s.requireRole(s.handleRespond, auth.RoleLab))
	mux.HandleFunc("POST /api/concerns/{id}/dispute", s.requireAuth(s.handleDispute))
	mux.HandleFunc("POST /api/concerns/{id}/resolve", s.requireRole(s.handleResolve, auth.RoleAuditor))

	mux.HandleFunc("GET /api/compliance/templates", s.handleComplianceTemplates)
	mux.HandleFunc("POST /api/compliance/submissions", s.requireRole(s.handleSubmitCompliance, auth.RoleLab))
	mux.HandleFunc("GET /api/compliance/submissions", s.handleListSubmissions)
	mux.HandleFunc("GET /api/compliance/submissions/{id}", s.handleGetSubmission)
	mux.HandleFunc("POST /api/compliance/submissions/{id}/review", s.requireRole(s.handleReview, auth.RoleAuditor, auth.RoleGovernment))
	mux.HandleFunc("GET /api/compliance/status/{deployment}", s.handleComplianceStatus)
	mux.HandleFunc("GET /api/clearance/{deployment}", s.handleClearance)
	mux.HandleFunc("GET /api/activity", s.handleActivity)
	mux.HandleFunc("GET /api/transparency/stats", s.handleTransparencyStats)
	mux.HandleFunc("GET /api/transparency/integrity", s.handleTransparencyIntegrity)

	mux.HandleFunc("POST /api/mirrors/sync", s.handleMirrorSync)
	mux.HandleFunc("GET /api/mirrors", s.handleMirrorStatus)
	mux.HandleFunc("GET /api/mirrors/compare", s.handleMirrorCompare)
	mux.HandleFunc("GET /api/mirrors/detect", s.handleMirrorDetect)
	mux.HandleFunc("POST /api/mirrors/{location}/tamper", s.handleMirrorTamper)

	if s.cfg.DemoMode {
		mux.HandleFunc("POST /api/demo/reset", s.handleDemoReset)
		mux.HandleFunc("POST /api/demo/populate", s.handleDemoPopulate)
		mux.HandleFunc("POST /api/demo/tamper", s.handleDemoTamper)
	}

	return s.rateLimit(s.logging(mux))
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.log.Info("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
	})
}

// clientKey identifies a caller for rate limiting: the API key when
// present, the remote host otherwise.
func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			s.log.Warn("rate limited", "remote", r.RemoteAddr, "path", r.URL.Path)
			writeJSON(w, http.StatusTooManyRequests, errorPayload("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// caller resolves the authenticated party, or writes 401 and returns
// false.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (auth.Party, bool) {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		writeJSON(w, http.StatusUnauthorized, errorPayload("missing X-API-Key header"))
		return auth.Party{}, false
	}
	party, ok := s.parties.VerifyKey(key)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorPayload("invalid or revoked API key"))
		return auth.Party{}, false
	}
	return party, true
}

type authedHandler func(w http.ResponseWriter, r *http.Request, party auth.Party)

func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		party, ok := s.caller(w, r)
		if !ok {
			return
		}
		next(w, r, party)
	}
}

func (s *Server) requireRole(next authedHandler, roles ...auth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		party, ok := s.caller(w, r)
		if !ok {
			return
		}
		for _, role := range roles {
			if party.Role == role {
				next(w, r, party)
				return
			}
		}
		s.log.Warn("role denied", "party", party.ID, "role", party.Role, "path", r.URL.Path)
		writeJSON(w, http.StatusForbidden, errorPayload("insufficient role for this operation"))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s.bus.Wait()
	entries := s.feed.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "activity": entries, "count": len(entries)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload("invalid json body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorPayload(msg string) map[string]any {
	return map[string]any{"ok": false, "error": msg}
}
