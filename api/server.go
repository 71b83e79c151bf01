// Package api serves health, Prometheus metrics and a small operator API
// over the ledger, the bank, the market and live game sessions.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"econbot/bank"
	"econbot/economy"
	"econbot/market"
	"econbot/metrics"
	"econbot/models"
	"econbot/sessions"
)

type Server struct {
	token    string
	log      *slog.Logger
	ledger   *economy.Ledger
	bank     *bank.Service
	market   *market.Service
	sessions *sessions.Manager
	metrics  *metrics.Collector
	mux      *chi.Mux
}

// Deps is everything the routes read from. Nil services disable their routes.
type Deps struct {
	Ledger   *economy.Ledger
	Bank     *bank.Service
	Market   *market.Service
	Sessions *sessions.Manager
	Metrics  *metrics.Collector
}

// New builds the router. An empty adminToken disables the /v1 routes.
func New(adminToken string, logger *slog.Logger, deps Deps) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		token:    adminToken,
		log:      logger,
		ledger:   deps.Ledger,
		bank:     deps.Bank,
		market:   deps.Market,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
		mux:      chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	if s.token == "" {
		return
	}
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/accounts/{id}", s.handleAccount)
		r.Get("/accounts/{id}/transactions", s.handleTransactions)
		r.Post("/accounts/{id}/grant", s.handleGrant)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/export", s.handleExport)

		if s.bank != nil {
			r.Get("/accounts/{id}/bank", s.handleBank)
			r.Get("/accounts/{id}/loans", s.handleLoans)
		}
		if s.market != nil {
			r.Get("/accounts/{id}/inventory", s.handleInventory)
			r.Get("/market/listings", s.handleListings)
		}
		if s.sessions != nil {
			r.Get("/sessions/{id}", s.handleSession)
		}
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Store().Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.ledger.Account(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.ledger.History(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 10))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Delta  int64  `json:"delta"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Delta == 0 {
		writeError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "api grant"
	}
	balance, err := s.ledger.Grant(r.Context(), chi.URLParam(r, "id"), in.Delta, reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.ledger.Leaderboard(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

// handleExport streams the ledger as zstd-compressed JSON lines
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = t
	}
	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.jsonl.zst"`)
	n, err := s.ledger.Export(r.Context(), w, since)
	if err != nil {
		// headers are gone by now
		s.log.Error("ledger export failed", slog.Any("error", err))
		return
	}
	s.log.Info("ledger exported", slog.Int("rows", n), slog.Time("since", since))
}

func (s *Server) handleBank(w http.ResponseWriter, r *http.Request) {
	st, err := s.bank.Statement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.bank.Loans(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": loans})
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.market.Inventory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": items})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.market.Listings(r.Context(), r.URL.Query().Get("product"), queryInt(r, "limit", 25))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInsufficientFunds), errors.Is(err, models.ErrInvalidBet), errors.Is(err, models.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return n
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
