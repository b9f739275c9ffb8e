package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dompet/internal/conversation"
	"dompet/internal/core"
	applog "dompet/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports whether the ledger backend answers
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{
			"active_clients": s.rateLimiter.ActiveClients(),
			"rejected":       s.rateLimiter.Rejected(),
		},
	}

	switch {
	case s.ready == nil:
		checks["ledger"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			checks["ledger"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["ledger"] = "ok"
		}
	}

	respondJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")

	var msg conversation.Message
	if err := decodeJSON(w, r, &msg); err != nil {
		respondDecodeError(w, err)
		return
	}
	if err := msg.Prepare(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp, err := s.conv.HandleMessage(r.Context(), userID, msg)
	if err != nil {
		s.logServiceError(r, "Failed to handle message", err, applog.OpHandle, userID)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.conv.GetMemory(chi.URLParam(r, "user")))
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	var upd conversation.MemoryUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		respondDecodeError(w, err)
		return
	}
	if err := upd.Prepare(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.conv.UpdateMemory(chi.URLParam(r, "user"), upd))
}

func (s *Server) handleCashflow(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")
	start, end, err := parseRange(r)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	summary, err := s.insights.CashflowSummary(r.Context(), userID, start, end)
	if err != nil {
		s.logServiceError(r, "Failed to compute cashflow summary", err, applog.OpRead, userID)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleExpenseByCategory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")
	start, end, err := parseRange(r)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	breakdown, err := s.insights.ExpenseByCategory(r.Context(), userID, start, end)
	if err != nil {
		s.logServiceError(r, "Failed to compute expense breakdown", err, applog.OpRead, userID)
		respondServiceError(w, err)
		return
	}
	if breakdown == nil {
		breakdown = []core.CategoryAmount{}
	}
	respondJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")
	recs, err := s.insights.Recommendations(r.Context(), userID)
	if err != nil {
		s.logServiceError(r, "Failed to build recommendations", err, applog.OpRead, userID)
		respondServiceError(w, err)
		return
	}
	if recs == nil {
		recs = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

// handleIngest stores a batch. The user in the path owns every record.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")

	var txs []core.Transaction
	if err := decodeJSON(w, r, &txs); err != nil {
		respondDecodeError(w, err)
		return
	}
	for i := range txs {
		txs[i].UserID = userID
	}

	n, err := s.ingest.Ingest(r.Context(), txs)
	if err != nil {
		if !isValidationError(err) {
			s.logServiceError(r, "Failed to ingest transactions", err, applog.OpAppend, userID)
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"ingested": n})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")
	txs, err := s.ingest.List(r.Context(), userID)
	if err != nil {
		s.logServiceError(r, "Failed to list transactions", err, applog.OpList, userID)
		respondServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	respondJSON(w, http.StatusOK, txs)
}

func (s *Server) logServiceError(r *http.Request, msg string, err error, op, userID string) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), msg, err, op, applog.NewFields().WithUser(userID))
}
