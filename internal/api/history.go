package api

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/todmy/stoneweight/internal/history"
	"github.com/todmy/stoneweight/internal/metrics"
	"github.com/todmy/stoneweight/internal/receipt"
	"github.com/todmy/stoneweight/pkg/models"
)

// sessionHistories keeps one calculation history per signed-in user. It
// lives in memory only; a restart starts every user with an empty list.
type sessionHistories struct {
	mu    sync.Mutex
	byKey map[string]*history.History
	now   func() time.Time
}

func newSessionHistories(now func() time.Time) *sessionHistories {
	return &sessionHistories{
		byKey: make(map[string]*history.History),
		now:   now,
	}
}

func (sh *sessionHistories) get(key string) *history.History {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	h, ok := sh.byKey[key]
	if !ok {
		h = history.New(history.WithClock(sh.now))
		sh.byKey[key] = h
	}
	return h
}

// appendHistoryRequest commits either a finished result or a calculation
// to run first.
type appendHistoryRequest struct {
	Result          *models.CalculationResult `json:"result"`
	ModelID         string                    `json:"modelId"`
	ProductionCount int                       `json:"productionCount"`
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sessions.get(sessionKey(r)).Items())
}

func (s *Server) handleAppendHistory(w http.ResponseWriter, r *http.Request) {
	var req appendHistoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result := req.Result
	if result == nil && req.ModelID != "" {
		var err error
		result, err = s.calculate(r, calculateRequest{ModelID: req.ModelID, ProductionCount: req.ProductionCount})
		if err != nil {
			s.respondStorageError(w, r, err, "calculation")
			return
		}
	}
	if result == nil {
		respondError(w, http.StatusBadRequest, "nothing to record")
		return
	}

	item, _ := s.sessions.get(sessionKey(r)).Append(result)
	respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.sessions.get(sessionKey(r)).Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveHistory deletes one item; an unknown id is not an error
func (s *Server) handleRemoveHistory(w http.ResponseWriter, r *http.Request) {
	s.sessions.get(sessionKey(r)).Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistorySummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sessions.get(sessionKey(r)).Aggregate())
}

// handleHistoryReceipt prints the most recent history item
func (s *Server) handleHistoryReceipt(w http.ResponseWriter, r *http.Request) {
	item, ok := s.sessions.get(sessionKey(r)).Last()
	if !ok {
		metrics.ObserveReceipt(metrics.ResultEmpty)
		respondError(w, http.StatusNotFound, "history is empty")
		return
	}

	s.writeReceipt(w, r, receipt.TicketFromHistory(item), s.receiptSettings)
}

func (s *Server) writeReceipt(w http.ResponseWriter, r *http.Request, ticket receipt.Ticket, settings receipt.Settings) {
	var buf bytes.Buffer
	if err := receipt.Render(&buf, ticket, settings); err != nil {
		metrics.ObserveReceipt(metrics.ResultError)
		s.log.Error("receipt render failed", "request_id", requestID(r), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to render receipt")
		return
	}
	metrics.ObserveReceipt(metrics.ResultSuccess)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="receipt.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
