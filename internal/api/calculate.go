package api

import (
	"net/http"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/internal/metrics"
	"github.com/todmy/stoneweight/pkg/models"
)

type calculateRequest struct {
	ModelID         string `json:"modelId"`
	ProductionCount int    `json:"productionCount"`
}

// calculate runs the calculator against the stored catalog. A missing
// model or a non-positive count yields nil.
func (s *Server) calculate(r *http.Request, req calculateRequest) (*models.CalculationResult, error) {
	if req.ModelID == "" || req.ProductionCount <= 0 {
		return nil, nil
	}

	model, err := s.modelRepo.GetByID(r.Context(), req.ModelID)
	if errorsIsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	stones, err := s.stoneRepo.List(r.Context())
	if err != nil {
		return nil, err
	}

	return calculator.Calculate(model, calculator.NewStoneIndex(stones), req.ProductionCount), nil
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.calculate(r, req)
	if err != nil {
		s.respondStorageError(w, r, err, "calculation")
		return
	}

	if result == nil {
		metrics.ObserveCalculation(false, 0)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	metrics.ObserveCalculation(true, result.TotalWeight)

	respondJSON(w, http.StatusOK, result)
}
