package api

import (
	"net/http"

	"github.com/todmy/stoneweight/internal/receipt"
	"github.com/todmy/stoneweight/pkg/models"
)

// receiptRequest prints an arbitrary result. Settings fields that are sent
// override the server's receipt layout.
type receiptRequest struct {
	Result   *models.CalculationResult `json:"result"`
	Settings receipt.Settings          `json:"settings"`
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	req := receiptRequest{Settings: s.receiptSettings}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Result == nil {
		respondError(w, http.StatusBadRequest, "result is required")
		return
	}

	settings := req.Settings
	// Font files are read from the server's disk and never chosen by callers.
	settings.FontFile = s.receiptSettings.FontFile

	s.writeReceipt(w, r, receipt.TicketFromResult(req.Result, s.now()), settings.Normalize())
}
