package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/todmy/stoneweight/internal/auth"
	"github.com/todmy/stoneweight/internal/storage"
	"github.com/todmy/stoneweight/pkg/models"
)

const maxBodySize = 50 << 20 // 50 MB, inline images travel as base64

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// decodeBody reads a JSON body into v; it writes the 400 itself
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func validateLines(lines []models.StoneQuantity) string {
	for _, l := range lines {
		if strings.TrimSpace(l.StoneID) == "" {
			return "stone id is required"
		}
		if l.Quantity <= 0 {
			return "quantity must be positive"
		}
	}
	return ""
}

// sessionKey identifies the caller's calculation history
func sessionKey(r *http.Request) string {
	if claims, ok := auth.GetUserFromContext(r.Context()); ok {
		return claims.UserID
	}
	return ""
}
