package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/pkg/models"
)

func (s *Server) handleListStones(w http.ResponseWriter, r *http.Request) {
	stones, err := s.stoneRepo.List(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err, "stones")
		return
	}
	if stones == nil {
		stones = []models.Stone{}
	}
	respondJSON(w, http.StatusOK, stones)
}

// decodeStone reads and validates a stone body
func decodeStone(w http.ResponseWriter, r *http.Request) (models.Stone, bool) {
	var stone models.Stone
	if !decodeBody(w, r, &stone) {
		return stone, false
	}
	stone.Name = strings.TrimSpace(stone.Name)
	if stone.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return stone, false
	}
	if !calculator.ValidFactor(stone.CountPerGram) {
		respondError(w, http.StatusBadRequest, "countPerGram must be positive")
		return stone, false
	}
	return stone, true
}

func (s *Server) handleCreateStone(w http.ResponseWriter, r *http.Request) {
	stone, ok := decodeStone(w, r)
	if !ok {
		return
	}
	stone.ID = ""

	if err := s.stoneRepo.Create(r.Context(), &stone); err != nil {
		s.respondStorageError(w, r, err, "stone")
		return
	}

	respondJSON(w, http.StatusCreated, stone)
}

func (s *Server) handleUpdateStone(w http.ResponseWriter, r *http.Request) {
	stone, ok := decodeStone(w, r)
	if !ok {
		return
	}
	stone.ID = chi.URLParam(r, "id")

	if err := s.stoneRepo.Update(r.Context(), &stone); err != nil {
		s.respondStorageError(w, r, err, "stone")
		return
	}

	respondJSON(w, http.StatusOK, stone)
}

func (s *Server) handleDeleteStone(w http.ResponseWriter, r *http.Request) {
	if err := s.stoneRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondStorageError(w, r, err, "stone")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
