package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/pkg/models"
)

func (s *Server) handleListStoneSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.stoneSetRepo.List(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err, "stone sets")
		return
	}
	if sets == nil {
		sets = []models.StoneSet{}
	}
	respondJSON(w, http.StatusOK, sets)
}

func decodeStoneSet(w http.ResponseWriter, r *http.Request) (models.StoneSet, bool) {
	var set models.StoneSet
	if !decodeBody(w, r, &set) {
		return set, false
	}
	set.Name = strings.TrimSpace(set.Name)
	if set.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return set, false
	}
	if msg := validateLines(set.Stones); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return set, false
	}
	set.Stones = calculator.MergeStones(set.Stones)
	return set, true
}

func (s *Server) handleCreateStoneSet(w http.ResponseWriter, r *http.Request) {
	set, ok := decodeStoneSet(w, r)
	if !ok {
		return
	}
	set.ID = ""

	if err := s.stoneSetRepo.Create(r.Context(), &set); err != nil {
		s.respondStorageError(w, r, err, "stone set")
		return
	}

	respondJSON(w, http.StatusCreated, set)
}

func (s *Server) handleUpdateStoneSet(w http.ResponseWriter, r *http.Request) {
	set, ok := decodeStoneSet(w, r)
	if !ok {
		return
	}
	set.ID = chi.URLParam(r, "id")

	if err := s.stoneSetRepo.Update(r.Context(), &set); err != nil {
		s.respondStorageError(w, r, err, "stone set")
		return
	}

	respondJSON(w, http.StatusOK, set)
}

func (s *Server) handleDeleteStoneSet(w http.ResponseWriter, r *http.Request) {
	if err := s.stoneSetRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondStorageError(w, r, err, "stone set")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
