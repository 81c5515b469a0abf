package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/todmy/stoneweight/internal/calculator"
	"github.com/todmy/stoneweight/pkg/models"
)

// modelRequest is the create/update body of a model. Image is kept raw so
// that an absent field, an explicit null and a string can be told apart.
type modelRequest struct {
	Name       string                  `json:"name"`
	StockCode  string                  `json:"stockCode"`
	StockCodeS *string                 `json:"stock_code"`
	Category   string                  `json:"category"`
	Stones     *[]models.StoneQuantity `json:"stones"`
	Image      json.RawMessage         `json:"image"`
}

// imageChange is what a request asks to do with the model image
type imageChange int

const (
	imageKeep imageChange = iota
	imageClear
	imageSet
)

func (req modelRequest) image() (imageChange, string, bool) {
	raw := strings.TrimSpace(string(req.Image))
	if raw == "" {
		return imageKeep, "", true
	}
	if raw == "null" {
		return imageClear, "", true
	}
	var value string
	if err := json.Unmarshal(req.Image, &value); err != nil {
		return imageKeep, "", false
	}
	if value == "" {
		return imageClear, "", true
	}
	return imageSet, value, true
}

func decodeModel(w http.ResponseWriter, r *http.Request) (modelRequest, bool) {
	var req modelRequest
	if !decodeBody(w, r, &req) {
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return req, false
	}
	if req.StockCode == "" && req.StockCodeS != nil {
		req.StockCode = *req.StockCodeS
	}
	if req.Stones != nil {
		if msg := validateLines(*req.Stones); msg != "" {
			respondError(w, http.StatusBadRequest, msg)
			return req, false
		}
	}
	if _, _, ok := req.image(); !ok {
		respondError(w, http.StatusBadRequest, "image must be a string or null")
		return req, false
	}
	return req, true
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	list, err := s.modelRepo.List(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err, "models")
		return
	}
	if list == nil {
		list = []models.Model{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	model, err := s.modelRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, r, err, "model")
		return
	}
	respondJSON(w, http.StatusOK, model)
}

func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeModel(w, r)
	if !ok {
		return
	}

	model := models.Model{
		Name:      req.Name,
		StockCode: req.StockCode,
		Category:  req.Category,
		Stones:    []models.StoneQuantity{},
	}
	if req.Stones != nil {
		model.Stones = calculator.MergeStones(*req.Stones)
	}

	if err := s.modelRepo.Create(r.Context(), &model); err != nil {
		s.respondStorageError(w, r, err, "model")
		return
	}

	// The image file is named after the model, so it is stored once the
	// row exists. A failed save leaves the model without an image.
	if change, value, _ := req.image(); change == imageSet {
		model.Image = s.storeModelImage(r, model.ID, value)
	}

	respondJSON(w, http.StatusCreated, model)
}

func (s *Server) handleUpdateModel(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeModel(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	existing, err := s.modelRepo.GetByID(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, r, err, "model")
		return
	}

	model := *existing
	model.Name = req.Name
	model.StockCode = req.StockCode
	model.Category = req.Category
	if req.Stones != nil {
		model.Stones = calculator.MergeStones(*req.Stones)
	}

	change, value, _ := req.image()
	switch change {
	case imageClear:
		model.Image = ""
	case imageSet:
		if value != existing.Image {
			resolved, err := s.resolveImage(value, id)
			if err != nil {
				s.log.Warn("model image not saved", "model_id", id, "error", err)
				respondError(w, http.StatusBadRequest, "invalid image")
				return
			}
			model.Image = resolved
		}
	}

	if err := s.modelRepo.Update(r.Context(), &model); err != nil {
		if model.Image != existing.Image {
			s.deleteImage(r, model.Image)
		}
		s.respondStorageError(w, r, err, "model")
		return
	}
	if model.Image != existing.Image {
		s.deleteImage(r, existing.Image)
	}

	respondJSON(w, http.StatusOK, model)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.modelRepo.GetByID(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, r, err, "model")
		return
	}

	if err := s.modelRepo.Delete(r.Context(), id); err != nil {
		s.respondStorageError(w, r, err, "model")
		return
	}
	s.deleteImage(r, existing.Image)

	w.WriteHeader(http.StatusNoContent)
}

// storeModelImage resolves value and records it on the model. It returns
// the stored reference, or "" when nothing could be stored.
func (s *Server) storeModelImage(r *http.Request, modelID, value string) string {
	resolved, err := s.resolveImage(value, modelID)
	if err != nil {
		s.log.Warn("model image not saved", "model_id", modelID, "error", err)
		return ""
	}
	if err := s.modelRepo.SetImage(r.Context(), modelID, resolved); err != nil {
		s.log.Warn("model image not recorded", "model_id", modelID, "error", err)
		s.deleteImage(r, resolved)
		return ""
	}
	return resolved
}

func (s *Server) resolveImage(value, owner string) (string, error) {
	if s.images == nil {
		return value, nil
	}
	return s.images.Resolve(value, owner)
}

func (s *Server) deleteImage(r *http.Request, url string) {
	if s.images == nil || url == "" {
		return
	}
	if err := s.images.Delete(url); err != nil {
		s.log.Warn("image not deleted", "request_id", requestID(r), "url", url, "error", err)
	}
}
