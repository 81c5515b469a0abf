package api

import (
	"net/http"
	"strings"

	"github.com/todmy/stoneweight/pkg/models"
)

const companyLogoOwner = "company-logo"

func (s *Server) handleGetCompanySettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.companyRepo.Get(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err, "company settings")
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateCompanySettings(w http.ResponseWriter, r *http.Request) {
	var settings models.CompanySettings
	if !decodeBody(w, r, &settings) {
		return
	}
	settings.CompanyName = strings.TrimSpace(settings.CompanyName)

	if settings.Logo != "" {
		// A logo that cannot be stored is kept as sent.
		logo, err := s.resolveImage(settings.Logo, companyLogoOwner)
		if err != nil {
			s.log.Warn("company logo not saved", "request_id", requestID(r), "error", err)
		} else {
			settings.Logo = logo
		}
	}

	if err := s.companyRepo.Update(r.Context(), &settings); err != nil {
		s.respondStorageError(w, r, err, "company settings")
		return
	}

	respondJSON(w, http.StatusOK, settings)
}
