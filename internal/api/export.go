package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/todmy/stoneweight/internal/export"
	"github.com/todmy/stoneweight/internal/metrics"
	"github.com/todmy/stoneweight/pkg/models"
)

func (s *Server) snapshot(r *http.Request) (models.Snapshot, error) {
	var snap models.Snapshot
	var err error

	if snap.Stones, err = s.stoneRepo.List(r.Context()); err != nil {
		return snap, err
	}
	if snap.Models, err = s.modelRepo.List(r.Context()); err != nil {
		return snap, err
	}
	if snap.StoneSets, err = s.stoneSetRepo.List(r.Context()); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *Server) exportFilename(ext string) string {
	return fmt.Sprintf("stoneweight-%s.%s", s.now().Format("2006-01-02"), ext)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		metrics.ObserveExport("json", metrics.ResultError)
		s.respondStorageError(w, r, err, "export")
		return
	}

	var buf bytes.Buffer
	if err := export.EncodeJSON(&buf, snap); err != nil {
		metrics.ObserveExport("json", metrics.ResultError)
		s.respondStorageError(w, r, err, "export")
		return
	}
	metrics.ObserveExport("json", metrics.ResultSuccess)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, s.exportFilename("json")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError)
		s.respondStorageError(w, r, err, "export")
		return
	}

	var buf bytes.Buffer
	items := s.sessions.get(sessionKey(r)).Items()
	if err := export.WriteWorkbook(&buf, snap, items); err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError)
		s.respondStorageError(w, r, err, "export")
		return
	}
	metrics.ObserveExport("xlsx", metrics.ResultSuccess)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, s.exportFilename("xlsx")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		respondError(w, http.StatusNotImplemented, "import is not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	snap, err := export.DecodeJSON(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stats, err := s.importer.Import(r.Context(), snap)
	if err != nil {
		s.respondStorageError(w, r, err, "import")
		return
	}

	s.log.Info("snapshot imported", "stones", stats.Stones, "models", stats.Models, "stone_sets", stats.StoneSets)
	respondJSON(w, http.StatusOK, stats)
}
