package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/pagecap/capture"
)

// RegisterHTTP mounts the capture API on the router.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Post("/capture", s.handleCapture)
	r.Get("/runs", s.handleRuns)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.Capture(r.Context(), req)
	if err != nil {
		s.log.Error("service: capture failed", "url", req.URL, "error", err)

		status := http.StatusBadGateway
		var cerr *capture.CaptureError
		if errors.As(err, &cerr) || errors.Is(err, capture.ErrUnsupportedFormat) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	s.log.Info("service: capture finished",
		"url", req.URL, "strategy", result.Strategy,
		"pages", result.Pages, "bytes", result.Bytes)
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.manifest == nil {
		writeError(w, http.StatusNotFound, "manifest is not configured")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.manifest.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
