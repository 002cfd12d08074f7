package api

import (
	"net/http"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api/presenter"
	"github.com/rosilesmarcos01/bbms-sub000/internal/buildinfo"
)

// handleHealth is the liveness check. It does not touch the provider or the registry.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}
