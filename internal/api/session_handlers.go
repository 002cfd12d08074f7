package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api/middleware"
	"github.com/rosilesmarcos01/bbms-sub000/internal/api/presenter"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

type RefreshPayload struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type MeResponse struct {
	Claims   *core.Claims   `json:"claims"`
	Identity *core.Identity `json:"identity"`
}

// handleRefresh exchanges a refresh token for a new token pair.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload RefreshPayload
	if err := s.decodeAndValidate(r, &payload); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("rejected refresh payload")
		presenter.Error(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	tokens, err := s.sessions.Refresh(ctx, payload.RefreshToken)
	if err != nil {
		presenter.Err(w, r, err, "cannot refresh session")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	presenter.JSON(w, r, tokens, http.StatusOK)
}

// handleMe returns the caller's claims and identity record.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsCtx(r.Context())
	if !ok {
		presenter.ErrorCode(w, r, "login required", string(core.CodeTokenInvalid), http.StatusUnauthorized)
		return
	}

	me, err := s.sessions.Me(r.Context(), claims)
	if err != nil {
		presenter.Err(w, r, err, "cannot load session")
		return
	}
	presenter.JSON(w, r, MeResponse{Claims: me.Claims, Identity: me.Identity}, http.StatusOK)
}
