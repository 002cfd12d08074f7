package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api/presenter"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 1000
)

// handleAdminAudit processes requests to retrieve audit log entries.
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	if s.auditReader == nil {
		presenter.Error(w, r, "audit log is not queryable with the configured auditor", http.StatusNotImplemented)
		return
	}

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterIdentityRef := q.Get("identity_ref")
	filterOperationID := q.Get("operation_id")
	filterFingerprint := q.Get("fingerprint")

	limit := defaultAuditLimit
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v <= 0 {
			logger.Warn().Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = min(v, maxAuditLimit)
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterIdentityRef != "" || filterOperationID != "" || filterFingerprint != "" {
		logger.Debug().Msg("applying audit log filters")
		entries, err = s.auditReader.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterIdentityRef != "" && entry.IdentityRef != filterIdentityRef {
				return false
			}
			if filterOperationID != "" && entry.OperationID != filterOperationID {
				return false
			}
			if filterFingerprint != "" && entry.TokenFingerprint != filterFingerprint {
				return false
			}
			return true
		}, limit)
	} else {
		entries, err = s.auditReader.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}
