package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api/middleware"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/metrics"
	"github.com/rosilesmarcos01/bbms-sub000/internal/service"
	"github.com/rosilesmarcos01/bbms-sub000/internal/tasks"
)

type Server struct {
	sessions    *service.SessionService
	taskManager *tasks.Manager
	auditReader core.AuditReader
	metrics     *metrics.Metrics
	verifier    middleware.TokenVerifier
	validate    *validator.Validate
}

// NewServer creates the HTTP server. auditReader may be nil if the configured auditor
// does not keep entries.
func NewServer(
	sessions *service.SessionService,
	taskManager *tasks.Manager,
	auditReader core.AuditReader,
	m *metrics.Metrics,
	verifier middleware.TokenVerifier,
) *Server {
	return &Server{
		sessions:    sessions,
		taskManager: taskManager,
		auditReader: auditReader,
		metrics:     m,
		verifier:    verifier,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	requireSession := middleware.RequireSession(s.verifier)

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)
	mux.Handle("GET "+MetricsRoute, s.metrics.Handler())

	// biometric session routes
	mux.HandleFunc("POST "+InitiateRoute, s.handleInitiate)
	mux.HandleFunc("GET "+PollRoute, s.handlePoll)
	mux.HandleFunc("POST "+RefreshRoute, s.handleRefresh)
	mux.Handle("GET "+MeRoute, requireSession(http.HandlerFunc(s.handleMe)))

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAdminAudit)
	adminMux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	adminMux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	adminMux.HandleFunc("GET "+LogsForTaskRoute, s.handleLogsForTask)
	mux.Handle(AdminParent, requireSession(middleware.RequireRole(middleware.AdminRole)(adminMux)))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
