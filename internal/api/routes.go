package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/about"
	MetricsRoute     = "/metrics"

	BiometricParent = "/auth/biometric/"
	InitiateRoute   = BiometricParent + "initiate"
	PollRoute       = BiometricParent + "poll/{operationId}"

	RefreshRoute = "/auth/refresh"
	MeRoute      = "/auth/me"

	AdminParent     = "/v1/admin/"
	ListAuditsRoute = AdminParent + "audits"

	TaskParent       = AdminParent + "tasks"
	ListTasksRoute   = TaskParent
	TriggerTaskRoute = TaskParent + "/{name}/trigger"
	LogsForTaskRoute = TaskParent + "/{name}/logs"
)
