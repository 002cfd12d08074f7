package core

import "time"

// StatusKind is the canonical, provider-agnostic state of an operation.
type StatusKind string

const (
	StatusPending   StatusKind = "pending"
	StatusCompleted StatusKind = "completed"
	StatusExpired   StatusKind = "expired"
	StatusUnknown   StatusKind = "unknown"
)

// CompletionResult is only meaningful when the status is StatusCompleted.
type CompletionResult string

const (
	ResultSuccess CompletionResult = "success"
	ResultFailure CompletionResult = "failure"
)

// OperationStatus is produced by the provider gateway after normalizing
// the provider-native response.
type OperationStatus struct {
	Kind   StatusKind
	Result CompletionResult

	// CompletedAt is the provider's completion marker. A completed status always carries one.
	CompletedAt time.Time

	// Raw is a short description of the provider-native state for logging.
	Raw string
}

func Pending(raw string) OperationStatus {
	return OperationStatus{Kind: StatusPending, Raw: raw}
}

func Expired(raw string) OperationStatus {
	return OperationStatus{Kind: StatusExpired, Raw: raw}
}

func Unknown(raw string) OperationStatus {
	return OperationStatus{Kind: StatusUnknown, Raw: raw}
}

// Completed builds a completed status. Without a completion timestamp
// the provider has not really finished, so the status degrades to pending.
func Completed(result CompletionResult, completedAt time.Time, raw string) OperationStatus {
	if completedAt.IsZero() {
		return Pending(raw + " (no completion marker)")
	}
	return OperationStatus{
		Kind:        StatusCompleted,
		Result:      result,
		CompletedAt: completedAt,
		Raw:         raw,
	}
}

func (s OperationStatus) IsSuccess() bool {
	return s.Kind == StatusCompleted && s.Result == ResultSuccess
}

func (s OperationStatus) IsFailure() bool {
	return s.Kind == StatusCompleted && s.Result == ResultFailure
}
