package types

import "time"

// EventType classifies audit records
type EventType string

// the closed set of audit events
const (
	EventAuthorizationCheck EventType = "authorization_check"
	EventAccessDenied       EventType = "access_denied"
	EventPermissionGranted  EventType = "permission_granted"
	EventPermissionRevoked  EventType = "permission_revoked"
)

// outcomes carried by audit records
const (
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
	ResultSuccess = "success"
)

// Record is one entry of the append-only audit trail
type Record struct {
	ID           string         `json:"id"`
	Time         time.Time      `json:"time"`
	Event        EventType      `json:"event"`
	UserID       string         `json:"user_id"`
	ResourceType ResourceType   `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Action       Permission     `json:"action,omitempty"`
	Result       string         `json:"result"`
	DurationMS   float64        `json:"duration_ms,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// RecordSink receives finished audit records.
// Sinks also implementing io.Closer are closed when the audit logger shuts down.
type RecordSink interface {
	Write(Record) error
}
