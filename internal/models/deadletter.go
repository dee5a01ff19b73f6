package models

import "time"

// Failure classifications recorded when a message is dead-lettered.
const (
	FailureTypeValidation   = "validation"
	FailureTypeBusinessRule = "business_rule"
	FailureTypeTransient    = "transient"
	FailureTypeUnknown      = "unknown"
)

// DeadLetterMeta describes why a message was moved to the failure queue. The
// original payload travels unchanged as the dead-lettered message body so the
// recovery worker can decode the same order shape; this metadata rides along
// in message headers.
type DeadLetterMeta struct {
	OrderID       string    `json:"order_id"`
	CorrelationID string    `json:"correlation_id"`
	FailureType   string    `json:"failure_type"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error,omitempty"`
	FirstFailedAt time.Time `json:"first_failed_at"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}
