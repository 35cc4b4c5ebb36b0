package types

import "time"

type ExecutionStatus int32

const (
	ExecutionStatusUnknown ExecutionStatus = iota
	ExecutionStatusPending
	ExecutionStatusStarted
	ExecutionStatusSuccess
	ExecutionStatusFailed
)

func (s ExecutionStatus) String() string {
	switch s {
	case ExecutionStatusPending:
		return "STATUS_PENDING"
	case ExecutionStatusStarted:
		return "STATUS_STARTED"
	case ExecutionStatusSuccess:
		return "STATUS_SUCCESS"
	case ExecutionStatusFailed:
		return "STATUS_FAILED"
	default:
		return "STATUS_UNKNOWN"
	}
}

// ExecutionRecord is one function invocation in the executions collection.
type ExecutionRecord struct {
	ExecutionID  string          `firestore:"execution_id"`
	Service      string          `firestore:"service"`
	Status       ExecutionStatus `firestore:"status"`
	Timestamp    time.Time       `firestore:"timestamp"`
	StartTime    time.Time       `firestore:"start_time"`
	EndTime      *time.Time      `firestore:"end_time,omitempty"`
	UserID       string          `firestore:"user_id,omitempty"`
	TriggerType  string          `firestore:"trigger_type"`
	ErrorMessage string          `firestore:"error_message,omitempty"`
	InputsJSON   string          `firestore:"inputs_json,omitempty"`
	OutputsJSON  string          `firestore:"outputs_json,omitempty"`
}
