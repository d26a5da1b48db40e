package responses

import "time"

// APIResponse is the envelope every endpoint answers with. Data may accompany an error,
// e.g. the result of a failed sync cycle.
type APIResponse[T any] struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
	Data      *T        `json:"data,omitempty"`
}
