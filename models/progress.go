package models

import "time"

// Job progress statuses. A job moves queued -> starting -> staging/processing
// or deleting -> complete, or to failed from any non-terminal state.
const (
	JobStatusQueued     = "queued"
	JobStatusStarting   = "starting"
	JobStatusStaging    = "staging"
	JobStatusProcessing = "processing"
	JobStatusDeleting   = "deleting"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"
)

// JobProgress is the current snapshot for one import or delete job,
// overwritten in place on each update.
type JobProgress struct {
	Status    string `json:"status"`
	Percent   int    `json:"percent"`
	Processed int    `json:"processed"`
	Imported  int    `json:"imported"`
	Deleted   int    `json:"deleted"`
	Total     int    `json:"total,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// DeliveryLogEntry records the outcome of one webhook delivery attempt.
// Exactly one of StatusCode, Error or FinalFailure carries the outcome.
type DeliveryLogEntry struct {
	Event        string    `json:"event"`
	StatusCode   int       `json:"status_code,omitempty"`
	Error        string    `json:"error,omitempty"`
	FinalFailure string    `json:"final_failure,omitempty"`
	LatencyMS    int64     `json:"latency_ms,omitempty"`
	Timestamp    time.Time `json:"ts"`
}
