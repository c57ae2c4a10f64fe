package model

import (
	"encoding/json"
	"time"
)

// RunStatus represents the lifecycle state of a collection run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
)

// ReasonNotStarted is recorded for runs that were created but never
// collected, e.g. a batch job whose collector could not be built.
const ReasonNotStarted = "not_started"

// Run is the stored history entry of one collection run.
type Run struct {
	ID          string            `json:"id"`
	Recipe      string            `json:"recipe"`
	StartURL    string            `json:"start_url"`
	Params      map[string]string `json:"params,omitempty"`
	Status      RunStatus         `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	Steps       int               `json:"steps"`
	Attempts    int               `json:"attempts"`
	RecordCount int               `json:"record_count"`
	Skipped     int               `json:"skipped"`
	LastFailure string            `json:"last_failure,omitempty"`
	Records     json.RawMessage   `json:"records,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
}

// RunOutcome is what a finished run reports back to the store.
type RunOutcome struct {
	Reason      string          `json:"reason"`
	Steps       int             `json:"steps"`
	Attempts    int             `json:"attempts"`
	RecordCount int             `json:"record_count"`
	Skipped     int             `json:"skipped"`
	LastFailure string          `json:"last_failure,omitempty"`
	Records     json.RawMessage `json:"records,omitempty"`
}
