package models

import "time"

// ReprocessRun records one delete-then-rebuild pass over a user's day
type ReprocessRun struct {
	ID     int64  `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Date   string `json:"date" db:"day"`

	// Status
	Status string `json:"status" db:"status"` // running, completed, failed

	// Results
	SegmentsCreated    int    `json:"segments_created" db:"segments_created"`
	PlacesLookedUp     int    `json:"places_looked_up" db:"places_looked_up"`
	SummariesGenerated int    `json:"summaries_generated" db:"summaries_generated"`
	ErrorMessage       string `json:"error_message,omitempty" db:"error_message"`

	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// RunStatus constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// IsTerminal returns true if the run is in a terminal state
func (r *ReprocessRun) IsTerminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// ReprocessResult is returned by the reprocess command
type ReprocessResult struct {
	Date               string   `json:"date"`
	SamplesDropped     int      `json:"samples_dropped"`
	SegmentsCreated    int      `json:"segments_created"`
	PlacesLookedUp     int      `json:"places_looked_up"`
	SummariesGenerated int      `json:"summaries_generated"`
	Errors             []string `json:"errors"`
}

// DaySummary is the plain-text recap of a day
type DaySummary struct {
	UserID      string    `json:"user_id" db:"user_id"`
	Date        string    `json:"date" db:"day"`
	Text        string    `json:"text" db:"text"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
}

// IngestReport is returned by sample ingestion
type IngestReport struct {
	Received   int `json:"received"`
	Ingested   int `json:"ingested"`
	Rejected   int `json:"rejected"`
	Duplicates int `json:"duplicates"`
}
