package models

import "time"

// Verification statuses
const (
	VerificationVerified             = "verified"
	VerificationContradicted         = "contradicted"
	VerificationNoExpectation        = "no-expectation"
	VerificationInsufficientEvidence = "insufficient-evidence"
)

// PlannedEvent is a read-only calendar entry supplied by the calendar collaborator
type PlannedEvent struct {
	ID       string    `json:"id" db:"id"`
	UserID   string    `json:"user_id" db:"user_id"`
	Title    string    `json:"title" db:"title"`
	Category string    `json:"category" db:"category"` // work, sleep, exercise, social, ...
	Start    time.Time `json:"start" db:"start_ts"`
	End      time.Time `json:"end" db:"end_ts"`
}

// VerificationResult is the planned-vs-actual outcome of one event
type VerificationResult struct {
	EventID         string   `json:"event_id"`
	Category        string   `json:"category"`
	Status          string   `json:"status"`
	MatchedBlockIDs []string `json:"matched_block_ids"`
}

// VerificationReport is the response of a verification query
type VerificationReport struct {
	Date     string               `json:"date"`
	Results  []VerificationResult `json:"results"`
	Warnings []string             `json:"warnings,omitempty"`
}
