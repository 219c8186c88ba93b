package models

import "errors"

var (
	// ErrReprocessInProgress is returned when a day is already being reprocessed
	ErrReprocessInProgress = errors.New("reprocessing already in progress")
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvariant marks a violated data invariant; always a programming error
	ErrInvariant = errors.New("data invariant violated")
	// ErrInvalidInput is returned for request payloads that fail validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrLookupFailed is returned by place lookups that produced no usable result
	ErrLookupFailed = errors.New("place lookup failed")
)
