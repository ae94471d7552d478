package scans

import "errors"

var (
	// ErrNotFound is returned by repositories when a scan id is unknown.
	ErrNotFound = errors.New("scan not found")

	// ErrInvalidDomain rejects a submission before any work starts.
	ErrInvalidDomain = errors.New("invalid domain format")

	// ErrNotCompleted is returned when an operation needs a completed scan.
	ErrNotCompleted = errors.New("scan not completed")
)
