package scanerrors

import "time"

// ScanError is one chunk that contributed nothing to its scan.
type ScanError struct {
	ID        int64     `json:"id"`
	ScanID    string    `json:"scan_id"`
	Tool      string    `json:"tool"`
	Technique string    `json:"technique"`
	ChunkID   string    `json:"chunk_id"`
	Outcome   string    `json:"outcome"` // failed | timed_out
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
