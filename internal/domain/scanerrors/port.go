package scanerrors

import "context"

// Repository defines persistence for chunk failures
type Repository interface {
	Save(ctx context.Context, e *ScanError) error
	ListByScan(ctx context.Context, scanID string, limit int) ([]*ScanError, error)
}
