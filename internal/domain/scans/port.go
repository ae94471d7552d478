package scans

import "context"

// Repository port (interface untuk persistence)
//
// Update is a no-op when the id is unknown, the patch is empty or the record
// is already terminal. It never creates a record.
type Repository interface {
	Create(ctx context.Context, s *Scan) error
	Update(ctx context.Context, id ScanID, p Patch) error
	Get(ctx context.Context, id ScanID) (*Scan, error)
	List(ctx context.Context) ([]*Scan, error)
}

// Runner port (interface untuk eksekusi satu chunk)
type Runner interface {
	Run(ctx context.Context, task ChunkTask) ChunkResult
}

// ArtifactStore port (interface untuk penyimpanan artefak)
type ArtifactStore interface {
	// Archive takes ownership of the local file. The returned location is
	// empty when nothing was kept.
	Archive(ctx context.Context, localPath, key string) (string, error)
}
