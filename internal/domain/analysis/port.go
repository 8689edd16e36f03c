package analysis

import (
	"context"
	"io"
)

// Repository port (interface untuk persistence)
type Repository interface {
	// Save assigns a fresh ID and stores the record. createdAt is kept as given.
	Save(ctx context.Context, r Record) (Record, error)
	FindByID(ctx context.Context, id ID) (Record, error)

	// listing
	Paginate(ctx context.Context, page, pageSize int) ([]Record, error)
	Count(ctx context.Context) (int64, error)
}

// UploadStore port for archiving the raw upload. Bytes are streamed, never inspected.
type UploadStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Rand is the randomness source used by Generate.
type Rand interface {
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
}
