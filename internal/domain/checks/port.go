package checks

import "context"

// Repository port for persisting checks. Save is an upsert keyed by Record.ID,
// so resubmitting the same record is idempotent. List methods return newest first.
type Repository interface {
	Save(ctx context.Context, r *Record) (string, error)
	Get(ctx context.Context, id string) (*Record, error)
	ListByUser(ctx context.Context, userID string) ([]*Record, error)
	ListFavoritesByUser(ctx context.Context, userID string) ([]*Record, error)
	SetFavorite(ctx context.Context, id string, favorite bool) error
	Delete(ctx context.Context, id string) error
}

// ImageArchive stores the label photo of an image check and returns its URL
type ImageArchive interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (string, error)
}
