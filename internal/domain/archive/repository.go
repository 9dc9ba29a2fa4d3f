package archive

import (
	"context"

	"stockbook/internal/core/id"
)

// Repository defines persistence for tombstones.
type Repository interface {
	Insert(ctx context.Context, t *Tombstone) error
	Get(ctx context.Context, tombstoneID id.ID) (*Tombstone, error)
	Delete(ctx context.Context, tombstoneID id.ID) error
	DeleteAll(ctx context.Context) (int, error)
	List(ctx context.Context, entityType string, limit, offset int) ([]*Tombstone, int, error)
}
