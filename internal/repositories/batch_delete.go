package repositories

import (
	"context"
)

// DeleteBatchSize caps how many documents a single delete commit removes, so
// an arbitrarily large collection is drained without holding it in memory.
const DeleteBatchSize = 10

// BatchCollection is a collection that can be listed and deleted in
// key-ordered batches. DeleteBatch must remove the given keys atomically.
type BatchCollection interface {
	ListBatch(ctx context.Context, limit int) ([]string, error)
	DeleteBatch(ctx context.Context, keys []string) error
}

// DrainCollection deletes every document of col batch by batch until a batch
// comes back empty. It returns the number of batch commits issued; an
// already-empty collection issues none.
func DrainCollection(ctx context.Context, col BatchCollection, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DeleteBatchSize
	}
	commits := 0
	for {
		if err := ctx.Err(); err != nil {
			return commits, err
		}
		keys, err := col.ListBatch(ctx, batchSize)
		if err != nil {
			return commits, err
		}
		if len(keys) == 0 {
			return commits, nil
		}
		if err := col.DeleteBatch(ctx, keys); err != nil {
			return commits, err
		}
		commits++
	}
}
