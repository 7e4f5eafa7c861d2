package repositories

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// firestoreCollection adapts a Firestore collection to BatchCollection.
type firestoreCollection struct {
	client *firestore.Client
	ref    *firestore.CollectionRef
}

func (c firestoreCollection) ListBatch(ctx context.Context, limit int) ([]string, error) {
	iter := c.ref.OrderBy(firestore.DocumentID, firestore.Asc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var keys []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, snap.Ref.ID)
	}
	return keys, nil
}

func (c firestoreCollection) DeleteBatch(ctx context.Context, keys []string) error {
	batch := c.client.Batch()
	for _, key := range keys {
		batch.Delete(c.ref.Doc(key))
	}
	_, err := batch.Commit(ctx)
	return err
}
