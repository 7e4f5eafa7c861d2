package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubCollection struct {
	keys    []string
	commits int
}

func newStubCollection(n int) *stubCollection {
	col := &stubCollection{}
	for i := 0; i < n; i++ {
		col.keys = append(col.keys, fmt.Sprintf("doc-%04d", i))
	}
	return col
}

func (c *stubCollection) ListBatch(_ context.Context, limit int) ([]string, error) {
	if limit > len(c.keys) {
		limit = len(c.keys)
	}
	out := make([]string, limit)
	copy(out, c.keys[:limit])
	return out, nil
}

func (c *stubCollection) DeleteBatch(_ context.Context, keys []string) error {
	for _, key := range keys {
		if len(c.keys) == 0 || c.keys[0] != key {
			return fmt.Errorf("unexpected delete key %s", key)
		}
		c.keys = c.keys[1:]
	}
	c.commits++
	return nil
}

func TestDrainCollection(t *testing.T) {
	t.Run("empty collection issues no commits", func(t *testing.T) {
		col := newStubCollection(0)
		commits, err := DrainCollection(context.Background(), col, DeleteBatchSize)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if commits != 0 {
			t.Fatalf("expected 0 commits, got %d", commits)
		}
	})

	t.Run("drains in fixed-size batches", func(t *testing.T) {
		col := newStubCollection(25)
		commits, err := DrainCollection(context.Background(), col, DeleteBatchSize)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if commits != 3 {
			t.Fatalf("expected 3 commits for 25 docs, got %d", commits)
		}
		if len(col.keys) != 0 {
			t.Fatalf("expected empty collection, %d docs left", len(col.keys))
		}
		if col.commits != 3 {
			t.Fatalf("expected 3 delete calls, got %d", col.commits)
		}
	})

	t.Run("exact multiple of batch size", func(t *testing.T) {
		col := newStubCollection(20)
		commits, err := DrainCollection(context.Background(), col, DeleteBatchSize)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if commits != 2 {
			t.Fatalf("expected 2 commits for 20 docs, got %d", commits)
		}
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		col := newStubCollection(25)
		if _, err := DrainCollection(ctx, col, DeleteBatchSize); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
