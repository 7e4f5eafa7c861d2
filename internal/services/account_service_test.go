package services

import (
	"context"
	"errors"
	"testing"

	"nyxCloud/internal/models"
)

type stubAccountStore struct {
	keyHash        string
	keyErr         error
	updatedKey     string
	contentDeletes int
}

func (s *stubAccountStore) EncryptKey(_ context.Context, _ string) (string, error) {
	return s.keyHash, s.keyErr
}

func (s *stubAccountStore) UpdateEncryptKey(_ context.Context, _, keyHash string) error {
	s.updatedKey = keyHash
	return nil
}

func (s *stubAccountStore) DeleteContent(_ context.Context, _ string) error {
	s.contentDeletes++
	return nil
}

type stubUsageBlobStore struct {
	usage         int64
	usageErr      error
	usageCalls    int
	prefixWipes   int
	prefixWipeErr error
}

func (s *stubUsageBlobStore) Usage(_ context.Context, _ string) (int64, error) {
	s.usageCalls++
	return s.usage, s.usageErr
}

func (s *stubUsageBlobStore) DeletePrefix(_ context.Context, _ string) error {
	s.prefixWipes++
	return s.prefixWipeErr
}

func TestRotateEncryptKeySameKey(t *testing.T) {
	store := &stubAccountStore{keyHash: "abc"}
	blobs := &stubUsageBlobStore{}
	svc := &AccountService{Accounts: store, Blobs: blobs}

	err := svc.RotateEncryptKey(context.Background(), "alice", "abc")
	if !errors.Is(err, models.ErrSameKey) {
		t.Fatalf("expected ErrSameKey, got %v", err)
	}
	if store.contentDeletes != 0 || blobs.prefixWipes != 0 {
		t.Fatal("rotating to the same key must not delete anything")
	}
	if store.updatedKey != "" {
		t.Fatal("rotating to the same key must not store a key")
	}
}

func TestRotateEncryptKeyWipesContentFirst(t *testing.T) {
	store := &stubAccountStore{keyHash: "old"}
	blobs := &stubUsageBlobStore{}
	svc := &AccountService{Accounts: store, Blobs: blobs}

	if err := svc.RotateEncryptKey(context.Background(), "alice", "new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.contentDeletes != 1 {
		t.Fatalf("expected content wipe, got %d deletes", store.contentDeletes)
	}
	if blobs.prefixWipes != 1 {
		t.Fatalf("expected attachment wipe, got %d", blobs.prefixWipes)
	}
	if store.updatedKey != "new" {
		t.Fatalf("expected new key stored, got %q", store.updatedKey)
	}
}

func TestRotateEncryptKeyFailedWipeKeepsOldKey(t *testing.T) {
	store := &stubAccountStore{keyHash: "old"}
	blobs := &stubUsageBlobStore{prefixWipeErr: errors.New("s3 down")}
	svc := &AccountService{Accounts: store, Blobs: blobs}

	if err := svc.RotateEncryptKey(context.Background(), "alice", "new"); err == nil {
		t.Fatal("expected error when the wipe fails")
	}
	if store.updatedKey != "" {
		t.Fatal("failed wipe must not store the new key")
	}
}

func TestStorageUsage(t *testing.T) {
	blobs := &stubUsageBlobStore{usage: 4096}
	svc := &AccountService{Accounts: &stubAccountStore{}, Blobs: blobs}

	total, err := svc.StorageUsage(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4096 {
		t.Fatalf("expected 4096, got %d", total)
	}
	if blobs.usageCalls != 1 {
		t.Fatalf("expected one usage listing, got %d", blobs.usageCalls)
	}
}

func TestStorageUsageError(t *testing.T) {
	blobs := &stubUsageBlobStore{usageErr: errors.New("list failed")}
	svc := &AccountService{Accounts: &stubAccountStore{}, Blobs: blobs}

	if _, err := svc.StorageUsage(context.Background(), "alice"); err == nil {
		t.Fatal("expected error when listing fails")
	}
}
