package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nyxCloud/internal/models"
)

const storageUsageTTL = 10 * time.Minute

// AccountKeyStore is the slice of the account repository the account
// service needs: the key identifier and the encrypted content collections.
type AccountKeyStore interface {
	EncryptKey(ctx context.Context, uid string) (string, error)
	UpdateEncryptKey(ctx context.Context, uid, keyHash string) error
	DeleteContent(ctx context.Context, uid string) error
}

// UsageBlobStore reads and tears down an account's object-storage prefix.
type UsageBlobStore interface {
	Usage(ctx context.Context, uid string) (int64, error)
	DeletePrefix(ctx context.Context, uid string) error
}

// AccountService serves the account-scoped data endpoints: encryption-key
// rotation and storage usage.
type AccountService struct {
	Accounts AccountKeyStore
	Blobs    UsageBlobStore
	Cache    *redis.Client // optional
}

func (s *AccountService) EncryptKey(ctx context.Context, uid string) (string, error) {
	return s.Accounts.EncryptKey(ctx, uid)
}

// RotateEncryptKey replaces the account's content-encryption key. Content
// encrypted under the old key is unreadable once the client switches, so
// all of it is deleted before the new key identifier is stored. Rotating to
// the current key is rejected with ErrSameKey.
func (s *AccountService) RotateEncryptKey(ctx context.Context, uid, keyHash string) error {
	current, err := s.Accounts.EncryptKey(ctx, uid)
	if err != nil {
		return fmt.Errorf("load encrypt key: %w", err)
	}
	if current == keyHash {
		return models.ErrSameKey
	}
	if err := s.Accounts.DeleteContent(ctx, uid); err != nil {
		return fmt.Errorf("delete encrypted content: %w", err)
	}
	if s.Blobs != nil {
		if err := s.Blobs.DeletePrefix(ctx, uid); err != nil {
			return fmt.Errorf("delete attachments: %w", err)
		}
		s.invalidateUsage(ctx, uid)
	}
	return s.Accounts.UpdateEncryptKey(ctx, uid, keyHash)
}

// StorageUsage sums the byte sizes of all blob-store objects under the
// account's prefix. Totals are cached briefly; listing a large prefix on
// every call is slow and the number only drifts with uploads.
func (s *AccountService) StorageUsage(ctx context.Context, uid string) (int64, error) {
	if s.Cache != nil {
		if v, err := s.Cache.Get(ctx, usageCacheKey(uid)).Int64(); err == nil {
			return v, nil
		}
	}
	total, err := s.Blobs.Usage(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("storage usage: %w", err)
	}
	if s.Cache != nil {
		_ = s.Cache.Set(ctx, usageCacheKey(uid), total, storageUsageTTL).Err()
	}
	return total, nil
}

func (s *AccountService) invalidateUsage(ctx context.Context, uid string) {
	if s.Cache != nil {
		_ = s.Cache.Del(ctx, usageCacheKey(uid)).Err()
	}
}

func usageCacheKey(uid string) string {
	return "storage_usage:" + uid
}
