package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"nyxCloud/internal/models"
)

// graceMillis is the window a purchase stays around past its expiry before
// the sweep is allowed to tear it down. 30 days.
const graceMillis = int64(2592000000)

// SubscriptionVerifier asks the billing provider for the current state of a
// purchase.
type SubscriptionVerifier interface {
	VerifySubscription(ctx context.Context, skuID, token string) (models.ProviderSubscription, error)
}

// PurchaseStore persists the two-copy purchase records. Submit resolves the
// bind/no-op/conflict/reassign decision against the global index atomically;
// Submit, Refresh and Remove must each mutate both copies and the derived
// premium flag atomically.
type PurchaseStore interface {
	Submit(ctx context.Context, rec models.PurchaseRecord, changeUser bool) (models.SubmitResult, error)
	Refresh(ctx context.Context, rec models.PurchaseRecord) error
	Remove(ctx context.Context, token, uid string) (int, error)
	RecomputePremium(ctx context.Context, uid string) error
	ListExpired(ctx context.Context, beforeMillis int64) ([]models.PurchaseRecord, error)
}

// ContentStore tears down an account's content collections.
type ContentStore interface {
	DeleteContent(ctx context.Context, uid string) error
}

// BlobStore tears down an account's object-storage prefix.
type BlobStore interface {
	DeletePrefix(ctx context.Context, uid string) error
}

// ReconcileService decides, given the provider's state and the local state
// of a purchase token, whether to bind, reassign, refresh or tear down.
type ReconcileService struct {
	Verifier    SubscriptionVerifier
	Purchases   PurchaseStore
	Accounts    ContentStore
	Blobs       BlobStore
	PackageName string
	InfoLog     *log.Logger
	ErrorLog    *log.Logger

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (s *ReconcileService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SubmitSubscription handles one client-submitted purchase. The uid must
// come from a verified identity, never from the request body.
//
// The provider is consulted first; nothing local changes unless it confirms
// the subscription. An unknown token is bound to the caller, the caller's
// own token is a no-op, and someone else's token is either rejected
// (ErrOwnershipConflict) or, with changeUser set, moved to the caller. The
// whole decision runs in one store transaction, so concurrent submits for
// the same token cannot both bind. Rerunning the same submit converges to
// the same end state.
func (s *ReconcileService) SubmitSubscription(ctx context.Context, uid, skuID, token string, changeUser bool) (models.SubmitResult, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return 0, models.ErrMissingIdentity
	}
	skuID = strings.TrimSpace(skuID)
	token = strings.TrimSpace(token)

	sub, err := s.Verifier.VerifySubscription(ctx, skuID, token)
	if err != nil {
		return 0, err
	}

	result, err := s.Purchases.Submit(ctx, s.record(uid, skuID, token, sub), changeUser)
	if err != nil {
		if errors.Is(err, models.ErrOwnershipConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("submit purchase: %w", err)
	}
	return result, nil
}

// Verify returns the provider's current state for a purchase without
// touching local records.
func (s *ReconcileService) Verify(ctx context.Context, skuID, token string) (models.ProviderSubscription, error) {
	return s.Verifier.VerifySubscription(ctx, skuID, token)
}

// Sweep reconciles every purchase whose stored expiry has passed. Records
// are processed concurrently and independently; a failure on one is logged
// and never aborts the rest. Sweep returns once all records are done.
func (s *ReconcileService) Sweep(ctx context.Context) error {
	nowMillis := s.now().UnixMilli()
	expired, err := s.Purchases.ListExpired(ctx, nowMillis)
	if err != nil {
		return fmt.Errorf("list expired purchases: %w", err)
	}
	if s.InfoLog != nil {
		s.InfoLog.Printf("sweep: %d locally expired purchases", len(expired))
	}

	var wg sync.WaitGroup
	for _, rec := range expired {
		wg.Add(1)
		go func(rec models.PurchaseRecord) {
			defer wg.Done()
			if err := s.sweepRecord(ctx, rec, nowMillis); err != nil && s.ErrorLog != nil {
				s.ErrorLog.Printf("sweep: token=%s uid=%s: %v", rec.PurchaseToken, rec.UID, err)
			}
		}(rec)
	}
	wg.Wait()
	return nil
}

func (s *ReconcileService) sweepRecord(ctx context.Context, rec models.PurchaseRecord, nowMillis int64) error {
	sub, err := s.Verifier.VerifySubscription(ctx, rec.ProductID, rec.PurchaseToken)
	if err == nil && sub.OrderID != rec.OrderID && sub.ExpiryTimeMillis > nowMillis {
		// A renewal the local copies missed: take the provider's expiry
		// and order id, keep the binding.
		fresh := rec
		fresh.OrderID = sub.OrderID
		fresh.ExpiryTimeMillis = sub.ExpiryTimeMillis
		if err := s.Purchases.Refresh(ctx, fresh); err != nil {
			return fmt.Errorf("refresh purchase: %w", err)
		}
		return nil
	}
	if err != nil && !errors.Is(err, models.ErrVerificationFailed) {
		// Provider unreachable; leave the record for the next sweep.
		return fmt.Errorf("verify purchase: %w", err)
	}

	if rec.ExpiryTimeMillis+graceMillis >= nowMillis {
		// Inside the grace window the record stays, but the entitlement
		// may already have lapsed.
		return s.Purchases.RecomputePremium(ctx, rec.UID)
	}

	remaining, err := s.Purchases.Remove(ctx, rec.PurchaseToken, rec.UID)
	if err != nil {
		return fmt.Errorf("remove purchase: %w", err)
	}
	if remaining > 0 {
		return nil
	}

	// Last purchase gone: full account teardown, then a final recompute
	// once the deletions have finished.
	if err := s.Accounts.DeleteContent(ctx, rec.UID); err != nil {
		return fmt.Errorf("delete account content: %w", err)
	}
	if s.Blobs != nil {
		if err := s.Blobs.DeletePrefix(ctx, rec.UID); err != nil {
			return fmt.Errorf("delete blob prefix: %w", err)
		}
	}
	return s.Purchases.RecomputePremium(ctx, rec.UID)
}

func (s *ReconcileService) record(uid, skuID, token string, sub models.ProviderSubscription) models.PurchaseRecord {
	return models.PurchaseRecord{
		PurchaseToken:    token,
		OrderID:          sub.OrderID,
		ProductID:        skuID,
		PackageName:      s.PackageName,
		ExpiryTimeMillis: sub.ExpiryTimeMillis,
		UID:              uid,
	}
}
