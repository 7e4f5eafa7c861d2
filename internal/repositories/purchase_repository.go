package repositories

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"nyxCloud/internal/models"
)

const (
	purchasesCollection = "purchases"
	accountsCollection  = "accounts"
)

// PurchaseRepository keeps purchase records in Firestore: a global index
// under purchases/{token} and a mirror under accounts/{uid}/purchases/{token}.
// Every mutation runs in a transaction that writes both copies and the
// owner's derived premium flag together, so the two copies never diverge.
// The ownership decision in Submit reads the global record inside the same
// transaction, so concurrent submits for the same token serialize on the
// document version.
type PurchaseRepository struct {
	Client *firestore.Client
}

func (r *PurchaseRepository) globalRef(token string) *firestore.DocumentRef {
	return r.Client.Collection(purchasesCollection).Doc(token)
}

func (r *PurchaseRepository) accountRef(uid string) *firestore.DocumentRef {
	return r.Client.Collection(accountsCollection).Doc(uid)
}

func (r *PurchaseRepository) mirrorRef(uid, token string) *firestore.DocumentRef {
	return r.accountRef(uid).Collection(purchasesCollection).Doc(token)
}

// Submit resolves a submitted purchase against the global index in one
// transaction: an unbound token is bound to rec.UID, the caller's own token
// is a no-op, another account's token either fails with ErrOwnershipConflict
// or, with changeUser set, moves to the caller. Because the global record is
// read inside the transaction, two concurrent submits for the same token
// cannot both bind; the loser retries against the winner's committed state.
func (r *PurchaseRepository) Submit(ctx context.Context, rec models.PurchaseRecord, changeUser bool) (models.SubmitResult, error) {
	var result models.SubmitResult
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(r.globalRef(rec.PurchaseToken))
		if status.Code(err) == codes.NotFound {
			result = models.SubmitCreated
			return r.upsertInTx(tx, rec)
		}
		if err != nil {
			return err
		}
		var existing models.PurchaseRecord
		if err := snap.DataTo(&existing); err != nil {
			return err
		}
		switch {
		case existing.UID == rec.UID:
			result = models.SubmitAlreadyBound
			return nil
		case !changeUser:
			return models.ErrOwnershipConflict
		default:
			result = models.SubmitReassigned
			return r.rebindInTx(tx, rec, existing.UID)
		}
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Refresh persists provider data the local copies missed, e.g. a renewal
// detected during a sweep. Both copies and the premium flag are rewritten in
// one transaction.
func (r *PurchaseRepository) Refresh(ctx context.Context, rec models.PurchaseRecord) error {
	return r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return r.upsertInTx(tx, rec)
	})
}

// Remove deletes both copies of the purchase and recomputes the owner's
// premium flag. It reports how many purchases the account still holds.
func (r *PurchaseRepository) Remove(ctx context.Context, token, uid string) (int, error) {
	remaining := 0
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := r.purchasesInTx(tx, uid)
		if err != nil {
			return err
		}
		remaining = 0
		for _, p := range current {
			if p.PurchaseToken != token {
				remaining++
			}
		}
		premium := premiumAfter(current, nil, token)
		if err := tx.Delete(r.globalRef(token)); err != nil {
			return err
		}
		if err := tx.Delete(r.mirrorRef(uid, token)); err != nil {
			return err
		}
		return r.setPremiumInTx(tx, uid, premium)
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// RecomputePremium rereads the account's purchases and stores the derived
// premium flag.
func (r *PurchaseRepository) RecomputePremium(ctx context.Context, uid string) error {
	return r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := r.purchasesInTx(tx, uid)
		if err != nil {
			return err
		}
		return r.setPremiumInTx(tx, uid, models.PremiumActive(current, time.Now()))
	})
}

// ListExpired returns every global index entry whose stored expiry is before
// the given epoch-millis timestamp.
func (r *PurchaseRepository) ListExpired(ctx context.Context, beforeMillis int64) ([]models.PurchaseRecord, error) {
	iter := r.Client.Collection(purchasesCollection).
		Where("expiryTimeMillis", "<", beforeMillis).
		Documents(ctx)
	defer iter.Stop()

	var records []models.PurchaseRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var rec models.PurchaseRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode purchase %s: %w", snap.Ref.ID, err)
		}
		rec.PurchaseToken = snap.Ref.ID
		records = append(records, rec)
	}
	return records, nil
}

// upsertInTx writes rec into the global index and the owner's mirror and
// updates the owner's premium flag. Reads go first; Firestore transactions
// reject reads after the first write.
func (r *PurchaseRepository) upsertInTx(tx *firestore.Transaction, rec models.PurchaseRecord) error {
	current, err := r.purchasesInTx(tx, rec.UID)
	if err != nil {
		return err
	}
	premium := premiumAfter(current, &rec, "")
	if err := tx.Set(r.globalRef(rec.PurchaseToken), rec); err != nil {
		return err
	}
	if err := tx.Set(r.mirrorRef(rec.UID, rec.PurchaseToken), rec); err != nil {
		return err
	}
	return r.setPremiumInTx(tx, rec.UID, premium)
}

// rebindInTx moves the purchase from prevUID to rec.UID: the previous
// owner's mirror entry is deleted, the new owner's mirror and the global
// index are rewritten, and both accounts' premium flags are recomputed.
// prevUID comes from the in-transaction read of the global record, so a
// half-done move is never visible and a stale previous owner is impossible.
func (r *PurchaseRepository) rebindInTx(tx *firestore.Transaction, rec models.PurchaseRecord, prevUID string) error {
	prevPurchases, err := r.purchasesInTx(tx, prevUID)
	if err != nil {
		return err
	}
	nextPurchases, err := r.purchasesInTx(tx, rec.UID)
	if err != nil {
		return err
	}
	prevPremium := premiumAfter(prevPurchases, nil, rec.PurchaseToken)
	nextPremium := premiumAfter(nextPurchases, &rec, "")

	if err := tx.Delete(r.mirrorRef(prevUID, rec.PurchaseToken)); err != nil {
		return err
	}
	if err := tx.Set(r.globalRef(rec.PurchaseToken), rec); err != nil {
		return err
	}
	if err := tx.Set(r.mirrorRef(rec.UID, rec.PurchaseToken), rec); err != nil {
		return err
	}
	if err := r.setPremiumInTx(tx, prevUID, prevPremium); err != nil {
		return err
	}
	return r.setPremiumInTx(tx, rec.UID, nextPremium)
}

func (r *PurchaseRepository) purchasesInTx(tx *firestore.Transaction, uid string) ([]models.PurchaseRecord, error) {
	iter := tx.Documents(r.accountRef(uid).Collection(purchasesCollection))
	defer iter.Stop()

	var records []models.PurchaseRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var rec models.PurchaseRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, err
		}
		rec.PurchaseToken = snap.Ref.ID
		records = append(records, rec)
	}
	return records, nil
}

func (r *PurchaseRepository) setPremiumInTx(tx *firestore.Transaction, uid string, premium bool) error {
	return tx.Set(r.accountRef(uid), map[string]interface{}{"premium": premium}, firestore.MergeAll)
}

// premiumAfter evaluates the premium flag as it will stand once the pending
// mutation is applied: removeToken is dropped from the set, upsert replaces
// or adds its token. Transactions read before they write, so the post-write
// purchase set has to be derived rather than requeried.
func premiumAfter(current []models.PurchaseRecord, upsert *models.PurchaseRecord, removeToken string) bool {
	next := make([]models.PurchaseRecord, 0, len(current)+1)
	for _, p := range current {
		if removeToken != "" && p.PurchaseToken == removeToken {
			continue
		}
		if upsert != nil && p.PurchaseToken == upsert.PurchaseToken {
			continue
		}
		next = append(next, p)
	}
	if upsert != nil {
		next = append(next, *upsert)
	}
	return models.PremiumActive(next, time.Now())
}
