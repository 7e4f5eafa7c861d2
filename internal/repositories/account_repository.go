package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"nyxCloud/internal/models"
)

// Content subcollections under accounts/{uid}. All of them hold
// client-side-encrypted documents and are wiped together on key rotation and
// on account teardown.
var contentCollections = []string{"jots", "tags", "tag_jot", "attachments"}

type AccountRepository struct {
	Client *firestore.Client
}

func (r *AccountRepository) accountRef(uid string) *firestore.DocumentRef {
	return r.Client.Collection(accountsCollection).Doc(uid)
}

// Account returns the account document for uid, or ErrNoRecord.
func (r *AccountRepository) Account(ctx context.Context, uid string) (models.Account, error) {
	snap, err := r.accountRef(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.Account{}, models.ErrNoRecord
	}
	if err != nil {
		return models.Account{}, err
	}
	var acc models.Account
	if err := snap.DataTo(&acc); err != nil {
		return models.Account{}, err
	}
	acc.UID = snap.Ref.ID
	return acc, nil
}

// EncryptKey returns the account's current content-encryption key
// identifier; an account without one yields the empty string.
func (r *AccountRepository) EncryptKey(ctx context.Context, uid string) (string, error) {
	acc, err := r.Account(ctx, uid)
	if err == models.ErrNoRecord {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return acc.KeyHash, nil
}

func (r *AccountRepository) UpdateEncryptKey(ctx context.Context, uid, keyHash string) error {
	_, err := r.accountRef(uid).Set(ctx, map[string]interface{}{"keyHash": keyHash}, firestore.MergeAll)
	return err
}

// DeleteContent drains every content subcollection of the account, batch by
// batch. The account document itself and its purchases stay.
func (r *AccountRepository) DeleteContent(ctx context.Context, uid string) error {
	for _, name := range contentCollections {
		col := firestoreCollection{client: r.Client, ref: r.accountRef(uid).Collection(name)}
		if _, err := DrainCollection(ctx, col, DeleteBatchSize); err != nil {
			return fmt.Errorf("drain %s: %w", name, err)
		}
	}
	return nil
}
