package models

// Account is the per-user document. Premium is a derived field kept in sync
// with the account's purchases subcollection on every mutation; KeyHash
// identifies the content-encryption key the client currently uses.
type Account struct {
	UID     string `firestore:"-" json:"uid"`
	Premium bool   `firestore:"premium" json:"premium"`
	KeyHash string `firestore:"keyHash" json:"key_hash"`
}
