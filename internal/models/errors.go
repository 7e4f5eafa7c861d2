package models

import (
	"errors"
)

var (
	ErrNoRecord           = errors.New("models: no matching record found")
	ErrVerificationFailed = errors.New("models: subscription verification failed")
	ErrMissingIdentity    = errors.New("models: missing account identity")
	ErrOwnershipConflict  = errors.New("models: purchase belongs to another account")
	ErrSameKey            = errors.New("models: encrypt key is unchanged")
)
