package store

import (
	domainerrors "github.com/critiqapp/critiq-sync/internal/errors"
)

// ErrNotFound is returned by backends and buckets for missing keys.
// It matches errors.ErrNotFound through the shared code.
var ErrNotFound = domainerrors.NotFound("key not found")

// persistenceErr wraps a backend failure so callers can classify it as PERSISTENCE.
func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if domainerrors.Is(err, ErrNotFound) {
		return err
	}
	return domainerrors.Wrapf(err, domainerrors.CodePersistence, "store: %s", op)
}
