// Package keyring stores data-source passwords encrypted at rest.
package keyring

import (
	"context"
	"errors"
	"fmt"
)

// Provider stores passwords by key. Keys are the data source's password_key.
type Provider interface {
	Set(ctx context.Context, key, password string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Available(ctx context.Context) bool
}

// ErrNotFound is returned when a key is not found in the keyring.
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("key not found: %s", e.Key)
}

// IsNotFound checks if an error is ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// Resolve returns the password for key, or fallback when key is empty.
func Resolve(ctx context.Context, p Provider, key, fallback string) (string, error) {
	if key == "" || p == nil {
		return fallback, nil
	}
	pw, err := p.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve password %q: %w", key, err)
	}
	return pw, nil
}
