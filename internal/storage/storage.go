package storage

import (
	"context"
	"errors"
)

// Fixed keys shared by the cart and the auth gate.
const (
	CartKey    = "cart"
	DevModeKey = "devMode"
	SessionKey = "authToken"
)

// KeyValueStore is the local persistence the storefront keeps its state in.
// Get reports ok=false when the key was never written.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var ErrEmptyKey = errors.New("empty key")
