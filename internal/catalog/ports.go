package catalog

import "context"

// Record is one loosely-typed document as delivered by a live backend.
type Record map[string]any

// PermissionProbe reports whether the caller may read the live catalog.
type PermissionProbe interface {
	CanRead(ctx context.Context) (bool, error)
}

// ProbeFunc adapts a plain function to PermissionProbe.
type ProbeFunc func(ctx context.Context) (bool, error)

func (f ProbeFunc) CanRead(ctx context.Context) (bool, error) { return f(ctx) }

// LiveSource pushes full catalog snapshots as they change upstream. onNext and
// onError may be called from any goroutine. The returned func releases the
// subscription and must be safe to call more than once.
type LiveSource interface {
	Subscribe(ctx context.Context, onNext func([]Record), onError func(error)) (unsubscribe func(), err error)
}

// StaticSource fetches the fixed fallback catalog.
type StaticSource interface {
	FetchOnce(ctx context.Context) ([]StaticRecord, error)
}

// AuthGate answers whether the shopper is signed in, and whether the local
// development override that skips the sign-in requirement is active.
type AuthGate interface {
	IsLoggedIn(ctx context.Context) bool
	DevOverride(ctx context.Context) bool
}
