package auth

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGate(t *testing.T) (*Gate, *storage.MemoryStore) {
	t.Helper()
	kv := storage.NewMemoryStore()
	g, err := NewGate(kv, "test-secret", zap.NewNop())
	require.NoError(t, err)
	return g, kv
}

func TestNewGate_RequiresSecret(t *testing.T) {
	_, err := NewGate(storage.NewMemoryStore(), "", zap.NewNop())
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestIsLoggedIn_NoSession(t *testing.T) {
	g, _ := newTestGate(t)
	assert.False(t, g.IsLoggedIn(context.Background()))
}

func TestIssueSession_LogsIn(t *testing.T) {
	g, _ := newTestGate(t)
	ctx := context.Background()

	_, err := g.IssueSession(ctx, "user-1", time.Hour)
	require.NoError(t, err)

	assert.True(t, g.IsLoggedIn(ctx))
	subject, ok := g.Subject(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", subject)

	require.NoError(t, g.EndSession(ctx))
	assert.False(t, g.IsLoggedIn(ctx))
}

func TestIsLoggedIn_ExpiredSession(t *testing.T) {
	g, _ := newTestGate(t)
	ctx := context.Background()

	_, err := g.IssueSession(ctx, "user-1", time.Minute)
	require.NoError(t, err)

	g.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.False(t, g.IsLoggedIn(ctx))
}

func TestIsLoggedIn_ForeignSignature(t *testing.T) {
	other, kv := newTestGate(t)
	ctx := context.Background()
	_, err := other.IssueSession(ctx, "user-1", time.Hour)
	require.NoError(t, err)

	g, err := NewGate(kv, "different-secret", zap.NewNop())
	require.NoError(t, err)

	assert.False(t, g.IsLoggedIn(ctx))
}

func TestIsLoggedIn_Garbage(t *testing.T) {
	g, kv := newTestGate(t)
	require.NoError(t, kv.Set(context.Background(), storage.SessionKey, "not-a-token"))

	assert.False(t, g.IsLoggedIn(context.Background()))
}

func TestDevOverride(t *testing.T) {
	g, kv := newTestGate(t)
	ctx := context.Background()

	assert.False(t, g.DevOverride(ctx))

	require.NoError(t, kv.Set(ctx, storage.DevModeKey, "yes"))
	assert.False(t, g.DevOverride(ctx))

	require.NoError(t, g.SetDevOverride(ctx, true))
	assert.True(t, g.DevOverride(ctx))

	require.NoError(t, g.SetDevOverride(ctx, false))
	assert.False(t, g.DevOverride(ctx))
}
