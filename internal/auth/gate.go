package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrEmptySecret = errors.New("jwt secret is empty")

// Gate answers sign-in questions from the same key-value store the cart uses.
// The shopper is signed in while a valid session token is stored under
// storage.SessionKey; the development override is the string "true" under
// storage.DevModeKey.
type Gate struct {
	kv     storage.KeyValueStore
	secret []byte
	now    func() time.Time
	logger *zap.Logger
}

func NewGate(kv storage.KeyValueStore, secret string, logger *zap.Logger) (*Gate, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Gate{
		kv:     kv,
		secret: []byte(secret),
		now:    time.Now,
		logger: logger,
	}, nil
}

func (g *Gate) IsLoggedIn(ctx context.Context) bool {
	raw, ok, err := g.kv.Get(ctx, storage.SessionKey)
	if err != nil {
		g.logger.Warn("read session failed", zap.Error(err))
		return false
	}
	if !ok || raw == "" {
		return false
	}

	_, err = g.parse(raw)
	if err != nil {
		g.logger.Debug("stored session rejected", zap.Error(err))
		return false
	}
	return true
}

func (g *Gate) DevOverride(ctx context.Context) bool {
	v, ok, err := g.kv.Get(ctx, storage.DevModeKey)
	if err != nil {
		g.logger.Warn("read dev override failed", zap.Error(err))
		return false
	}
	return ok && v == "true"
}

// Subject returns the subject of the stored session, if it is valid.
func (g *Gate) Subject(ctx context.Context) (string, bool) {
	raw, ok, err := g.kv.Get(ctx, storage.SessionKey)
	if err != nil || !ok {
		return "", false
	}
	claims, err := g.parse(raw)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

// IssueSession signs a session for subject and stores it.
func (g *Gate) IssueSession(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	now := g.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	if err := g.kv.Set(ctx, storage.SessionKey, token); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (g *Gate) EndSession(ctx context.Context) error {
	if err := g.kv.Delete(ctx, storage.SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SetDevOverride toggles the development override flag.
func (g *Gate) SetDevOverride(ctx context.Context, on bool) error {
	if !on {
		return g.kv.Delete(ctx, storage.DevModeKey)
	}
	return g.kv.Set(ctx, storage.DevModeKey, "true")
}

func (g *Gate) parse(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
