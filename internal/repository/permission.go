package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Server error codes that mean the caller may not read the collection.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

type oneFinder interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

// PermissionProbe checks read access to the products collection with a single
// projected lookup. Repeated backend failures open the breaker and the probe
// fails fast until it half-opens again.
type PermissionProbe struct {
	finder  oneFinder
	breaker *gobreaker.CircuitBreaker[bool]
}

var _ catalog.PermissionProbe = (*PermissionProbe)(nil)

func NewPermissionProbe(db *mongo.Database) *PermissionProbe {
	return newPermissionProbe(db.Collection(ProductsCollection))
}

func newPermissionProbe(finder oneFinder) *PermissionProbe {
	return &PermissionProbe{
		finder: finder,
		breaker: gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
			Name:        "catalog-permission",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

func (p *PermissionProbe) CanRead(ctx context.Context) (bool, error) {
	return p.breaker.Execute(func() (bool, error) {
		opts := options.FindOne().SetProjection(bson.M{"_id": 1})
		err := p.finder.FindOne(ctx, bson.D{}, opts).Err()
		switch {
		case err == nil, errors.Is(err, mongo.ErrNoDocuments):
			return true, nil
		case isUnauthorized(err):
			return false, nil
		default:
			return false, err
		}
	})
}

func isUnauthorized(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(codeUnauthorized) || se.HasErrorCode(codeAuthenticationFailed)
}
