package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/storefront/internal/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LiveProducts streams the products collection. Every change-stream event
// triggers a fresh ordered snapshot of the whole collection.
type LiveProducts struct {
	collection *mongo.Collection
}

func NewLiveProducts(db *mongo.Database) *LiveProducts {
	return &LiveProducts{collection: db.Collection(ProductsCollection)}
}

var _ catalog.LiveSource = (*LiveProducts)(nil)

func (l *LiveProducts) Subscribe(ctx context.Context, onNext func([]catalog.Record), onError func(error)) (func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := l.collection.Watch(streamCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	initial, err := l.Snapshot(streamCtx)
	if err != nil {
		_ = stream.Close(context.Background())
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())

		onNext(initial)
		for stream.Next(streamCtx) {
			snapshot, err := l.Snapshot(streamCtx)
			if err != nil {
				if streamCtx.Err() == nil {
					onError(err)
				}
				return
			}
			onNext(snapshot)
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			onError(fmt.Errorf("change stream failed: %w", err))
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return unsubscribe, nil
}

// Snapshot reads all products, featured first and newest first.
func (l *LiveProducts) Snapshot(ctx context.Context) ([]catalog.Record, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "featured", Value: -1},
		{Key: "createdAt", Value: -1},
	})

	cursor, err := l.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	records := make([]catalog.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, catalog.Record(doc))
	}
	return records, nil
}
