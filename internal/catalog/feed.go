package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"go.uber.org/zap"
)

// DefaultProbeTimeout bounds the permission probe so an unanswered probe cannot
// stall the feed.
const DefaultProbeTimeout = 5 * time.Second

// Feed produces normalized catalog batches, preferring the live source and
// degrading to the static catalog. Errors from the probe or the live source
// never reach the subscriber; they only switch the feed to the fallback path.
type Feed struct {
	probe        PermissionProbe
	live         LiveSource
	static       StaticSource
	auth         AuthGate
	probeTimeout time.Duration
	logger       *zap.Logger
}

type FeedOption func(*Feed)

func WithProbeTimeout(d time.Duration) FeedOption {
	return func(f *Feed) { f.probeTimeout = d }
}

func NewFeed(probe PermissionProbe, live LiveSource, static StaticSource, auth AuthGate, logger *zap.Logger, opts ...FeedOption) *Feed {
	f := &Feed{
		probe:        probe,
		live:         live,
		static:       static,
		auth:         auth,
		probeTimeout: DefaultProbeTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subscribe starts the feed. Live batches keep arriving until the live source
// fails or ctx ends; the fallback path emits exactly one batch and closes the
// channel. The returned func stops the feed, releases the live subscription and
// waits until the channel is closed.
func (f *Feed) Subscribe(ctx context.Context) (<-chan domain.Batch, func()) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan domain.Batch)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		f.run(ctx, out)
	}()

	unsubscribe := func() {
		cancel()
		<-done
	}
	return out, unsubscribe
}

func (f *Feed) run(ctx context.Context, out chan<- domain.Batch) {
	if !f.liveAllowed(ctx) {
		f.fallback(ctx, out)
		return
	}

	box := newMailbox()
	unsubscribe, err := f.live.Subscribe(ctx, box.put, box.fail)
	if err != nil {
		box.close()
		if ctx.Err() != nil {
			return
		}
		f.logger.Warn("live catalog unavailable, using fallback", zap.Error(err))
		f.fallback(ctx, out)
		return
	}

	var once sync.Once
	teardown := func() {
		once.Do(func() {
			box.close()
			unsubscribe()
		})
	}
	defer teardown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-box.signal:
		}

		records, ok, liveErr := box.take()
		if ok {
			products := NormalizeLive(records)
			SortLive(products)
			if !send(ctx, out, domain.Batch{Source: domain.SourceLive, Products: products}) {
				return
			}
		}
		if liveErr != nil {
			// Live callbacks are cut off before fallback starts emitting.
			teardown()
			f.logger.Warn("live catalog interrupted, switching to fallback", zap.Error(liveErr))
			f.fallback(ctx, out)
			return
		}
	}
}

func (f *Feed) liveAllowed(ctx context.Context) bool {
	if f.live == nil || !f.canRead(ctx) {
		return false
	}
	if !f.auth.IsLoggedIn(ctx) && !f.auth.DevOverride(ctx) {
		f.logger.Debug("shopper not signed in, using fallback catalog")
		return false
	}
	return true
}

func (f *Feed) canRead(ctx context.Context) bool {
	if f.probe == nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	res := make(chan result, 1)
	go func() {
		ok, err := f.probe.CanRead(probeCtx)
		res <- result{ok, err}
	}()

	select {
	case r := <-res:
		if r.err != nil {
			f.logger.Debug("permission probe failed", zap.Error(r.err))
			return false
		}
		return r.ok
	case <-probeCtx.Done():
		f.logger.Debug("permission probe timed out", zap.Duration("timeout", f.probeTimeout))
		return false
	}
}

func (f *Feed) fallback(ctx context.Context, out chan<- domain.Batch) {
	batch := domain.Batch{Source: domain.SourceFallback, Products: []domain.Product{}}

	records, err := f.static.FetchOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		f.logger.Error("fallback catalog fetch failed", zap.Error(err))
	} else {
		batch.Products = FromStatic(records)
	}

	send(ctx, out, batch)
}

func send(ctx context.Context, out chan<- domain.Batch, b domain.Batch) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}
