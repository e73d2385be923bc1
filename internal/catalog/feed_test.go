package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLive struct {
	m           sync.Mutex
	onNext      func([]Record)
	onError     func(error)
	openErr     error
	initial     []Record
	subscribed  int
	unsubscribe int
}

func (f *fakeLive) Subscribe(_ context.Context, onNext func([]Record), onError func(error)) (func(), error) {
	f.m.Lock()
	if f.openErr != nil {
		f.m.Unlock()
		return nil, f.openErr
	}
	f.subscribed++
	f.onNext, f.onError = onNext, onError
	initial := f.initial
	f.m.Unlock()

	if initial != nil {
		onNext(initial)
	}

	return func() {
		f.m.Lock()
		defer f.m.Unlock()
		f.unsubscribe++
	}, nil
}

func (f *fakeLive) push(records []Record) {
	f.m.Lock()
	next := f.onNext
	f.m.Unlock()
	next(records)
}

func (f *fakeLive) fail(err error) {
	f.m.Lock()
	onError := f.onError
	f.m.Unlock()
	onError(err)
}

func (f *fakeLive) counts() (int, int) {
	f.m.Lock()
	defer f.m.Unlock()
	return f.subscribed, f.unsubscribe
}

func (f *fakeLive) ready() bool {
	f.m.Lock()
	defer f.m.Unlock()
	return f.onNext != nil
}

type fakeStatic struct {
	m       sync.Mutex
	records []StaticRecord
	err     error
	calls   int
}

func (f *fakeStatic) FetchOnce(context.Context) ([]StaticRecord, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeStatic) callCount() int {
	f.m.Lock()
	defer f.m.Unlock()
	return f.calls
}

type fakeAuth struct {
	loggedIn bool
	dev      bool
}

func (a fakeAuth) IsLoggedIn(context.Context) bool  { return a.loggedIn }
func (a fakeAuth) DevOverride(context.Context) bool { return a.dev }

var (
	canRead = ProbeFunc(func(context.Context) (bool, error) { return true, nil })
	denied  = ProbeFunc(func(context.Context) (bool, error) { return false, nil })
)

func staticFixture() *fakeStatic {
	return &fakeStatic{records: []StaticRecord{
		{ID: "10", ProductName: "X", ProductPrice: 10, ProductCategory: "Laptops", StockQuantity: 3, Img: "x.png"},
		{ID: "11", ProductName: "Y", ProductPrice: 20, ProductCategory: "Accesorios", ProductDescription: "y"},
	}}
}

func expectedFallback() []domain.Product {
	return []domain.Product{
		{ID: "10", Name: "X", Price: 10, Category: "Laptops", Stock: 3, Image: "x.png"},
		{ID: "11", Name: "Y", Price: 20, Category: "Accesorios", Description: "y"},
	}
}

func nextBatch(t *testing.T, ch <-chan domain.Batch) domain.Batch {
	t.Helper()
	select {
	case b, ok := <-ch:
		require.True(t, ok, "feed closed unexpectedly")
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
		return domain.Batch{}
	}
}

func requireClosed(t *testing.T, ch <-chan domain.Batch) {
	t.Helper()
	select {
	case b, ok := <-ch:
		require.False(t, ok, "unexpected batch %+v", b)
	case <-time.After(2 * time.Second):
		t.Fatal("feed channel not closed")
	}
}

func TestFeed_PermissionDeniedUsesFallback(t *testing.T) {
	live := &fakeLive{}
	feed := NewFeed(denied, live, staticFixture(), fakeAuth{loggedIn: true}, zap.NewNop())

	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()

	b := nextBatch(t, batches)
	assert.Equal(t, domain.SourceFallback, b.Source)
	assert.Equal(t, expectedFallback(), b.Products)
	for _, p := range b.Products {
		assert.False(t, p.Featured)
		assert.Nil(t, p.CreatedAt)
	}
	requireClosed(t, batches)

	subscribed, _ := live.counts()
	assert.Zero(t, subscribed)
}

func TestFeed_ProbeErrorUsesFallback(t *testing.T) {
	probe := ProbeFunc(func(context.Context) (bool, error) { return true, errors.New("rules rejected") })
	live := &fakeLive{}
	feed := NewFeed(probe, live, staticFixture(), fakeAuth{loggedIn: true}, zap.NewNop())

	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()

	assert.Equal(t, domain.SourceFallback, nextBatch(t, batches).Source)
	subscribed, _ := live.counts()
	assert.Zero(t, subscribed)
}

func TestFeed_ProbeTimeoutUsesFallback(t *testing.T) {
	hanging := ProbeFunc(func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	feed := NewFeed(hanging, &fakeLive{}, staticFixture(), fakeAuth{loggedIn: true}, zap.NewNop(),
		WithProbeTimeout(50*time.Millisecond))

	start := time.Now()
	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()

	assert.Equal(t, domain.SourceFallback, nextBatch(t, batches).Source)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFeed_UnauthenticatedUsesFallback(t *testing.T) {
	live := &fakeLive{}
	feed := NewFeed(canRead, live, staticFixture(), fakeAuth{}, zap.NewNop())

	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()

	assert.Equal(t, domain.SourceFallback, nextBatch(t, batches).Source)
	subscribed, _ := live.counts()
	assert.Zero(t, subscribed)
}

func TestFeed_DevOverrideAllowsLive(t *testing.T) {
	live := &fakeLive{initial: []Record{{"id": "a", "name": "A", "price": 5.0}}}
	feed := NewFeed(canRead, live, staticFixture(), fakeAuth{dev: true}, zap.NewNop())

	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()

	b := nextBatch(t, batches)
	assert.Equal(t, domain.SourceLive, b.Source)
	require.Len(t, b.Products, 1)
	assert.Equal(t, "A", b.Products[0].Name)
}

func TestFeed_LiveUpdatesAreNormalizedAndSorted(t *testing.T) {
	live := &fakeLive{}
	feed := NewFeed(canRead, live, staticFixture(), fakeAuth{loggedIn: true}, zap.NewNop())

	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()
	require.Eventually(t, live.ready, time.Second, 5*time.Millisecond)

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	live.push([]Record{
		{"id": "old", "name": "Old", "createdAt": older},
		{"id": "new", "name": "New", "createdAt": newer},
		{"id": "star", "name": "Star", "featured": true, "createdAt": older},
	})

	b := nextBatch(t, batches)
	assert.Equal(t, domain.SourceLive, b.Source)
	require.Len(t, b.Products, 3)
	assert.Equal(t, "star", b.Products[0].ID)
	assert.Equal(t, "new", b.Products[1].ID)
	assert.Equal(t, "old", b.Products[2].ID)
	assert.False(t, b.Products[1].Featured)
	require.NotNil(t, b.Products[1].CreatedAt)
	assert.True(t, newer.Equal(*b.Products[1].CreatedAt))

	live.push([]Record{{"id": "only"}})
	b = nextBatch(t, batches)
	require.Len(t, b.Products, 1)
	assert.Equal(t, "only", b.Products[0].ID)
}

func TestFeed_LiveErrorSwitchesToFallback(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	live := &fakeLive{}
	static := staticFixture()
	feed := NewFeed(canRead, live, static, fakeAuth{loggedIn: true}, zap.New(core))

	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()
	require.Eventually(t, live.ready, time.Second, 5*time.Millisecond)

	live.push([]Record{{"id": "a"}})
	assert.Equal(t, domain.SourceLive, nextBatch(t, batches).Source)

	live.fail(errors.New("permission-denied"))
	// late live data after the error must never surface
	live.push([]Record{{"id": "late"}})

	b := nextBatch(t, batches)
	assert.Equal(t, domain.SourceFallback, b.Source)
	assert.Equal(t, expectedFallback(), b.Products)
	requireClosed(t, batches)

	_, unsubscribed := live.counts()
	assert.Equal(t, 1, unsubscribed)
	assert.Equal(t, 1, logs.FilterMessage("live catalog interrupted, switching to fallback").Len())
}

func TestFeed_LiveOpenErrorUsesFallback(t *testing.T) {
	live := &fakeLive{openErr: errors.New("unavailable")}
	feed := NewFeed(canRead, live, staticFixture(), fakeAuth{loggedIn: true}, zap.NewNop())

	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()

	assert.Equal(t, domain.SourceFallback, nextBatch(t, batches).Source)
	requireClosed(t, batches)
}

func TestFeed_FallbackFetchFailureEmitsEmptyList(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	static := &fakeStatic{err: errors.New("404")}
	feed := NewFeed(denied, nil, static, fakeAuth{}, zap.New(core))

	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()

	b := nextBatch(t, batches)
	assert.Equal(t, domain.SourceFallback, b.Source)
	assert.NotNil(t, b.Products)
	assert.Empty(t, b.Products)
	requireClosed(t, batches)

	assert.Equal(t, 1, logs.FilterMessage("fallback catalog fetch failed").Len())
	assert.Equal(t, 1, static.calls)
}

func TestFeed_UnsubscribeReleasesLiveHandle(t *testing.T) {
	live := &fakeLive{initial: []Record{{"id": "a"}}}
	feed := NewFeed(canRead, live, staticFixture(), fakeAuth{loggedIn: true}, zap.NewNop())

	batches, unsubscribe := feed.Subscribe(context.Background())
	nextBatch(t, batches)

	unsubscribe()
	unsubscribe()

	_, ok := <-batches
	assert.False(t, ok)
	subscribed, unsubscribed := live.counts()
	assert.Equal(t, 1, subscribed)
	assert.Equal(t, 1, unsubscribed)
}

func TestFeed_ContextCancelStopsFeed(t *testing.T) {
	live := &fakeLive{}
	feed := NewFeed(canRead, live, staticFixture(), fakeAuth{loggedIn: true}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	batches, unsubscribe := feed.Subscribe(ctx)
	defer unsubscribe()
	require.Eventually(t, live.ready, time.Second, 5*time.Millisecond)

	cancel()
	requireClosed(t, batches)

	_, unsubscribed := live.counts()
	assert.Equal(t, 1, unsubscribed)
}

func TestFeed_UnreadSnapshotsCoalesce(t *testing.T) {
	live := &fakeLive{}
	feed := NewFeed(canRead, live, staticFixture(), fakeAuth{loggedIn: true}, zap.NewNop())

	batches, unsubscribe := feed.Subscribe(context.Background())
	defer unsubscribe()
	require.Eventually(t, live.ready, time.Second, 5*time.Millisecond)

	// none of these pushes may block even though nobody is reading yet
	done := make(chan struct{})
	go func() {
		for _, id := range []string{"1", "2", "3", "4"} {
			live.push([]Record{{"id": id}})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("live callback blocked")
	}

	var last string
	for last != "4" {
		b := nextBatch(t, batches)
		require.Len(t, b.Products, 1)
		last = b.Products[0].ID
	}
}
