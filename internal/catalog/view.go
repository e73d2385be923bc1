package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"go.uber.org/zap"
)

// View keeps the most recent batch of a feed for readers such as HTTP handlers.
type View struct {
	mu      sync.RWMutex
	current domain.Batch
	loaded  bool
	refresh chan struct{}
	logger  *zap.Logger
}

func NewView(logger *zap.Logger) *View {
	return &View{
		refresh: make(chan struct{}, 1),
		logger:  logger,
	}
}

// Run consumes feed until ctx ends. After a fallback batch closes the feed
// channel the view keeps serving it. Refresh drops the current subscription and
// subscribes again, so a sign-in can move the catalog back to the live source.
func (v *View) Run(ctx context.Context, feed *Feed) {
	for v.follow(ctx, feed) {
		v.logger.Info("catalog resubscribing")
	}
}

// Refresh asks Run to resubscribe. Requests made while one is pending collapse
// into it.
func (v *View) Refresh() {
	select {
	case v.refresh <- struct{}{}:
	default:
	}
}

// follow consumes one subscription and reports whether a refresh ended it.
func (v *View) follow(ctx context.Context, feed *Feed) bool {
	batches, unsubscribe := feed.Subscribe(ctx)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-v.refresh:
			return true
		case b, ok := <-batches:
			if !ok {
				batches = nil
				continue
			}
			v.Set(b)
			v.logger.Info("catalog updated",
				zap.String("source", string(b.Source)),
				zap.Int("products", len(b.Products)))
		}
	}
}

func (v *View) Set(b domain.Batch) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = b
	v.loaded = true
}

// Current returns the latest batch and whether any batch has arrived yet.
func (v *View) Current() (domain.Batch, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	b := v.current
	b.Products = append([]domain.Product(nil), v.current.Products...)
	return b, v.loaded
}

func (v *View) Product(id string) (domain.Product, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, p := range v.current.Products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (v *View) Search(q, category string) []domain.Product {
	b, _ := v.Current()
	return Search(b.Products, q, category)
}

func (v *View) ByCategory(category string) []domain.Product {
	if category == "" {
		return []domain.Product{}
	}
	return v.Search("", category)
}

func (v *View) Categories() []string {
	b, _ := v.Current()
	return Categories(b.Products)
}

// Search matches q against name or description and category exactly, both
// case-insensitive. Empty filters match everything.
func Search(products []domain.Product, q, category string) []domain.Product {
	q = strings.ToLower(strings.TrimSpace(q))
	category = strings.TrimSpace(category)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		matchText := q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q)
		matchCat := category == "" || strings.EqualFold(p.Category, category)
		if matchText && matchCat {
			out = append(out, p)
		}
	}
	return out
}

// Categories lists distinct non-empty categories in first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
