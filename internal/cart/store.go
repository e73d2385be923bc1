package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/storage"
	"go.uber.org/zap"
)

// Store is the single source of truth for the shopper's cart. Every mutation is
// applied, persisted and published under one lock, so persisted state and count
// notifications follow the order in which mutations were applied.
type Store struct {
	mu          sync.Mutex
	items       []domain.CartItem
	kv          storage.KeyValueStore
	key         string
	shippingFee float64
	counts      *countFeed
	logger      *zap.Logger
}

type Option func(*Store)

// WithShippingFee overrides the flat shipping fee used by Totals.
func WithShippingFee(fee float64) Option {
	return func(s *Store) { s.shippingFee = fee }
}

// WithKey stores the cart under a different key than storage.CartKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// NewStore rehydrates the cart from kv. A missing, unreadable or corrupted blob
// yields an empty cart; the store never fails to start because of it.
func NewStore(ctx context.Context, kv storage.KeyValueStore, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		kv:          kv,
		key:         storage.CartKey,
		shippingFee: domain.DefaultShippingFee,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.items = s.load(ctx)
	s.counts = newCountFeed(domain.TotalQuantity(s.items))
	return s
}

func (s *Store) load(ctx context.Context) []domain.CartItem {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("cart read failed, starting empty", zap.String("key", s.key), zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var stored []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("stored cart is corrupted, starting empty", zap.String("key", s.key), zap.Error(err))
		return nil
	}

	items := make([]domain.CartItem, 0, len(stored))
	index := make(map[string]int, len(stored))
	for _, item := range stored {
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		if i, seen := index[item.ID]; seen {
			items[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(items)
		items = append(items, item)
	}
	return items
}

// AddToCart appends a snapshot of product or increments the existing line.
// A non-positive quantity counts as one.
func (s *Store) AddToCart(ctx context.Context, product domain.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(product.ID); i >= 0 {
		s.items[i].Quantity += quantity
	} else {
		s.items = append(s.items, domain.CartItem{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Quantity: quantity,
			Image:    product.Image,
			Category: product.Category,
		})
	}
	s.commit(ctx)
}

// UpdateQuantity sets the line quantity, clamped to at least one.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.items[i].Quantity = max(1, quantity)
	s.commit(ctx)
}

func (s *Store) IncreaseQuantity(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.items[i].Quantity++
	s.commit(ctx)
}

// DecreaseQuantity removes the line once its quantity would drop to zero.
func (s *Store) DecreaseQuantity(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	if s.items[i].Quantity > 1 {
		s.items[i].Quantity--
	} else {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	s.commit(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.commit(ctx)
}

func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.commit(ctx)
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// Item returns the line for id, if present.
func (s *Store) Item(id string) (domain.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return domain.CartItem{}, false
}

// TotalItems is the sum of all quantities, not the number of lines.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TotalQuantity(s.items)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Totals() domain.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CalculateTotals(s.items, s.shippingFee)
}

// Snapshot returns a copy of the lines together with the totals derived from
// exactly those lines.
func (s *Store) Snapshot() ([]domain.CartItem, domain.Totals) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out, domain.CalculateTotals(out, s.shippingFee)
}

// SubscribeCount streams the total item count. The current value is delivered
// first. The returned func stops delivery and closes the channel.
func (s *Store) SubscribeCount() (<-chan int, func()) {
	// Holding s.mu keeps the replayed value consistent with in-flight mutations.
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts.subscribe()
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// commit must be called with s.mu held.
func (s *Store) commit(ctx context.Context) {
	s.persist(ctx)
	s.counts.publish(domain.TotalQuantity(s.items))
}

func (s *Store) persist(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.logger.Error("marshal cart failed", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.logger.Error("persist cart failed", zap.String("key", s.key), zap.Error(err))
	}
}
