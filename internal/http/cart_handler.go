package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxQuantity = 99

type CartStore interface {
	AddToCart(ctx context.Context, product domain.Product, quantity int)
	UpdateQuantity(ctx context.Context, id string, quantity int)
	IncreaseQuantity(ctx context.Context, id string)
	DecreaseQuantity(ctx context.Context, id string)
	RemoveItem(ctx context.Context, id string)
	ClearCart(ctx context.Context)
	Snapshot() ([]domain.CartItem, domain.Totals)
	Item(id string) (domain.CartItem, bool)
	TotalItems() int
	SubscribeCount() (<-chan int, func())
}

type ProductLookup interface {
	Product(id string) (domain.Product, bool)
}

type PriceFormatter interface {
	Format(amount float64) string
	Currency() string
}

type CartHandler struct {
	cart      CartStore
	products  ProductLookup
	formatter PriceFormatter
	logger    *zap.Logger
}

func NewCartHandler(cart CartStore, products ProductLookup, formatter PriceFormatter, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cart:      cart,
		products:  products,
		formatter: formatter,
		logger:    logger,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items          []domain.CartItem `json:"items"`
	TotalItems     int               `json:"total_items"`
	Subtotal       float64           `json:"subtotal"`
	Shipping       float64           `json:"shipping"`
	Total          float64           `json:"total"`
	Currency       string            `json:"currency"`
	FormattedTotal string            `json:"formatted_total"`
}

type CountResponse struct {
	TotalItems int `json:"total_items"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, CountResponse{TotalItems: h.cart.TotalItems()})
}

// StreamCount pushes the item count as server-sent events: the current value
// first, then every change until the client goes away.
func (h *CartHandler) StreamCount(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, h.logger, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported")
		return
	}

	counts, unsubscribe := h.cart.SubscribeCount()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, open := <-counts:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "event: count\ndata: %d\n\n", n); err != nil {
				h.logger.Debug("count stream closed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID == "" {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > maxQuantity {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product, ok := h.products.Product(req.ProductID)
	if !ok {
		respondError(w, h.logger, http.StatusNotFound, "not_found", "product not found")
		return
	}

	h.cart.AddToCart(r.Context(), product, req.Quantity)
	h.logger.Debug("item added to cart",
		zap.String("product_id", product.ID),
		zap.Int("quantity", req.Quantity),
		zap.String("request_id", getRequestID(r.Context())))

	respondJSON(w, h.logger, http.StatusCreated, h.cartResponse())
}

// UpdateQuantity accepts non-positive quantities; the cart clamps them to one.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.existingItem(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	h.cart.UpdateQuantity(r.Context(), id, req.Quantity)
	respondJSON(w, h.logger, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) IncreaseQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.existingItem(w, r)
	if !ok {
		return
	}
	h.cart.IncreaseQuantity(r.Context(), id)
	respondJSON(w, h.logger, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.existingItem(w, r)
	if !ok {
		return
	}
	h.cart.DecreaseQuantity(r.Context(), id)
	respondJSON(w, h.logger, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.cart.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	respondJSON(w, h.logger, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.ClearCart(r.Context())
	respondJSON(w, h.logger, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) existingItem(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, ok := h.cart.Item(id); !ok {
		respondError(w, h.logger, http.StatusNotFound, "not_found", "item not in cart")
		return "", false
	}
	return id, true
}

func (h *CartHandler) cartResponse() CartResponse {
	items, totals := h.cart.Snapshot()
	return CartResponse{
		Items:          items,
		TotalItems:     domain.TotalQuantity(items),
		Subtotal:       totals.Subtotal,
		Shipping:       totals.Shipping,
		Total:          totals.Total,
		Currency:       h.formatter.Currency(),
		FormattedTotal: h.formatter.Format(totals.Total),
	}
}
