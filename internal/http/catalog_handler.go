package http

import (
	"net/http"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogReader interface {
	Current() (domain.Batch, bool)
	Search(q, category string) []domain.Product
	ByCategory(category string) []domain.Product
	Categories() []string
}

type CatalogHandler struct {
	catalog CatalogReader
	logger  *zap.Logger
}

func NewCatalogHandler(catalog CatalogReader, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

type CatalogResponse struct {
	Source   domain.Source    `json:"source"`
	Products []domain.Product `json:"products"`
}

type ProductsResponse struct {
	Products []domain.Product `json:"products"`
	Count    int              `json:"count"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// GetCatalog answers 503 until the feed has delivered its first batch.
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	b, loaded := h.catalog.Current()
	if !loaded {
		respondError(w, h.logger, http.StatusServiceUnavailable, "catalog_loading", "catalog not loaded yet")
		return
	}
	if b.Products == nil {
		b.Products = []domain.Product{}
	}
	respondJSON(w, h.logger, http.StatusOK, CatalogResponse{Source: b.Source, Products: b.Products})
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := h.catalog.Search(q.Get("q"), q.Get("category"))
	respondJSON(w, h.logger, http.StatusOK, ProductsResponse{Products: products, Count: len(products)})
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := h.catalog.Categories()
	if categories == nil {
		categories = []string{}
	}
	respondJSON(w, h.logger, http.StatusOK, CategoriesResponse{Categories: categories})
}

func (h *CatalogHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.ByCategory(chi.URLParam(r, "category"))
	respondJSON(w, h.logger, http.StatusOK, ProductsResponse{Products: products, Count: len(products)})
}
