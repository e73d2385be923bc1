package catalog

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StaticRecord is the record shape of the static catalog file.
type StaticRecord struct {
	ID                 StaticID `json:"id"`
	ProductName        string   `json:"product_name"`
	ProductCategory    string   `json:"product_category"`
	ProductPrice       float64  `json:"product_price"`
	ProductDescription string   `json:"product_description"`
	StockQuantity      int      `json:"stock_quantity"`
	Manufacturer       string   `json:"manufacturer"`
	Subcategory        string   `json:"subcategory"`
	Img                string   `json:"img"`
}

// StaticID accepts both string and numeric ids.
type StaticID string

func (id *StaticID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StaticID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("static id: %w", err)
	}
	*id = StaticID(n.String())
	return nil
}

// FromStatic maps static records to products, keeping file order. Static
// products are never featured and carry no timestamps.
func FromStatic(records []StaticRecord) []domain.Product {
	products := make([]domain.Product, 0, len(records))
	for _, r := range records {
		products = append(products, domain.Product{
			ID:          string(r.ID),
			Name:        r.ProductName,
			Description: r.ProductDescription,
			Price:       math.Max(0, r.ProductPrice),
			Category:    r.ProductCategory,
			Image:       r.Img,
			Stock:       max(0, r.StockQuantity),
			Featured:    false,
		})
	}
	return products
}

// NormalizeLive maps live documents to products. Missing or mistyped fields
// fall back to zero values instead of failing the whole batch.
func NormalizeLive(records []Record) []domain.Product {
	products := make([]domain.Product, 0, len(records))
	for _, r := range records {
		products = append(products, normalizeRecord(r))
	}
	return products
}

func normalizeRecord(r Record) domain.Product {
	id := stringField(r, "id")
	if id == "" {
		id = stringField(r, "_id")
	}
	featured, _ := r["featured"].(bool)

	return domain.Product{
		ID:          id,
		Name:        stringField(r, "name"),
		Description: stringField(r, "description"),
		Price:       math.Max(0, numberField(r, "price")),
		Category:    stringField(r, "category"),
		Image:       stringField(r, "image"),
		Stock:       stockField(r, "stock"),
		Featured:    featured,
		CreatedAt:   timeField(r, "createdAt"),
		UpdatedAt:   timeField(r, "updatedAt"),
	}
}

// SortLive orders featured products first, then newest first. Within each
// group, products missing createdAt go last and keep their relative order.
func SortLive(products []domain.Product) {
	slices.SortStableFunc(products, func(a, b domain.Product) int {
		if a.Featured != b.Featured {
			if a.Featured {
				return -1
			}
			return 1
		}
		switch {
		case a.CreatedAt == nil && b.CreatedAt == nil:
			return 0
		case a.CreatedAt == nil:
			return 1
		case b.CreatedAt == nil:
			return -1
		}
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
}

func stringField(r Record, key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case primitive.ObjectID:
		return v.Hex()
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func numberField(r Record, key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case primitive.Decimal128:
		f, _ := strconv.ParseFloat(v.String(), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	default:
		return 0
	}
}

// stockField clamps to [0, math.MaxInt] before converting; NaN counts as zero.
func stockField(r Record, key string) int {
	f := numberField(r, key)
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	}
	return int(f)
}

func timeField(r Record, key string) *time.Time {
	var t time.Time
	switch v := r[key].(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return nil
		}
		t = *v
	case primitive.DateTime:
		t = v.Time()
	case primitive.Timestamp:
		t = time.Unix(int64(v.T), 0)
	case int64:
		t = time.UnixMilli(v)
	case float64:
		t = time.UnixMilli(int64(v))
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil
		}
		t = parsed
	default:
		return nil
	}
	t = t.UTC()
	return &t
}
