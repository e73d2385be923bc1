package domain

import "time"

// Source tells where a catalog batch came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

type Product struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	Image       string     `json:"image"`
	Stock       int        `json:"stock"`
	Featured    bool       `json:"featured"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Batch is one emission of the catalog feed.
type Batch struct {
	Source   Source    `json:"source"`
	Products []Product `json:"products"`
}
