package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog item
// Maps to: products table
type Product struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SKU         string    `db:"sku" json:"sku"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`

	// Prices are integer minor units (cents)
	PriceCents int64  `db:"price_cents" json:"price_cents"`
	Currency   string `db:"currency" json:"currency"`

	Stock        int    `db:"stock" json:"stock"`
	ImageURL     string `db:"image_url" json:"image_url"`
	ThumbnailURL string `db:"thumbnail_url" json:"thumbnail_url"`
	Active       bool   `db:"active" json:"active"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ImageURLs returns the non-empty image URLs of the product
func (p Product) ImageURLs() []string {
	urls := make([]string, 0, 2)
	if p.ThumbnailURL != "" {
		urls = append(urls, p.ThumbnailURL)
	}
	if p.ImageURL != "" {
		urls = append(urls, p.ImageURL)
	}
	return urls
}

// CreateProductRequest is the body of POST /products
type CreateProductRequest struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	PriceCents   int64  `json:"price_cents"`
	Currency     string `json:"currency"`
	Stock        int    `json:"stock"`
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// ProductQuery holds listing parameters for GET /products
type ProductQuery struct {
	Category string
	Search   string
	Filter   string // CEL expression over `product`
	Limit    int
	Offset   int
}

// List is the envelope for collection responses
type List[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
