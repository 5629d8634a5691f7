package types

import (
	"encoding/json"
	"strings"
	"time"
)

// RecordType distinguishes the reference product from discovered competitors.
type RecordType string

const (
	TypePrimary    RecordType = "primary"
	TypeCompetitor RecordType = "competitor"
)

// Product represents a single catalog listing, either the primary product a
// user scraped or a competitor discovered for it.
type Product struct {
	// ID is the external catalog identifier (ASIN) and the store key.
	ID string `json:"id" bson:"_id"`

	// Type is primary or competitor.
	Type RecordType `json:"type" bson:"type"`

	// ParentID references the primary product a competitor was found for.
	ParentID string `json:"parent_id,omitempty" bson:"parent_id,omitempty"`

	Title       string   `json:"title" bson:"title"`
	Price       *float64 `json:"price,omitempty" bson:"price,omitempty"`
	Currency    string   `json:"currency,omitempty" bson:"currency,omitempty"`
	Rating      *float64 `json:"rating,omitempty" bson:"rating,omitempty"`
	ReviewCount *int     `json:"reviews_count,omitempty" bson:"reviews_count,omitempty"`
	Brand       string   `json:"brand,omitempty" bson:"brand,omitempty"`
	URL         string   `json:"url,omitempty" bson:"url,omitempty"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Stock       string   `json:"stock,omitempty" bson:"stock,omitempty"`

	Images       []string `json:"images,omitempty" bson:"images,omitempty"`
	Categories   []string `json:"categories,omitempty" bson:"categories,omitempty"`
	CategoryPath []string `json:"category_path,omitempty" bson:"category_path,omitempty"`

	// Domain is the marketplace storefront suffix, e.g. "com" or "co.uk".
	Domain string `json:"domain,omitempty" bson:"domain,omitempty"`

	// GeoLocation is a free-text delivery locale hint (zip or country).
	GeoLocation string `json:"geo_location,omitempty" bson:"geo_location,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Validate reports whether the product can be persisted.
func (p *Product) Validate() error {
	if p == nil {
		return &ValidationError{Field: "product", Reason: "nil record"}
	}
	if strings.TrimSpace(p.ID) == "" {
		return &ValidationError{Field: "id", Reason: "missing"}
	}
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{ID: p.ID, Field: "title", Reason: "missing"}
	}
	return nil
}

// IsCompetitor returns true for records linked to a parent product.
func (p *Product) IsCompetitor() bool {
	return p.Type == TypeCompetitor
}

// Merge overwrites fields of p with the non-zero fields of src.
// ID and CreatedAt are never taken from src.
func (p *Product) Merge(src *Product) {
	if src.Type != "" {
		p.Type = src.Type
	}
	if src.ParentID != "" {
		p.ParentID = src.ParentID
	}
	if src.Title != "" {
		p.Title = src.Title
	}
	if src.Price != nil {
		p.Price = cloneFloat(src.Price)
	}
	if src.Currency != "" {
		p.Currency = src.Currency
	}
	if src.Rating != nil {
		p.Rating = cloneFloat(src.Rating)
	}
	if src.ReviewCount != nil {
		n := *src.ReviewCount
		p.ReviewCount = &n
	}
	if src.Brand != "" {
		p.Brand = src.Brand
	}
	if src.URL != "" {
		p.URL = src.URL
	}
	if src.Description != "" {
		p.Description = src.Description
	}
	if src.Stock != "" {
		p.Stock = src.Stock
	}
	if src.Images != nil {
		p.Images = cloneStrings(src.Images)
	}
	if src.Categories != nil {
		p.Categories = cloneStrings(src.Categories)
	}
	if src.CategoryPath != nil {
		p.CategoryPath = cloneStrings(src.CategoryPath)
	}
	if src.Domain != "" {
		p.Domain = src.Domain
	}
	if src.GeoLocation != "" {
		p.GeoLocation = src.GeoLocation
	}
}

// Clone creates a deep copy of the product.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Price = cloneFloat(p.Price)
	clone.Rating = cloneFloat(p.Rating)
	if p.ReviewCount != nil {
		n := *p.ReviewCount
		clone.ReviewCount = &n
	}
	clone.Images = cloneStrings(p.Images)
	clone.Categories = cloneStrings(p.Categories)
	clone.CategoryPath = cloneStrings(p.CategoryPath)
	return &clone
}

// ToFlatMap returns a flat map suitable for CSV and spreadsheet export.
func (p *Product) ToFlatMap() map[string]string {
	flat := map[string]string{
		"id":           p.ID,
		"type":         string(p.Type),
		"parent_id":    p.ParentID,
		"title":        p.Title,
		"price":        formatFloat(p.Price),
		"currency":     p.Currency,
		"rating":       formatFloat(p.Rating),
		"brand":        p.Brand,
		"url":          p.URL,
		"domain":       p.Domain,
		"geo_location": p.GeoLocation,
		"categories":   strings.Join(p.Categories, "; "),
		"updated_at":   p.UpdatedAt.Format(time.RFC3339),
	}
	return flat
}

// Float returns a pointer to v, for building records with optional numbers.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	b, _ := json.Marshal(*v)
	return string(b)
}
