// Package fetcher talks to the realtime scraping API that returns parsed
// product detail and search result pages.
package fetcher

import (
	"context"
	"errors"

	"github.com/IshaanNene/compscout/internal/types"
)

// ErrResponseTooLarge is returned when a response body exceeds api.max_body_size.
var ErrResponseTooLarge = errors.New("response too large")

// Catalog is the interface discovery uses to read the remote marketplace.
type Catalog interface {
	// FetchDetails returns the full product record for a catalog identifier.
	FetchDetails(ctx context.Context, id, domain, geoLocation string) (*types.Product, error)

	// Search returns one page of search hits for a query.
	Search(ctx context.Context, q SearchQuery) ([]types.CandidateHit, error)
}

// SearchQuery describes a single search results page.
type SearchQuery struct {
	Title       string
	Domain      string
	SortBy      string
	Page        int
	Category    string // empty means no category refinement
	GeoLocation string
}

// Credentials is the resolved basic-auth pair for the scraping API.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether either half of the pair is missing.
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}
