package types

// Sort strategies understood by the search API, in the order discovery uses them.
const (
	SortFeatured        = "featured"
	SortPriceAscending  = "price_ascending"
	SortPriceDescending = "price_descending"
)

// SortStrategies is the fixed fan-out order for competitor discovery.
var SortStrategies = []string{SortFeatured, SortPriceAscending, SortPriceDescending}

// CandidateHit is a single search result that has not been detail-fetched yet.
type CandidateHit struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
}

// Valid returns true when the hit carries both an identifier and a title.
func (h CandidateHit) Valid() bool {
	return h.ID != "" && h.Title != ""
}

// ExportColumns is the column order used when exporting products.
var ExportColumns = []string{
	"id", "type", "parent_id", "title", "price", "currency", "rating",
	"brand", "url", "domain", "geo_location", "categories", "updated_at",
}
