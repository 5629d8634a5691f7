package dashboard

import (
	"math"

	"github.com/IshaanNene/compscout/internal/types"
)

// Summary aggregates price and rating figures over a competitor set.
// Nil prices and ratings are skipped; the pointer fields stay nil when no
// record carries a value.
type Summary struct {
	Count     int      `json:"count"`
	Priced    int      `json:"priced"`
	Rated     int      `json:"rated"`
	AvgPrice  *float64 `json:"avg_price,omitempty"`
	MinPrice  *float64 `json:"min_price,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
	AvgRating *float64 `json:"avg_rating,omitempty"`
	Currency  string   `json:"currency,omitempty"`
}

// Summarize computes a Summary over products.
func Summarize(products []*types.Product) Summary {
	s := Summary{Count: len(products)}

	var priceSum, ratingSum float64
	minPrice, maxPrice := math.Inf(1), math.Inf(-1)
	for _, p := range products {
		if p.Price != nil {
			v := *p.Price
			s.Priced++
			priceSum += v
			minPrice = math.Min(minPrice, v)
			maxPrice = math.Max(maxPrice, v)
			if s.Currency == "" {
				s.Currency = p.Currency
			}
		}
		if p.Rating != nil {
			s.Rated++
			ratingSum += *p.Rating
		}
	}

	if s.Priced > 0 {
		s.AvgPrice = round2(priceSum / float64(s.Priced))
		s.MinPrice = round2(minPrice)
		s.MaxPrice = round2(maxPrice)
	}
	if s.Rated > 0 {
		s.AvgRating = round2(ratingSum / float64(s.Rated))
	}
	return s
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}
