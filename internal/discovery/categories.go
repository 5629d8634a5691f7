package discovery

import (
	"sort"
	"strings"

	"github.com/IshaanNene/compscout/internal/types"
)

// deriveCategories picks up to limit distinct category filters from the
// product's categories and category path. The result is sorted so the
// fan-out does not depend on the order the API listed them in.
func deriveCategories(p *types.Product, limit int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range [][]string{p.Categories, p.CategoryPath} {
		for _, c := range list {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			if len(out) < limit {
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}
