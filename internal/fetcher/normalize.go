package fetcher

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/IshaanNene/compscout/internal/types"
)

// geoDomains are the storefronts that accept a geo_location parameter.
var geoDomains = map[string]bool{
	"com": true, "co.uk": true, "de": true, "fr": true, "it": true, "es": true,
	"nl": true, "ca": true, "au": true, "br": true, "in": true,
}

// SupportsGeo reports whether domain accepts a delivery location.
func SupportsGeo(domain string) bool {
	return geoDomains[domain]
}

// geoFor returns geo when domain supports it, otherwise empty.
func geoFor(domain, geo string) string {
	geo = strings.TrimSpace(geo)
	if geo == "" || !SupportsGeo(domain) {
		return ""
	}
	return geo
}

// productURL builds the canonical listing URL for a storefront.
func productURL(domain, id string) string {
	return "https://www.amazon." + domain + "/dp/" + id
}

// CleanTitle trims a product title down to the part before the first
// "-" or "|" separator, which keeps search queries short.
func CleanTitle(title string) string {
	cleaned := title
	if i := strings.Index(cleaned, "-"); i >= 0 {
		cleaned = cleaned[:i]
	}
	if i := strings.Index(cleaned, "|"); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return strings.TrimSpace(title)
	}
	return cleaned
}

// extractContent unwraps {results:[{content:{...}}]} or {content:{...}}.
func extractContent(payload map[string]any) map[string]any {
	if results, ok := payload["results"].([]any); ok && len(results) > 0 {
		if first, ok := results[0].(map[string]any); ok {
			if _, has := first["content"]; has {
				content, _ := first["content"].(map[string]any)
				if content == nil {
					content = map[string]any{}
				}
				return content
			}
		}
	}
	if _, has := payload["content"]; has {
		content, _ := payload["content"].(map[string]any)
		if content == nil {
			content = map[string]any{}
		}
		return content
	}
	return payload
}

// normalizeProduct maps parsed product content onto a Product.
func normalizeProduct(content map[string]any) *types.Product {
	p := &types.Product{
		ID:          asString(content["asin"]),
		Title:       asString(content["title"]),
		Price:       asFloat(content["price"]),
		Currency:    asString(content["currency"]),
		Rating:      asFloat(content["rating"]),
		ReviewCount: asInt(content["reviews_count"]),
		Brand:       asString(content["brand"]),
		URL:         asString(content["url"]),
		Description: asString(content["description"]),
		Stock:       asString(content["stock"]),
		Images:      asStrings(content["images"]),
	}

	p.Categories = append(categoryNames(content["categories"]), categoryNames(content["category"])...)
	p.CategoryPath = categoryNames(content["category_path"])
	if len(p.Categories) == 0 {
		p.Categories = nil
	}
	return p
}

// extractSearchItems collects result items from every known result bucket.
func extractSearchItems(content map[string]any) []map[string]any {
	var items []map[string]any
	if results, ok := content["results"].(map[string]any); ok {
		for _, bucket := range []string{"organic", "paid", "amazons_choices", "suggested"} {
			items = append(items, asObjects(results[bucket])...)
		}
	}
	items = append(items, asObjects(content["products"])...)
	return items
}

// normalizeHit maps a search item; items without id or title are rejected.
func normalizeHit(item map[string]any) (types.CandidateHit, bool) {
	id := asString(item["asin"])
	if id == "" {
		id = asString(item["product_asin"])
	}
	hit := types.CandidateHit{
		ID:       id,
		Title:    strings.TrimSpace(asString(item["title"])),
		Category: asString(item["category"]),
		Price:    asFloat(item["price"]),
		Rating:   asFloat(item["rating"]),
	}
	return hit, hit.Valid()
}

// categoryNames accepts strings, {name: ...} objects and {ladder: [...]} objects.
func categoryNames(v any) []string {
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, entry := range val {
			out = append(out, categoryNames(entry)...)
		}
		return out
	case map[string]any:
		if name := asString(val["name"]); name != "" {
			return []string{name}
		}
		if ladder, ok := val["ladder"]; ok {
			return categoryNames(ladder)
		}
	}
	return nil
}

func asObjects(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if obj, ok := entry.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	}
	return ""
}

func asStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, entry := range list {
		if s := asString(entry); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// asFloat reads a JSON number or a numeric string such as "1,299.00".
func asFloat(v any) *float64 {
	switch val := v.(type) {
	case float64:
		return &val
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return &f
		}
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

func asInt(v any) *int {
	f := asFloat(v)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}
