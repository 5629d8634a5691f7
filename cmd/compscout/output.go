package main

import (
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/dashboard"
	"github.com/IshaanNene/compscout/internal/types"
)

const maxTitleWidth = 60

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderProducts prints one row per product.
func renderProducts(w io.Writer, products []*types.Product) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Title", "Brand", "Price", "Rating", "Reviews", "Domain"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: maxTitleWidth},
		{Name: "Price", Align: text.AlignRight},
		{Name: "Rating", Align: text.AlignRight},
		{Name: "Reviews", Align: text.AlignRight},
	})

	for _, p := range products {
		t.AppendRow(table.Row{
			p.ID,
			p.Title,
			p.Brand,
			dashboard.FormatPrice(p.Currency, p.Price),
			formatOptional(p.Rating),
			formatCount(p.ReviewCount),
			orDefault(p.Domain, "com"),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(products)})
	t.Render()
}

// renderProduct prints the fields of a single product.
func renderProduct(w io.Writer, p *types.Product) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"ID", p.ID},
		{"Title", p.Title},
		{"Brand", p.Brand},
		{"Price", dashboard.FormatPrice(p.Currency, p.Price)},
		{"Rating", formatOptional(p.Rating)},
		{"Reviews", formatCount(p.ReviewCount)},
		{"Categories", strings.Join(p.Categories, ", ")},
		{"Domain", orDefault(p.Domain, "com")},
		{"Geo location", p.GeoLocation},
		{"URL", p.URL},
	})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	t.Render()
}

// renderSummary prints the price and rating aggregates.
func renderSummary(w io.Writer, s dashboard.Summary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Competitors", "Priced", "Avg price", "Min price", "Max price", "Avg rating"})
	t.AppendRow(table.Row{
		s.Count,
		s.Priced,
		dashboard.FormatPrice(s.Currency, s.AvgPrice),
		dashboard.FormatPrice(s.Currency, s.MinPrice),
		dashboard.FormatPrice(s.Currency, s.MaxPrice),
		formatOptional(s.AvgRating),
	})
	t.Render()
}

// renderConfig prints the effective configuration with secrets masked.
func renderConfig(w io.Writer, cfg *config.Config) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Section", "Key", "Value"})
	rows := []table.Row{
		{"api", "endpoint", cfg.API.Endpoint},
		{"api", "username", mask(cfg.API.Username)},
		{"api", "password", mask(cfg.API.Password)},
		{"api", "request_timeout", cfg.API.RequestTimeout},
		{"api", "max_retries", cfg.API.MaxRetries},
		{"api", "retry_delay", cfg.API.RetryDelay},
		{"api", "rate_limit", cfg.API.RateLimit},
		{"discovery", "pages", cfg.Discovery.Pages},
		{"discovery", "limit", cfg.Discovery.Limit},
		{"discovery", "max_candidates", cfg.Discovery.MaxCandidates},
		{"discovery", "max_categories", cfg.Discovery.MaxCategories},
		{"discovery", "concurrency", cfg.Discovery.Concurrency},
		{"discovery", "default_domain", cfg.Discovery.DefaultDomain},
		{"storage", "type", cfg.Storage.Type},
		{"storage", "path", cfg.Storage.Path},
		{"storage", "mongo_uri", mask(cfg.Storage.MongoURI)},
		{"ai", "enabled", cfg.AI.Enabled},
		{"ai", "provider", cfg.AI.Provider},
		{"ai", "model", cfg.AI.Model},
		{"ai", "fallback_model", cfg.AI.FallbackModel},
		{"ai", "api_key", mask(cfg.AI.APIKey)},
		{"server", "port", cfg.Server.Port},
		{"logging", "level", cfg.Logging.Level},
		{"logging", "format", cfg.Logging.Format},
		{"metrics", "enabled", cfg.Metrics.Enabled},
	}
	t.AppendRows(rows)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	t.Render()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatCount(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func mask(s string) string {
	switch {
	case s == "":
		return "(unset)"
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", len(s)-2)
	}
}
