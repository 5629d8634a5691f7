// Package dashboard renders the HTML views of stored products and their
// competitors.
package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/types"
)

// ListView is the data behind the product list page.
type ListView struct {
	Products []*types.Product
	Page     Page
	Version  string
}

// ProductView is the data behind a single product page.
type ProductView struct {
	Product     *types.Product
	Competitors []*types.Product
	Summary     Summary
	AIEnabled   bool
	Version     string
}

// Caption renders the "Amazon.<domain> · geo" line under the title.
func (v ProductView) Caption() string {
	domain := v.Product.Domain
	if domain == "" {
		domain = "com"
	}
	caption := "Amazon." + domain
	if v.Product.GeoLocation != "" {
		caption += " · " + v.Product.GeoLocation
	}
	return caption
}

// Renderer executes the dashboard templates.
type Renderer struct {
	list    *template.Template
	product *template.Template
	logger  *slog.Logger
}

// NewRenderer parses the dashboard templates.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"price":  FormatPrice,
		"number": formatNumber,
		"join":   strings.Join,
	}

	base, err := template.New("layout").Funcs(funcs).Parse(layoutHTML)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	list, err := template.Must(base.Clone()).Parse(listHTML)
	if err != nil {
		return nil, fmt.Errorf("parse list template: %w", err)
	}
	product, err := template.Must(base.Clone()).Parse(productHTML)
	if err != nil {
		return nil, fmt.Errorf("parse product template: %w", err)
	}

	return &Renderer{
		list:    list,
		product: product,
		logger:  logger.With("component", "dashboard"),
	}, nil
}

// RenderList writes the paginated product list.
func (r *Renderer) RenderList(w io.Writer, view ListView) error {
	if view.Version == "" {
		view.Version = config.Version
	}
	return r.execute(w, "list", r.list, view)
}

// RenderProduct writes the product page with its competitor table.
func (r *Renderer) RenderProduct(w io.Writer, view ProductView) error {
	if view.Version == "" {
		view.Version = config.Version
	}
	return r.execute(w, "product", r.product, view)
}

// execute renders into a buffer first so a template error never leaves a
// half-written page.
func (r *Renderer) execute(w io.Writer, name string, t *template.Template, data any) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template render failed", "template", name, "error", err)
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// FormatPrice renders a price with its currency, "$" when none is known.
func FormatPrice(currency string, price *float64) string {
	if price == nil {
		return "N/A"
	}
	v := strconv.FormatFloat(*price, 'f', 2, 64)
	if currency == "" || currency == "USD" {
		return "$" + v
	}
	return currency + " " + v
}

func formatNumber(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
