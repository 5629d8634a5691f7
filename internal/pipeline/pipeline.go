package pipeline

import (
	"log/slog"
	"strings"

	"github.com/IshaanNene/compscout/internal/types"
)

// Middleware processes a product and returns the (possibly modified) product.
// Return nil to drop the product from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a product. Return nil to drop it.
	Process(p *types.Product) (*types.Product, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the normalization chain applied to every scraped product.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(&CategoryMiddleware{})
	p.Use(&CurrencyMiddleware{})
	p.Use(&RequiredFieldsMiddleware{})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the product through all middleware in order.
func (p *Pipeline) Process(product *types.Product) (*types.Product, error) {
	current := product

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				ID:    product.ID,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("product dropped", "stage", mw.Name(), "id", product.ID)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// TrimMiddleware trims whitespace from string fields and list entries.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(p *types.Product) (*types.Product, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Title = strings.TrimSpace(p.Title)
	p.Brand = strings.TrimSpace(p.Brand)
	p.URL = strings.TrimSpace(p.URL)
	p.Currency = strings.TrimSpace(p.Currency)
	p.Description = strings.TrimSpace(p.Description)
	p.Stock = strings.TrimSpace(p.Stock)
	p.Images = trimAll(p.Images)
	return p, nil
}

// RequiredFieldsMiddleware drops products without an ID or title.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(p *types.Product) (*types.Product, error) {
	if p.ID == "" || p.Title == "" {
		return nil, nil
	}
	return p, nil
}

// CategoryMiddleware trims category names and removes blanks and repeats,
// keeping first-seen order.
type CategoryMiddleware struct{}

func (m *CategoryMiddleware) Name() string { return "categories" }

func (m *CategoryMiddleware) Process(p *types.Product) (*types.Product, error) {
	p.Categories = uniqueNonEmpty(p.Categories)
	p.CategoryPath = trimAll(p.CategoryPath)
	return p, nil
}

// CurrencyMiddleware upper-cases currency codes and blanks anything that is
// not a code of at most three letters.
type CurrencyMiddleware struct{}

func (m *CurrencyMiddleware) Name() string { return "currency" }

func (m *CurrencyMiddleware) Process(p *types.Product) (*types.Product, error) {
	code := strings.ToUpper(strings.TrimSpace(p.Currency))
	if len(code) > 3 {
		code = ""
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			code = ""
			break
		}
	}
	p.Currency = code
	return p, nil
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func uniqueNonEmpty(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
