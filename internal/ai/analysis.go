package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/storage"
	"github.com/IshaanNene/compscout/internal/types"
)

// Generator produces a completion for prompt with the named model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// CompetitorInsight is the model's view of one competitor.
type CompetitorInsight struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Price     *float64 `json:"price"`
	Currency  string   `json:"currency"`
	Rating    *float64 `json:"rating"`
	KeyPoints []string `json:"key_points"`
}

// Analysis is the structured output of a competitive analysis.
type Analysis struct {
	ProductID       string              `json:"product_id"`
	Model           string              `json:"model"`
	Summary         string              `json:"summary"`
	Positioning     string              `json:"positioning"`
	TopCompetitors  []CompetitorInsight `json:"top_competitors"`
	Recommendations []string            `json:"recommendations"`
}

// maxRenderedCompetitors bounds the competitor lines in Render.
const maxRenderedCompetitors = 5

// Render formats the analysis as plain text.
func (a *Analysis) Render() string {
	var b strings.Builder
	b.WriteString("Summary:\n")
	b.WriteString(a.Summary)
	b.WriteString("\n\nPositioning:\n")
	b.WriteString(a.Positioning)
	b.WriteString("\n\nCompetitors:\n")

	for i, c := range a.TopCompetitors {
		if i == maxRenderedCompetitors {
			break
		}
		fmt.Fprintf(&b, "- %s | %s | %s | %s | %s\n",
			c.ID, c.Title, formatPrice(c.Currency, c.Price), formatNumber(c.Rating), strings.Join(c.KeyPoints, "; "))
	}

	if len(a.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range a.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Analyzer builds prompts from stored records and parses model output.
type Analyzer struct {
	gen            Generator
	store          storage.Store
	models         []string
	maxCompetitors int
	logger         *slog.Logger
}

// NewAnalyzer creates an Analyzer that tries cfg.Model, then cfg.FallbackModel.
func NewAnalyzer(gen Generator, store storage.Store, cfg *config.AIConfig, logger *slog.Logger) *Analyzer {
	var models []string
	for _, m := range []string{cfg.Model, cfg.FallbackModel} {
		if m != "" && (len(models) == 0 || models[0] != m) {
			models = append(models, m)
		}
	}
	maxComp := cfg.MaxCompetitors
	if maxComp < 1 {
		maxComp = 10
	}
	return &Analyzer{
		gen:            gen,
		store:          store,
		models:         models,
		maxCompetitors: maxComp,
		logger:         logger.With("component", "analyzer"),
	}
}

// Analyze produces a competitive analysis for a stored product.
// A rate-limited model falls through to the next one; any other error aborts.
func (a *Analyzer) Analyze(ctx context.Context, productID string) (*Analysis, error) {
	product, err := a.store.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &types.NotFoundError{Kind: "product", ID: productID}
	}
	competitors, err := a.store.Competitors(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(competitors) > a.maxCompetitors {
		competitors = competitors[:a.maxCompetitors]
	}
	if len(a.models) == 0 {
		return nil, &types.ConfigurationError{Key: "ai.model", Reason: "is required"}
	}

	prompt, err := BuildPrompt(product, competitors)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, model := range a.models {
		reply, err := a.gen.Generate(ctx, model, prompt)
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			a.logger.Warn("model rate limited, trying fallback", "model", model)
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("analyze %s with %s: %w", productID, model, err)
		}

		analysis, err := parseAnalysis(reply)
		if err != nil {
			return nil, fmt.Errorf("analyze %s with %s: %w", productID, model, err)
		}
		analysis.ProductID = productID
		analysis.Model = model
		a.logger.Info("analysis complete", "id", productID, "model", model, "competitors", len(competitors))
		return analysis, nil
	}
	return nil, fmt.Errorf("all models rate limited: %w", lastErr)
}

type promptCompetitor struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Price    *float64 `json:"price"`
	Currency string   `json:"currency,omitempty"`
	Rating   *float64 `json:"rating"`
	Domain   string   `json:"domain,omitempty"`
}

const promptTemplate = `You are a market analyst. Given a product and its competitor list, write a concise analysis. Pay attention to currency and pricing context.

Product Title: %s
Brand: %s
Price: %s
Rating: %s
Categories: %s
Marketplace Domain: %s

Competitors (JSON): %s

IMPORTANT: All prices should be displayed with their correct currency. When comparing prices, ensure you're using the same currency context.

Respond with a single JSON object and nothing else, using this shape:
{"summary": string, "positioning": string, "top_competitors": [{"id": string, "title": string, "price": number|null, "currency": string, "rating": number|null, "key_points": [string]}], "recommendations": [string]}`

// BuildPrompt renders the analyst prompt for product and its competitors.
func BuildPrompt(product *types.Product, competitors []*types.Product) (string, error) {
	list := make([]promptCompetitor, len(competitors))
	for i, c := range competitors {
		list[i] = promptCompetitor{
			ID:       c.ID,
			Title:    c.Title,
			Price:    c.Price,
			Currency: c.Currency,
			Rating:   c.Rating,
			Domain:   c.Domain,
		}
	}
	compJSON, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode competitors: %w", err)
	}

	domain := product.Domain
	if domain == "" {
		domain = "com"
	}
	return fmt.Sprintf(promptTemplate,
		product.Title,
		orNA(product.Brand),
		formatPrice(product.Currency, product.Price),
		formatNumber(product.Rating),
		orNA(strings.Join(product.Categories, ", ")),
		domain,
		compJSON,
	), nil
}

func parseAnalysis(reply string) (*Analysis, error) {
	var analysis Analysis
	if err := json.Unmarshal([]byte(extractJSON(reply)), &analysis); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if analysis.Summary == "" && analysis.Positioning == "" {
		return nil, errors.New("model reply has no summary or positioning")
	}
	return &analysis, nil
}

func formatPrice(currency string, price *float64) string {
	if price == nil {
		return "n/a"
	}
	if currency == "" {
		return "$" + formatNumber(price)
	}
	return currency + " " + formatNumber(price)
}

func formatNumber(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
