package fetcher

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var testCreds = Credentials{Username: "user", Password: "pass"}

func testAPIConfig(endpoint string) *config.APIConfig {
	return &config.APIConfig{
		Endpoint:       endpoint,
		RequestTimeout: 5 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
		MaxBodySize:    1 << 20,
		UserAgent:      "compscout/test",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(testAPIConfig(server.URL), testCreds, testLogger)
	require.NoError(t, err)
	return client
}

func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(testAPIConfig("https://example.com"), Credentials{Username: "u"}, testLogger)
	var cErr *types.ConfigurationError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "api.password", cErr.Key)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = NewClient(testAPIConfig("https://example.com"), Credentials{Password: "p"}, testLogger)
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "api.username", cErr.Key)
}

func TestFetchDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)

		body := decodeRequest(t, r)
		assert.Equal(t, SourceProduct, body["source"])
		assert.Equal(t, "B000TEST", body["query"])
		assert.Equal(t, "com", body["domain"])
		assert.Equal(t, true, body["parse"])
		assert.Equal(t, "10001", body["geo_location"])

		writeJSON(w, map[string]any{
			"results": []any{map[string]any{
				"content": map[string]any{
					"asin":          "B000TEST",
					"title":         "  Wireless Mouse <b>Pro</b> ",
					"price":         24.99,
					"currency":      "usd",
					"rating":        4.5,
					"reviews_count": 1200,
					"brand":         "Acme",
					"images":        []any{"https://img/1.jpg", ""},
					"category": []any{map[string]any{
						"ladder": []any{
							map[string]any{"name": "Electronics"},
							map[string]any{"name": "Mice"},
						},
					}},
					"category_path": []any{"Electronics", "Computer Accessories"},
				},
			}},
		})
	})

	product, err := client.FetchDetails(context.Background(), "B000TEST", "com", "10001")
	require.NoError(t, err)

	assert.Equal(t, "B000TEST", product.ID)
	assert.Equal(t, "Wireless Mouse Pro", product.Title)
	require.NotNil(t, product.Price)
	assert.Equal(t, 24.99, *product.Price)
	assert.Equal(t, "USD", product.Currency)
	require.NotNil(t, product.ReviewCount)
	assert.Equal(t, 1200, *product.ReviewCount)
	assert.Equal(t, []string{"https://img/1.jpg"}, product.Images)
	assert.Equal(t, []string{"Electronics", "Mice"}, product.Categories)
	assert.Equal(t, []string{"Electronics", "Computer Accessories"}, product.CategoryPath)
	assert.Equal(t, "com", product.Domain)
	assert.Equal(t, "10001", product.GeoLocation)
	assert.Equal(t, "https://www.amazon.com/dp/B000TEST", product.URL)
}

func TestFetchDetailsDropsGeoForUnsupportedDomain(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeRequest(t, r)
		_, hasGeo := body["geo_location"]
		assert.False(t, hasGeo)
		assert.Equal(t, "ae", body["domain"])

		// top-level content envelope without asin
		writeJSON(w, map[string]any{"content": map[string]any{"title": "Desk Lamp"}})
	})

	product, err := client.FetchDetails(context.Background(), "B0LAMP", "ae", "Dubai")
	require.NoError(t, err)
	assert.Equal(t, "B0LAMP", product.ID, "falls back to requested id")
	assert.Equal(t, "Desk Lamp", product.Title)
	assert.Nil(t, product.Price)
}

func TestFetchDetailsMissingTitle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"results": []any{map[string]any{"content": map[string]any{"asin": "B1"}}}})
	})

	_, err := client.FetchDetails(context.Background(), "B1", "com", "")
	var vErr *types.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.ErrorIs(t, err, types.ErrDropped)
}

func TestOversizedResponseIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"content":{"asin":"B1","title":"Mouse","description":%q}}`, strings.Repeat("a", 2<<20))
	})

	_, err := client.FetchDetails(context.Background(), "B1", "com", "")
	var tErr *types.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.False(t, tErr.Retryable)
	assert.Equal(t, http.StatusOK, tErr.StatusCode)
	assert.Equal(t, 1, tErr.Attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResponseAtSizeLimitIsAccepted(t *testing.T) {
	body := `{"content":{"asin":"B1","title":"Mouse"}}`
	cfg := testAPIConfig("")
	cfg.MaxBodySize = int64(len(body))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	cfg.Endpoint = server.URL

	client, err := NewClient(cfg, testCreds, testLogger)
	require.NoError(t, err)

	product, err := client.FetchDetails(context.Background(), "B1", "com", "")
	require.NoError(t, err)
	assert.Equal(t, "Mouse", product.Title)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"content": map[string]any{"asin": "B1", "title": "Mouse"}})
	})

	product, err := client.FetchDetails(context.Background(), "B1", "com", "")
	require.NoError(t, err)
	assert.Equal(t, "Mouse", product.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := client.FetchDetails(context.Background(), "B1", "com", "")
	var tErr *types.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, http.StatusBadGateway, tErr.StatusCode)
	assert.Equal(t, 3, tErr.Attempts)
	assert.Equal(t, "details", tErr.Op)
	assert.True(t, tErr.IsRetryable())
	assert.True(t, errors.Is(err, types.ErrTransport))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	_, err := client.FetchDetails(context.Background(), "B1", "com", "")
	var tErr *types.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, http.StatusUnauthorized, tErr.StatusCode)
	assert.False(t, tErr.Retryable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryAfterOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, map[string]any{"content": map[string]any{"asin": "B1", "title": "Mouse"}})
	})

	_, err := client.FetchDetails(context.Background(), "B1", "com", "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeRequest(t, r)
		assert.Equal(t, SourceSearch, body["source"])
		assert.Equal(t, "Wireless Mouse", body["query"])
		assert.Equal(t, "price_ascending", body["sort_by"])
		assert.Equal(t, float64(2), body["page"])
		assert.Equal(t, map[string]any{"category": "Electronics"}, body["refinements"])

		writeJSON(w, map[string]any{
			"results": []any{map[string]any{
				"content": map[string]any{
					"results": map[string]any{
						"organic": []any{
							map[string]any{"asin": "C1", "title": "Mouse A", "price": 10.5, "rating": 4.1},
							map[string]any{"asin": "", "title": "no id"},
						},
						"paid": []any{
							map[string]any{"product_asin": "C2", "title": "Mouse B"},
						},
						"amazons_choices": []any{
							map[string]any{"asin": "C3"},
						},
					},
					"products": []any{
						map[string]any{"asin": "C4", "title": "Mouse D", "price": "1,299.00"},
					},
				},
			}},
		})
	})

	hits, err := client.Search(context.Background(), SearchQuery{
		Title:    "Wireless Mouse - 2.4GHz | Black",
		Domain:   "com",
		SortBy:   types.SortPriceAscending,
		Page:     2,
		Category: "Electronics",
	})
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "C1", hits[0].ID)
	assert.Equal(t, 10.5, *hits[0].Price)
	assert.Equal(t, "C2", hits[1].ID)
	assert.Equal(t, "C4", hits[2].ID)
	assert.Equal(t, 1299.0, *hits[2].Price)
}

func TestSearchWithoutCategoryOmitsRefinements(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeRequest(t, r)
		_, has := body["refinements"]
		assert.False(t, has)
		writeJSON(w, map[string]any{"results": []any{map[string]any{"content": map[string]any{}}}})
	})

	hits, err := client.Search(context.Background(), SearchQuery{Title: "Mouse", SortBy: types.SortFeatured, Page: 1})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCompressedResponses(t *testing.T) {
	payload := map[string]any{"content": map[string]any{"asin": "B1", "title": "Mouse"}}

	t.Run("gzip", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			json.NewEncoder(gz).Encode(payload)
			gz.Close()
		})
		product, err := client.FetchDetails(context.Background(), "B1", "com", "")
		require.NoError(t, err)
		assert.Equal(t, "Mouse", product.Title)
	})

	t.Run("brotli", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "br")
			br := brotli.NewWriter(w)
			json.NewEncoder(br).Encode(payload)
			br.Close()
		})
		product, err := client.FetchDetails(context.Background(), "B1", "com", "")
		require.NoError(t, err)
		assert.Equal(t, "Mouse", product.Title)
	})
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Wireless Mouse - Black", "Wireless Mouse"},
		{"Wireless Mouse | 2.4GHz", "Wireless Mouse"},
		{"Keyboard | Mech - RGB", "Keyboard"},
		{"  Plain Title ", "Plain Title"},
		{"- leading dash", "- leading dash"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, CleanTitle(tt.input), tt.input)
	}
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, 2*time.Minute, parseRetryAfter("900"))
	assert.Equal(t, 5*time.Second, parseRetryAfter(""))
	assert.Equal(t, 5*time.Second, parseRetryAfter("soon"))
}

func TestSupportsGeo(t *testing.T) {
	assert.True(t, SupportsGeo("co.uk"))
	assert.False(t, SupportsGeo("ae"))
	assert.Equal(t, "", geoFor("ae", "Dubai"))
	assert.Equal(t, "10001", geoFor("com", " 10001 "))
}
