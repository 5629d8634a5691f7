package pipeline

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/compscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	result, err := p.Process(&types.Product{ID: " B01 ", Title: "  Wireless Mouse  ", Images: []string{" a.jpg ", ""}})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "B01", result.ID)
	assert.Equal(t, "Wireless Mouse", result.Title)
	assert.Equal(t, []string{"a.jpg"}, result.Images)
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{}

	result, err := m.Process(&types.Product{ID: "B01", Title: "Mouse"})
	require.NoError(t, err)
	assert.NotNil(t, result, "product with title should pass")

	result, err = m.Process(&types.Product{ID: "B01"})
	require.NoError(t, err)
	assert.Nil(t, result, "product missing title should be dropped")
}

func TestHTMLSanitizeMiddleware(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()

	result, err := m.Process(&types.Product{
		ID:          "B01",
		Title:       "Mouse &amp; Pad",
		Description: `<p>Hello <b>World</b></p> &amp; <a href="x">link</a>`,
	})
	require.NoError(t, err)

	assert.Equal(t, "Mouse & Pad", result.Title)
	assert.Equal(t, "Hello World & link", result.Description)
}

func TestCategoryMiddleware(t *testing.T) {
	m := &CategoryMiddleware{}

	result, err := m.Process(&types.Product{
		Categories:   []string{" Electronics", "", "Mice", "Electronics"},
		CategoryPath: []string{"Electronics ", " ", "Computer Accessories"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Electronics", "Mice"}, result.Categories)
	assert.Equal(t, []string{"Electronics", "Computer Accessories"}, result.CategoryPath)
}

func TestCurrencyMiddleware(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"usd", "USD"},
		{" AED ", "AED"},
		{"$", ""},
		{"EURO", ""},
		{"", ""},
	}

	m := &CurrencyMiddleware{}
	for _, tt := range tests {
		result, _ := m.Process(&types.Product{Currency: tt.input})
		assert.Equal(t, tt.expected, result.Currency, "currency %q", tt.input)
	}
}

func TestDefaultPipelineDropsUntitled(t *testing.T) {
	p := Default(testLogger)
	assert.Equal(t, 5, p.Len())

	result, err := p.Process(&types.Product{ID: "B01", Title: "<span> </span>"})
	require.NoError(t, err)
	assert.Nil(t, result)
}
