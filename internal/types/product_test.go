package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		product *Product
		field   string
	}{
		{"nil", nil, "product"},
		{"missing id", &Product{Title: "Mouse"}, "id"},
		{"blank title", &Product{ID: "B01", Title: "   "}, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.product.Validate()
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.NoError(t, (&Product{ID: "B01", Title: "Mouse"}).Validate())
}

func TestProductMergeKeepsUnsuppliedFields(t *testing.T) {
	p := &Product{
		ID:         "B01",
		Title:      "Old",
		Price:      Float(10),
		Brand:      "Acme",
		Categories: []string{"Electronics"},
	}
	p.Merge(&Product{ID: "ignored", Title: "New", Rating: Float(4.5)})

	assert.Equal(t, "B01", p.ID)
	assert.Equal(t, "New", p.Title)
	assert.Equal(t, "Acme", p.Brand)
	require.NotNil(t, p.Price)
	assert.Equal(t, 10.0, *p.Price)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 4.5, *p.Rating)
	assert.Equal(t, []string{"Electronics"}, p.Categories)
}

func TestProductCloneIsDeep(t *testing.T) {
	p := &Product{ID: "B01", Title: "Mouse", Price: Float(5), Images: []string{"a.jpg"}}
	clone := p.Clone()

	*clone.Price = 99
	clone.Images[0] = "b.jpg"

	assert.Equal(t, 5.0, *p.Price)
	assert.Equal(t, "a.jpg", p.Images[0])
}

func TestProductToFlatMap(t *testing.T) {
	p := &Product{ID: "C1", Type: TypeCompetitor, ParentID: "P1", Title: "Mouse", Price: Float(19.99)}
	flat := p.ToFlatMap()

	assert.Equal(t, "19.99", flat["price"])
	assert.Equal(t, "competitor", flat["type"])
	assert.Equal(t, "", flat["rating"])
	for _, col := range ExportColumns {
		_, ok := flat[col]
		assert.True(t, ok, "missing column %s", col)
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	wrapped := fmt.Errorf("discover: %w", &NotFoundError{Kind: "product", ID: "P1"})
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.False(t, errors.Is(wrapped, ErrTransport))

	tErr := &TransportError{Op: "details", Query: "C2", StatusCode: 503, Attempts: 3, Err: errors.New("boom")}
	assert.ErrorIs(t, tErr, ErrTransport)
	assert.Contains(t, tErr.Error(), "status 503")
	assert.Contains(t, tErr.Error(), "after 3 attempts")

	assert.ErrorIs(t, &ConfigurationError{Key: "api.username", Reason: "is required"}, ErrConfiguration)
}
