package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageaudit/internal/dom"
	"pageaudit/internal/model"
)

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected []model.SchemaRecord
	}{
		{
			name: "Product missing name and offers",
			json: `{"@type":"Product"}`,
			expected: []model.SchemaRecord{{
				Type:     "Product",
				Data:     map[string]any{"@type": "Product"},
				IsValid:  false,
				Errors:   []string{"missing name"},
				Warnings: []string{"missing offers"},
			}},
		},
		{
			name: "Complete product",
			json: `{"@type":"Product","name":"X","offers":{}}`,
			expected: []model.SchemaRecord{{
				Type:     "Product",
				Data:     map[string]any{"@type": "Product", "name": "X", "offers": map[string]any{}},
				IsValid:  true,
				Errors:   []string{},
				Warnings: []string{},
			}},
		},
		{
			name: "Article without image is still valid",
			json: `{"@type":"BlogPosting","headline":"Hello"}`,
			expected: []model.SchemaRecord{{
				Type:     "BlogPosting",
				Data:     map[string]any{"@type": "BlogPosting", "headline": "Hello"},
				IsValid:  true,
				Errors:   []string{},
				Warnings: []string{"missing image"},
			}},
		},
		{
			name: "Organization with empty name",
			json: `{"@type":"Organization","name":"","url":"https://example.com"}`,
			expected: []model.SchemaRecord{{
				Type:     "Organization",
				Data:     map[string]any{"@type": "Organization", "name": "", "url": "https://example.com"},
				IsValid:  false,
				Errors:   []string{"missing name"},
				Warnings: []string{},
			}},
		},
		{
			name: "Unruled type",
			json: `{"@type":"BreadcrumbList"}`,
			expected: []model.SchemaRecord{{
				Type:     "BreadcrumbList",
				Data:     map[string]any{"@type": "BreadcrumbList"},
				IsValid:  true,
				Errors:   []string{},
				Warnings: []string{},
			}},
		},
		{
			name: "Array type is not checked",
			json: `{"@type":["Product","Thing"]}`,
			expected: []model.SchemaRecord{{
				Type:     "Product, Thing",
				Data:     map[string]any{"@type": []any{"Product", "Thing"}},
				IsValid:  true,
				Errors:   []string{},
				Warnings: []string{},
			}},
		},
		{
			name:     "Null root",
			json:     `null`,
			expected: nil,
		},
		{
			name:     "Null array member",
			json:     `[{"@type":"Thing"}, null]`,
			expected: nil,
		},
		{
			name:     "Null graph member",
			json:     `{"@graph":[null]}`,
			expected: nil,
		},
		{
			name: "Missing type",
			json: `{"name":"anonymous"}`,
			expected: []model.SchemaRecord{{
				Type:     "unknown",
				Data:     map[string]any{"name": "anonymous"},
				IsValid:  true,
				Errors:   []string{},
				Warnings: []string{},
			}},
		},
		{
			name:     "Malformed JSON",
			json:     `{"@type": "Product",`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateJSON(tt.json))
		})
	}
}

func TestValidateJSONExpandsContainers(t *testing.T) {
	records := ValidateJSON(`[
		{"@type":"Organization","name":"Acme"},
		{"@context":"https://schema.org","@graph":[
			{"@type":"WebSite","name":"Acme"},
			{"@type":"Article"}
		]}
	]`)

	require.Len(t, records, 3)
	assert.Equal(t, "Organization", records[0].Type)
	assert.Equal(t, []string{"missing url"}, records[0].Warnings)
	assert.Equal(t, "WebSite", records[1].Type)
	assert.Equal(t, "Article", records[2].Type)
	assert.Equal(t, []string{"missing headline"}, records[2].Errors)
	assert.Equal(t, []string{"missing image"}, records[2].Warnings)
	assert.False(t, records[2].IsValid)
}

func TestValidateDocument(t *testing.T) {
	doc, err := dom.ParseString(`<html><head>
		<script type="application/ld+json">{"@type":"Product","name":"Widget","offers":{"price":"9.99"}}</script>
		<script type="application/ld+json">{ not json }</script>
		<script type="application/json">{"@type":"Product"}</script>
	</head><body>
		<script type="application/ld+json">[{"@type":"NewsArticle","headline":"H","image":"/a.png"},{"@type":"Product"}]</script>
	</body></html>`, "https://example.com/")
	require.NoError(t, err)

	records := Validate(doc)
	require.Len(t, records, 3)

	assert.Equal(t, "Product", records[0].Type)
	assert.True(t, records[0].IsValid)
	assert.Equal(t, "NewsArticle", records[1].Type)
	assert.True(t, records[1].IsValid)
	assert.Empty(t, records[1].Warnings)
	assert.Equal(t, "Product", records[2].Type)
	assert.False(t, records[2].IsValid)

	for _, r := range records {
		assert.Equal(t, len(r.Errors) == 0, r.IsValid)
	}

	assert.Equal(t, records, Validate(doc))
}

func TestValidateNoBlocks(t *testing.T) {
	doc, err := dom.ParseString(`<p>nothing</p>`, "")
	require.NoError(t, err)
	records := Validate(doc)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestValidateIsIdempotent(t *testing.T) {
	doc, err := dom.ParseString(`<html><head>
		<script type="application/ld+json">{"@context":"https://schema.org","@graph":[
			{"@type":"Organization","name":"Acme"},
			{"@type":["Product","Thing"]},
			{"@type":"BlogPosting","headline":"Launch"}
		]}</script>
		<script type="application/ld+json">[{"@type":"Product"},{"name":"untyped"}]</script>
	</head></html>`, "https://example.com/")
	require.NoError(t, err)

	first := Validate(doc)
	require.Len(t, first, 5)
	assert.Equal(t, first, Validate(doc))
}
