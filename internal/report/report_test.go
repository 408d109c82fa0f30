package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pageaudit/internal/model"
)

func sampleAudit() *model.Audit {
	size := int64(2048)
	broken := true
	ok := false
	csp := "default-src 'self'"
	fontURL := "https://fonts.google.com/specimen/Inter"
	return &model.Audit{
		ID:          "a1",
		URL:         "https://shop.example.com/",
		Mode:        "fetch",
		Source:      "direct",
		Title:       "Shop | Example",
		TitleLength: 14,
		Robots:      "index, follow",
		Charset:     "utf-8",
		Headers:     []model.Heading{{Tag: "h1", Text: "Welcome", Order: 0}},
		Images: []model.ImageRecord{
			{Src: "/hero.webp", Alt: "Hero", Type: model.ImageWEBP, Width: 800, Height: 600, Size: &size},
			{Src: "/logo.png", Type: model.ImagePNG},
		},
		Links: []model.Link{
			{Href: "https://shop.example.com/gone", Text: "Gone", Status: 404, StatusText: "Not Found", IsBroken: &broken},
			{Href: "https://other.example.org/", Text: "Other", IsExternal: true, Status: 200, StatusText: "OK", IsBroken: &ok},
		},
		Tech: []model.TechSignature{{Name: "WordPress", Category: "CMS", Icon: "📝", Confidence: 100}},
		Security: []model.SecurityHeader{
			{Header: "Content-Security-Policy", Value: &csp, Status: model.StatusPass, Recommendation: "Present"},
			{Header: "Strict-Transport-Security", Status: model.StatusFail, Recommendation: "Add HSTS"},
		},
		Fonts: []model.FontRecord{{Family: "Inter", Source: model.FontGoogle, Weights: []string{"400", "700"}, Styles: []string{"normal"}, URL: &fontURL}},
		Schemas: []model.SchemaRecord{
			{Type: "Product", IsValid: false, Errors: []string{"missing name"}, Warnings: []string{"missing offers"}},
		},
		Videos: []model.Video{{Type: "youtube", ID: "abc123", URL: "https://www.youtube.com/watch?v=abc123"}},
		Social: model.Social{OGTitle: "Shop"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{" YAML ", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"text", FormatText, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "application/yaml", FormatYAML.ContentType())
	assert.Contains(t, FormatMarkdown.ContentType(), "text/markdown")
	assert.Contains(t, FormatText.ContentType(), "text/plain")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleAudit(), false))

	var decoded model.Audit
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "https://shop.example.com/", decoded.URL)
	require.Len(t, decoded.Images, 2)
	require.NotNil(t, decoded.Images[0].Size)
	assert.EqualValues(t, 2048, *decoded.Images[0].Size)
	assert.Nil(t, decoded.Images[1].Size)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \""), "output is indented")
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleAudit(), false))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "fetch", decoded["mode"])
	assert.Contains(t, buf.String(), "title_length: 14")
	assert.Contains(t, buf.String(), "family: Inter")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, sampleAudit(), false))
	out := buf.String()

	for _, want := range []string{
		"# Page audit: Shop \\| Example",
		"## Technologies",
		"WordPress",
		"## Security headers",
		"❌ fail",
		"## Images (2)",
		"2.0 KB",
		"## Links (2)",
		"❌ 404 Not Found",
		"[Inter](https://fonts.google.com/specimen/Inter)",
		"**Product** ❌ missing name (warnings: missing offers)",
		"- `h1` Welcome",
		"## Videos",
		"(no VideoObject schema)",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteMarkdownEmptyAudit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, &model.Audit{URL: "https://empty.example.com/"}))
	out := buf.String()
	assert.Contains(t, out, "# Page audit: https://empty.example.com/")
	assert.Contains(t, out, "No technologies detected.")
	assert.Contains(t, out, "No JSON-LD found.")
	assert.NotContains(t, out, "## Videos")
}

func TestWriteText(t *testing.T) {
	t.Run("Plain", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatText, sampleAudit(), false))
		out := buf.String()
		assert.NotContains(t, out, "\x1b[")
		assert.Contains(t, out, "Page audit https://shop.example.com/")
		assert.Contains(t, out, "FAIL Strict-Transport-Security")
		assert.Contains(t, out, "2 images (1 without alt), 2 links (1 external, 1 broken)")
		assert.Contains(t, out, "broken https://shop.example.com/gone")
		assert.Contains(t, out, "warning: missing offers")
	})

	t.Run("Colored", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, sampleAudit(), true))
		assert.Contains(t, buf.String(), "\x1b[")
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, assert.AnError }

func TestWriteErrors(t *testing.T) {
	assert.Error(t, Write(failingWriter{}, FormatText, sampleAudit(), false))
	assert.Error(t, Write(failingWriter{}, FormatMarkdown, sampleAudit(), false))
	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), sampleAudit(), false))
}

func TestSizeLabel(t *testing.T) {
	n := func(v int64) *int64 { return &v }
	assert.Equal(t, "-", sizeLabel(nil))
	assert.Equal(t, "512 B", sizeLabel(n(512)))
	assert.Equal(t, "1.5 KB", sizeLabel(n(1536)))
	assert.Equal(t, "3.0 MB", sizeLabel(n(3<<20)))
}
