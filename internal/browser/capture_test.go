package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureDisabled(t *testing.T) {
	var nilCapturer *Capturer
	assert.False(t, nilCapturer.Enabled())

	c := New(Options{})
	assert.False(t, c.Enabled())

	snap, err := c.Capture(context.Background(), "https://example.com")
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, ErrDisabled)
	c.Close()
}

func TestBuildScript(t *testing.T) {
	script := BuildScript([]string{"Shopify.theme.name", "jQuery"})
	assert.Contains(t, script, `for (const path of ["Shopify.theme.name","jQuery"])`)
	assert.NotContains(t, script, "__GLOBALS__")

	assert.Contains(t, BuildScript(nil), "for (const path of [])")
}

func findChrome() string {
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func TestCaptureLive(t *testing.T) {
	chrome := findChrome()
	if chrome == "" {
		t.Skip("no Chrome binary on PATH")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head>
<style>body{font-family:"Inter",sans-serif}</style>
<script>window.Shopify = {theme: {name: "Dawn"}};</script>
</head><body><img src="/a.png" width="10" height="20"><h1>Hi</h1></body></html>`))
	}))
	defer server.Close()

	c := New(Options{Enabled: true, ExecPath: chrome, Timeout: 30 * time.Second, Globals: []string{"Shopify", "Shopify.theme.name", "jQuery"}})
	defer c.Close()

	snap, err := c.Capture(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Contains(t, snap.HTML, "<h1>Hi</h1>")
	require.Len(t, snap.Images, 1)
	assert.Equal(t, 10, snap.Images[0].Width)
	assert.Equal(t, "Dawn", snap.Globals["Shopify.theme.name"])
	assert.Equal(t, true, snap.Globals["Shopify"])
	assert.NotContains(t, snap.Globals, "jQuery")
	assert.Contains(t, snap.Styles["body"]["font-family"], "Inter")
	require.NotEmpty(t, snap.StyleSheets)
	assert.True(t, snap.StyleSheets[0].Readable)
}
