package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name  string
	body  string
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, target string) (string, error) {
	s.calls++
	return s.body, s.err
}

func TestFetchFallbackOrder(t *testing.T) {
	tests := []struct {
		name       string
		sources    []*stubSource
		wantSource string
		wantCalls  []int
	}{
		{
			name: "Direct succeeds",
			sources: []*stubSource{
				{name: "direct", body: "<html>direct</html>"},
				{name: "allorigins", body: "<html>proxy</html>"},
			},
			wantSource: "direct",
			wantCalls:  []int{1, 0},
		},
		{
			name: "Falls through errors and empty bodies",
			sources: []*stubSource{
				{name: "direct", err: errors.New("blocked")},
				{name: "allorigins", body: "   \n"},
				{name: "codetabs", body: "<html>ok</html>"},
				{name: "corsproxy", body: "<html>unused</html>"},
			},
			wantSource: "codetabs",
			wantCalls:  []int{1, 1, 1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fetcher{}
			for _, s := range tt.sources {
				f.Sources = append(f.Sources, s)
			}

			page, err := f.Fetch(context.Background(), "https://a.test/")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, page.Source)
			assert.Equal(t, "https://a.test/", page.URL)

			for i, s := range tt.sources {
				assert.Equal(t, tt.wantCalls[i], s.calls, s.name)
			}
		})
	}
}

func TestFetchAllSourcesFailed(t *testing.T) {
	last := errors.New("corsproxy down")
	f := &Fetcher{Sources: []Source{
		&stubSource{name: "direct", err: errors.New("blocked")},
		&stubSource{name: "allorigins", body: ""},
		&stubSource{name: "corsproxy", err: last},
	}}

	page, err := f.Fetch(context.Background(), "https://a.test/")
	assert.Nil(t, page)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.ErrorIs(t, err, last, "the last source's error is reported")
	assert.Contains(t, err.Error(), "corsproxy")
}

func TestFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &stubSource{name: "direct", body: "<html></html>"}
	_, err := (&Fetcher{Sources: []Source{src}}).Fetch(ctx, "https://a.test/")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls)
}

func TestDirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Chrome/")
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte("<html><title>Home</title></html>"))
		case "/large":
			_, _ = w.Write([]byte("0123456789"))
		case "/latin1-header":
			w.Header().Set("Content-Type", "text/html; charset=windows-1252")
			_, _ = w.Write([]byte("<p>Caf\xe9</p>"))
		case "/latin1-meta":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><head><meta charset=\"iso-8859-1\"></head><body>Cr\xe8me</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	d := &Direct{Client: NewBrowserClient(5 * time.Second)}
	body, err := d.Fetch(context.Background(), server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "<html><title>Home</title></html>", body)

	_, err = d.Fetch(context.Background(), server.URL+"/missing")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)

	body, err = d.Fetch(context.Background(), server.URL+"/latin1-header")
	require.NoError(t, err)
	assert.Equal(t, "<p>Café</p>", body)

	body, err = d.Fetch(context.Background(), server.URL+"/latin1-meta")
	require.NoError(t, err)
	assert.Contains(t, body, "<body>Crème</body>")

	d.MaxBody = 4
	body, err = d.Fetch(context.Background(), server.URL+"/large")
	require.NoError(t, err)
	assert.Equal(t, "0123", body)

	d.MaxBody = 10
	body, err = d.Fetch(context.Background(), server.URL+"/large")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", body, "a body exactly at the cap is kept whole")
}

func TestProxy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get":
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"contents":"<p>%s</p>","status":{"http_code":200}}`, r.URL.Query().Get("url"))
		case "/raw":
			_, _ = fmt.Fprintf(w, "<p>%s</p>", r.URL.Query().Get("quest"))
		case "/broken":
			_, _ = w.Write([]byte("not json"))
		}
	}))
	defer server.Close()

	target := "https://a.test/page?x=1&y=2"

	tests := []struct {
		name    string
		proxy   *Proxy
		want    string
		wantErr bool
	}{
		{"JSON contents", &Proxy{Label: AllOrigins, Endpoint: server.URL + "/get?url=", ContentsField: "contents"}, "<p>" + target + "</p>", false},
		{"Raw body", &Proxy{Label: CodeTabs, Endpoint: server.URL + "/raw?quest="}, "<p>" + target + "</p>", false},
		{"Malformed JSON", &Proxy{Label: AllOrigins, Endpoint: server.URL + "/broken?url=", ContentsField: "contents"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.proxy.Fetch(context.Background(), target)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	f, err := New(Options{Timeout: time.Second})
	require.NoError(t, err)

	var names []string
	for _, s := range f.Sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"direct", AllOrigins, CodeTabs, CORSProxy}, names)

	f, err = New(Options{Proxies: []string{CORSProxy}})
	require.NoError(t, err)
	require.Len(t, f.Sources, 2)
	assert.Equal(t, CORSProxy, f.Sources[1].Name())

	_, err = New(Options{Proxies: []string{"nope"}})
	assert.Error(t, err)
}

func TestStyleSheets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.css":
			_, _ = w.Write([]byte("body{font-family:Inter}"))
		case "/b.css":
			_, _ = w.Write([]byte("h1{font-family:Lora}"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := &Fetcher{Client: server.Client()}
	got := f.StyleSheets(context.Background(), []string{server.URL + "/a.css", server.URL + "/missing.css", server.URL + "/b.css"})
	assert.Equal(t, map[string]string{
		server.URL + "/a.css": "body{font-family:Inter}",
		server.URL + "/b.css": "h1{font-family:Lora}",
	}, got)

	f.MaxStyleSheets = 1
	got = f.StyleSheets(context.Background(), []string{server.URL + "/a.css", server.URL + "/b.css"})
	assert.Len(t, got, 1)
	assert.Contains(t, got, server.URL+"/a.css")
}
