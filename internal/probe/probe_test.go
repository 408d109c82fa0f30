package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"pageaudit/internal/model"
)

func TestContentRangeTotal(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int64
		ok    bool
	}{
		{"Complete", "bytes 0-1/48213", 48213, true},
		{"Trailing space", "bytes 0-1/99 ", 99, true},
		{"Unknown length", "bytes 0-1/*", 0, false},
		{"Empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ContentRangeTotal(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataURISize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
		ok   bool
	}{
		{"Base64 payload", "data:image/png;base64,AAAA", 3, true},
		{"Rounded", "data:image/gif;base64,R0lGODlhAQABAAAAACw", 14, true},
		{"Empty payload", "data:,", 0, true},
		{"No comma", "data:image/png", 0, false},
		{"Not a data URI", "https://a.test/x.png", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DataURISize(tt.src)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectTargets(t *testing.T) {
	urls := []string{"https://a.test/1", "mailto:x@a.test", "", "https://a.test/1", "HTTP://a.test/2", "/relative", "http://a.test/3"}

	assert.Equal(t, []string{"https://a.test/1", "HTTP://a.test/2", "http://a.test/3"}, selectTargets(urls, 0))
	assert.Equal(t, []string{"https://a.test/1", "HTTP://a.test/2"}, selectTargets(urls, 2))
	assert.Empty(t, selectTargets(nil, 5))
}

func TestLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/nohead":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	links := []model.Link{
		{Href: server.URL + "/ok"},
		{Href: server.URL + "/missing"},
		{Href: server.URL + "/nohead"},
		{Href: "http://127.0.0.1:1/down"},
		{Href: "mailto:team@a.test"},
	}

	p := &Prober{Workers: 2}
	got := p.Links(context.Background(), links)
	require.Len(t, got, 5)

	tests := []struct {
		index  int
		status int
		text   string
		broken bool
	}{
		{0, 200, "OK", false},
		{1, 404, "Not Found", true},
		{2, 200, "OK", false},
		{3, 0, StatusTextFailed, true},
	}
	for _, tt := range tests {
		t.Run(got[tt.index].Href, func(t *testing.T) {
			l := got[tt.index]
			assert.Equal(t, tt.status, l.Status)
			assert.Equal(t, tt.text, l.StatusText)
			require.NotNil(t, l.IsBroken)
			assert.Equal(t, tt.broken, *l.IsBroken)
		})
	}

	assert.Nil(t, got[4].IsBroken, "non-http links are not probed")
	assert.Nil(t, links[0].IsBroken, "input is not modified")
}

func TestLinksLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var links []model.Link
	for i := 0; i < 8; i++ {
		links = append(links, model.Link{Href: fmt.Sprintf("%s/%d", server.URL, i)})
	}
	links = append(links, model.Link{Href: server.URL + "/0"})

	got := (&Prober{Limit: 5}).Links(context.Background(), links)

	assert.Equal(t, int32(5), hits.Load())
	probed := 0
	for _, l := range got {
		if l.IsBroken != nil {
			probed++
		}
	}
	assert.Equal(t, 6, probed, "the duplicate of a probed link shares its result")
}

func TestImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/head.png":
			w.Header().Set("Content-Length", "1234")
			w.WriteHeader(http.StatusOK)
		case "/range.jpg":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusOK)
				return
			}
			assert.Equal(t, "bytes=0-1", r.Header.Get("Range"))
			w.Header().Set("Content-Range", "bytes 0-1/48213")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write([]byte{0xff, 0xd8})
		case "/unknown.gif":
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	images := []model.ImageRecord{
		{Src: server.URL + "/head.png", Type: "png"},
		{Src: server.URL + "/range.jpg", Type: "jpg"},
		{Src: "data:image/png;base64,AAAA", Type: "data"},
		{Src: server.URL + "/unknown.gif", Type: "gif"},
		{Src: "", Type: "none"},
	}

	got := (&Prober{}).Images(context.Background(), images)
	require.Len(t, got, 5)

	require.NotNil(t, got[0].Size)
	assert.Equal(t, int64(1234), *got[0].Size)
	require.NotNil(t, got[1].Size)
	assert.Equal(t, int64(48213), *got[1].Size)
	require.NotNil(t, got[2].Size)
	assert.Equal(t, int64(3), *got[2].Size)
	assert.Nil(t, got[3].Size)
	assert.Nil(t, got[4].Size)

	for i := range got {
		assert.Equal(t, images[i].Type, got[i].Type)
		assert.Nil(t, images[i].Size)
	}
}

func TestProbeCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := (&Prober{}).Links(ctx, []model.Link{{Href: server.URL}})
	if got[0].IsBroken != nil {
		assert.True(t, *got[0].IsBroken)
	}
}

func TestLimiterPacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := &Prober{Limiter: rate.NewLimiter(rate.Every(20*time.Millisecond), 1)}
	links := []model.Link{{Href: server.URL + "/a"}, {Href: server.URL + "/b"}, {Href: server.URL + "/c"}}

	start := time.Now()
	got := p.Links(context.Background(), links)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	for _, l := range got {
		require.NotNil(t, l.IsBroken)
		assert.False(t, *l.IsBroken)
	}
}
