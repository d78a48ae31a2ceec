package textanalysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `<html><head><title>t</title><script>var x = 1;</script></head>
<body><nav>menu</nav><p>The best   espresso in town.</p>
<p>See http://other.example.com</p></body></html>`

func pageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/page" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(testPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLinkExpander_Expand(t *testing.T) {
	var hits int32
	srv := pageServer(t, &hits)
	e := NewLinkExpander(ExpanderConfig{})

	got := e.Expand(context.Background(), "morning coffee "+srv.URL+"/page")
	assert.Contains(t, got, "morning coffee")
	assert.Contains(t, got, "The best espresso in town.")
	assert.NotContains(t, got, "http")
	assert.NotContains(t, got, "menu")
	assert.NotContains(t, got, "var x")
}

func TestLinkExpander_FallsBack(t *testing.T) {
	var hits int32
	srv := pageServer(t, &hits)
	e := NewLinkExpander(ExpanderConfig{})

	text := "broken " + srv.URL + "/missing"
	assert.Equal(t, text, e.Expand(context.Background(), text))
	assert.Equal(t, "no links here", e.Expand(context.Background(), "no links here"))
}

func TestLinkExpander_IgnoresBareDomainsAndEmails(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	t.Cleanup(srv.Close)
	e := NewLinkExpander(ExpanderConfig{HTTPClient: srv.Client()})

	for _, text := range []string{
		"write to user@example.com for prints",
		"visit example.com today",
	} {
		assert.Equal(t, text, e.Expand(context.Background(), text))
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))

	assert.Equal(t, "www.example.com/a", firstWebLink("mail user@example.com or www.example.com/a"))
	assert.Equal(t, "user@example.com and ", removeWebLinks("user@example.com and https://example.com/x"))
}

func TestFormatURL(t *testing.T) {
	assert.Equal(t, "http://www.example.com/a", formatURL("www.example.com/a"))
	assert.Equal(t, "https://example.com", formatURL("https://example.com"))
}

func TestLinkExpander_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var hits int32
	srv := pageServer(t, &hits)
	cache := NewRedisCache(client, time.Hour)
	e := NewLinkExpander(ExpanderConfig{Cache: cache})

	first := e.Expand(context.Background(), "coffee "+srv.URL+"/page")
	second := e.Expand(context.Background(), "coffee "+srv.URL+"/page")
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	text, ok, err := cache.Get(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, text, "espresso")

	mr.FastForward(2 * time.Hour)
	_, ok, err = cache.Get(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.False(t, ok)
}
