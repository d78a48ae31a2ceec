package textanalysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odit-bit/expertfinder/retry"
	"github.com/odit-bit/expertfinder/socialgraph"
)

func TestTagmeClient_Entities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		assert.Equal(t, "lunch in pisa", r.URL.Query().Get("text"))
		_, _ = w.Write([]byte(`{"annotations":[
			{"title":"Pisa","rho":0.42},
			{"spot":"lunch"},
			{"title":"Lunch","rho":"high"},
			{"title":"Meal","rho":0.1}
		]}`))
	}))
	defer srv.Close()

	c := NewTagmeClient(TagmeConfig{URL: srv.URL, Key: "secret"})
	got := c.Entities(context.Background(), "Lunch in #Pisa")
	assert.Equal(t, []socialgraph.WeightedEntity{{Name: "Pisa", Rho: 0.42}, {Name: "Meal", Rho: 0.1}}, got)
}

func TestTagmeClient_CourtesyDelay(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"annotations":[]}`))
	}))
	defer srv.Close()

	c := NewTagmeClient(TagmeConfig{URL: srv.URL, CourtesyDelay: 30 * time.Millisecond})
	start := time.Now()
	for i := 0; i < 3; i++ {
		c.Entities(context.Background(), "rome")
	}
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestTagmeClient_RetriesTimeouts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			time.Sleep(50 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{"annotations":[{"title":"Rome","rho":0.3}]}`))
	}))
	defer srv.Close()

	c := NewTagmeClient(TagmeConfig{
		URL:        srv.URL,
		Retry:      retry.Policy{MaxAttempts: 5, Delay: time.Millisecond},
		HTTPClient: &http.Client{Timeout: 20 * time.Millisecond},
	})
	got := c.Entities(context.Background(), "rome")
	require.Len(t, got, 1)
	assert.Equal(t, "Rome", got[0].Name)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestTagmeClient_OtherFailuresGiveUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewTagmeClient(TagmeConfig{URL: srv.URL, Retry: retry.Policy{MaxAttempts: 5, Delay: time.Millisecond}})
	assert.Empty(t, c.Entities(context.Background(), "rome"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
