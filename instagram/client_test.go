package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odit-bit/expertfinder/retry"
	"github.com/odit-bit/expertfinder/socialgraph"
)

func newTestAPI(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	requests := 0
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, body string) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}

	mux.HandleFunc("/users/100", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cid", r.URL.Query().Get("client_id"))
		write(w, 200, `{"meta":{"code":200},"data":{"id":"100","username":"sparrow","bio":"London photographer","website":"http://sparrow.example.com"}}`)
	})
	mux.HandleFunc("/users/200", func(w http.ResponseWriter, r *http.Request) {
		write(w, 200, `{"meta":{"code":200},"data":{"id":"200","username":"quiet"}}`)
	})
	mux.HandleFunc("/users/400", func(w http.ResponseWriter, r *http.Request) {
		write(w, 400, `{"meta":{"code":400,"error_type":"APINotAllowedError","error_message":"you cannot view this resource"}}`)
	})
	mux.HandleFunc("/users/500", func(w http.ResponseWriter, r *http.Request) {
		write(w, 503, `oops`)
	})
	mux.HandleFunc("/users/100/media/recent", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "33", r.URL.Query().Get("count"))
		switch r.URL.Query().Get("max_id") {
		case "":
			write(w, 200, fmt.Sprintf(`{"pagination":{"next_url":"%s/users/100/media/recent?max_id=m2&count=33"},"data":[
				{"id":"m1","link":"http://instagram.com/p/m1","caption":{"text":"Coffee at dawn"},"location":{"name":"Shoreditch","latitude":51.52,"longitude":-0.07}},
				{"id":"m2","link":"http://instagram.com/p/m2","caption":null,"location":null}
			]}`, "https://api.instagram.com/v1"))
		case "m2":
			write(w, 200, `{"pagination":{},"data":[
				{"id":"m3","link":"http://instagram.com/p/m3","caption":null,"location":{"name":"Hackney"}},
				{"id":"m4","link":"http://instagram.com/p/m4","caption":{"text":"Just text"}}
			]}`)
		default:
			t.Errorf("unexpected max_id %q", r.URL.Query().Get("max_id"))
		}
	})
	mux.HandleFunc("/users/100/follows", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cursor") {
		case "":
			write(w, 200, `{"pagination":{"next_url":"https://api.instagram.com/v1/users/100/follows?cursor=c2"},"data":[{"id":"1","username":"a"}]}`)
		case "c2":
			write(w, 200, `{"pagination":{"next_url":"https://api.instagram.com/v1/users/100/follows?cursor=c3"},"data":[{"id":"2","username":"b"}]}`)
		default:
			write(w, 400, `{"meta":{"code":400,"error_type":"APIError"}}`)
		}
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestClient(srv *httptest.Server, maxPages int) *Client {
	return New(Config{
		BaseURL:       srv.URL,
		ClientID:      "cid",
		SeedUserID:    "100",
		CourtesyDelay: time.Millisecond,
		MaxPages:      maxPages,
	})
}

func TestClient_FirstUserAndProfile(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestAPI(t)
	c := newTestClient(srv, 0)

	seed, err := c.FirstUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, &socialgraph.User{Network: "IG", ExternalID: "100", Handle: "sparrow", URL: "http://instagram.com/sparrow"}, seed)

	profile, err := c.Profile(ctx, seed)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "100", profile.ExternalID)
	assert.Equal(t, "London photographer http://sparrow.example.com", profile.Text)
	assert.Equal(t, "http://instagram.com/sparrow", profile.URL)
	assert.Nil(t, profile.Location)

	profile, err = c.Profile(ctx, &socialgraph.User{ExternalID: "200"})
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestClient_Posts(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := newTestClient(srv, 0)

	posts, err := c.Posts(context.Background(), &socialgraph.User{ExternalID: "100"})
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, "m1", posts[0].ExternalID)
	assert.Equal(t, "Coffee at dawn. Shoreditch", posts[0].Text)
	assert.Equal(t, &socialgraph.Location{Name: "Shoreditch", Lat: 51.52, Lon: -0.07}, posts[0].Location)

	// no coordinates, the name is only kept in the text
	assert.Equal(t, "Hackney", posts[1].Text)
	assert.Nil(t, posts[1].Location)

	assert.Equal(t, "Just text", posts[2].Text)
}

func TestClient_PostsMaxPages(t *testing.T) {
	srv, requests := newTestAPI(t)
	c := newTestClient(srv, 1)

	posts, err := c.Posts(context.Background(), &socialgraph.User{ExternalID: "100"})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 1, *requests)
}

func TestClient_FolloweesKeepsPagesBeforeFailure(t *testing.T) {
	srv, _ := newTestAPI(t)
	c := newTestClient(srv, 0)

	followees, err := c.Followees(context.Background(), &socialgraph.User{ExternalID: "100"})
	require.NoError(t, err)
	require.Len(t, followees, 2)
	assert.Equal(t, "b", followees[1].Handle)
	assert.Equal(t, "http://instagram.com/b", followees[1].URL)
}

func TestClient_ErrorClassification(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestAPI(t)
	c := newTestClient(srv, 0)

	_, err := c.Profile(ctx, &socialgraph.User{ExternalID: "400"})
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "APINotAllowedError", apiErr.Type)

	_, err = c.Profile(ctx, &socialgraph.User{ExternalID: "500"})
	require.Error(t, err)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.True(t, apiErr.Temporary())
}

func TestClassify(t *testing.T) {
	assert.False(t, retry.IsPermanent(classify(&APIError{Status: http.StatusTooManyRequests})))
	assert.False(t, retry.IsPermanent(classify(&APIError{Status: http.StatusBadGateway})))
	assert.True(t, retry.IsPermanent(classify(&APIError{Status: http.StatusNotFound})))
}

// flakyListing serves two pages of follows, the second failing with 503
// for the first failures requests.
func flakyListing(t *testing.T, failures int) (*httptest.Server, *int) {
	t.Helper()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("cursor") == "" {
			_, _ = w.Write([]byte(`{"pagination":{"next_url":"https://api.instagram.com/v1/users/1/follows?cursor=c2"},"data":[{"id":"1","username":"a"}]}`))
			return
		}
		if failures > 0 {
			failures--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"pagination":{},"data":[{"id":"2","username":"b"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestClient_RetriesEachPage(t *testing.T) {
	srv, requests := flakyListing(t, 2)
	c := New(Config{
		BaseURL:       srv.URL,
		CourtesyDelay: time.Millisecond,
		Retry:         retry.Policy{MaxAttempts: 3, Delay: time.Millisecond},
	})

	followees, err := c.Followees(context.Background(), &socialgraph.User{ExternalID: "1"})
	require.NoError(t, err)
	require.Len(t, followees, 2)
	assert.Equal(t, "b", followees[1].Handle)
	// one request for the first page, three for the second
	assert.Equal(t, 4, *requests)
}

func TestClient_KeepsPagesWhenRetriesRunOut(t *testing.T) {
	srv, requests := flakyListing(t, 10)
	c := New(Config{
		BaseURL:       srv.URL,
		CourtesyDelay: time.Millisecond,
		Retry:         retry.Policy{MaxAttempts: 3, Delay: time.Millisecond},
	})

	followees, err := c.Followees(context.Background(), &socialgraph.User{ExternalID: "1"})
	require.NoError(t, err)
	require.Len(t, followees, 1)
	assert.Equal(t, "a", followees[0].Handle)
	assert.Equal(t, 4, *requests)
}

func TestClient_FirstPageFailureIsFinal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := New(Config{BaseURL: srv.URL, CourtesyDelay: time.Millisecond, Retry: retry.Policy{MaxAttempts: 2, Delay: time.Millisecond}})

	_, err := c.Posts(context.Background(), &socialgraph.User{ExternalID: "1"})
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))
}

func TestNextCursor(t *testing.T) {
	assert.Equal(t, "abc", nextCursor("https://api.instagram.com/v1/users/1/follows?cursor=abc&client_id=x", "cursor"))
	assert.Equal(t, "", nextCursor("", "cursor"))
	assert.Equal(t, "", nextCursor("https://api.instagram.com/v1/users/1/follows", "cursor"))
}
