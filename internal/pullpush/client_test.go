package pullpush

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a client against server with sleeps recorded instead
// of slept.
func newTestClient(serverURL string, maxRetries int) (*Client, *[]time.Duration) {
	client := NewClient(serverURL, 100, maxRetries)
	var sleeps []time.Duration
	client.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return client, &sleeps
}

func TestClient_Search_BuildsQuery(t *testing.T) {
	var captured url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"title":"Hello","author":"alice"}]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, 3)
	records := client.Search(context.Background(), Query{
		Subreddit:  "politics",
		After:      1451606400,
		Before:     1483228799,
		LinkFilter: true,
	})

	require.Len(t, records, 1)
	assert.Equal(t, "100", captured.Get("size"))
	assert.Equal(t, "asc", captured.Get("sort"))
	assert.Equal(t, "created_utc", captured.Get("sort_type"))
	assert.Equal(t, "link", captured.Get("filter"))
	assert.Equal(t, "politics", captured.Get("subreddit"))
	assert.Equal(t, "1451606400", captured.Get("after"))
	assert.Equal(t, "1483228799", captured.Get("before"))
	assert.False(t, captured.Has("author"))
}

func TestClient_Search_OmitsOptionalParams(t *testing.T) {
	var captured url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.URL.Query()
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, 3)
	client.Search(context.Background(), Query{Author: "alice"})

	assert.False(t, captured.Has("filter"))
	assert.False(t, captured.Has("subreddit"))
	assert.False(t, captured.Has("after"))
	assert.False(t, captured.Has("before"))
	assert.Equal(t, "alice", captured.Get("author"))
}

func TestClient_Search_AcceptsAny2xxStatus(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"data":[{"title":"Hello"}]}`)
	}))
	defer server.Close()

	client, sleeps := newTestClient(server.URL, 3)
	records := client.Search(context.Background(), Query{Subreddit: "politics"})

	require.Len(t, records, 1)
	assert.Equal(t, 1, requests)
	assert.Empty(t, *sleeps)
}

func TestClient_Search_RetriesWithBackoff(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"data":[{"title":"Hello"}]}`)
	}))
	defer server.Close()

	client, sleeps := newTestClient(server.URL, 5)
	records := client.Search(context.Background(), Query{Subreddit: "politics"})

	require.Len(t, records, 1)
	assert.Equal(t, 3, requests)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *sleeps)
}

func TestClient_Search_DegradesToEmptyAfterExhaustion(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, sleeps := newTestClient(server.URL, 3)
	records := client.Search(context.Background(), Query{Subreddit: "politics"})

	assert.Empty(t, records)
	assert.Equal(t, 4, requests) // initial try plus three retries
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *sleeps)
}

func TestClient_Search_RetriesUndecodableBody(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			fmt.Fprint(w, `<html>gateway error</html>`)
			return
		}
		fmt.Fprint(w, `{"data":[{"title":"Hello"}]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, 3)
	records := client.Search(context.Background(), Query{})

	require.Len(t, records, 1)
	assert.Equal(t, 2, requests)
}

func TestClient_Search_TransportFailure(t *testing.T) {
	// Point at a server that is already closed so every attempt fails at the
	// transport level.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client, _ := newTestClient(server.URL, 2)
	records := client.Search(context.Background(), Query{Subreddit: "politics"})

	assert.Empty(t, records)
}
