package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherConditionalGet(t *testing.T) {
	var full, notModified atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full.Add(1)
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feed()))
	}))
	defer srv.Close()

	f := NewFetcherWithClient(srv.Client())

	first, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, full.Load())
	assert.EqualValues(t, 1, notModified.Load())

	f.Forget(srv.URL)
	_, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 2, full.Load())
}

func TestFetcherNotModifiedWithoutCache(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	_, err := NewFetcherWithClient(srv.Client()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "304")
}

func TestFetcherRejectsOversizedFeed(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", MaxFeedBytes+1)))
	}))
	defer srv.Close()

	_, err := NewFetcherWithClient(srv.Client()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestFetcherHonoursContext(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcherWithClient(srv.Client()).Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://www.airbnb.com/...(redacted)",
		RedactURL("https://www.airbnb.com/calendar/ical/123.ics?s=abcdef"))
	assert.Equal(t, "(redacted)", RedactURL("not a url"))
}
