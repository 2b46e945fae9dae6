// Package calendar fetches and parses rental-platform iCal feeds and keeps the
// property store in sync with them.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/TomasBirkner/hostly-backend/internal/logging"
)

// MaxFeedBytes caps the size of a downloaded feed.
const MaxFeedBytes = 10 << 20

const userAgent = "hostly-calendar-sync/1.0"

// FeedSource retrieves raw calendar text.
type FeedSource interface {
	Fetch(ctx context.Context, feedURL string) ([]byte, error)
}

type cachedFeed struct {
	etag         string
	lastModified string
	body         []byte
}

// Fetcher downloads feeds over HTTP. It remembers the validators and body of
// the last 200 response per URL in memory and reuses the body on 304.
type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cachedFeed
}

// NewFetcher creates a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return NewFetcherWithClient(&http.Client{Timeout: timeout})
}

// NewFetcherWithClient creates a fetcher using client.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{
		client: client,
		cache:  make(map[string]cachedFeed),
	}
}

// Fetch downloads the feed at feedURL.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, errors.New("building request: malformed url")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")

	f.mu.Lock()
	cached, hasCached := f.cache[feedURL]
	f.mu.Unlock()

	if hasCached {
		if cached.etag != "" {
			req.Header.Set("If-None-Match", cached.etag)
		}
		if cached.lastModified != "" {
			req.Header.Set("If-Modified-Since", cached.lastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// *url.Error embeds the full URL, token included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		if !hasCached {
			return nil, errors.New("calendar returned 304 without a cached copy")
		}
		logging.Logger.WithField("url", RedactURL(feedURL)).Debug("Feed not modified, reusing cached body")
		return cached.body, nil
	default:
		return nil, fmt.Errorf("calendar returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFeedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}
	if len(body) > MaxFeedBytes {
		return nil, fmt.Errorf("calendar exceeds %d bytes", MaxFeedBytes)
	}

	etag, lastModified := resp.Header.Get("ETag"), resp.Header.Get("Last-Modified")
	f.mu.Lock()
	if etag != "" || lastModified != "" {
		f.cache[feedURL] = cachedFeed{etag: etag, lastModified: lastModified, body: body}
	} else {
		delete(f.cache, feedURL)
	}
	f.mu.Unlock()

	return body, nil
}

// Forget drops any cached copy of feedURL.
func (f *Fetcher) Forget(feedURL string) {
	f.mu.Lock()
	delete(f.cache, feedURL)
	f.mu.Unlock()
}

// RedactURL keeps only scheme and host. Feed URLs carry secret tokens in the
// path and query.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
