package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/spf13/afero"

	appLog "mediasort/internal/log"
)

// Source represents a single ICS subscription source.
type Source struct {
	// ID is an internal identifier (e.g., config ICS ID).
	ID string
	// URL is the ICS endpoint.
	URL string
	// Name prefixes imported event names as a parent folder.
	Name string
	// Location decides the calendar day of timed events. Nil means
	// time.Local.
	Location *time.Location
}

// FetchResult is the calendar payload for one source.
type FetchResult struct {
	Source Source
	Body   []byte
	// FromCache is set when the body was not downloaded in this call: the
	// server answered 304, or it failed and a cached copy stood in.
	FromCache bool
}

// Fetcher downloads subscribed calendars. Each successful download is kept
// in a cache so later runs can revalidate with ETag / Last-Modified and
// keep working while the server is unreachable.
type Fetcher struct {
	client *http.Client
	cache  calendarCache
}

// NewFetcher creates a Fetcher caching below cacheDir on the real
// filesystem.
func NewFetcher(cacheDir string) *Fetcher {
	return NewFetcherFs(afero.NewOsFs(), cacheDir)
}

// NewFetcherFs is NewFetcher on an arbitrary filesystem.
func NewFetcherFs(fsys afero.Fs, cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./cache/ics-cache"
	}
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  calendarCache{fs: fsys, dir: cacheDir},
	}
}

// FetchAll fetches the sources one after another. A failing source is
// logged and reported; it does not stop the others.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error
	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics %s: %w", src.ID, err))
			appLog.Error("calendar unavailable", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// FetchOne returns the current payload of src. A cached copy is used when
// the server reports it unchanged, and as a stand-in when the request
// fails.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}
	url := redactURL(src.URL)

	cached, err := f.cache.load(src.URL)
	if err != nil {
		appLog.Warn("calendar cache unreadable", "id", src.ID, "err", err)
	}
	fromCache := func(reason error) (FetchResult, error) {
		if len(cached.Body) == 0 {
			return FetchResult{}, reason
		}
		appLog.Warn("using cached calendar", "id", src.ID, "url", url,
			"fetched_at", cached.FetchedAt.Format(time.RFC3339), "reason", reason)
		return FetchResult{Source: src, Body: cached.Body, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if len(cached.Body) > 0 {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	appLog.Debug("fetching calendar", "id", src.ID, "url", url)
	resp, err := f.client.Do(req)
	if err != nil {
		return fromCache(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && len(cached.Body) > 0:
		appLog.Debug("calendar not modified", "id", src.ID, "url", url)
		return FetchResult{Source: src, Body: cached.Body, FromCache: true}, nil

	case resp.StatusCode != http.StatusOK:
		return fromCache(fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fromCache(err)
	}
	entry := cachedCalendar{
		URL:          src.URL,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    time.Now().UTC(),
		Body:         body,
	}
	if err := f.cache.store(entry); err != nil {
		appLog.Error("calendar cache write failed", err, "id", src.ID)
	}
	appLog.Info("calendar downloaded", "id", src.ID, "url", url, "bytes", len(body))
	return FetchResult{Source: src, Body: body}, nil
}

// redactURL keeps only scheme and host of a subscription URL; private
// calendar links carry their secret in the path or query.
func redactURL(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
