package calib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Default configuration values.
const (
	DefaultURL         = "http://alice-ccdb.cern.ch"
	DefaultObjectPath  = "GLO/Config/GRPMagField"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultCacheSize   = 64
)

// Fetcher retrieves the materialized field context for a run from the
// calibration database.
type Fetcher interface {
	FetchFieldContext(ctx context.Context, runNumber int32) (*FieldContext, error)
}

// HTTPFetcher implements Fetcher against a CCDB-style HTTP endpoint.
// Successfully decoded contexts are kept in an LRU keyed by run number so
// that re-fetches of recently seen runs never touch the network.
type HTTPFetcher struct {
	endpoint    string
	objectPath  string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	cache       *lru.Cache[int32, *FieldContext]
}

// FetcherOption configures HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.retryDelay = d
	}
}

// WithObjectPath sets the calibration object path under the endpoint.
func WithObjectPath(p string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.objectPath = p
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithCacheSize sets the decoded-object LRU capacity.
func WithCacheSize(n int) FetcherOption {
	return func(f *HTTPFetcher) {
		cache, _ := lru.New[int32, *FieldContext](n)
		f.cache = cache
	}
}

// NewHTTPFetcher creates a calibration fetcher for the given endpoint.
func NewHTTPFetcher(endpoint string, opts ...FetcherOption) *HTTPFetcher {
	cache, _ := lru.New[int32, *FieldContext](DefaultCacheSize)
	f := &HTTPFetcher{
		endpoint:    endpoint,
		objectPath:  DefaultObjectPath,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		cache:       cache,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// fieldContextResult is the raw calibration object payload.
type fieldContextResult struct {
	RunNumber int32   `json:"runNumber"`
	Bz        float64 `json:"bz"`
}

// FetchFieldContext retrieves the field context for runNumber, retrying
// transient failures with exponential backoff. A missing object (404) is
// not retried and surfaces as ErrUnavailable.
func (f *HTTPFetcher) FetchFieldContext(ctx context.Context, runNumber int32) (*FieldContext, error) {
	if fld, ok := f.cache.Get(runNumber); ok {
		return fld, nil
	}

	url := fmt.Sprintf("%s/%s/%d", f.endpoint, f.objectPath, runNumber)
	delay := f.retryDelay
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * f.backoffMult)
			if delay > f.maxDelay {
				delay = f.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// A missing object is a definitive answer, not a transient fault.
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("run %d: %w", runNumber, ErrUnavailable)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		var result fieldContextResult
		if err := json.Unmarshal(body, &result); err != nil {
			lastErr = fmt.Errorf("unmarshal field context: %w", err)
			continue
		}

		fld := &FieldContext{
			RunNumber: runNumber,
			Bz:        result.Bz,
			FetchedAt: time.Now().UnixMilli(),
		}
		f.cache.Add(runNumber, fld)
		return fld, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
