// Package api talks to the upstream timetable API.
package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"urnik/internal/config"
	appLog "urnik/internal/log"
	"urnik/internal/metrics"
)

// StatusError is a non-2xx upstream answer that could not be served from
// cache. Message carries the upstream's {"message": ...} when present.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %s: %s", e.Status, e.Message)
	}
	return "upstream " + e.Status
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// cacheEntry holds HTTP revalidation metadata for one GET URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Client fetches timetable data. GET responses are cached on disk and
// revalidated with ETag / Last-Modified; a cached body is served when the
// upstream is unreachable or failing.
type Client struct {
	baseURL  string
	client   *http.Client
	cacheDir string
}

// NewClient creates a Client for baseURL. An empty cacheDir disables the
// disk cache.
func NewClient(baseURL, cacheDir string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

// get performs a cached GET and returns the body.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	url := c.baseURL + path

	var cachePath string
	var meta cacheEntry
	var cachedBody []byte
	if c.cacheDir != "" {
		cachePath = c.cachePathForURL(url)
		if err := os.MkdirAll(cachePath, 0o700); err != nil {
			return nil, err
		}
		meta, _ = loadCacheMeta(cachePath)
		cachedBody, _ = os.ReadFile(filepath.Join(cachePath, "body"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("upstream fetch start", "op", op, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("upstream network error, using cached body", err, "op", op, "path", path)
			metrics.UpstreamRequests.WithLabelValues(op, "cache").Inc()
			return cachedBody, nil
		}
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
			return nil, fmt.Errorf("%s: read body: %w", op, err)
		}
		if cachePath != "" {
			newMeta := cacheEntry{
				URL:          url,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := saveCache(cachePath, newMeta, body); err != nil {
				// The fresh body is still good.
				appLog.Error("upstream cache save failed", err, "op", op, "path", path)
			}
		}
		metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
		return body, nil

	case resp.StatusCode == http.StatusNotModified && len(cachedBody) > 0:
		appLog.Debug("upstream not modified; using cache", "op", op, "path", path)
		metrics.UpstreamRequests.WithLabelValues(op, "not_modified").Inc()
		return cachedBody, nil

	default:
		serr := statusError(resp)
		if len(cachedBody) > 0 && resp.StatusCode >= 500 {
			appLog.Error("upstream non-OK, using cached body", serr, "op", op, "path", path)
			metrics.UpstreamRequests.WithLabelValues(op, "cache").Inc()
			return cachedBody, nil
		}
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%s: %w", op, serr)
	}
}

// send performs an uncached request with an optional JSON body.
func (c *Client) send(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%s: %w", op, statusError(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
	return data, nil
}

func statusError(resp *http.Response) *StatusError {
	se := &StatusError{Code: resp.StatusCode, Status: resp.Status}
	var msg struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &msg) == nil {
		se.Message = msg.Message
	}
	return se
}

func (c *Client) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body. Both are renamed
	// into place so readers never see a partial file.
	if err := config.WriteFileAtomic(filepath.Join(cachePath, "body"), body, ".body-*.tmp"); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(filepath.Join(cachePath, "meta.json"), data, ".meta-*.tmp")
}
