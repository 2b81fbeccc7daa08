package github

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/nhle/repowatch/internal/source"
)

const (
	providerName = "github"
	apiVersion   = "2022-11-28"

	// etagTTL bounds how long a conditional-request body is kept. It only
	// needs to outlive a few poll intervals.
	etagTTL = 2 * time.Hour
)

// Client is a thin HTTP client for the GitHub REST API. It handles Bearer
// token authentication, JSON decoding, conditional GETs with ETags and
// automatic retry with exponential backoff when rate limited.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	etags      *cache.Cache
}

// cachedResponse is the body and headers of a 200 response kept for reuse
// when GitHub answers a conditional request with 304 Not Modified.
type cachedResponse struct {
	etag   string
	body   []byte
	header http.Header
}

// NewClient creates a new GitHub HTTP client. The baseURL is the API root
// (https://api.github.com or https://<host>/api/v3 for GitHub Enterprise).
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		etags:      cache.New(etagTTL, 2*etagTTL),
	}
}

// cacheKey scopes a cached response to the credential that fetched it, so a
// 304 never revives a body another token was allowed to see.
func (c *Client) cacheKey(reqURL string) string {
	sum := sha256.Sum256([]byte(c.token))
	return hex.EncodeToString(sum[:8]) + " " + reqURL
}

// Get performs an HTTP GET request, unmarshals the JSON response into
// result and returns the response headers.
func (c *Client) Get(
	ctx context.Context,
	path string,
	result interface{},
) (http.Header, error) {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// do is the core HTTP method that builds the request, handles auth,
// conditional requests, rate limiting with backoff, and JSON decoding.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) (http.Header, error) {
	reqURL := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var cached *cachedResponse
	if method == http.MethodGet {
		if v, ok := c.etags.Get(c.cacheKey(reqURL)); ok {
			cached = v.(*cachedResponse)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if cached != nil {
			req.Header.Set("If-None-Match", cached.etag)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		if isRateLimited(resp) {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (%d) on %s %s", resp.StatusCode, method, path)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &source.AuthError{
				Provider: providerName,
				Message: fmt.Sprintf(
					"authentication failed (401): check your token for %s", c.baseURL,
				),
			}
		}

		if resp.StatusCode == http.StatusNotModified && cached != nil {
			respBody = cached.body
			resp.Header = mergeHeaders(cached.header, resp.Header)
		} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var apiErr ErrorResponse
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
				return nil, fmt.Errorf(
					"github API error (%d) on %s %s: %s",
					resp.StatusCode, method, path, apiErr.Message,
				)
			}
			return nil, fmt.Errorf(
				"unexpected status %d on %s %s: %s",
				resp.StatusCode, method, path, string(respBody),
			)
		} else if method == http.MethodGet {
			if etag := resp.Header.Get("ETag"); etag != "" {
				c.etags.Set(c.cacheKey(reqURL), &cachedResponse{
					etag:   etag,
					body:   respBody,
					header: resp.Header.Clone(),
				}, cache.DefaultExpiration)
			}
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return resp.Header, nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return nil, fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}

		return resp.Header, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// isRateLimited reports a primary (403 with no remaining quota) or
// secondary (429) rate limit response.
func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden &&
		resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// mergeHeaders overlays fresh on top of cached so a 304 keeps pagination
// links from the original response.
func mergeHeaders(cached, fresh http.Header) http.Header {
	out := cached.Clone()
	for k, v := range fresh {
		out[k] = v
	}
	return out
}

// totalPages derives the page count from a Link header. Without a "last"
// relation the current page is the last one: either there is a "prev"
// link (we are past page 1) or the collection fits in a single page.
func totalPages(header http.Header, currentPage int) int {
	link := header.Get("Link")
	if link == "" {
		return max(currentPage, 1)
	}

	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		isLast := false
		for _, attr := range segments[1:] {
			if strings.TrimSpace(attr) == `rel="last"` {
				isLast = true
			}
		}
		if !isLast {
			continue
		}

		raw := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if n, err := strconv.Atoi(u.Query().Get("page")); err == nil && n > 0 {
			return n
		}
	}

	return max(currentPage, 1)
}

// pagesFromTotal converts a total_count into a page count.
func pagesFromTotal(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
