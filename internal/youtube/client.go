package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	UserAgentChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	maxBodyBytes = 6 * 1024 * 1024
)

// ErrResponseTooLarge is returned when a body exceeds the read cap
var ErrResponseTooLarge = errors.New("response too large")

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Snippet)
}

// Client is an HTTP client shared by every outbound YouTube call.
// Requests wait on a token bucket so bursts of tier attempts stay under
// the platform's rate limits.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client allowing perSec requests per second (burst of the same size).
// perSec <= 0 disables limiting.
func NewClient(timeout time.Duration, perSec float64) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if perSec > 0 {
		limit = rate.Limit(perSec)
		burst = max(1, int(perSec))
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				return nil
			},
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Do waits for the limiter and sends req
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

// Fetch sends a request and returns the body. Non-2xx responses become *StatusError.
func (c *Client) Fetch(ctx context.Context, method, url string, body io.Reader, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if _, ok := headers["User-Agent"]; !ok {
		req.Header.Set("User-Agent", UserAgentChrome)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &StatusError{StatusCode: resp.StatusCode, Snippet: string(snippet)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBodyBytes {
		return nil, fmt.Errorf("%w: over %d bytes from %s", ErrResponseTooLarge, maxBodyBytes, req.URL.Host)
	}
	return data, nil
}
