// Package fetch provides the outbound HTTP client shared by extraction
// strategies and liveness checks. Every request passes through the rate
// limiter and carries rotated anti-detection headers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/ratelimit"
	"github.com/jobradar/jobradar/internal/scrape"
)

// maxResponseBodyBytes limits the size of fetched responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// defaultRequestTimeout bounds a single HTTP round trip.
const defaultRequestTimeout = 30 * time.Second

// botBlockMarkers are body fragments that indicate an explicit anti-scraping
// response rather than a plain authorization failure.
var botBlockMarkers = []string{
	"captcha",
	"cf-browser-verification",
	"access denied",
	"are you a robot",
	"unusual traffic",
}

// Response is a fetched HTTP response with the body fully read.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	URL        string
}

// Client fetches URLs under rate limiting with rotated headers.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	rotator    *ratelimit.HeaderRotator
	log        logger.Interface
	jitter     bool
}

// NewClient creates a fetch client. The limiter must not be nil; it is the
// only state shared between concurrent company tasks.
func NewClient(limiter *ratelimit.Limiter, log logger.Interface, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		rotator:    ratelimit.NewHeaderRotator(),
		log:        log,
		jitter:     true,
	}
}

// DisableJitter turns off the randomized inter-request delay. Test hook.
func (c *Client) DisableJitter() { c.jitter = false }

// Get fetches a URL. The returned error, when non-nil, is a *scrape.Error
// carrying the failure kind.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL)
}

// Head issues a HEAD request. Used by liveness checks.
func (c *Client) Head(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, http.MethodHead, rawURL)
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, scrape.NewError(scrape.KindParse, "parse url", err)
	}

	if acquireErr := c.limiter.Acquire(ctx, parsed.Hostname()); acquireErr != nil {
		return nil, scrape.NewError(scrape.KindTimeout, "acquire rate limit slot", acquireErr)
	}

	if c.jitter {
		select {
		case <-ctx.Done():
			return nil, scrape.NewError(scrape.KindTimeout, "jitter wait", ctx.Err())
		case <-time.After(c.limiter.Jitter()):
		}
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if reqErr != nil {
		return nil, scrape.NewError(scrape.KindParse, "create request", reqErr)
	}
	c.rotator.Apply(req)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, classifyTransportError(doErr)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)
	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, scrape.NewError(scrape.KindNetwork, "read response body", readErr)
	}
	scrape.CountBytes(ctx, len(body))

	out := &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
		URL:        rawURL,
	}

	if statusErr := classifyStatus(out); statusErr != nil {
		return out, statusErr
	}
	return out, nil
}

// classifyTransportError maps transport failures onto the error taxonomy.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return scrape.NewError(scrape.KindTimeout, "http fetch", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return scrape.NewError(scrape.KindTimeout, "http fetch", err)
	}
	return scrape.NewError(scrape.KindNetwork, "http fetch", err)
}

// classifyStatus maps non-2xx responses onto the error taxonomy. 2xx
// responses return nil.
func classifyStatus(resp *Response) error {
	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return scrape.NewError(scrape.KindRateLimit, "http status",
			fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusUnauthorized:
		return scrape.NewError(scrape.KindAuthentication, "http status",
			fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusForbidden:
		if looksBotBlocked(resp.Body) {
			return scrape.NewError(scrape.KindBotBlock, "http status",
				fmt.Errorf("status %d with challenge marker", resp.StatusCode))
		}
		return scrape.NewError(scrape.KindAuthentication, "http status",
			fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusInternalServerError:
		return scrape.NewError(scrape.KindNetwork, "http status",
			fmt.Errorf("status %d", resp.StatusCode))
	default:
		return scrape.NewError(scrape.KindParse, "http status",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

// looksBotBlocked scans a response body for anti-scraping challenge markers.
func looksBotBlocked(body []byte) bool {
	lowered := strings.ToLower(string(body))
	for _, marker := range botBlockMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
