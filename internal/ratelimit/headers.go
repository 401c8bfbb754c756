package ratelimit

import (
	"net/http"
	"sync/atomic"
)

// userAgents is the fixed rotation pool for outbound requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// referrers is the pool of plausible referrer values.
var referrers = []string{
	"https://www.google.com/",
	"https://www.bing.com/",
	"https://duckduckgo.com/",
	"https://www.linkedin.com/",
	"",
}

// HeaderRotator hands out rotated User-Agent and Referer headers.
type HeaderRotator struct {
	uaIndex  atomic.Uint64
	refIndex atomic.Uint64
}

// NewHeaderRotator creates a header rotator.
func NewHeaderRotator() *HeaderRotator {
	return &HeaderRotator{}
}

// UserAgent returns the next user agent in the rotation.
func (h *HeaderRotator) UserAgent() string {
	i := h.uaIndex.Add(1)
	return userAgents[i%uint64(len(userAgents))]
}

// Referrer returns the next referrer in the rotation. May be empty.
func (h *HeaderRotator) Referrer() string {
	i := h.refIndex.Add(1)
	return referrers[i%uint64(len(referrers))]
}

// Apply sets the rotated anti-detection headers on an outbound request.
func (h *HeaderRotator) Apply(req *http.Request) {
	req.Header.Set("User-Agent", h.UserAgent())
	if ref := h.Referrer(); ref != "" {
		req.Header.Set("Referer", ref)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
}
