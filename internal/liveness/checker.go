// Package liveness verifies that stored postings are still open and scores
// the likelihood that a posting is a ghost job.
package liveness

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/scrape"
)

// Check outcomes recorded in the liveness log.
const (
	OutcomeConfirmed    = "confirmed"
	OutcomeRemoved      = "removed"
	OutcomeMissing      = "missing"
	OutcomeInconclusive = "inconclusive"
)

// Trust score adjustments per check outcome.
const (
	trustGainConfirmed = 5
	trustLossMiss      = 10
)

// removedMarkers are body fragments indicating the posting was taken down
// even though the page still resolves.
var removedMarkers = []string{
	"no longer accepting applications",
	"this position has been filled",
	"this job is no longer available",
	"posting has closed",
	"job not found",
	"this role has been closed",
}

// Fetcher is the HTTP surface the checker depends on.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
	Head(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// CheckerConfig tunes liveness transitions.
type CheckerConfig struct {
	// MissThreshold is the consecutive-miss count at which a gone posting
	// is declared expired, or an unreachable one stale.
	MissThreshold int
}

// WithDefaults fills unset fields.
func (c CheckerConfig) WithDefaults() CheckerConfig {
	if c.MissThreshold <= 0 {
		c.MissThreshold = 3
	}
	return c
}

// Checker probes a posting's URL and applies the outcome to its liveness
// state. An inconclusive probe is never conflated with confirmed closure:
// trust is untouched and the posting only goes stale, not expired, after
// the host stays unreachable across consecutive checks.
type Checker struct {
	fetcher Fetcher
	cfg     CheckerConfig
	log     logger.Interface
	now     func() time.Time
}

// NewChecker creates a liveness checker.
func NewChecker(fetcher Fetcher, cfg CheckerConfig, log logger.Interface) *Checker {
	return &Checker{
		fetcher: fetcher,
		cfg:     cfg.WithDefaults(),
		log:     log.WithComponent("liveness"),
		now:     time.Now,
	}
}

// Check probes the posting URL, mutates the posting's liveness state, and
// returns the log entry describing the check.
func (c *Checker) Check(ctx context.Context, p *domain.JobPosting) *domain.LivenessCheck {
	check := &domain.LivenessCheck{
		JobID:     p.ID,
		CheckedAt: c.now().UTC(),
	}

	outcome, httpCode, detail := c.probe(ctx, p.URL)
	check.Outcome = outcome
	check.HTTPCode = httpCode
	check.Detail = detail

	c.apply(p, check)
	check.Status = p.Status
	return check
}

// probe resolves the posting URL. HEAD first for cheap gone-detection; a
// resolving page still needs a GET so removal markers in the body are seen.
func (c *Checker) probe(ctx context.Context, rawURL string) (outcome string, httpCode int, detail string) {
	head, headErr := c.fetcher.Head(ctx, rawURL)
	if head != nil && isGone(head.StatusCode) {
		return OutcomeMissing, head.StatusCode, "page gone"
	}
	if headErr != nil && head == nil {
		// Transport failure with no response. Retry the probe as GET once;
		// some servers reject HEAD outright.
		if kind := scrape.KindOf(headErr); kind == scrape.KindTimeout {
			return OutcomeInconclusive, 0, "head timeout"
		}
	}

	resp, getErr := c.fetcher.Get(ctx, rawURL)
	if resp == nil {
		return OutcomeInconclusive, 0, "unreachable: " + errDetail(getErr)
	}
	if isGone(resp.StatusCode) {
		return OutcomeMissing, resp.StatusCode, "page gone"
	}
	if getErr != nil {
		// Rate limits, bot blocks, and server errors say nothing about the
		// posting itself.
		return OutcomeInconclusive, resp.StatusCode, errDetail(getErr)
	}

	if marker := findRemovedMarker(resp.Body); marker != "" {
		return OutcomeRemoved, resp.StatusCode, "marker: " + marker
	}
	return OutcomeConfirmed, resp.StatusCode, ""
}

// apply folds a check outcome into the posting's liveness state.
func (c *Checker) apply(p *domain.JobPosting, check *domain.LivenessCheck) {
	now := check.CheckedAt
	p.LastCheckedAt = &now

	switch check.Outcome {
	case OutcomeConfirmed:
		p.Status = domain.LivenessActive
		p.ConsecutiveMiss = 0
		p.TrustScore = clampScore(p.TrustScore + trustGainConfirmed)

	case OutcomeRemoved:
		// An explicit removal marker is definitive.
		p.Status = domain.LivenessExpired
		p.ExpiresAt = &now
		p.TrustScore = clampScore(p.TrustScore - trustLossMiss)

	case OutcomeMissing:
		p.ConsecutiveMiss++
		p.TrustScore = clampScore(p.TrustScore - trustLossMiss)
		if p.ConsecutiveMiss >= c.cfg.MissThreshold {
			p.Status = domain.LivenessExpired
			p.ExpiresAt = &now
		} else {
			p.Status = domain.LivenessStale
		}

	case OutcomeInconclusive:
		// Trust is untouched; an unreachable host says nothing definitive.
		// Repeated unreachability still counts: the posting goes stale at
		// the miss threshold but is never expired on inconclusive probes.
		p.ConsecutiveMiss++
		if p.ConsecutiveMiss >= c.cfg.MissThreshold {
			p.Status = domain.LivenessStale
		}
	}
}

// isGone reports whether the status code means the page no longer exists.
func isGone(code int) bool {
	return code == http.StatusNotFound || code == http.StatusGone
}

// findRemovedMarker returns the first removal marker present in the body.
func findRemovedMarker(body []byte) string {
	lowered := strings.ToLower(string(body))
	for _, marker := range removedMarkers {
		if strings.Contains(lowered, marker) {
			return marker
		}
	}
	return ""
}

func clampScore(score int) int {
	if score < domain.ScoreMin {
		return domain.ScoreMin
	}
	if score > domain.ScoreMax {
		return domain.ScoreMax
	}
	return score
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
