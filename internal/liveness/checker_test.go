package liveness_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/liveness"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/scrape"
)

// fakeFetcher serves scripted responses for HEAD and GET.
type fakeFetcher struct {
	headResp *fetch.Response
	headErr  error
	getResp  *fetch.Response
	getErr   error
}

func (f *fakeFetcher) Head(context.Context, string) (*fetch.Response, error) {
	return f.headResp, f.headErr
}

func (f *fakeFetcher) Get(context.Context, string) (*fetch.Response, error) {
	return f.getResp, f.getErr
}

func ok(body string) *fetch.Response {
	return &fetch.Response{StatusCode: http.StatusOK, Body: []byte(body)}
}

func gone(code int) (*fetch.Response, error) {
	return &fetch.Response{StatusCode: code},
		scrape.NewError(scrape.KindParse, "http status", errors.New("gone"))
}

func newChecker(f liveness.Fetcher) *liveness.Checker {
	return liveness.NewChecker(f, liveness.CheckerConfig{MissThreshold: 3}, logger.NewNoOp())
}

func posting(status domain.LivenessStatus) *domain.JobPosting {
	return &domain.JobPosting{
		ID:         "job-1",
		URL:        "https://acme.example/jobs/1",
		Status:     status,
		TrustScore: 50,
	}
}

func TestCheck_ConfirmedRaisesTrust(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{headResp: ok(""), getResp: ok("<html>Apply now</html>")}
	p := posting(domain.LivenessUnknown)

	check := newChecker(f).Check(context.Background(), p)

	assert.Equal(t, liveness.OutcomeConfirmed, check.Outcome)
	assert.Equal(t, domain.LivenessActive, p.Status)
	assert.Equal(t, 55, p.TrustScore)
	assert.Zero(t, p.ConsecutiveMiss)
	require.NotNil(t, p.LastCheckedAt)
}

func TestCheck_RemovedMarkerExpiresImmediately(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		headResp: ok(""),
		getResp:  ok("<html>This position has been filled.</html>"),
	}
	p := posting(domain.LivenessActive)

	check := newChecker(f).Check(context.Background(), p)

	assert.Equal(t, liveness.OutcomeRemoved, check.Outcome)
	assert.Equal(t, domain.LivenessExpired, p.Status)
	require.NotNil(t, p.ExpiresAt, "removal markers expire without waiting for the miss threshold")
	assert.Equal(t, 40, p.TrustScore)
}

func TestCheck_NotFoundCountsTowardExpiry(t *testing.T) {
	t.Parallel()

	headResp, headErr := gone(http.StatusNotFound)
	f := &fakeFetcher{headResp: headResp, headErr: headErr}
	p := posting(domain.LivenessActive)
	checker := newChecker(f)

	// Misses one and two leave the posting stale.
	for i := 1; i <= 2; i++ {
		check := checker.Check(context.Background(), p)
		assert.Equal(t, liveness.OutcomeMissing, check.Outcome)
		assert.Equal(t, domain.LivenessStale, p.Status)
		assert.Equal(t, i, p.ConsecutiveMiss)
		assert.Nil(t, p.ExpiresAt)
	}

	// The third consecutive miss crosses the threshold.
	checker.Check(context.Background(), p)
	assert.Equal(t, domain.LivenessExpired, p.Status)
	assert.Equal(t, 3, p.ConsecutiveMiss)
	assert.NotNil(t, p.ExpiresAt)
	assert.Equal(t, 20, p.TrustScore)
}

func TestCheck_InconclusiveKeepsStatusBelowThreshold(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		headErr: scrape.NewError(scrape.KindTimeout, "http fetch", context.DeadlineExceeded),
		getErr:  scrape.NewError(scrape.KindTimeout, "http fetch", context.DeadlineExceeded),
	}
	p := posting(domain.LivenessActive)
	p.ConsecutiveMiss = 1
	before := time.Now().Add(-time.Hour)
	p.LastCheckedAt = &before

	check := newChecker(f).Check(context.Background(), p)

	assert.Equal(t, liveness.OutcomeInconclusive, check.Outcome)
	assert.Equal(t, domain.LivenessActive, p.Status, "a single timeout keeps the prior status")
	assert.Equal(t, 50, p.TrustScore, "inconclusive probes never move trust")
	assert.Equal(t, 2, p.ConsecutiveMiss)
	assert.True(t, p.LastCheckedAt.After(before))
}

func TestCheck_UnreachableHostGoesStaleAtThreshold(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		headErr: scrape.NewError(scrape.KindTimeout, "http fetch", context.DeadlineExceeded),
		getErr:  scrape.NewError(scrape.KindNetwork, "http fetch", errors.New("connection refused")),
	}
	p := posting(domain.LivenessActive)
	checker := newChecker(f)

	for i := 1; i <= 2; i++ {
		checker.Check(context.Background(), p)
		assert.Equal(t, domain.LivenessActive, p.Status)
		assert.Equal(t, i, p.ConsecutiveMiss)
	}

	checker.Check(context.Background(), p)
	assert.Equal(t, domain.LivenessStale, p.Status,
		"three consecutive unreachable checks go stale, not expired")
	assert.Nil(t, p.ExpiresAt)
	assert.Equal(t, 50, p.TrustScore)
}

func TestCheck_RateLimitedGetIsInconclusive(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		headResp: ok(""),
		getResp:  &fetch.Response{StatusCode: http.StatusTooManyRequests},
		getErr:   scrape.NewError(scrape.KindRateLimit, "http status", errors.New("status 429")),
	}
	p := posting(domain.LivenessActive)

	check := newChecker(f).Check(context.Background(), p)

	assert.Equal(t, liveness.OutcomeInconclusive, check.Outcome)
	assert.Equal(t, domain.LivenessActive, p.Status)
}

func TestCheck_TrustScoreClampedAtBounds(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{headResp: ok(""), getResp: ok("open role")}
	p := posting(domain.LivenessActive)
	p.TrustScore = 98

	newChecker(f).Check(context.Background(), p)
	assert.Equal(t, 100, p.TrustScore)

	headResp, headErr := gone(http.StatusGone)
	miss := &fakeFetcher{headResp: headResp, headErr: headErr}
	p.TrustScore = 5
	newChecker(miss).Check(context.Background(), p)
	assert.Equal(t, 0, p.TrustScore)
}
