package scrape

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
)

// Default engine settings.
const (
	DefaultMaxConcurrent  = 10
	DefaultCompanyTimeout = 2 * time.Minute
	DefaultBatchSize      = 50
	DefaultMaxAttempts    = 3
	DefaultBackoffBase    = 500 * time.Millisecond
	maxBackoff            = 10 * time.Second
)

// Config holds scrape engine configuration.
type Config struct {
	MaxConcurrent  int           `yaml:"max_concurrent"`
	CompanyTimeout time.Duration `yaml:"company_timeout"`
	BatchSize      int           `yaml:"batch_size"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
}

// WithDefaults returns a copy of the config with defaults applied for
// zero-value fields.
func (c Config) WithDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.CompanyTimeout <= 0 {
		c.CompanyTimeout = DefaultCompanyTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	return c
}

// Engine runs the cascading strategy chain across companies with bounded
// concurrency. Constructed per run; strategies are tried in each company's
// declared order and the first to return at least one well-formed job wins.
type Engine struct {
	strategies map[domain.ExtractionMethod]Strategy
	cfg        Config
	log        logger.Interface
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewEngine creates a scrape engine over the given strategies.
func NewEngine(strategies []Strategy, cfg Config, log logger.Interface) *Engine {
	byMethod := make(map[domain.ExtractionMethod]Strategy, len(strategies))
	for _, s := range strategies {
		byMethod[s.Method()] = s
	}
	return &Engine{
		strategies: byMethod,
		cfg:        cfg.WithDefaults(),
		log:        log.WithComponent("scrape"),
		sleep:      sleepCtx,
	}
}

// Run scrapes all companies and returns one result per company. A company
// failure never aborts the batch. On cancellation, results collected so far
// are returned.
func (e *Engine) Run(ctx context.Context, companies []*domain.CompanyConfig) []ScrapingResult {
	started := time.Now()
	results := make([]ScrapingResult, 0, len(companies))

	// Batching bounds memory on large company lists: each batch completes
	// before the next begins.
	for start := 0; start < len(companies); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(companies) {
			end = len(companies)
		}

		results = append(results, e.runBatch(ctx, companies[start:end])...)

		if ctx.Err() != nil {
			e.log.Warn("scrape run cancelled",
				"completed", len(results),
				"total", len(companies),
			)
			break
		}
	}

	summary := Summarize(results, time.Since(started))
	e.log.Info("scrape run finished",
		"companies", summary.Companies,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"jobs", summary.Jobs,
		"duration", summary.Duration,
	)
	return results
}

// runBatch fans out one batch under the concurrency cap.
func (e *Engine) runBatch(ctx context.Context, companies []*domain.CompanyConfig) []ScrapingResult {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, e.cfg.MaxConcurrent)
	)
	results := make([]ScrapingResult, 0, len(companies))

	for _, company := range companies {
		select {
		case <-ctx.Done():
			return results
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(c *domain.CompanyConfig) {
			defer func() {
				<-sem
				wg.Done()
			}()

			result := e.scrapeCompany(ctx, c)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(company)
	}

	wg.Wait()
	return results
}

// scrapeCompany attempts the company's configured strategies in declared
// order within a per-company time box.
func (e *Engine) scrapeCompany(ctx context.Context, company *domain.CompanyConfig) ScrapingResult {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CompanyTimeout)
	defer cancel()
	ctx, bytesRead := WithByteCount(ctx)

	result := ScrapingResult{
		CompanyID:   company.ID,
		CompanyName: company.Name,
	}

	var lastErr error
	for _, method := range company.Strategies {
		if ctx.Err() != nil {
			lastErr = NewError(KindTimeout, "company time box", ctx.Err())
			break
		}

		strategy, ok := e.strategies[method]
		if !ok {
			e.log.Warn("no strategy registered for method",
				"company", company.Name,
				"method", string(method),
			)
			continue
		}

		jobs, err := e.tryStrategy(ctx, strategy, company)
		if errors.Is(err, ErrNotApplicable) {
			continue
		}

		result.Attempted = append(result.Attempted, strategy.Name())

		if err != nil {
			lastErr = err
			e.log.Debug("strategy failed, falling back",
				"company", company.Name,
				"strategy", strategy.Name(),
				"kind", string(KindOf(err)),
				"error", err,
			)
			continue
		}

		if len(jobs) > 0 {
			result.Success = true
			result.Jobs = jobs
			result.Method = method
			result.Duration = time.Since(started)
			result.BytesRead = bytesRead.Load()
			e.log.Info("company scraped",
				"company", company.Name,
				"method", string(method),
				"jobs", len(jobs),
				"duration", result.Duration,
			)
			return result
		}
	}

	result.Duration = time.Since(started)
	result.BytesRead = bytesRead.Load()
	if lastErr != nil {
		result.ErrorKind = KindOf(lastErr)
		result.Error = lastErr.Error()
	}
	e.log.Warn("company yielded no jobs",
		"company", company.Name,
		"attempted", result.Attempted,
		"error", result.Error,
	)
	return result
}

// tryStrategy runs one strategy with bounded retries for retryable failures.
// Parse and authentication errors are returned immediately so the engine can
// fall back to the next strategy.
func (e *Engine) tryStrategy(
	ctx context.Context,
	strategy Strategy,
	company *domain.CompanyConfig,
) ([]domain.ScrapedJob, error) {
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		jobs, err := strategy.Extract(ctx, company)
		if err == nil {
			return wellFormed(jobs), nil
		}
		if errors.Is(err, ErrNotApplicable) {
			return nil, err
		}

		lastErr = err
		if !KindOf(err).Retryable() || attempt == e.cfg.MaxAttempts {
			break
		}

		if sleepErr := e.sleep(ctx, backoffDelay(e.cfg.BackoffBase, attempt)); sleepErr != nil {
			return nil, NewError(KindTimeout, "retry backoff", sleepErr)
		}
	}

	return nil, lastErr
}

// wellFormed filters out jobs missing required fields and normalizes the
// rest.
func wellFormed(jobs []domain.ScrapedJob) []domain.ScrapedJob {
	now := time.Now()
	out := jobs[:0]
	for i := range jobs {
		if !jobs[i].WellFormed() {
			continue
		}
		if jobs[i].ScrapedAt.IsZero() {
			jobs[i].ScrapedAt = now
		}
		jobs[i].Normalize()
		out = append(out, jobs[i])
	}
	return out
}

// backoffDelay computes the exponential backoff delay for an attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// sleepCtx sleeps for d or returns the context error if cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
