package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/ratelimit"
	"github.com/jobradar/jobradar/internal/scrape"
)

// DOM strategy defaults.
const (
	domMaxPages       = 20
	domParallelism    = 2
	domRandomDelay    = time.Second
	domRequestTimeout = 30 * time.Second
	pageQueryParam    = "page"
)

// DOMStrategy applies configured CSS selectors against static HTML via a
// colly collector. Handles none, query-param, and next-link pagination.
type DOMStrategy struct {
	limiter *ratelimit.Limiter
	rotator *ratelimit.HeaderRotator
	log     logger.Interface
}

// NewDOMStrategy creates the DOM-parsing strategy.
func NewDOMStrategy(limiter *ratelimit.Limiter, log logger.Interface) *DOMStrategy {
	return &DOMStrategy{
		limiter: limiter,
		rotator: ratelimit.NewHeaderRotator(),
		log:     log.WithComponent("strategy.dom"),
	}
}

// Name identifies the strategy.
func (s *DOMStrategy) Name() string { return "dom_selectors" }

// Method returns the extraction method.
func (s *DOMStrategy) Method() domain.ExtractionMethod { return domain.MethodDOM }

// Extract crawls the career page with the company's selectors.
func (s *DOMStrategy) Extract(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error) {
	if company.CareerPageURL == "" || !company.HasSelectors() {
		return nil, scrape.ErrNotApplicable
	}

	collector := colly.NewCollector(
		colly.UserAgent(s.rotator.UserAgent()),
		colly.MaxDepth(domMaxPages),
		colly.Async(true),
		colly.StdlibContext(ctx),
	)
	collector.SetRequestTimeout(domRequestTimeout)

	if limitErr := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: domParallelism,
		RandomDelay: domRandomDelay,
	}); limitErr != nil {
		return nil, scrape.NewError(scrape.KindParse, "set collector limit", limitErr)
	}

	var (
		mu       sync.Mutex
		jobs     []domain.ScrapedJob
		pages    int
		scanErr  error
		selector = company.Selectors
	)

	collector.OnRequest(func(r *colly.Request) {
		// The shared limiter still gates every colly request; colly's own
		// LimitRule only spaces them out.
		if err := s.limiter.Acquire(ctx, r.URL.Hostname()); err != nil {
			r.Abort()
			mu.Lock()
			scanErr = scrape.NewError(scrape.KindTimeout, "acquire rate limit slot", err)
			mu.Unlock()
			return
		}
		if ref := s.rotator.Referrer(); ref != "" {
			r.Headers.Set("Referer", ref)
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		scrape.CountBytes(ctx, len(r.Body))
	})

	collector.OnHTML(selector.JobList, func(e *colly.HTMLElement) {
		job := s.jobFromElement(e, company)
		if job.Title == "" {
			return
		}
		mu.Lock()
		jobs = append(jobs, job)
		mu.Unlock()
	})

	if company.Pagination == domain.PaginationNextLink && selector.NextPage != "" {
		collector.OnHTML(selector.NextPage, func(e *colly.HTMLElement) {
			mu.Lock()
			if pages >= domMaxPages {
				mu.Unlock()
				return
			}
			pages++
			mu.Unlock()

			next := e.Request.AbsoluteURL(e.Attr("href"))
			if next != "" {
				_ = e.Request.Visit(next)
			}
		})
	}

	collector.OnError(func(r *colly.Response, visitErr error) {
		mu.Lock()
		defer mu.Unlock()
		if scanErr == nil {
			scanErr = classifyCollyError(r, visitErr)
		}
	})

	urls, urlErr := s.startURLs(company)
	if urlErr != nil {
		return nil, urlErr
	}
	for _, u := range urls {
		if visitErr := collector.Visit(u); visitErr != nil &&
			!errors.As(visitErr, new(*colly.AlreadyVisitedError)) {
			mu.Lock()
			if scanErr == nil {
				scanErr = scrape.NewError(scrape.KindNetwork, "visit page", visitErr)
			}
			mu.Unlock()
		}
	}
	collector.Wait()

	if len(jobs) == 0 {
		if scanErr != nil {
			return nil, scanErr
		}
		return nil, scrape.NewError(scrape.KindParse, "selector scan",
			errors.New("selectors matched no jobs"))
	}
	return jobs, nil
}

// jobFromElement builds a job from one matched list element.
func (s *DOMStrategy) jobFromElement(e *colly.HTMLElement, company *domain.CompanyConfig) domain.ScrapedJob {
	sel := company.Selectors

	title := strings.TrimSpace(e.ChildText(sel.Title))
	link := e.Request.AbsoluteURL(e.ChildAttr(sel.Link, "href"))
	if link == "" {
		link = company.CareerPageURL
	}

	job := domain.ScrapedJob{
		Title:   title,
		Company: company.Name,
		Source: domain.JobSource{
			Type:   domain.SourceCareerPage,
			URL:    link,
			Method: domain.MethodDOM,
		},
		ApplicationURL: link,
	}
	if sel.Location != "" {
		job.Location = domain.NewLocation(strings.TrimSpace(e.ChildText(sel.Location)))
	}
	if sel.Description != "" {
		job.Description = strings.TrimSpace(e.ChildText(sel.Description))
	}
	return job
}

// startURLs expands the career page URL according to the pagination mode.
func (s *DOMStrategy) startURLs(company *domain.CompanyConfig) ([]string, error) {
	if company.Pagination != domain.PaginationQueryParam {
		return []string{company.CareerPageURL}, nil
	}

	base, err := url.Parse(company.CareerPageURL)
	if err != nil {
		return nil, scrape.NewError(scrape.KindParse, "parse career page url", err)
	}

	urls := make([]string, 0, domMaxPages)
	for page := 1; page <= domMaxPages; page++ {
		q := base.Query()
		q.Set(pageQueryParam, fmt.Sprintf("%d", page))
		base.RawQuery = q.Encode()
		urls = append(urls, base.String())
	}
	return urls, nil
}

// classifyCollyError maps a colly fetch failure onto the error taxonomy.
func classifyCollyError(r *colly.Response, err error) error {
	if r == nil {
		return scrape.NewError(scrape.KindNetwork, "fetch page", err)
	}
	switch {
	case r.StatusCode == 429:
		return scrape.NewError(scrape.KindRateLimit, "fetch page", err)
	case r.StatusCode == 401 || r.StatusCode == 403:
		return scrape.NewError(scrape.KindAuthentication, "fetch page", err)
	case errors.Is(err, context.DeadlineExceeded):
		return scrape.NewError(scrape.KindTimeout, "fetch page", err)
	default:
		return scrape.NewError(scrape.KindNetwork, "fetch page", err)
	}
}
