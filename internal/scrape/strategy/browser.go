package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/ratelimit"
	"github.com/jobradar/jobradar/internal/scrape"
)

// Browser rendering settings.
const (
	browserNavTimeoutMs = 45000
	settleDelayMin      = 800
	settleDelayMax      = 2500
)

// Renderer renders a page in a real browser and returns the resulting HTML.
// Satisfied by *PlaywrightRenderer; narrowed so tests can substitute a fake.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
	Close() error
}

// PlaywrightRenderer renders pages with a headless Chromium instance.
type PlaywrightRenderer struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	userAgent string
}

// NewPlaywrightRenderer launches a headless browser. The caller owns the
// renderer and must Close it.
func NewPlaywrightRenderer(userAgent string) (*PlaywrightRenderer, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, launchErr := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if launchErr != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", launchErr)
	}

	return &PlaywrightRenderer{pw: pw, browser: browser, userAgent: userAgent}, nil
}

// Render loads the page, waits for client-side rendering to settle, and
// returns the rendered HTML.
func (r *PlaywrightRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	browserCtx, err := r.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(r.userAgent),
	})
	if err != nil {
		return "", fmt.Errorf("new browser context: %w", err)
	}
	defer browserCtx.Close()

	page, pageErr := browserCtx.NewPage()
	if pageErr != nil {
		return "", fmt.Errorf("new page: %w", pageErr)
	}

	if _, gotoErr := page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(browserNavTimeoutMs),
	}); gotoErr != nil {
		return "", fmt.Errorf("goto %s: %w", pageURL, gotoErr)
	}

	// Scroll and idle briefly so lazy-loaded listings render.
	if _, evalErr := page.Evaluate("window.scrollBy(0, document.body.scrollHeight)"); evalErr == nil {
		settleDelay(ctx)
	}

	html, contentErr := page.Content()
	if contentErr != nil {
		return "", fmt.Errorf("page content: %w", contentErr)
	}
	return html, nil
}

// Close shuts down the browser and the playwright driver.
func (r *PlaywrightRenderer) Close() error {
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			return fmt.Errorf("close browser: %w", err)
		}
	}
	if r.pw != nil {
		if err := r.pw.Stop(); err != nil {
			return fmt.Errorf("stop playwright: %w", err)
		}
	}
	return nil
}

// settleDelay waits a human-ish random interval, or less if ctx ends.
func settleDelay(ctx context.Context) {
	d := time.Duration(settleDelayMin+rand.Intn(settleDelayMax-settleDelayMin)) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// BrowserStrategy renders the career page in a headless browser to handle
// client-side rendering, then applies the company's selectors to the
// rendered HTML. Highest cost, last resort.
type BrowserStrategy struct {
	renderer Renderer
	limiter  *ratelimit.Limiter
	log      logger.Interface
}

// NewBrowserStrategy creates the browser-automation strategy. A nil
// renderer makes the strategy report not applicable for every company.
func NewBrowserStrategy(renderer Renderer, limiter *ratelimit.Limiter, log logger.Interface) *BrowserStrategy {
	return &BrowserStrategy{
		renderer: renderer,
		limiter:  limiter,
		log:      log.WithComponent("strategy.browser"),
	}
}

// Name identifies the strategy.
func (s *BrowserStrategy) Name() string { return "browser_render" }

// Method returns the extraction method.
func (s *BrowserStrategy) Method() domain.ExtractionMethod { return domain.MethodBrowser }

// Extract renders the page and scans it with the configured selectors.
func (s *BrowserStrategy) Extract(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error) {
	if s.renderer == nil || company.CareerPageURL == "" || !company.HasSelectors() {
		return nil, scrape.ErrNotApplicable
	}

	if err := s.limiter.Acquire(ctx, hostOf(company.CareerPageURL)); err != nil {
		return nil, scrape.NewError(scrape.KindTimeout, "acquire rate limit slot", err)
	}

	html, renderErr := s.renderer.Render(ctx, company.CareerPageURL)
	if renderErr != nil {
		if errors.Is(renderErr, context.DeadlineExceeded) {
			return nil, scrape.NewError(scrape.KindTimeout, "render page", renderErr)
		}
		return nil, scrape.NewError(scrape.KindNetwork, "render page", renderErr)
	}
	scrape.CountBytes(ctx, len(html))

	doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if parseErr != nil {
		return nil, scrape.NewError(scrape.KindParse, "parse rendered html", parseErr)
	}

	sel := company.Selectors
	var jobs []domain.ScrapedJob
	doc.Find(sel.JobList).Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find(sel.Title).First().Text())
		if title == "" {
			return
		}

		link, _ := item.Find(sel.Link).First().Attr("href")
		link = absoluteURL(company.CareerPageURL, link)

		job := domain.ScrapedJob{
			Title:   title,
			Company: company.Name,
			Source: domain.JobSource{
				Type:   domain.SourceCareerPage,
				URL:    firstNonEmpty(link, company.CareerPageURL),
				Method: domain.MethodBrowser,
			},
			ApplicationURL: link,
		}
		if sel.Location != "" {
			job.Location = domain.NewLocation(strings.TrimSpace(item.Find(sel.Location).First().Text()))
		}
		if sel.Description != "" {
			job.Description = strings.TrimSpace(item.Find(sel.Description).First().Text())
		}
		jobs = append(jobs, job)
	})

	if len(jobs) == 0 {
		return nil, scrape.NewError(scrape.KindParse, "selector scan",
			errors.New("selectors matched no jobs in rendered page"))
	}
	return jobs, nil
}
