package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/scrape"
)

// maxStateWalkDepth bounds recursion into hydration payloads.
const maxStateWalkDepth = 12

// statePatterns match serialized application state assignments in page
// scripts.
var statePatterns = []*regexp.Regexp{
	regexp.MustCompile(`window\.__INITIAL_STATE__\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`window\.__APP_STATE__\s*=\s*(\{.*?\});`),
	regexp.MustCompile(`window\.__PRELOADED_STATE__\s*=\s*(\{.*?\});`),
}

// EmbeddedStateStrategy extracts job data from hydration payloads embedded
// in the page markup, such as __NEXT_DATA__ blocks and window state
// assignments.
type EmbeddedStateStrategy struct {
	fetcher Fetcher
	log     logger.Interface
}

// NewEmbeddedStateStrategy creates the embedded-state strategy.
func NewEmbeddedStateStrategy(fetcher Fetcher, log logger.Interface) *EmbeddedStateStrategy {
	return &EmbeddedStateStrategy{fetcher: fetcher, log: log.WithComponent("strategy.embedded")}
}

// Name identifies the strategy.
func (s *EmbeddedStateStrategy) Name() string { return "embedded_state" }

// Method returns the extraction method.
func (s *EmbeddedStateStrategy) Method() domain.ExtractionMethod { return domain.MethodEmbedded }

// Extract fetches the page and walks any serialized state for job-shaped
// objects.
func (s *EmbeddedStateStrategy) Extract(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error) {
	if company.CareerPageURL == "" {
		return nil, scrape.ErrNotApplicable
	}

	resp, err := s.fetcher.Get(ctx, company.CareerPageURL)
	if err != nil {
		return nil, err
	}

	doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if parseErr != nil {
		return nil, scrape.NewError(scrape.KindParse, "parse html", parseErr)
	}

	var payloads [][]byte

	// Next.js puts the full hydration payload in a dedicated script element.
	if next := doc.Find("script#__NEXT_DATA__").First(); next.Length() > 0 {
		payloads = append(payloads, []byte(next.Text()))
	}

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		text := sel.Text()
		for _, pattern := range statePatterns {
			if m := pattern.FindStringSubmatch(text); m != nil {
				payloads = append(payloads, []byte(m[1]))
			}
		}
	})

	if len(payloads) == 0 {
		return nil, scrape.NewError(scrape.KindParse, "state scan",
			errors.New("no embedded state payload found"))
	}

	var jobs []domain.ScrapedJob
	for _, payload := range payloads {
		var state any
		if json.Unmarshal(payload, &state) != nil {
			continue
		}
		walkState(state, 0, func(obj map[string]any) {
			if job, ok := jobFromStateObject(obj, company); ok {
				jobs = append(jobs, job)
			}
		})
	}

	if len(jobs) == 0 {
		return nil, scrape.NewError(scrape.KindParse, "state walk",
			errors.New("no job-shaped objects in embedded state"))
	}
	return jobs, nil
}

// walkState visits every object in a decoded JSON value up to the depth cap.
func walkState(node any, depth int, visit func(map[string]any)) {
	if depth > maxStateWalkDepth {
		return
	}
	switch v := node.(type) {
	case map[string]any:
		visit(v)
		for _, child := range v {
			walkState(child, depth+1, visit)
		}
	case []any:
		for _, child := range v {
			walkState(child, depth+1, visit)
		}
	}
}

// jobFromStateObject interprets a state object as a job when it carries a
// title plus a posting URL or identifier.
func jobFromStateObject(obj map[string]any, company *domain.CompanyConfig) (domain.ScrapedJob, bool) {
	title := stringField(obj, "title", "jobTitle", "name", "text")
	if title == "" {
		return domain.ScrapedJob{}, false
	}

	jobURL := stringField(obj, "absolute_url", "absoluteUrl", "jobUrl", "hostedUrl", "applyUrl", "url")
	id := stringField(obj, "id", "jobId", "shortcode")
	if jobURL == "" && id == "" {
		return domain.ScrapedJob{}, false
	}

	// Require at least one more job-ish field so page chrome objects with a
	// title and url (links, cards) do not slip through.
	location := stringField(obj, "location", "office", "city")
	if location == "" {
		if nested, ok := obj["location"].(map[string]any); ok {
			location = stringField(nested, "name", "city")
		}
	}
	description := stringField(obj, "description", "descriptionPlain", "content")
	if location == "" && description == "" {
		return domain.ScrapedJob{}, false
	}

	if jobURL == "" {
		jobURL = company.CareerPageURL
	}

	job := domain.ScrapedJob{
		ExternalID:  id,
		Title:       title,
		Company:     company.Name,
		Location:    domain.NewLocation(location),
		Description: stripTags(description),
		Source: domain.JobSource{
			Type:   domain.SourceCareerPage,
			URL:    jobURL,
			Method: domain.MethodEmbedded,
		},
		ApplicationURL: jobURL,
		PostedAt:       timeField(obj, "createdAt", "publishedAt", "postedAt", "datePosted"),
	}
	return job, true
}

// stringField returns the first non-empty string value among the keys.
func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// timeField parses the first recognizable timestamp among the keys.
// Accepts RFC3339 strings, bare dates, and millisecond epochs.
func timeField(obj map[string]any, keys ...string) time.Time {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02"} {
				if t, err := time.Parse(layout, v); err == nil {
					return t.UTC()
				}
			}
		case float64:
			if v > 1e12 {
				return time.UnixMilli(int64(v)).UTC()
			}
			if v > 1e9 {
				return time.Unix(int64(v), 0).UTC()
			}
		}
	}
	return time.Time{}
}
