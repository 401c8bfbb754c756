package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/scrape"
)

// MarkupStrategy parses embedded Schema.org JobPosting JSON-LD from the
// career page.
type MarkupStrategy struct {
	fetcher Fetcher
	log     logger.Interface
}

// NewMarkupStrategy creates the structured-markup strategy.
func NewMarkupStrategy(fetcher Fetcher, log logger.Interface) *MarkupStrategy {
	return &MarkupStrategy{fetcher: fetcher, log: log.WithComponent("strategy.markup")}
}

// Name identifies the strategy.
func (s *MarkupStrategy) Name() string { return "schema_org_markup" }

// Method returns the extraction method.
func (s *MarkupStrategy) Method() domain.ExtractionMethod { return domain.MethodMarkup }

// Extract fetches the career page and collects JobPosting JSON-LD nodes.
func (s *MarkupStrategy) Extract(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error) {
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

	var jobs []domain.ScrapedJob
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		jobs = append(jobs, postingsFromJSONLD([]byte(sel.Text()), company)...)
	})

	if len(jobs) == 0 {
		return nil, scrape.NewError(scrape.KindParse, "jsonld scan",
			errors.New("no JobPosting markup found"))
	}
	return jobs, nil
}

// jsonldPosting mirrors the Schema.org JobPosting fields we consume.
type jsonldPosting struct {
	Type        any               `json:"@type"`
	Graph       []json.RawMessage `json:"@graph"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	DatePosted  string            `json:"datePosted"`
	ValidThru   string            `json:"validThrough"`
	URL         string            `json:"url"`
	Employment  string            `json:"employmentType"`
	HiringOrg   struct {
		Name string `json:"name"`
	} `json:"hiringOrganization"`
	JobLocation json.RawMessage `json:"jobLocation"`
	LocationTyp string          `json:"jobLocationType"`
	BaseSalary  *struct {
		Currency string `json:"currency"`
		Value    struct {
			MinValue float64 `json:"minValue"`
			MaxValue float64 `json:"maxValue"`
			Value    float64 `json:"value"`
			UnitText string  `json:"unitText"`
		} `json:"value"`
	} `json:"baseSalary"`
}

// postingsFromJSONLD decodes a JSON-LD block. Handles a single posting, an
// array of postings, and @graph containers. Malformed blocks are skipped.
func postingsFromJSONLD(data []byte, company *domain.CompanyConfig) []domain.ScrapedJob {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	// Array payloads: recurse per element.
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		var jobs []domain.ScrapedJob
		for _, item := range items {
			jobs = append(jobs, postingsFromJSONLD(item, company)...)
		}
		return jobs
	}

	var node jsonldPosting
	if err := json.Unmarshal(trimmed, &node); err != nil {
		return nil
	}

	if len(node.Graph) > 0 {
		var jobs []domain.ScrapedJob
		for _, item := range node.Graph {
			jobs = append(jobs, postingsFromJSONLD(item, company)...)
		}
		return jobs
	}

	if !isJobPostingType(node.Type) {
		return nil
	}

	job := domain.ScrapedJob{
		Title:       node.Title,
		Company:     firstNonEmpty(node.HiringOrg.Name, company.Name),
		Location:    jsonldLocation(node),
		Description: stripTags(node.Description),
		Source: domain.JobSource{
			Type:   domain.SourceCareerPage,
			URL:    firstNonEmpty(node.URL, company.CareerPageURL),
			Method: domain.MethodMarkup,
		},
		ApplicationURL: node.URL,
		PostedAt:       parseJSONLDDate(node.DatePosted),
	}
	if node.BaseSalary != nil {
		job.Salary = &domain.Salary{
			Min:      firstNonZero(node.BaseSalary.Value.MinValue, node.BaseSalary.Value.Value),
			Max:      firstNonZero(node.BaseSalary.Value.MaxValue, node.BaseSalary.Value.Value),
			Currency: node.BaseSalary.Currency,
			Period:   salaryPeriodFromUnit(node.BaseSalary.Value.UnitText),
		}
	}
	return []domain.ScrapedJob{job}
}

// isJobPostingType accepts both string and array @type values.
func isJobPostingType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "JobPosting"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

// jsonldLocation resolves the location from jobLocation or jobLocationType.
func jsonldLocation(node jsonldPosting) domain.Location {
	if node.LocationTyp == "TELECOMMUTE" {
		return domain.NewLocation("Remote")
	}

	// jobLocation may be an object or an array of Place objects.
	type place struct {
		Address struct {
			Locality string `json:"addressLocality"`
			Region   string `json:"addressRegion"`
			Country  string `json:"addressCountry"`
		} `json:"address"`
	}

	var single place
	if err := json.Unmarshal(node.JobLocation, &single); err == nil {
		if loc := joinPlace(single.Address.Locality, single.Address.Region, single.Address.Country); loc != "" {
			l := domain.NewLocation(loc)
			l.CountryCode = countryCode(single.Address.Country)
			return l
		}
	}

	var many []place
	if err := json.Unmarshal(node.JobLocation, &many); err == nil && len(many) > 0 {
		a := many[0].Address
		if loc := joinPlace(a.Locality, a.Region, a.Country); loc != "" {
			l := domain.NewLocation(loc)
			l.CountryCode = countryCode(a.Country)
			return l
		}
	}

	return domain.Location{}
}

// joinPlace joins non-empty address parts with commas.
func joinPlace(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return joinComma(out)
}

func joinComma(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		s := parts[0]
		for _, p := range parts[1:] {
			s += ", " + p
		}
		return s
	}
}

// countryCode passes through two-letter codes and drops longer names.
func countryCode(country string) string {
	if len(country) == 2 {
		return country
	}
	return ""
}

// salaryPeriodFromUnit maps Schema.org unitText to the salary period enum.
func salaryPeriodFromUnit(unit string) domain.SalaryPeriod {
	switch unit {
	case "HOUR":
		return domain.SalaryHourly
	case "DAY":
		return domain.SalaryDaily
	case "MONTH":
		return domain.SalaryMonthly
	default:
		return domain.SalaryYearly
	}
}

// parseJSONLDDate accepts RFC3339 or bare dates.
func parseJSONLDDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// firstNonZero returns the first non-zero float.
func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
