package strategy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/scrape"
	"github.com/jobradar/jobradar/internal/scrape/strategy"
)

func careerPageCompany(body string) (*domain.CompanyConfig, *fakeFetcher) {
	company := &domain.CompanyConfig{
		ID:            "acme",
		Name:          "Acme",
		CareerPageURL: "https://acme.example/careers",
	}
	fetcher := &fakeFetcher{bodies: map[string]string{company.CareerPageURL: body}}
	return company, fetcher
}

func TestMarkupStrategy_SinglePosting(t *testing.T) {
	t.Parallel()

	company, fetcher := careerPageCompany(`<html><head>
<script type="application/ld+json">
{
  "@type": "JobPosting",
  "title": "Senior Backend Engineer",
  "description": "<p>Design and run services.</p>",
  "datePosted": "2026-08-10",
  "url": "https://acme.example/jobs/1",
  "hiringOrganization": {"name": "Acme Inc."},
  "jobLocation": {"address": {"addressLocality": "Toronto", "addressRegion": "ON", "addressCountry": "CA"}},
  "baseSalary": {"currency": "CAD", "value": {"minValue": 120000, "maxValue": 150000, "unitText": "YEAR"}}
}
</script>
</head><body></body></html>`)

	s := strategy.NewMarkupStrategy(fetcher, logger.NewNoOp())
	jobs, err := s.Extract(context.Background(), company)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	job := jobs[0]
	assert.Equal(t, "Senior Backend Engineer", job.Title)
	assert.Equal(t, "Acme Inc.", job.Company, "hiringOrganization wins over the configured name")
	assert.Equal(t, "Design and run services.", job.Description)
	assert.Equal(t, "Toronto, ON, CA", job.Location.Raw)
	assert.Equal(t, "CA", job.Location.CountryCode)
	assert.Equal(t, domain.MethodMarkup, job.Source.Method)
	require.NotNil(t, job.Salary)
	assert.Equal(t, 120000.0, job.Salary.Min)
	assert.Equal(t, domain.SalaryYearly, job.Salary.Period)
}

func TestMarkupStrategy_GraphAndArrayContainers(t *testing.T) {
	t.Parallel()

	company, fetcher := careerPageCompany(`<html><body>
<script type="application/ld+json">
{"@graph": [
  {"@type": "Organization", "name": "Acme"},
  {"@type": "JobPosting", "title": "Engineer A", "url": "https://acme.example/jobs/a"},
  {"@type": "JobPosting", "title": "Engineer B", "url": "https://acme.example/jobs/b"}
]}
</script>
<script type="application/ld+json">
[{"@type": "JobPosting", "title": "Engineer C", "url": "https://acme.example/jobs/c"}]
</script>
</body></html>`)

	s := strategy.NewMarkupStrategy(fetcher, logger.NewNoOp())
	jobs, err := s.Extract(context.Background(), company)

	require.NoError(t, err)
	assert.Len(t, jobs, 3, "graph members and array elements both count; non-postings are skipped")
}

func TestMarkupStrategy_TelecommuteIsRemote(t *testing.T) {
	t.Parallel()

	company, fetcher := careerPageCompany(`<html><body>
<script type="application/ld+json">
{"@type": "JobPosting", "title": "Support Engineer", "jobLocationType": "TELECOMMUTE"}
</script>
</body></html>`)

	s := strategy.NewMarkupStrategy(fetcher, logger.NewNoOp())
	jobs, err := s.Extract(context.Background(), company)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].Location.Remote)
}

func TestMarkupStrategy_NoMarkupIsParseError(t *testing.T) {
	t.Parallel()

	company, fetcher := careerPageCompany(`<html><body><h1>Careers</h1></body></html>`)

	s := strategy.NewMarkupStrategy(fetcher, logger.NewNoOp())
	_, err := s.Extract(context.Background(), company)

	require.Error(t, err)
	assert.Equal(t, scrape.KindParse, scrape.KindOf(err))
}

func TestMarkupStrategy_NotApplicableWithoutCareerPage(t *testing.T) {
	t.Parallel()

	s := strategy.NewMarkupStrategy(&fakeFetcher{}, logger.NewNoOp())
	_, err := s.Extract(context.Background(), &domain.CompanyConfig{Name: "Acme"})
	assert.ErrorIs(t, err, scrape.ErrNotApplicable)
}
