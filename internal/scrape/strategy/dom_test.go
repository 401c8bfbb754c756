package strategy_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/ratelimit"
	"github.com/jobradar/jobradar/internal/scrape"
	"github.com/jobradar/jobradar/internal/scrape/strategy"
)

func openLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		DomainRate:  1000,
		DomainBurst: 1000,
		GlobalRate:  1000,
		GlobalBurst: 1000,
	})
}

func selectorCompany(pageURL string) *domain.CompanyConfig {
	return &domain.CompanyConfig{
		ID:            "acme",
		Name:          "Acme",
		CareerPageURL: pageURL,
		Strategies:    []domain.ExtractionMethod{domain.MethodDOM},
		Selectors: domain.Selectors{
			JobList:  "div.job",
			Title:    "h3",
			Location: "span.loc",
			Link:     "a",
		},
	}
}

func jobListHTML(titles ...string) string {
	page := "<html><body>"
	for i, title := range titles {
		page += fmt.Sprintf(
			`<div class="job"><h3>%s</h3><span class="loc">Remote</span><a href="/jobs/%d">View</a></div>`,
			title, i+1)
	}
	return page + "</body></html>"
}

func TestDOMStrategy_ExtractsWithSelectors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, jobListHTML("Backend Engineer", "Data Scientist"))
	}))
	defer srv.Close()

	s := strategy.NewDOMStrategy(openLimiter(), logger.NewNoOp())
	jobs, err := s.Extract(context.Background(), selectorCompany(srv.URL))

	require.NoError(t, err)
	require.Len(t, jobs, 2)

	byTitle := map[string]domain.ScrapedJob{}
	for _, j := range jobs {
		byTitle[j.Title] = j
	}
	job, ok := byTitle["Backend Engineer"]
	require.True(t, ok)
	assert.Equal(t, "Acme", job.Company)
	assert.True(t, job.Location.Remote)
	assert.Equal(t, srv.URL+"/jobs/1", job.Source.URL, "relative links resolve against the page")
	assert.Equal(t, domain.MethodDOM, job.Source.Method)
}

func TestDOMStrategy_NotApplicableWithoutSelectors(t *testing.T) {
	t.Parallel()

	s := strategy.NewDOMStrategy(openLimiter(), logger.NewNoOp())
	_, err := s.Extract(context.Background(), &domain.CompanyConfig{
		Name:          "Acme",
		CareerPageURL: "https://acme.example/careers",
	})
	assert.ErrorIs(t, err, scrape.ErrNotApplicable)
}

func TestDOMStrategy_NoMatchesIsParseError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><h1>We are not hiring</h1></body></html>")
	}))
	defer srv.Close()

	s := strategy.NewDOMStrategy(openLimiter(), logger.NewNoOp())
	_, err := s.Extract(context.Background(), selectorCompany(srv.URL))

	require.Error(t, err)
	assert.Equal(t, scrape.KindParse, scrape.KindOf(err))
}

func TestDOMStrategy_NextLinkPagination(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<div class="job"><h3>Engineer One</h3><span class="loc">Remote</span><a href="/jobs/1">View</a></div>
<a class="next" href="/careers/page2">Next</a>
</body></html>`)
	})
	mux.HandleFunc("/careers/page2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<div class="job"><h3>Engineer Two</h3><span class="loc">Remote</span><a href="/jobs/2">View</a></div>
</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	company := selectorCompany(srv.URL + "/careers")
	company.Pagination = domain.PaginationNextLink
	company.Selectors.NextPage = "a.next"

	s := strategy.NewDOMStrategy(openLimiter(), logger.NewNoOp())
	jobs, err := s.Extract(context.Background(), company)

	require.NoError(t, err)
	assert.Len(t, jobs, 2, "the next link is followed")
}
