package dedup_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/dedup"
	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
)

func newDeduper() *dedup.Deduplicator {
	return dedup.New(dedup.Config{}, logger.NewNoOp())
}

func scraped(title, company, location, url string, method domain.ExtractionMethod, postedAt time.Time) domain.ScrapedJob {
	return domain.ScrapedJob{
		Title:    title,
		Company:  company,
		Location: domain.NewLocation(location),
		Source: domain.JobSource{
			Type:   domain.SourceCareerPage,
			URL:    url,
			Method: method,
		},
		PostedAt:  postedAt,
		ScrapedAt: postedAt,
	}
}

func TestGroup_ExactDuplicateCollapse(t *testing.T) {
	t.Parallel()

	posted := time.Now().Add(-24 * time.Hour)
	jobs := []domain.ScrapedJob{
		scraped("Senior Backend Engineer", "Acme", "Remote",
			"https://boards.example/acme/1", domain.MethodDOM, posted),
		scraped("Senior Backend Engineer", "Acme", "Remote",
			"https://acme.example/careers/1", domain.MethodAPI, posted),
	}

	groups := newDeduper().Group(jobs)

	require.Len(t, groups, 1)
	assert.Equal(t, domain.MergeExactHash, groups[0].Reason)
	assert.Equal(t, 1.0, groups[0].Confidence)
	assert.Len(t, groups[0].Duplicates, 1)
}

func TestGroup_CanonicalElectedByAuthority(t *testing.T) {
	t.Parallel()

	posted := time.Now().Add(-24 * time.Hour)
	jobs := []domain.ScrapedJob{
		scraped("Senior Backend Engineer", "Acme", "Remote",
			"https://boards.example/acme/1", domain.MethodDOM, posted),
		scraped("Senior Backend Engineer", "Acme", "Remote",
			"https://acme.example/careers/1", domain.MethodAPI, posted),
	}

	groups := newDeduper().Group(jobs)

	require.Len(t, groups, 1)
	assert.Equal(t, domain.MethodAPI, groups[0].Canonical.Source.Method,
		"API extraction outranks DOM when electing the canonical record")
}

func TestGroup_CanonicalURLMerge(t *testing.T) {
	t.Parallel()

	posted := time.Now().Add(-24 * time.Hour)
	jobs := []domain.ScrapedJob{
		scraped("Backend Engineer", "Acme", "Toronto",
			"https://acme.example/careers/42?utm_source=linkedin", domain.MethodDOM, posted),
		// Different location text gives a different identity hash, but the
		// stripped URL is the same posting.
		scraped("Backend Engineer", "Acme", "Toronto, ON",
			"https://acme.example/careers/42/", domain.MethodDOM, posted),
	}

	groups := newDeduper().Group(jobs)

	require.Len(t, groups, 1)
	assert.Equal(t, domain.MergeCanonicalURL, groups[0].Reason)
	assert.Equal(t, 0.95, groups[0].Confidence)
}

func TestGroup_FuzzyMergeWithinWindow(t *testing.T) {
	t.Parallel()

	now := time.Now()
	jobs := []domain.ScrapedJob{
		scraped("Sr. Backend Engineer", "Acme Inc.", "Remote",
			"https://acme.example/jobs/a", domain.MethodDOM, now.Add(-2*24*time.Hour)),
		scraped("Senior Backend Engineer", "Acme", "Remote (US)",
			"https://acme.example/jobs/b", domain.MethodDOM, now),
	}

	groups := newDeduper().Group(jobs)

	require.Len(t, groups, 1)
	assert.Equal(t, domain.MergeFuzzy, groups[0].Reason)
	assert.GreaterOrEqual(t, groups[0].Confidence, 0.85)
	assert.LessOrEqual(t, groups[0].Confidence, 1.0)
}

func TestGroup_FuzzyOutsideWindowStaysSeparate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	jobs := []domain.ScrapedJob{
		scraped("Sr. Backend Engineer", "Acme Inc.", "Remote",
			"https://acme.example/jobs/a", domain.MethodDOM, now.Add(-10*24*time.Hour)),
		scraped("Senior Backend Engineer", "Acme", "Remote (US)",
			"https://acme.example/jobs/b", domain.MethodDOM, now),
	}

	groups := newDeduper().Group(jobs)
	assert.Len(t, groups, 2, "postings 10 days apart fall outside the fuzzy window")
}

func TestGroup_DifferentCitiesStaySeparate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	jobs := []domain.ScrapedJob{
		scraped("Senior Backend Engineer", "Acme", "Toronto",
			"https://acme.example/jobs/a", domain.MethodDOM, now.Add(-24*time.Hour)),
		scraped("Senior Backend Engineer", "Acme", "Vancouver",
			"https://acme.example/jobs/b", domain.MethodDOM, now),
	}

	groups := newDeduper().Group(jobs)
	assert.Len(t, groups, 2, "the same role open in two cities is two postings")
}

func TestGroup_DifferentCompaniesNeverFuzzyMerge(t *testing.T) {
	t.Parallel()

	now := time.Now()
	jobs := []domain.ScrapedJob{
		scraped("Senior Backend Engineer", "Acme", "Remote",
			"https://acme.example/jobs/a", domain.MethodDOM, now),
		scraped("Senior Backend Engineer", "Globex", "Remote",
			"https://globex.example/jobs/a", domain.MethodDOM, now),
	}

	groups := newDeduper().Group(jobs)
	assert.Len(t, groups, 2)
}

func TestGroup_Idempotent(t *testing.T) {
	t.Parallel()

	now := time.Now()
	jobs := []domain.ScrapedJob{
		scraped("Sr. Backend Engineer", "Acme Inc.", "Remote",
			"https://acme.example/jobs/a", domain.MethodDOM, now.Add(-24*time.Hour)),
		scraped("Senior Backend Engineer", "Acme", "Remote",
			"https://acme.example/jobs/b", domain.MethodAPI, now),
		scraped("Data Scientist", "Globex", "Toronto",
			"https://globex.example/jobs/1", domain.MethodMarkup, now),
	}

	d := newDeduper()
	first := d.Group(jobs)

	canonicals := make([]domain.ScrapedJob, 0, len(first))
	for _, g := range first {
		canonicals = append(canonicals, *g.Canonical)
	}

	second := d.Group(canonicals)
	require.Len(t, second, len(first))
	for i := range second {
		assert.Empty(t, second[i].Duplicates, "re-grouping canonical output must not merge further")
		assert.Equal(t, first[i].Canonical.IdentityHash(), second[i].Canonical.IdentityHash())
	}
}

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips tracking params",
			in:   "https://acme.example/jobs/1?utm_source=linkedin&utm_medium=social&gclid=xyz",
			want: "https://acme.example/jobs/1",
		},
		{
			name: "keeps meaningful params sorted",
			in:   "https://acme.example/jobs?page=2&dept=eng",
			want: "https://acme.example/jobs?dept=eng&page=2",
		},
		{
			name: "drops fragment and trailing slash",
			in:   "https://acme.example/jobs/1/#apply",
			want: "https://acme.example/jobs/1",
		},
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Acme.Example/jobs/1",
			want: "https://acme.example/jobs/1",
		},
		{
			name: "unparseable input unchanged",
			in:   "not a url",
			want: "not a url",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := dedup.CanonicalURL(tc.in); got != tc.want {
				t.Errorf("CanonicalURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
