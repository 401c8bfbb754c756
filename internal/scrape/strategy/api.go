package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/scrape"
)

// ATS job-board API endpoints, keyed by board identifier.
const (
	greenhouseBoardURL = "https://boards-api.greenhouse.io/v1/boards/%s/jobs?content=true"
	leverPostingsURL   = "https://api.lever.co/v0/postings/%s?mode=json"
	ashbyBoardURL      = "https://api.ashbyhq.com/posting-api/job-board/%s"
)

// APIStrategy calls a known ATS's public job-board API. Fastest and most
// reliable; requires an ATS integration descriptor.
type APIStrategy struct {
	fetcher Fetcher
	log     logger.Interface
}

// NewAPIStrategy creates the direct API strategy.
func NewAPIStrategy(fetcher Fetcher, log logger.Interface) *APIStrategy {
	return &APIStrategy{fetcher: fetcher, log: log.WithComponent("strategy.api")}
}

// Name identifies the strategy.
func (s *APIStrategy) Name() string { return "ats_api" }

// Method returns the extraction method.
func (s *APIStrategy) Method() domain.ExtractionMethod { return domain.MethodAPI }

// Extract queries the configured ATS job board.
func (s *APIStrategy) Extract(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error) {
	if !company.HasATS() {
		return nil, scrape.ErrNotApplicable
	}

	switch company.ATS.Type {
	case domain.ATSGreenhouse:
		return s.extractGreenhouse(ctx, company)
	case domain.ATSLever:
		return s.extractLever(ctx, company)
	case domain.ATSAshby:
		return s.extractAshby(ctx, company)
	default:
		return nil, scrape.ErrNotApplicable
	}
}

// greenhouseResponse mirrors the boards-api jobs payload.
type greenhouseResponse struct {
	Jobs []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		Content     string `json:"content"`
		AbsoluteURL string `json:"absolute_url"`
		UpdatedAt   string `json:"updated_at"`
		FirstSeen   string `json:"first_published"`
		Location    struct {
			Name string `json:"name"`
		} `json:"location"`
	} `json:"jobs"`
}

func (s *APIStrategy) extractGreenhouse(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error) {
	resp, err := s.fetcher.Get(ctx, fmt.Sprintf(greenhouseBoardURL, company.ATS.BoardID))
	if err != nil {
		return nil, err
	}

	var payload greenhouseResponse
	if unmarshalErr := json.Unmarshal(resp.Body, &payload); unmarshalErr != nil {
		return nil, scrape.NewError(scrape.KindParse, "decode greenhouse payload", unmarshalErr)
	}

	jobs := make([]domain.ScrapedJob, 0, len(payload.Jobs))
	for _, j := range payload.Jobs {
		job := domain.ScrapedJob{
			ExternalID:  strconv.FormatInt(j.ID, 10),
			Title:       j.Title,
			Company:     company.Name,
			Location:    domain.NewLocation(j.Location.Name),
			Description: j.Content,
			Source: domain.JobSource{
				Type:   domain.SourceATS,
				URL:    j.AbsoluteURL,
				Method: domain.MethodAPI,
			},
			ApplicationURL: j.AbsoluteURL,
			PostedAt:       parseAPITime(j.FirstSeen, j.UpdatedAt),
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// leverPosting mirrors one entry of the Lever postings payload.
type leverPosting struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	DescriptionPlain string `json:"descriptionPlain"`
	HostedURL        string `json:"hostedUrl"`
	ApplyURL         string `json:"applyUrl"`
	CreatedAt        int64  `json:"createdAt"`
	Categories       struct {
		Location   string `json:"location"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
}

func (s *APIStrategy) extractLever(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error) {
	resp, err := s.fetcher.Get(ctx, fmt.Sprintf(leverPostingsURL, company.ATS.BoardID))
	if err != nil {
		return nil, err
	}

	var postings []leverPosting
	if unmarshalErr := json.Unmarshal(resp.Body, &postings); unmarshalErr != nil {
		return nil, scrape.NewError(scrape.KindParse, "decode lever payload", unmarshalErr)
	}

	jobs := make([]domain.ScrapedJob, 0, len(postings))
	for _, p := range postings {
		job := domain.ScrapedJob{
			ExternalID:     p.ID,
			Title:          p.Text,
			Company:        company.Name,
			Location:       domain.NewLocation(p.Categories.Location),
			Description:    p.DescriptionPlain,
			EmploymentType: leverCommitment(p.Categories.Commitment),
			Source: domain.JobSource{
				Type:   domain.SourceATS,
				URL:    p.HostedURL,
				Method: domain.MethodAPI,
			},
			ApplicationURL: p.ApplyURL,
			PostedAt:       time.UnixMilli(p.CreatedAt).UTC(),
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ashbyResponse mirrors the posting-api job-board payload.
type ashbyResponse struct {
	Jobs []struct {
		ID              string `json:"id"`
		Title           string `json:"title"`
		Location        string `json:"location"`
		EmploymentType  string `json:"employmentType"`
		DescriptionHTML string `json:"descriptionHtml"`
		JobURL          string `json:"jobUrl"`
		ApplyURL        string `json:"applyUrl"`
		PublishedAt     string `json:"publishedAt"`
		IsRemote        bool   `json:"isRemote"`
	} `json:"jobs"`
}

func (s *APIStrategy) extractAshby(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error) {
	resp, err := s.fetcher.Get(ctx, fmt.Sprintf(ashbyBoardURL, company.ATS.BoardID))
	if err != nil {
		return nil, err
	}

	var payload ashbyResponse
	if unmarshalErr := json.Unmarshal(resp.Body, &payload); unmarshalErr != nil {
		return nil, scrape.NewError(scrape.KindParse, "decode ashby payload", unmarshalErr)
	}

	jobs := make([]domain.ScrapedJob, 0, len(payload.Jobs))
	for _, j := range payload.Jobs {
		loc := domain.NewLocation(j.Location)
		if j.IsRemote {
			loc.Remote = true
		}
		job := domain.ScrapedJob{
			ExternalID:  j.ID,
			Title:       j.Title,
			Company:     company.Name,
			Location:    loc,
			Description: stripTags(j.DescriptionHTML),
			Source: domain.JobSource{
				Type:   domain.SourceATS,
				URL:    j.JobURL,
				Method: domain.MethodAPI,
			},
			ApplicationURL: j.ApplyURL,
			PostedAt:       parseAPITime(j.PublishedAt),
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// leverCommitment maps Lever commitment strings onto the employment enum.
func leverCommitment(commitment string) domain.EmploymentType {
	switch commitment {
	case "Full-time", "Full Time":
		return domain.EmploymentFullTime
	case "Part-time", "Part Time":
		return domain.EmploymentPartTime
	case "Contract", "Contractor":
		return domain.EmploymentContract
	case "Internship", "Intern":
		return domain.EmploymentInternship
	default:
		return ""
	}
}

// parseAPITime returns the first parseable RFC3339 timestamp, or zero time.
func parseAPITime(candidates ...string) time.Time {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, c); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
