package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/scrape"
)

// LLM extraction settings.
const (
	DefaultConfidenceFloor = 0.6
	llmMaxTokens           = 4096
	llmMaxInputChars       = 60000
)

// llmSystemPrompt instructs the model to emit only schema-conforming JSON.
const llmSystemPrompt = `You extract job postings from career page text.
Return ONLY a JSON object with this exact shape, no markdown fences, no prose:
{"jobs":[{"title":"","location":"","description":"","employment_type":"","skills":[],"salary_min":0,"salary_max":0,"salary_currency":"","url":"","confidence":0.0}]}
Rules:
- confidence is your certainty in [0,1] that the entry is a real, distinct job posting on this page.
- Omit nothing: every distinct job posting in the text must appear once.
- If the text contains no job postings, return {"jobs":[]}.
- Never invent postings that are not present in the text.`

// Completer is the language-model surface the LLM strategy depends on.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// AnthropicCompleter backs Completer with the Anthropic Messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicCompleter creates a completer for the given API key and model.
func NewAnthropicCompleter(apiKey, model string) *AnthropicCompleter {
	return &AnthropicCompleter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Complete sends one user message and returns the text of the reply.
func (a *AnthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: llmMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// LLMStrategy sends cleaned page text to a language model with a strict
// JSON schema. Used when structure is absent; entries under the confidence
// floor are rejected.
type LLMStrategy struct {
	fetcher         Fetcher
	completer       Completer
	confidenceFloor float64
	log             logger.Interface
}

// NewLLMStrategy creates the LLM-assisted strategy. A nil completer makes
// the strategy report not applicable for every company.
func NewLLMStrategy(fetcher Fetcher, completer Completer, confidenceFloor float64, log logger.Interface) *LLMStrategy {
	if confidenceFloor <= 0 {
		confidenceFloor = DefaultConfidenceFloor
	}
	return &LLMStrategy{
		fetcher:         fetcher,
		completer:       completer,
		confidenceFloor: confidenceFloor,
		log:             log.WithComponent("strategy.llm"),
	}
}

// Name identifies the strategy.
func (s *LLMStrategy) Name() string { return "llm_extraction" }

// Method returns the extraction method.
func (s *LLMStrategy) Method() domain.ExtractionMethod { return domain.MethodLLM }

// llmResponse mirrors the schema the model is instructed to emit.
type llmResponse struct {
	Jobs []struct {
		Title          string   `json:"title"`
		Location       string   `json:"location"`
		Description    string   `json:"description"`
		EmploymentType string   `json:"employment_type"`
		Skills         []string `json:"skills"`
		SalaryMin      float64  `json:"salary_min"`
		SalaryMax      float64  `json:"salary_max"`
		SalaryCurrency string   `json:"salary_currency"`
		URL            string   `json:"url"`
		Confidence     float64  `json:"confidence"`
	} `json:"jobs"`
}

// Extract fetches the page, cleans it to text, and asks the model for
// schema-conforming postings.
func (s *LLMStrategy) Extract(ctx context.Context, company *domain.CompanyConfig) ([]domain.ScrapedJob, error) {
	if s.completer == nil || company.CareerPageURL == "" {
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

	text := cleanPageText(doc)
	if len(text) > llmMaxInputChars {
		text = text[:llmMaxInputChars]
	}
	if strings.TrimSpace(text) == "" {
		return nil, scrape.NewError(scrape.KindParse, "clean page text",
			errors.New("page has no text content"))
	}

	raw, completeErr := s.completer.Complete(ctx, llmSystemPrompt, text)
	if completeErr != nil {
		return nil, scrape.NewError(scrape.KindNetwork, "llm completion", completeErr)
	}

	var payload llmResponse
	if unmarshalErr := json.Unmarshal([]byte(stripFences(raw)), &payload); unmarshalErr != nil {
		return nil, scrape.NewError(scrape.KindParse, "decode llm payload", unmarshalErr)
	}

	jobs := make([]domain.ScrapedJob, 0, len(payload.Jobs))
	rejected := 0
	for _, j := range payload.Jobs {
		if j.Confidence < s.confidenceFloor {
			rejected++
			continue
		}
		job := domain.ScrapedJob{
			Title:          j.Title,
			Company:        company.Name,
			Location:       domain.NewLocation(j.Location),
			Description:    j.Description,
			Skills:         j.Skills,
			EmploymentType: employmentFromLLM(j.EmploymentType),
			Source: domain.JobSource{
				Type:   domain.SourceCareerPage,
				URL:    firstNonEmpty(j.URL, company.CareerPageURL),
				Method: domain.MethodLLM,
			},
			ApplicationURL: j.URL,
		}
		if j.SalaryMin > 0 || j.SalaryMax > 0 {
			job.Salary = &domain.Salary{
				Min:      j.SalaryMin,
				Max:      j.SalaryMax,
				Currency: j.SalaryCurrency,
				Period:   domain.SalaryYearly,
			}
		}
		jobs = append(jobs, job)
	}

	if rejected > 0 {
		s.log.Debug("rejected low-confidence llm jobs",
			"company", company.Name,
			"rejected", rejected,
			"floor", s.confidenceFloor,
		)
	}
	return jobs, nil
}

// employmentFromLLM maps the model's free-form employment string onto the
// employment enum; unrecognized values map to empty.
func employmentFromLLM(s string) domain.EmploymentType {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "full_time", "fulltime", "full time":
		return domain.EmploymentFullTime
	case "part_time", "parttime", "part time":
		return domain.EmploymentPartTime
	case "contract", "contractor":
		return domain.EmploymentContract
	case "internship", "intern":
		return domain.EmploymentInternship
	default:
		return ""
	}
}

// stripFences removes markdown code fences the model sometimes adds despite
// instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
