// Package sources loads the company configurations the scraper consumes.
// The list is produced by an external discovery process and is read-only
// here.
package sources

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
)

// defaultStrategies is the cascade order applied when a company does not
// declare its own.
var defaultStrategies = []domain.ExtractionMethod{
	domain.MethodAPI,
	domain.MethodMarkup,
	domain.MethodEmbedded,
	domain.MethodLLM,
	domain.MethodDOM,
	domain.MethodBrowser,
}

// sourcesFile mirrors the YAML document shape.
type sourcesFile struct {
	Companies []domain.CompanyConfig `yaml:"companies"`
}

// Load reads and validates company configurations from a YAML file.
func Load(path string, log logger.Interface) ([]domain.CompanyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}

	var file sourcesFile
	if unmarshalErr := yaml.Unmarshal(data, &file); unmarshalErr != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, unmarshalErr)
	}
	if len(file.Companies) == 0 {
		return nil, errors.New("sources file contains no companies")
	}

	companies := make([]domain.CompanyConfig, 0, len(file.Companies))
	for i := range file.Companies {
		company := file.Companies[i]
		if err := validate(&company); err != nil {
			log.Warn("skipping invalid company config",
				"name", company.Name,
				"error", err,
			)
			continue
		}
		applyDefaults(&company)
		companies = append(companies, company)
	}
	if len(companies) == 0 {
		return nil, errors.New("no valid companies in sources file")
	}

	log.Info("loaded company sources", "path", path, "companies", len(companies))
	return companies, nil
}

// ByPriority returns the companies ordered by tier, highest priority first.
// Order within a tier is preserved.
func ByPriority(companies []domain.CompanyConfig) []domain.CompanyConfig {
	out := make([]domain.CompanyConfig, len(companies))
	copy(out, companies)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// FilterTier returns only the companies in the given tier.
func FilterTier(companies []domain.CompanyConfig, tier domain.PriorityTier) []domain.CompanyConfig {
	var out []domain.CompanyConfig
	for _, c := range companies {
		if c.Priority == tier {
			out = append(out, c)
		}
	}
	return out
}

func validate(c *domain.CompanyConfig) error {
	if c.Name == "" {
		return errors.New("company name is required")
	}
	if c.CareerPageURL == "" && !c.HasATS() {
		return errors.New("company needs a career page URL or an ATS integration")
	}
	for _, method := range c.Strategies {
		if !method.Valid() {
			return fmt.Errorf("unknown extraction method %q", method)
		}
	}
	return nil
}

func applyDefaults(c *domain.CompanyConfig) {
	if c.ID == "" {
		c.ID = c.Name
	}
	if len(c.Strategies) == 0 {
		c.Strategies = defaultStrategies
	}
	if c.Pagination == "" {
		c.Pagination = domain.PaginationNone
	}
	if c.Priority == 0 {
		c.Priority = domain.TierMedium
	}
}
