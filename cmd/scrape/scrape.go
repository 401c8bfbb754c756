// Package scrape implements the scrape command: one full discovery pass
// over the configured companies.
package scrape

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/cmd/common"
	"github.com/jobradar/jobradar/internal/dedup"
	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/ingest"
	"github.com/jobradar/jobradar/internal/pipeline"
	"github.com/jobradar/jobradar/internal/ratelimit"
	"github.com/jobradar/jobradar/internal/scrape"
	"github.com/jobradar/jobradar/internal/scrape/strategy"
	"github.com/jobradar/jobradar/internal/sources"
)

// Command returns the scrape command.
func Command(opts *common.Options) *cobra.Command {
	var (
		sourcesFile string
		tier        int
		daemon      bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape configured companies and ingest discovered jobs",
		Long: `Runs the extraction cascade over the configured companies, groups
duplicates, and ingests the canonical postings. With --daemon each priority
tier is scraped on its own cron schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build(opts)
			if err != nil {
				return err
			}
			defer deps.Close()

			path := sourcesFile
			if path == "" {
				path = deps.Cfg.Scrape.SourcesFile
			}
			companies, err := sources.Load(path, deps.Log)
			if err != nil {
				return err
			}
			if tier > 0 {
				companies = sources.FilterTier(companies, domain.PriorityTier(tier))
				if len(companies) == 0 {
					return fmt.Errorf("no companies in priority tier %d", tier)
				}
			}
			companies = sources.ByPriority(companies)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pipe, cleanup, err := buildPipeline(deps)
			if err != nil {
				return err
			}
			defer cleanup()

			if daemon {
				return runDaemon(ctx, deps, pipe, companies)
			}

			stats, runErr := pipe.Run(ctx, companies)
			if runErr != nil {
				return fmt.Errorf("pipeline run: %w", runErr)
			}
			deps.Log.Info("scrape finished",
				"companies", stats.Companies,
				"jobs", stats.JobsScraped,
				"inserted", stats.Ingest.Inserted,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourcesFile, "sources", "", "company sources file (overrides config)")
	cmd.Flags().IntVar(&tier, "tier", 0, "only scrape companies in this priority tier (1=high)")
	cmd.Flags().BoolVar(&daemon, "daemon", false, "scrape each priority tier on its cron schedule")
	return cmd
}

// runDaemon schedules one recurring scrape per priority tier. Tiers with no
// companies are skipped.
func runDaemon(ctx context.Context, deps *common.Deps, pipe *pipeline.Pipeline, companies []domain.CompanyConfig) error {
	schedules := []struct {
		tier domain.PriorityTier
		spec string
	}{
		{domain.TierHigh, deps.Cfg.Scrape.ScheduleHigh},
		{domain.TierMedium, deps.Cfg.Scrape.ScheduleMedium},
		{domain.TierLow, deps.Cfg.Scrape.ScheduleLow},
	}

	c := cron.New()
	for _, s := range schedules {
		tierCompanies := sources.FilterTier(companies, s.tier)
		if len(tierCompanies) == 0 {
			continue
		}
		if _, addErr := c.AddFunc(s.spec, func() {
			stats, runErr := pipe.Run(ctx, tierCompanies)
			if runErr != nil {
				deps.Log.Error("scheduled scrape failed", "tier", int(s.tier), "error", runErr)
				return
			}
			deps.Log.Info("scheduled scrape finished",
				"tier", int(s.tier),
				"companies", stats.Companies,
				"jobs", stats.JobsScraped,
				"inserted", stats.Ingest.Inserted,
			)
		}); addErr != nil {
			return fmt.Errorf("invalid scrape schedule %q: %w", s.spec, addErr)
		}
		deps.Log.Info("tier scheduled", "tier", int(s.tier), "schedule", s.spec, "companies", len(tierCompanies))
	}

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	deps.Log.Info("scrape daemon stopped")
	return nil
}

// buildPipeline assembles the engine with every extraction strategy the
// configuration enables.
func buildPipeline(deps *common.Deps) (*pipeline.Pipeline, func(), error) {
	limiter := deps.Limiter()
	client := fetch.NewClient(limiter, deps.Log, deps.RequestTimeout())
	cleanup := func() {}

	var completer strategy.Completer
	if deps.Cfg.LLM.APIKey != "" {
		completer = strategy.NewAnthropicCompleter(deps.Cfg.LLM.APIKey, deps.Cfg.LLM.Model)
	}

	var renderer strategy.Renderer
	if deps.Cfg.Scrape.BrowserEnabled {
		pw, err := strategy.NewPlaywrightRenderer(ratelimit.NewHeaderRotator().UserAgent())
		if err != nil {
			return nil, nil, fmt.Errorf("start browser renderer: %w", err)
		}
		renderer = pw
		cleanup = func() {
			if closeErr := pw.Close(); closeErr != nil {
				deps.Log.Warn("failed to close browser renderer", "error", closeErr)
			}
		}
	}

	strategies := []scrape.Strategy{
		strategy.NewAPIStrategy(client, deps.Log),
		strategy.NewMarkupStrategy(client, deps.Log),
		strategy.NewEmbeddedStateStrategy(client, deps.Log),
		strategy.NewLLMStrategy(client, completer, deps.Cfg.LLM.ConfidenceFloor, deps.Log),
		strategy.NewDOMStrategy(limiter, deps.Log),
		strategy.NewBrowserStrategy(renderer, limiter, deps.Log),
	}

	engine := scrape.NewEngine(strategies, scrape.Config{
		MaxConcurrent:  deps.Cfg.Scrape.MaxConcurrent,
		CompanyTimeout: deps.Cfg.Scrape.CompanyTimeout,
		BatchSize:      deps.Cfg.Scrape.BatchSize,
		MaxAttempts:    deps.Cfg.Scrape.MaxAttempts,
	}, deps.Log)

	deduper := dedup.New(dedup.Config{
		FuzzyThreshold: deps.Cfg.Dedup.FuzzyThreshold,
		FuzzyWindow:    deps.Cfg.Dedup.FuzzyWindow,
	}, deps.Log)

	ingestor := ingest.New(deps.Postings, deps.Notifier, deps.Log)

	return pipeline.New(engine, deduper, ingestor, deps.Log), cleanup, nil
}
