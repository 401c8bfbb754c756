// Package common builds the shared dependency graph for subcommands.
package common

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/database"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/notify"
	"github.com/jobradar/jobradar/internal/ratelimit"
)

// Version is the build version string.
const Version = "0.3.0"

// Options carries root-level flags into subcommands.
type Options struct {
	ConfigFile string
	Debug      bool
}

// Deps is the assembled dependency graph shared by subcommands. Construct
// one per invocation and Close it when done.
type Deps struct {
	Cfg *config.Config
	Log logger.Interface
	DB  *sqlx.DB

	Redis    *redis.Client
	Notifier notify.Notifier

	Postings   *database.PostingRepository
	Checks     *database.LivenessLogRepository
	Candidates *database.CandidateRepository

	closers []func() error
}

// Build loads configuration and connects the shared infrastructure.
func Build(opts *Options) (*Deps, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
		cfg.Log.Debug = true
	}
	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Format,
		Development: cfg.Environment == "development",
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.Connect(database.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		DBName:       cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	deps := &Deps{
		Cfg:        cfg,
		Log:        log,
		DB:         db,
		Notifier:   notify.Noop{},
		Postings:   database.NewPostingRepository(db),
		Checks:     database.NewLivenessLogRepository(db),
		Candidates: database.NewCandidateRepository(db),
	}
	deps.closers = append(deps.closers, db.Close)

	if cfg.Redis.Addr != "" {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deps.closers = append(deps.closers, deps.Redis.Close)

		publisher, pubErr := notify.NewStreamsPublisher(notify.StreamsConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
		})
		if pubErr != nil {
			// Events are best effort; a missing broker degrades to no-op.
			log.Warn("event publishing disabled", "error", pubErr)
		} else {
			deps.Notifier = publisher
			deps.closers = append(deps.closers, publisher.Close)
		}
	}

	return deps, nil
}

// Limiter builds the shared rate limiter from configuration.
func (d *Deps) Limiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		DomainRate:  d.Cfg.Scrape.DomainRate,
		DomainBurst: d.Cfg.Scrape.DomainBurst,
		GlobalRate:  d.Cfg.Scrape.GlobalRate,
		GlobalBurst: d.Cfg.Scrape.GlobalBurst,
	})
}

// RequestTimeout returns the outbound HTTP timeout.
func (d *Deps) RequestTimeout() time.Duration {
	return d.Cfg.Scrape.RequestTimeout
}

// Close releases connections in reverse construction order.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Log.Warn("close failed", "error", err)
		}
	}
}
