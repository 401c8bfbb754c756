// Package config provides configuration management for the application.
// Values load from a YAML file with environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Valid logging levels.
var ValidLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Debug  bool   `mapstructure:"debug"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig holds Redis settings for event publishing and the ranking
// cache. Disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
}

// ScrapeConfig holds scraper engine settings.
type ScrapeConfig struct {
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	CompanyTimeout time.Duration `mapstructure:"company_timeout"`
	BatchSize      int           `mapstructure:"batch_size"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SourcesFile    string        `mapstructure:"sources_file"`

	DomainRate  float64 `mapstructure:"domain_rate"`
	DomainBurst int     `mapstructure:"domain_burst"`
	GlobalRate  float64 `mapstructure:"global_rate"`
	GlobalBurst int     `mapstructure:"global_burst"`

	BrowserEnabled bool `mapstructure:"browser_enabled"`

	ScheduleHigh   string `mapstructure:"schedule_high"`
	ScheduleMedium string `mapstructure:"schedule_medium"`
	ScheduleLow    string `mapstructure:"schedule_low"`
}

// LLMConfig holds language-model extraction settings. Disabled when the
// API key is empty.
type LLMConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`
}

// DedupConfig holds deduplication settings.
type DedupConfig struct {
	FuzzyThreshold float64       `mapstructure:"fuzzy_threshold"`
	FuzzyWindow    time.Duration `mapstructure:"fuzzy_window"`
}

// LivenessConfig holds sweep and ghost-scoring settings.
type LivenessConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	BatchLimit    int           `mapstructure:"batch_limit"`
	MissThreshold int           `mapstructure:"miss_threshold"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`

	GhostSuspiciousAt int `mapstructure:"ghost_suspicious_at"`
	GhostLikelyAt     int `mapstructure:"ghost_likely_at"`
}

// MatchConfig holds ranking settings.
type MatchConfig struct {
	RecencyHalfLifeDays int           `mapstructure:"recency_half_life_days"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	CacheEntries        int           `mapstructure:"cache_entries"`
	Limit               int           `mapstructure:"limit"`
}

// Config is the root application configuration.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Log         LogConfig      `mapstructure:"log"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Scrape      ScrapeConfig   `mapstructure:"scrape"`
	LLM         LLMConfig      `mapstructure:"llm"`
	Dedup       DedupConfig    `mapstructure:"dedup"`
	Liveness    LivenessConfig `mapstructure:"liveness"`
	Match       MatchConfig    `mapstructure:"match"`
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if !ValidLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if c.Scrape.MaxConcurrent < 1 {
		return errors.New("scrape.max_concurrent must be at least 1")
	}
	if c.Liveness.GhostLikelyAt <= c.Liveness.GhostSuspiciousAt {
		return errors.New("liveness.ghost_likely_at must exceed ghost_suspicious_at")
	}
	return nil
}

// Load reads configuration from the given file, applying defaults and
// environment overrides (JOBRADAR_ prefix, dots become underscores). A
// missing file is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JOBRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "jobradar")
	v.SetDefault("database.name", "jobradar")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.stream", "jobradar:events")

	v.SetDefault("scrape.max_concurrent", 10)
	v.SetDefault("scrape.company_timeout", 2*time.Minute)
	v.SetDefault("scrape.batch_size", 50)
	v.SetDefault("scrape.max_attempts", 3)
	v.SetDefault("scrape.request_timeout", 30*time.Second)
	v.SetDefault("scrape.sources_file", "companies.yml")
	v.SetDefault("scrape.domain_rate", 0.5)
	v.SetDefault("scrape.domain_burst", 2)
	v.SetDefault("scrape.global_rate", 5.0)
	v.SetDefault("scrape.global_burst", 10)
	v.SetDefault("scrape.schedule_high", "0 */4 * * *")
	v.SetDefault("scrape.schedule_medium", "0 6 * * *")
	v.SetDefault("scrape.schedule_low", "0 6 * * 1")

	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.confidence_floor", 0.6)

	v.SetDefault("dedup.fuzzy_threshold", 0.85)
	v.SetDefault("dedup.fuzzy_window", 7*24*time.Hour)

	v.SetDefault("liveness.check_interval", 24*time.Hour)
	v.SetDefault("liveness.max_concurrent", 5)
	v.SetDefault("liveness.batch_limit", 500)
	v.SetDefault("liveness.miss_threshold", 3)
	v.SetDefault("liveness.sweep_schedule", "0 */6 * * *")
	v.SetDefault("liveness.ghost_suspicious_at", 40)
	v.SetDefault("liveness.ghost_likely_at", 70)

	v.SetDefault("match.recency_half_life_days", 14)
	v.SetDefault("match.cache_ttl", 5*time.Minute)
	v.SetDefault("match.cache_entries", 1000)
	v.SetDefault("match.limit", 50)
}
