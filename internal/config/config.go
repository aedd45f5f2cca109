// Package config loads dashboard configuration from a YAML file, an optional
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"card-market-lab/internal/domain"
)

// Data sources.
const (
	SourcePostgres   = "postgres"
	SourceClickhouse = "clickhouse"
	SourceFixtures   = "fixtures"
)

type Config struct {
	Source     string           `yaml:"source"`
	Database   DatabaseConfig   `yaml:"database"`
	Clickhouse ClickhouseConfig `yaml:"clickhouse"`
	Query      QueryConfig      `yaml:"query"`
	Cache      CacheConfig      `yaml:"cache"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Cohorts    []CohortConfig   `yaml:"cohorts"`
	Movers     MoversConfig     `yaml:"movers"`
	Histogram  HistogramConfig  `yaml:"histogram"`
	Server     ServerConfig     `yaml:"server"`
	Report     ReportConfig     `yaml:"report"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type ClickhouseConfig struct {
	DSN string `yaml:"dsn"`
}

type QueryConfig struct {
	FeatureSetLimit  int `yaml:"feature_set_limit"`
	CardTypeLimit    int `yaml:"card_type_limit"`
	MinCardTypeCount int `yaml:"min_card_type_count"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type AnalysisConfig struct {
	StartMonth       string   `yaml:"start_month"`
	EndMonth         string   `yaml:"end_month"`
	MaturationMonths int      `yaml:"maturation_months"`
	Metrics          []string `yaml:"metrics"`
	GroupByGrade     bool     `yaml:"group_by_grade"`
}

// CohortConfig is one price-tier rule; nil bounds are open.
type CohortConfig struct {
	Name    string   `yaml:"name"`
	Metric  string   `yaml:"metric"`
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Exclude []string `yaml:"exclude"`
}

type MoversConfig struct {
	Window         int     `yaml:"window"`
	MinLatestPrice float64 `yaml:"min_latest_price"`
	Limit          int     `yaml:"limit"`
}

type HistogramConfig struct {
	Bins int `yaml:"bins"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
	XLSX      bool   `yaml:"xlsx"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json | text
	File       string `yaml:"file"`   // empty = stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	metrics := make([]string, 0, 7)
	for _, s := range domain.DefaultAggregateMetrics() {
		metrics = append(metrics, string(s.Metric))
	}

	return &Config{
		Source: SourcePostgres,
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "prefer",
		},
		Query: QueryConfig{
			FeatureSetLimit:  300000,
			CardTypeLimit:    10000,
			MinCardTypeCount: 50,
		},
		Cache: CacheConfig{TTL: 10 * time.Minute},
		Analysis: AnalysisConfig{
			StartMonth:       "2021-01",
			EndMonth:         "2024-11",
			MaturationMonths: 2,
			Metrics:          metrics,
		},
		Cohorts: []CohortConfig{
			{Name: string(domain.CohortHighValueCards), Metric: string(domain.MetricTop10CardSum), Min: ptr(700.0)},
			{Name: string(domain.CohortLowValueCards), Metric: string(domain.MetricTop10CardSum), Max: ptr(700.0)},
			{Name: string(domain.CohortMidValueBoxes), Metric: string(domain.MetricBoosterBoxPrice), Min: ptr(500.0), Max: ptr(1000.0)},
			{Name: string(domain.CohortLowValueBoxes), Metric: string(domain.MetricBoosterBoxPrice), Max: ptr(200.0)},
		},
		Movers: MoversConfig{
			Window:         3,
			MinLatestPrice: 25,
			Limit:          50,
		},
		Histogram: HistogramConfig{Bins: 10},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Report: ReportConfig{
			OutputDir: "output",
			XLSX:      true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{Namespace: "card_market_lab"},
	}
}

// Load reads the YAML file at path over the defaults, then applies .env and
// environment overrides. An empty path skips the file. The result is validated.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source {
	case SourcePostgres:
		if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.Name == "") {
			errs = append(errs, errors.New("database: dsn or host and name are required for postgres source"))
		}
	case SourceClickhouse:
		if c.Clickhouse.DSN == "" {
			errs = append(errs, errors.New("clickhouse: dsn is required for clickhouse source"))
		}
	case SourceFixtures:
	default:
		errs = append(errs, fmt.Errorf("source: unknown value %q", c.Source))
	}

	if c.Query.FeatureSetLimit <= 0 {
		errs = append(errs, errors.New("query.feature_set_limit must be positive"))
	}
	if c.Query.CardTypeLimit <= 0 {
		errs = append(errs, errors.New("query.card_type_limit must be positive"))
	}

	start, err := domain.ParseMonth(c.Analysis.StartMonth)
	if err != nil {
		errs = append(errs, fmt.Errorf("analysis.start_month: %w", err))
	}
	end, err2 := domain.ParseMonth(c.Analysis.EndMonth)
	if err2 != nil {
		errs = append(errs, fmt.Errorf("analysis.end_month: %w", err2))
	}
	if err == nil && err2 == nil && end.Before(start) {
		errs = append(errs, fmt.Errorf("analysis: end_month %s before start_month %s", end, start))
	}
	if c.Analysis.MaturationMonths < 0 {
		errs = append(errs, errors.New("analysis.maturation_months must not be negative"))
	}
	if _, err := domain.ParseMetricSpecs(c.Analysis.Metrics); err != nil {
		errs = append(errs, fmt.Errorf("analysis.metrics: %w", err))
	}

	for i, r := range c.Cohorts {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("cohorts[%d]: name is required", i))
		}
		if !domain.Metric(r.Metric).IsValid() {
			errs = append(errs, fmt.Errorf("cohorts[%d]: unknown metric %q", i, r.Metric))
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			errs = append(errs, fmt.Errorf("cohorts[%d]: min %.2f above max %.2f", i, *r.Min, *r.Max))
		}
	}

	if c.Movers.Window <= 0 {
		errs = append(errs, errors.New("movers.window must be positive"))
	}
	if c.Movers.MinLatestPrice < 0 {
		errs = append(errs, errors.New("movers.min_latest_price must not be negative"))
	}
	if c.Histogram.Bins <= 0 {
		errs = append(errs, errors.New("histogram.bins must be positive"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}

	return errors.Join(errs...)
}

// DateRange returns the parsed analysis window. Call after Validate.
func (c *Config) DateRange() (domain.Month, domain.Month) {
	start, _ := domain.ParseMonth(c.Analysis.StartMonth)
	end, _ := domain.ParseMonth(c.Analysis.EndMonth)
	return start, end
}

// ConnString returns the Postgres connection string, building one from the
// individual fields when DSN is empty.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	port := d.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(port)),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(d.SSLMode)
	}
	return u.String()
}

func ptr[T any](v T) *T {
	return &v
}
