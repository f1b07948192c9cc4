package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Interests []string `yaml:"interests" json:"interests" jsonschema:"required,description=Topics the user cares about"`

	PrimarySources struct {
		Blogs  []SourceConfig `yaml:"blogs" json:"blogs" jsonschema:"description=Trusted blogs monitored via RSS/Atom"`
		Social []SourceConfig `yaml:"social" json:"social" jsonschema:"description=Trusted social accounts monitored via timeline API"`
	} `yaml:"primary_sources" json:"primary_sources" jsonschema:"required,description=Trusted sources to monitor"`

	Thresholds struct {
		MinRelevanceScore float64 `yaml:"min_relevance_score" json:"min_relevance_score" jsonschema:"default=0.7,minimum=0,maximum=1,description=Minimum relevance score to recommend"`
		MinCitationCount  int     `yaml:"min_citation_count" json:"min_citation_count" jsonschema:"default=2,minimum=0,description=Minimum distinct citing primary sources"`
		MaxSourceAgeDays  int     `yaml:"max_source_age_days" json:"max_source_age_days" jsonschema:"default=90,minimum=1,description=Maximum days since the most recent citation"`
	} `yaml:"thresholds" json:"thresholds" jsonschema:"description=Recommendation policy thresholds"`

	Scoring struct {
		NameWeight    float64 `yaml:"name_weight" json:"name_weight" jsonschema:"default=0.4,description=Weight of the name-level relevance signal"`
		ContentWeight float64 `yaml:"content_weight" json:"content_weight" jsonschema:"default=0.6,description=Weight of the content-level relevance signal"`
	} `yaml:"scoring" json:"scoring" jsonschema:"description=Relevance score weighting"`

	Schedule struct {
		UpdateInterval time.Duration `yaml:"update_interval" json:"update_interval" jsonschema:"default=6h,description=Interval between discovery runs"`
		Cron           string        `yaml:"cron" json:"cron" jsonschema:"description=Cron expression for discovery runs (overrides update_interval)"`
		MaxWorkers     int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=5,description=Maximum concurrent source fetches"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration"`

	Fetch struct {
		Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Per-source fetch timeout"`
		Window    int           `yaml:"window" json:"window" jsonschema:"default=10,description=Number of recent posts fetched per source"`
		SocialAPI string        `yaml:"social_api" json:"social_api" jsonschema:"description=Base URL of the social timeline bridge API"`
	} `yaml:"fetch" json:"fetch" jsonschema:"description=Content fetch configuration"`

	Inspection InspectionConfig `yaml:"inspection" json:"inspection" jsonschema:"description=Candidate content inspection for the content-level signal"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:feedscout.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Server struct {
		Enabled bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable the HTTP API"`
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=HTTP server configuration"`

	Output struct {
		Format string `yaml:"format" json:"format" jsonschema:"default=markdown,enum=markdown,enum=json,enum=text,enum=html,description=Recommendation output format"`
		File   string `yaml:"file" json:"file" jsonschema:"default=recommendations.md,description=File the rendered recommendations are written to"`
	} `yaml:"output" json:"output" jsonschema:"description=Recommendation output configuration"`
}

// SourceConfig describes a single primary source
type SourceConfig struct {
	Name     string `yaml:"name" json:"name" jsonschema:"required,description=Display name of the source"`
	Identity string `yaml:"identity" json:"identity" jsonschema:"required,description=Feed URL for blogs or handle for social accounts"`
}

// InspectionConfig holds content inspection settings
type InspectionConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Enable candidate page inspection"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=20s,description=Inspection timeout per candidate"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=Optional LLM-backed content scoring"`
}

// LLMConfig holds settings for LLM-backed content scoring
type LLMConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Score candidate content with an LLM instead of keyword matching"`
	Endpoint    string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey      string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model       string        `yaml:"model" json:"model" jsonschema:"description=Model name (e.g. gpt-4o-mini or llama3)"`
	Temperature float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.1,description=Temperature for response generation"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true) // unknown keys are a configuration error
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// setDefaults fills zero values with documented defaults
func (c *Config) setDefaults() {
	if c.Thresholds.MinRelevanceScore == 0 {
		c.Thresholds.MinRelevanceScore = 0.7
	}
	if c.Thresholds.MinCitationCount == 0 {
		c.Thresholds.MinCitationCount = 2
	}
	if c.Thresholds.MaxSourceAgeDays == 0 {
		c.Thresholds.MaxSourceAgeDays = 90
	}

	if c.Scoring.NameWeight == 0 && c.Scoring.ContentWeight == 0 {
		c.Scoring.NameWeight = 0.4
		c.Scoring.ContentWeight = 0.6
	}

	if c.Schedule.UpdateInterval == 0 {
		c.Schedule.UpdateInterval = 6 * time.Hour
	}
	if c.Schedule.MaxWorkers == 0 {
		c.Schedule.MaxWorkers = 5
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.Window == 0 {
		c.Fetch.Window = 10
	}

	if c.Inspection.Timeout == 0 {
		c.Inspection.Timeout = 20 * time.Second
	}
	if c.Inspection.LLM.Temperature == 0 {
		c.Inspection.LLM.Temperature = 0.1
	}
	if c.Inspection.LLM.Timeout == 0 {
		c.Inspection.LLM.Timeout = 30 * time.Second
	}

	if c.Database.DSN == "" {
		c.Database.DSN = "file:feedscout.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 3600
	}

	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}

	if c.Output.Format == "" {
		c.Output.Format = "markdown"
	}
	if c.Output.File == "" {
		c.Output.File = "recommendations.md"
	}
}

// validate checks configuration for correctness, any failure here aborts
// before the pipeline does any I/O
func validate(cfg *Config) error {
	if len(cfg.Interests) == 0 {
		return fmt.Errorf("at least one interest is required")
	}
	for i, interest := range cfg.Interests {
		if strings.TrimSpace(interest) == "" {
			return fmt.Errorf("interests[%d] is empty", i)
		}
	}

	if len(cfg.PrimarySources.Blogs)+len(cfg.PrimarySources.Social) == 0 {
		return fmt.Errorf("at least one primary source is required")
	}
	for i, src := range cfg.PrimarySources.Blogs {
		if src.Name == "" || src.Identity == "" {
			return fmt.Errorf("primary_sources.blogs[%d] needs both name and identity", i)
		}
	}
	for i, src := range cfg.PrimarySources.Social {
		if src.Name == "" || src.Identity == "" {
			return fmt.Errorf("primary_sources.social[%d] needs both name and identity", i)
		}
	}

	if cfg.Thresholds.MinRelevanceScore < 0 || cfg.Thresholds.MinRelevanceScore > 1 {
		return fmt.Errorf("thresholds.min_relevance_score must be between 0 and 1")
	}
	if cfg.Thresholds.MinCitationCount < 0 {
		return fmt.Errorf("thresholds.min_citation_count must be non-negative")
	}
	if cfg.Thresholds.MaxSourceAgeDays < 1 {
		return fmt.Errorf("thresholds.max_source_age_days must be at least 1")
	}

	if cfg.Scoring.NameWeight < 0 || cfg.Scoring.ContentWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if math.Abs(cfg.Scoring.NameWeight+cfg.Scoring.ContentWeight-1) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1, got %.2f", cfg.Scoring.NameWeight+cfg.Scoring.ContentWeight)
	}

	if len(cfg.PrimarySources.Social) > 0 && cfg.Fetch.SocialAPI == "" {
		return fmt.Errorf("fetch.social_api is required when social sources are configured")
	}

	if cfg.Inspection.LLM.Enabled {
		if cfg.Inspection.LLM.Endpoint == "" {
			return fmt.Errorf("inspection.llm.endpoint is required when llm scoring is enabled")
		}
		if cfg.Inspection.LLM.Model == "" {
			return fmt.Errorf("inspection.llm.model is required when llm scoring is enabled")
		}
	}

	switch cfg.Output.Format {
	case "markdown", "json", "text", "html":
	default:
		return fmt.Errorf("output.format must be one of markdown, json, text, html")
	}

	if cfg.Server.Enabled && cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetThresholds returns the recommendation thresholds with the age expressed
// as a duration
func (c *Config) GetThresholds() (minRelevance float64, minCitations int, maxAge time.Duration) {
	return c.Thresholds.MinRelevanceScore, c.Thresholds.MinCitationCount,
		time.Duration(c.Thresholds.MaxSourceAgeDays) * 24 * time.Hour
}
