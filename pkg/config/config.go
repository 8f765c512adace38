// Package config loads the tab graph engine configuration from YAML with
// environment overrides and validates it before use.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-tabgraph/pkg/validation"
)

// Centrality basis values for GraphConfig.CentralityBasis.
const (
	CentralityBasisMST  = "mst"
	CentralityBasisFull = "full"
)

// Environment variables applied over the file.
const (
	EnvBackendURL = "TABGRAPH_BACKEND_URL"
	EnvAPIKey     = "TABGRAPH_API_KEY"
	EnvCachePath  = "TABGRAPH_CACHE_PATH"
	EnvLogLevel   = "LOG_LEVEL"
)

// Config is the root configuration.
type Config struct {
	Cache    CacheConfig   `yaml:"cache"`
	Scoring  ScoringConfig `yaml:"scoring"`
	Graph    GraphConfig   `yaml:"graph"`
	Layout   LayoutConfig  `yaml:"layout"`
	Summary  SummaryConfig `yaml:"summary"`
	Workers  int           `yaml:"workers" validate:"gte=1,lte=64"`
	LogLevel string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
}

// CacheConfig locates the similarity cache snapshot.
type CacheConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

// ResolvedPath returns the snapshot path, with a .sz suffix when compression
// is requested.
func (c CacheConfig) ResolvedPath() string {
	if c.Compress && c.Path != "" && !strings.HasSuffix(c.Path, ".sz") {
		return c.Path + ".sz"
	}
	return c.Path
}

// ScoringConfig configures the similarity scorer and its remote backend.
type ScoringConfig struct {
	BackendURL string        `yaml:"backend_url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	MaxChars   int           `yaml:"max_chars" validate:"gte=1"`
	Timeout    time.Duration `yaml:"timeout"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

// BreakerConfig mirrors the gobreaker settings.
type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
}

// GraphConfig configures clustering and the spanning tree.
type GraphConfig struct {
	ClusterThreshold float64 `yaml:"cluster_threshold"`
	MinEdgeWeight    float64 `yaml:"min_edge_weight"`
	CentralityBasis  string  `yaml:"centrality_basis"`
}

// LayoutConfig carries the physics constants.
type LayoutConfig struct {
	Width               float64       `yaml:"width"`
	Height              float64       `yaml:"height"`
	Repulsion           float64       `yaml:"repulsion"`
	AttractionStrength  float64       `yaml:"attraction_strength"`
	AttractionThreshold float64       `yaml:"attraction_threshold"`
	TargetBase          float64       `yaml:"target_base"`
	TargetFloor         float64       `yaml:"target_floor"`
	SimilarityCap       float64       `yaml:"similarity_cap"`
	MinSeparation       float64       `yaml:"min_separation"`
	SeparationStrength  float64       `yaml:"separation_strength"`
	Damping             float64       `yaml:"damping"`
	MaxDisplacement     float64       `yaml:"max_displacement"`
	TickInterval        time.Duration `yaml:"tick_interval"`
}

// SummaryConfig configures the cluster summary service.
type SummaryConfig struct {
	BatchSize       int           `yaml:"batch_size"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	MaxContentChars int           `yaml:"max_content_chars"`
	MinContentChars int           `yaml:"min_content_chars"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Path: defaultCachePath(),
		},
		Scoring: ScoringConfig{
			Model:    "gpt-4o-mini",
			MaxChars: 3000,
			Timeout:  30 * time.Second,
			Breaker: BreakerConfig{
				MaxRequests:  1,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  3,
				FailureRatio: 0.6,
			},
		},
		Graph: GraphConfig{
			ClusterThreshold: 0.3,
			MinEdgeWeight:    0,
			CentralityBasis:  CentralityBasisMST,
		},
		Layout: LayoutConfig{
			Width:               800,
			Height:              600,
			Repulsion:           5000,
			AttractionStrength:  0.05,
			AttractionThreshold: 0.3,
			TargetBase:          200,
			TargetFloor:         40,
			SimilarityCap:       0.9,
			MinSeparation:       30,
			SeparationStrength:  0.5,
			Damping:             0.8,
			MaxDisplacement:     10,
			TickInterval:        16 * time.Millisecond,
		},
		Summary: SummaryConfig{
			BatchSize:       5,
			MaxRetries:      3,
			RetryDelay:      time.Second,
			MaxContentChars: 3000,
			MinContentChars: 50,
		},
		Workers:  2,
		LogLevel: "info",
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "similarity_cache.json"
	}
	return filepath.Join(dir, "tabgraph", "similarity_cache.json")
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays the TABGRAPH_* and LOG_LEVEL environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Scoring.BackendURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Scoring.APIKey = v
	}
	if v := os.Getenv(EnvCachePath); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", validation.ErrInvalidConfig, err)
	}

	errs := []error{
		validation.NewConfigValidator("scoring").
			MinInt("max_chars", c.Scoring.MaxChars, 1).
			MinDuration("timeout", c.Scoring.Timeout, 0).
			UnitInterval("breaker.failure_ratio", c.Scoring.Breaker.FailureRatio).
			When(c.Scoring.BackendURL != "", func(v *validation.ConfigValidator) {
				v.Custom("backend_url", func() error { return checkURL(c.Scoring.BackendURL) })
			}).
			Validate(),
		validation.NewConfigValidator("graph").
			UnitInterval("cluster_threshold", c.Graph.ClusterThreshold).
			UnitInterval("min_edge_weight", c.Graph.MinEdgeWeight).
			OneOf("centrality_basis", c.Graph.CentralityBasis, []string{CentralityBasisMST, CentralityBasisFull}).
			Validate(),
		validation.NewConfigValidator("layout").
			PositiveFloat("width", c.Layout.Width).
			PositiveFloat("height", c.Layout.Height).
			NonNegativeFloat("repulsion", c.Layout.Repulsion).
			NonNegativeFloat("attraction_strength", c.Layout.AttractionStrength).
			UnitInterval("attraction_threshold", c.Layout.AttractionThreshold).
			NonNegativeFloat("target_base", c.Layout.TargetBase).
			NonNegativeFloat("target_floor", c.Layout.TargetFloor).
			UnitInterval("similarity_cap", c.Layout.SimilarityCap).
			NonNegativeFloat("min_separation", c.Layout.MinSeparation).
			NonNegativeFloat("separation_strength", c.Layout.SeparationStrength).
			RangeFloat("damping", c.Layout.Damping, 0, 1).
			PositiveFloat("max_displacement", c.Layout.MaxDisplacement).
			Validate(),
		validation.NewConfigValidator("summary").
			RangeInt("batch_size", c.Summary.BatchSize, 2, 64).
			MinInt("max_retries", c.Summary.MaxRetries, 1).
			MinDuration("retry_delay", c.Summary.RetryDelay, 0).
			MinInt("max_content_chars", c.Summary.MaxContentChars, 1).
			MinInt("min_content_chars", c.Summary.MinContentChars, 0).
			Validate(),
	}
	return errors.Join(errs...)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not http(s)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
