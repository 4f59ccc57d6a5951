// Package config loads seamline settings from a YAML file, a .env file and
// SEAMLINE_* environment variables, in increasing order of precedence.
// Command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/seamline/internal/engine"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "seamline.yaml"

// Environment variables that override file values.
const (
	EnvDatabase     = "SEAMLINE_DB"
	EnvRedisURL     = "SEAMLINE_REDIS_URL"
	EnvPollInterval = "SEAMLINE_POLL_INTERVAL"
	EnvConcurrency  = "SEAMLINE_CONCURRENCY"
	EnvTemplates    = "SEAMLINE_TEMPLATES"
	EnvFetchRate    = "SEAMLINE_FETCH_RATE"
)

// Config holds every runtime setting.
type Config struct {
	Database     string `yaml:"database" validate:"required"`
	RedisURL     string `yaml:"redis_url" validate:"omitempty,url"`
	TemplatesDir string `yaml:"templates_dir"`

	PollInterval       time.Duration `yaml:"poll_interval" validate:"gte=1s"`
	Concurrency        int           `yaml:"concurrency" validate:"gte=1,lte=64"`
	FetchRatePerSecond float64       `yaml:"fetch_rate_per_second" validate:"gte=0"`
	CacheTTL           time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	PageSize           int           `yaml:"page_size" validate:"gte=1,lte=1000"`

	Policy PolicyConfig `yaml:"policy"`
}

// PolicyConfig is the file form of engine.Policy.
type PolicyConfig struct {
	NodeCompleteRatio     float64 `yaml:"node_complete_ratio" validate:"gt=0,lte=1"`
	CloseTolerancePercent int     `yaml:"close_tolerance_percent" validate:"gt=0,lte=100"`
	Strategy              string  `yaml:"strategy" validate:"oneof=sequential additive"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database:           "seamline.db",
		PollInterval:       30 * time.Second,
		Concurrency:        4,
		FetchRatePerSecond: 10,
		CacheTTL:           2 * time.Minute,
		PageSize:           200,
		Policy: PolicyConfig{
			NodeCompleteRatio:     engine.DefaultNodeCompleteRatio,
			CloseTolerancePercent: engine.DefaultCloseTolerancePercent,
			Strategy:              engine.Sequential.String(),
		},
	}
}

// Load builds a Config. path names a YAML file; when empty, DefaultFile is
// used if present. A .env file in the working directory is loaded when it
// exists. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	// Missing .env is fine.
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookup(EnvDatabase); ok {
		cfg.Database = v
	}
	if v, ok := lookup(EnvRedisURL); ok {
		cfg.RedisURL = v
	}
	if v, ok := lookup(EnvTemplates); ok {
		cfg.TemplatesDir = v
	}
	if v, ok := lookup(EnvPollInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		cfg.PollInterval = d
	}
	if v, ok := lookup(EnvConcurrency); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConcurrency, err)
		}
		cfg.Concurrency = n
	}
	if v, ok := lookup(EnvFetchRate); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFetchRate, err)
		}
		cfg.FetchRatePerSecond = f
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate checks field ranges.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", yamlPath(fe), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// yamlPath converts a validator namespace (Config.Policy.Strategy) into
// the snake_case key the user wrote.
func yamlPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	switch s {
	case "RedisURL":
		return "redis_url"
	case "TemplatesDir":
		return "templates_dir"
	}
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EnginePolicy converts the policy settings.
func (c Config) EnginePolicy() engine.Policy {
	strategy, _ := engine.ParseProgressStrategy(c.Policy.Strategy)
	return engine.Policy{
		NodeCompleteRatio:     c.Policy.NodeCompleteRatio,
		CloseTolerancePercent: c.Policy.CloseTolerancePercent,
		Strategy:              strategy,
	}
}
