package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradelens/gemini"
	"github.com/rustyeddy/tradelens/imaging"
	"github.com/rustyeddy/tradelens/journal"
	"github.com/rustyeddy/tradelens/risk"
)

// Config is the complete application configuration
type Config struct {
	Gemini GeminiConfig `json:"gemini" yaml:"gemini"`
	Image  ImageConfig  `json:"image" yaml:"image"`
	Risk   RiskConfig   `json:"risk" yaml:"risk"`
	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`
	Log    LogConfig    `json:"log" yaml:"log"`
	Server ServerConfig `json:"server" yaml:"server"`
}

// GeminiConfig configures the analysis client. The API key normally comes
// from GEMINI_API_KEY rather than the file.
type GeminiConfig struct {
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	Timeout  string `json:"timeout" yaml:"timeout"` // e.g. "120s"
	Strategy string `json:"strategy" yaml:"strategy"`
}

// ParseTimeout converts the timeout string to time.Duration
func (g GeminiConfig) ParseTimeout() (time.Duration, error) {
	if g.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(g.Timeout)
}

// ImageConfig controls chart normalization before upload
type ImageConfig struct {
	Quality       float64 `json:"quality" yaml:"quality"`
	MaxWidth      int     `json:"max_width" yaml:"max_width"`
	DecodeTimeout string  `json:"decode_timeout" yaml:"decode_timeout"`
	MaxPixels     int     `json:"max_pixels" yaml:"max_pixels"` // 0 disables the check
}

// Options converts the section to normalizer options.
func (c ImageConfig) Options() (imaging.Options, error) {
	o := imaging.Options{Quality: c.Quality, MaxWidth: c.MaxWidth, MaxPixels: c.MaxPixels}
	if c.DecodeTimeout != "" {
		d, err := time.ParseDuration(c.DecodeTimeout)
		if err != nil {
			return o, fmt.Errorf("image.decode_timeout: %w", err)
		}
		o.Timeout = d
	}
	return o, o.Validate()
}

// RiskConfig holds the sizing defaults
type RiskConfig struct {
	Balance         float64            `json:"balance" yaml:"balance"`
	RiskPercent     float64            `json:"risk_percent" yaml:"risk_percent"`
	DefaultPipValue float64            `json:"default_pip_value" yaml:"default_pip_value"`
	PipValues       map[string]float64 `json:"pip_values,omitempty" yaml:"pip_values,omitempty"`

	// advisory review limits; 0 disables a check
	MaxRiskPercent float64 `json:"max_risk_percent" yaml:"max_risk_percent"`
	MinRR          float64 `json:"min_rr" yaml:"min_rr"`
	MinConfidence  float64 `json:"min_confidence" yaml:"min_confidence"`
}

// Policy returns the review limits.
func (c RiskConfig) Policy() risk.Policy {
	return risk.Policy{
		MaxRiskPercent: c.MaxRiskPercent,
		MinRR:          c.MinRR,
		MinConfidence:  c.MinConfidence,
	}
}

// Sizer builds a position sizer from the pip-value table.
func (c RiskConfig) Sizer() risk.Sizer {
	s := risk.Sizer{DefaultPipValue: c.DefaultPipValue}
	if len(c.PipValues) > 0 {
		s.PipValues = make(map[string]float64, len(c.PipValues))
		for pair, v := range c.PipValues {
			s.PipValues[risk.NormalizePair(pair)] = v
		}
	}
	return s
}

// LedgerConfig selects where the journal is persisted
type LedgerConfig struct {
	Backend string `json:"backend" yaml:"backend"` // "file", "sqlite" or "memory"
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LogConfig configures zerolog and the optional rotating log file
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty" yaml:"compress,omitempty"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Listen          string `json:"listen" yaml:"listen"`
	ShutdownTimeout string `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ParseShutdownTimeout converts the shutdown timeout to time.Duration
func (s ServerConfig) ParseShutdownTimeout() (time.Duration, error) {
	if s.ShutdownTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(s.ShutdownTimeout)
}

// LoadFromFile loads configuration from a file (YAML or JSON). Values missing
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load reads path when it is set, otherwise starts from Default, then
// applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		c, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	LoadDotEnv()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Debug().Err(err).Msg("no .env file, using process environment")
	}
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		c.Gemini.BaseURL = v
	}
	if v := os.Getenv("TRADELENS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TRADELENS_LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("TRADELENS_BALANCE"); v != "" {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return fmt.Errorf("TRADELENS_BALANCE: %w", err)
		}
		c.Risk.Balance = f
	}
	if v := os.Getenv("TRADELENS_RISK_PERCENT"); v != "" {
		f, err := cast.ToFloat64E(strings.TrimSuffix(v, "%"))
		if err != nil {
			return fmt.Errorf("TRADELENS_RISK_PERCENT: %w", err)
		}
		c.Risk.RiskPercent = f
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
// The API key is never written.
func (c *Config) SaveToFile(path string) error {
	out := *c
	out.Gemini.APIKey = ""

	var data []byte
	var err error

	// Determine format by extension
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(&out)
	default:
		data, err = json.MarshalIndent(&out, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Gemini.Model == "" {
		return fmt.Errorf("gemini.model is required")
	}
	if c.Gemini.BaseURL == "" {
		return fmt.Errorf("gemini.base_url is required")
	}
	if d, err := c.Gemini.ParseTimeout(); err != nil || d < 0 {
		return fmt.Errorf("gemini.timeout must be a positive duration")
	}
	if strings.TrimSpace(c.Gemini.Strategy) == "" {
		return fmt.Errorf("gemini.strategy is required")
	}
	if _, err := c.Image.Options(); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if c.Risk.Balance < 0 {
		return fmt.Errorf("risk.balance must not be negative")
	}
	if c.Risk.RiskPercent < 0 || c.Risk.RiskPercent > 100 {
		return fmt.Errorf("risk.risk_percent must be between 0 and 100")
	}
	if c.Risk.DefaultPipValue <= 0 {
		return fmt.Errorf("risk.default_pip_value must be positive")
	}
	if c.Risk.MaxRiskPercent < 0 || c.Risk.MinRR < 0 || c.Risk.MinConfidence < 0 {
		return fmt.Errorf("risk review limits must not be negative")
	}
	for pair, v := range c.Risk.PipValues {
		if v <= 0 {
			return fmt.Errorf("risk.pip_values[%s] must be positive", pair)
		}
	}
	switch c.Ledger.Backend {
	case journal.BackendFile, journal.BackendSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path required for %s backend", c.Ledger.Backend)
		}
	case journal.BackendMemory:
	default:
		return fmt.Errorf("ledger.backend must be 'file', 'sqlite' or 'memory'")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if _, err := c.Server.ParseShutdownTimeout(); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model:    gemini.DefaultModel,
			BaseURL:  gemini.DefaultBaseURL,
			Timeout:  "120s",
			Strategy: "SMC/ICT",
		},
		Image: ImageConfig{
			Quality:       0.7,
			MaxWidth:      1200,
			DecodeTimeout: "10s",
			MaxPixels:     imaging.DefaultMaxPixels,
		},
		Risk: RiskConfig{
			Balance:         5000,
			RiskPercent:     1,
			DefaultPipValue: risk.DefaultPipValue,
			MaxRiskPercent:  risk.DefaultPolicy().MaxRiskPercent,
			MinRR:           risk.DefaultPolicy().MinRR,
		},
		Ledger: LedgerConfig{
			Backend: journal.BackendFile,
			Path:    "./tradelens-data",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Server: ServerConfig{
			Listen:          ":8080",
			ShutdownTimeout: "10s",
		},
	}
}
