package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelens/gemini"
	"github.com/rustyeddy/tradelens/imaging"
	"github.com/rustyeddy/tradelens/risk"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, gemini.DefaultModel, cfg.Gemini.Model)
	assert.Equal(t, "SMC/ICT", cfg.Gemini.Strategy)
	assert.Equal(t, 5000.0, cfg.Risk.Balance)
	assert.Equal(t, 1.0, cfg.Risk.RiskPercent)
	assert.Equal(t, 10.0, cfg.Risk.DefaultPipValue)
	assert.NoError(t, cfg.Validate())

	d, err := cfg.Gemini.ParseTimeout()
	require.NoError(t, err)
	assert.Equal(t, gemini.DefaultTimeout, d)

	opts, err := cfg.Image.Options()
	require.NoError(t, err)
	assert.Equal(t, imaging.DefaultOptions(), opts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"missing model", func(c *Config) { c.Gemini.Model = "" }, "gemini.model is required"},
		{"bad timeout", func(c *Config) { c.Gemini.Timeout = "soon" }, "gemini.timeout must be a positive duration"},
		{"blank strategy", func(c *Config) { c.Gemini.Strategy = "  " }, "gemini.strategy is required"},
		{"quality too high", func(c *Config) { c.Image.Quality = 1.5 }, "quality must be in (0, 1]"},
		{"zero width", func(c *Config) { c.Image.MaxWidth = 0 }, "max width must be positive"},
		{"bad decode timeout", func(c *Config) { c.Image.DecodeTimeout = "x" }, "image.decode_timeout"},
		{"negative max pixels", func(c *Config) { c.Image.MaxPixels = -1 }, "max pixels must not be negative"},
		{"negative balance", func(c *Config) { c.Risk.Balance = -1 }, "risk.balance must not be negative"},
		{"risk over 100", func(c *Config) { c.Risk.RiskPercent = 101 }, "risk.risk_percent must be between 0 and 100"},
		{"zero pip value", func(c *Config) { c.Risk.DefaultPipValue = 0 }, "risk.default_pip_value must be positive"},
		{"bad pip table", func(c *Config) { c.Risk.PipValues = map[string]float64{"XAUUSD": -1} }, "risk.pip_values[XAUUSD] must be positive"},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "redis" }, "ledger.backend must be"},
		{"sqlite without path", func(c *Config) { c.Ledger.Backend = "sqlite"; c.Ledger.Path = "" }, "ledger.path required for sqlite backend"},
		{"memory without path", func(c *Config) { c.Ledger.Backend = "memory"; c.Ledger.Path = "" }, ""},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"upper case log level", func(c *Config) { c.Log.Level = "DEBUG" }, ""},
		{"no listen address", func(c *Config) { c.Server.Listen = "" }, "server.listen is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tradelens.yaml")

	cfg := Default()
	cfg.Gemini.APIKey = "secret"
	cfg.Risk.PipValues = map[string]float64{"XAUUSD": 1}
	cfg.Ledger.Backend = "sqlite"
	cfg.Ledger.Path = "ledger.db"
	require.NoError(t, cfg.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "risk_percent: 1")
	assert.Equal(t, "secret", cfg.Gemini.APIKey)

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.Gemini.APIKey)
	assert.Equal(t, "sqlite", loaded.Ledger.Backend)
	assert.Equal(t, map[string]float64{"XAUUSD": 1}, loaded.Risk.PipValues)
}

func TestSaveAndLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tradelens.json")

	cfg := Default()
	cfg.Server.Listen = "127.0.0.1:9000"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", loaded.Server.Listen)
	assert.Equal(t, cfg.Image, loaded.Image)
}

func TestLoadFromFilePartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk:\n  balance: 25000\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 25000.0, cfg.Risk.Balance)
	assert.Equal(t, 1.0, cfg.Risk.RiskPercent)
	assert.Equal(t, gemini.DefaultModel, cfg.Gemini.Model)
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("risk: [unclosed"), 0644))
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "parse config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("ledger:\n  backend: tape\n"), 0644))
	_, err = LoadFromFile(invalid)
	assert.ErrorContains(t, err, "invalid config")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k-123")
	t.Setenv("GEMINI_MODEL", "gemini-flash")
	t.Setenv("GEMINI_BASE_URL", "http://localhost:1234")
	t.Setenv("TRADELENS_LOG_LEVEL", "debug")
	t.Setenv("TRADELENS_LEDGER_PATH", "/tmp/ledger")
	t.Setenv("TRADELENS_BALANCE", "12500.50")
	t.Setenv("TRADELENS_RISK_PERCENT", "2%")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "k-123", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-flash", cfg.Gemini.Model)
	assert.Equal(t, "http://localhost:1234", cfg.Gemini.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/ledger", cfg.Ledger.Path)
	assert.Equal(t, 12500.5, cfg.Risk.Balance)
	assert.Equal(t, 2.0, cfg.Risk.RiskPercent)
}

func TestApplyEnvBadNumber(t *testing.T) {
	t.Setenv("TRADELENS_BALANCE", "lots")

	err := Default().ApplyEnv()
	assert.ErrorContains(t, err, "TRADELENS_BALANCE")
}

func TestLoadWithDotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRADELENS_BALANCE=777\n"), 0644))
	t.Setenv("TRADELENS_BALANCE", "")
	os.Unsetenv("TRADELENS_BALANCE")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 777.0, cfg.Risk.Balance)
}

func TestRiskSizer(t *testing.T) {
	rc := RiskConfig{DefaultPipValue: 10, PipValues: map[string]float64{"xau/usd": 1}}
	s := rc.Sizer()
	assert.Equal(t, 1.0, s.PipValue("XAUUSD"))
	assert.Equal(t, 10.0, s.PipValue("EURUSD"))
}

func TestRiskPolicy(t *testing.T) {
	assert.Equal(t, risk.DefaultPolicy(), Default().Risk.Policy())

	cfg := Default()
	cfg.Risk.MinRR = -1
	assert.ErrorContains(t, cfg.Validate(), "risk review limits")
}

func TestParseShutdownTimeout(t *testing.T) {
	d, err := ServerConfig{ShutdownTimeout: "5s"}.ParseShutdownTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	d, err = ServerConfig{}.ParseShutdownTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)
}
