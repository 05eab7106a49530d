// Package config loads runtime settings from defaults, an optional YAML file,
// .env files and LEDGER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Parser    ParserConfig    `yaml:"parser"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr               string  `yaml:"addr"`
	BodyLimitMB        int     `yaml:"body_limit_mb"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

// ParserConfig tunes the statement heuristics.
type ParserConfig struct {
	Lookahead       int    `yaml:"lookahead"`
	MaxTransactions int    `yaml:"max_transactions"`
	MinTextLength   int    `yaml:"min_text_length"`
	SampleFallback  bool   `yaml:"sample_fallback"`
	BalancePolicy   string `yaml:"balance_policy"` // "last" or "second"
	Header          string `yaml:"header"`         // "upper" or "title"
}

// ExtractorConfig controls text extraction.
type ExtractorConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Pdftotext string        `yaml:"pdftotext"`
}

// StorageConfig controls conversion history.
type StorageConfig struct {
	Path              string `yaml:"path"`
	RetentionDays     int    `yaml:"retention_days"`
	RetentionSchedule string `yaml:"retention_schedule"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8080",
			BodyLimitMB:        10,
			RateLimitPerSecond: 2,
			RateLimitBurst:     10,
		},
		Parser: ParserConfig{
			Lookahead:       2,
			MaxTransactions: 50,
			MinTextLength:   100,
			SampleFallback:  true,
			BalancePolicy:   "last",
			Header:          "upper",
		},
		Extractor: ExtractorConfig{
			Timeout:   25 * time.Second,
			Pdftotext: "pdftotext",
		},
		Storage: StorageConfig{
			Path:              "ledger.db",
			RetentionDays:     30,
			RetentionSchedule: "@daily",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config. path may be empty to skip the YAML file; envFiles
// that do not exist are ignored. Variables already set in the process
// environment win over .env values.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("LEDGER_ADDR", &c.Server.Addr)
	num("LEDGER_BODY_LIMIT_MB", &c.Server.BodyLimitMB)
	float("LEDGER_RATE_LIMIT_PER_SECOND", &c.Server.RateLimitPerSecond)
	num("LEDGER_RATE_LIMIT_BURST", &c.Server.RateLimitBurst)

	num("LEDGER_LOOKAHEAD", &c.Parser.Lookahead)
	num("LEDGER_MAX_TRANSACTIONS", &c.Parser.MaxTransactions)
	num("LEDGER_MIN_TEXT_LENGTH", &c.Parser.MinTextLength)
	boolean("LEDGER_SAMPLE_FALLBACK", &c.Parser.SampleFallback)
	str("LEDGER_BALANCE_POLICY", &c.Parser.BalancePolicy)
	str("LEDGER_CSV_HEADER", &c.Parser.Header)

	duration("LEDGER_EXTRACT_TIMEOUT", &c.Extractor.Timeout)
	str("LEDGER_PDFTOTEXT", &c.Extractor.Pdftotext)

	str("LEDGER_DB_PATH", &c.Storage.Path)
	num("LEDGER_RETENTION_DAYS", &c.Storage.RetentionDays)
	str("LEDGER_RETENTION_SCHEDULE", &c.Storage.RetentionSchedule)

	str("LEDGER_LOG_LEVEL", &c.Log.Level)
	str("LEDGER_LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.BodyLimitMB <= 0 {
		errs = append(errs, errors.New("server.body_limit_mb must be positive"))
	}
	if c.Server.RateLimitPerSecond <= 0 || c.Server.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("server rate limit and burst must be positive"))
	}
	if c.Parser.Lookahead < 0 {
		errs = append(errs, errors.New("parser.lookahead must not be negative"))
	}
	if c.Parser.MaxTransactions <= 0 {
		errs = append(errs, errors.New("parser.max_transactions must be positive"))
	}
	if c.Parser.MinTextLength < 0 {
		errs = append(errs, errors.New("parser.min_text_length must not be negative"))
	}
	switch strings.ToLower(c.Parser.BalancePolicy) {
	case "last", "second":
	default:
		errs = append(errs, fmt.Errorf("parser.balance_policy: unknown value %q", c.Parser.BalancePolicy))
	}
	switch strings.ToLower(c.Parser.Header) {
	case "upper", "title":
	default:
		errs = append(errs, fmt.Errorf("parser.header: unknown value %q", c.Parser.Header))
	}
	if c.Extractor.Timeout <= 0 {
		errs = append(errs, errors.New("extractor.timeout must be positive"))
	}
	if c.Storage.RetentionDays < 0 {
		errs = append(errs, errors.New("storage.retention_days must not be negative"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown value %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// BodyLimit returns the upload limit in bytes.
func (s ServerConfig) BodyLimit() int {
	return s.BodyLimitMB << 20
}

// Retention returns the history retention window; zero disables purging.
func (s StorageConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// NewLogger builds the slog logger described by l.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
