package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Parser.Lookahead)
	assert.Equal(t, 50, cfg.Parser.MaxTransactions)
	assert.Equal(t, 25*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, 10<<20, cfg.Server.BodyLimit())
	assert.Equal(t, 30*24*time.Hour, cfg.Storage.Retention())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	yml := `
server:
  addr: ":9090"
parser:
  lookahead: 1
  balance_policy: second
  header: title
extractor:
  timeout: 5s
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 1, cfg.Parser.Lookahead)
	assert.Equal(t, "second", cfg.Parser.BalancePolicy)
	assert.Equal(t, "title", cfg.Parser.Header)
	assert.Equal(t, 5*time.Second, cfg.Extractor.Timeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, 50, cfg.Parser.MaxTransactions)
	assert.True(t, cfg.Parser.SampleFallback)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parser:\n  lookahead: 1\n"), 0o644))

	t.Setenv("LEDGER_LOOKAHEAD", "3")
	t.Setenv("LEDGER_SAMPLE_FALLBACK", "false")
	t.Setenv("LEDGER_EXTRACT_TIMEOUT", "40s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Parser.Lookahead)
	assert.False(t, cfg.Parser.SampleFallback)
	assert.Equal(t, 40*time.Second, cfg.Extractor.Timeout)
}

func TestLoadDotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LEDGER_DB_PATH=/tmp/from-dotenv.db\n"), 0o644))
	t.Setenv("LEDGER_DB_PATH", "")
	require.NoError(t, os.Unsetenv("LEDGER_DB_PATH"))

	cfg, err := Load("", envFile, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-dotenv.db", cfg.Storage.Path)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("LEDGER_MAX_TRANSACTIONS", "lots")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_MAX_TRANSACTIONS")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Parser.BalancePolicy = "middle"
	cfg.Parser.MaxTransactions = 0
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "balance_policy")
	assert.Contains(t, msg, "max_transactions")
	assert.Contains(t, msg, "log.level")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	want := Default()
	want.Storage.RetentionDays = 7
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"k":"v"`)
}
