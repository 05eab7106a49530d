package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestObserveConversion(t *testing.T) {
	m := New()
	m.ObserveConversion(false, 12)
	m.ObserveConversion(true, 5)
	m.ObserveConversion(false, 3)

	body := scrape(t, m)
	assert.Contains(t, body, `ledger_conversions_total{outcome="parsed"} 2`)
	assert.Contains(t, body, `ledger_conversions_total{outcome="sample"} 1`)
	assert.Contains(t, body, `ledger_transactions_per_conversion_count 3`)
	assert.Contains(t, body, `ledger_transactions_per_conversion_sum 20`)
}

func TestObserveError(t *testing.T) {
	m := New()
	m.ObserveError("PDF_CORRUPTED")
	m.ObserveError("PDF_CORRUPTED")
	m.ObserveError("NO_FILE")

	body := scrape(t, m)
	assert.Contains(t, body, `ledger_errors_total{code="PDF_CORRUPTED"} 2`)
	assert.Contains(t, body, `ledger_conversions_total{outcome="error"} 3`)
}

func TestRegistryGather(t *testing.T) {
	m := New()
	m.ObserveConversion(false, 4)
	m.ObserveError("NO_FILE")
	m.ObserveExtraction("text", time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"ledger_conversions_total",
		"ledger_transactions_per_conversion",
		"ledger_extraction_duration_seconds",
		"ledger_errors_total",
		"go_goroutines",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestObserveExtraction(t *testing.T) {
	m := New()
	m.ObserveExtraction("rows", 120*time.Millisecond)
	m.ObserveExtraction("", time.Second)

	body := scrape(t, m)
	assert.Contains(t, body, `ledger_extraction_duration_seconds_count{method="rows"} 1`)
	assert.Contains(t, body, `ledger_extraction_duration_seconds_count{method="unknown"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
