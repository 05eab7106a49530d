package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-ledger/internal/extractor"
	"github.com/insightdelivered/statement-ledger/internal/metrics"
	"github.com/insightdelivered/statement-ledger/internal/parser"
	"github.com/insightdelivered/statement-ledger/internal/store"
)

const statementText = `First Community Bank
Statement period Aug 1 to Aug 31, 2025
Date Description Amount Balance
Aug 19, 2025  Direct Deposit  PAYROLL ACH Transaction ID: 151-22201001  $3,449.55
Aug 20, 2025  Debit card purchase GROCERY MART  -$54.20  $3,395.35`

type stubExtractor struct {
	res   *extractor.Result
	err   error
	delay time.Duration
}

func (s stubExtractor) Extract(ctx context.Context, _ []byte) (*extractor.Result, error) {
	select {
	case <-time.After(s.delay):
		return s.res, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type upload struct {
	filename string
	content  string
	fields   map[string]string
	headers  map[string]string
}

func newRequest(t *testing.T, u upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if u.filename != "" {
		fw, err := mw.CreateFormFile("file", u.filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, u.content)
		require.NoError(t, err)
	}
	for k, v := range u.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range u.headers {
		req.Header.Set(k, v)
	}
	return req
}

func newTestApp(h *Handler) *fiber.App {
	if h.Parser == nil {
		// One line per transaction in the fixtures.
		h.Parser = parser.New(parser.WithLookahead(0))
	}
	return NewApp(h, AppConfig{BodyLimit: 1 << 20})
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(&Handler{Version: "test"})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestConvertTextUpload(t *testing.T) {
	app := newTestApp(&Handler{})

	resp, err := app.Test(newRequest(t, upload{filename: "august.txt", content: statementText}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[ConvertResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, "august.csv", body.Filename)
	assert.False(t, body.UsedSampleData)
	assert.Equal(t, 2, body.TransactionCount)
	assert.True(t, strings.HasPrefix(body.CSVData, "DATE,TYPE,DESCRIPTION,AMOUNT,BALANCE\n"))
	assert.Contains(t, body.CSVData, `"Aug 19, 2025","Direct Deposit","Payroll ach","3449.55","3449.55"`)
}

func TestConvertExtractedTextAndTitleHeader(t *testing.T) {
	app := newTestApp(&Handler{PDF: stubExtractor{err: extractor.ErrCorrupted}})

	resp, err := app.Test(newRequest(t, upload{
		filename: "august.pdf",
		content:  "%PDF-1.4 not really",
		fields:   map[string]string{"extractedText": statementText, "header": "title"},
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[ConvertResponse](t, resp)
	assert.True(t, strings.HasPrefix(body.CSVData, "Date,Type,Description,Amount,Balance\n"))
	assert.Equal(t, 2, body.TransactionCount)
}

func TestConvertSampleFallback(t *testing.T) {
	app := newTestApp(&Handler{})

	resp, err := app.Test(newRequest(t, upload{filename: "short.txt", content: "Statement with nothing in it"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[ConvertResponse](t, resp)
	assert.True(t, body.UsedSampleData)
	assert.Equal(t, 5, body.TransactionCount)
	assert.Equal(t, "insufficient_text", body.FallbackReason)
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler *Handler
		upload  upload
		status  int
		code    string
	}{
		{
			name:    "no file",
			handler: &Handler{},
			upload:  upload{fields: map[string]string{"header": "upper"}},
			status:  fiber.StatusBadRequest,
			code:    CodeNoFile,
		},
		{
			name:    "wrong type",
			handler: &Handler{},
			upload:  upload{filename: "statement.docx", content: "x"},
			status:  fiber.StatusBadRequest,
			code:    CodeInvalidFileType,
		},
		{
			name:    "too large",
			handler: &Handler{MaxFileSize: 16},
			upload:  upload{filename: "big.txt", content: strings.Repeat("x", 64)},
			status:  fiber.StatusRequestEntityTooLarge,
			code:    CodeFileTooLarge,
		},
		{
			name:    "bad header style",
			handler: &Handler{},
			upload:  upload{filename: "a.txt", content: statementText, fields: map[string]string{"header": "lower"}},
			status:  fiber.StatusBadRequest,
			code:    CodeInvalidParameter,
		},
		{
			name:    "bad user id",
			handler: &Handler{},
			upload:  upload{filename: "a.txt", content: statementText, headers: map[string]string{UserHeader: "bob"}},
			status:  fiber.StatusBadRequest,
			code:    CodeInvalidParameter,
		},
		{
			name:    "corrupted pdf",
			handler: &Handler{PDF: extractor.NewPDFExtractor(nil)},
			upload:  upload{filename: "a.pdf", content: "this is not a pdf"},
			status:  fiber.StatusUnprocessableEntity,
			code:    CodeCorrupted,
		},
		{
			name:    "password protected",
			handler: &Handler{PDF: stubExtractor{err: extractor.ErrPasswordProtected}},
			upload:  upload{filename: "a.pdf", content: "%PDF"},
			status:  fiber.StatusUnprocessableEntity,
			code:    CodePasswordProtected,
		},
		{
			name:    "invalid structure",
			handler: &Handler{PDF: stubExtractor{err: extractor.Classify(assertErr("malformed PDF: missing startxref"))}},
			upload:  upload{filename: "a.pdf", content: "%PDF"},
			status:  fiber.StatusUnprocessableEntity,
			code:    CodeInvalidStructure,
		},
		{
			name:    "extraction timeout",
			handler: &Handler{PDF: stubExtractor{delay: time.Second}, Timeout: 20 * time.Millisecond},
			upload:  upload{filename: "a.pdf", content: "%PDF"},
			status:  fiber.StatusGatewayTimeout,
			code:    CodeExtractionTimeout,
		},
		{
			name:    "client canceled",
			handler: &Handler{PDF: stubExtractor{err: context.Canceled}},
			upload:  upload{filename: "a.pdf", content: "%PDF"},
			status:  StatusClientClosedRequest,
			code:    CodeCanceled,
		},
		{
			name:    "empty text",
			handler: &Handler{},
			upload:  upload{filename: "a.txt", content: "   \n"},
			status:  fiber.StatusUnprocessableEntity,
			code:    CodeNoTextExtracted,
		},
		{
			name:    "insufficient text without sample",
			handler: &Handler{Parser: parser.New(parser.WithSampleFallback(false))},
			upload:  upload{filename: "a.txt", content: "Bank statement"},
			status:  fiber.StatusUnprocessableEntity,
			code:    CodeInsufficientText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.handler)
			resp, err := app.Test(newRequest(t, tt.upload))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			body := decode[ErrorResponse](t, resp)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestConvertRateLimited(t *testing.T) {
	app := NewApp(&Handler{}, AppConfig{BodyLimit: 1 << 20, RateLimitPerSecond: 0.001, RateLimitBurst: 1})

	resp, err := app.Test(newRequest(t, upload{filename: "a.txt", content: statementText}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(newRequest(t, upload{filename: "a.txt", content: statementText}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, CodeRateLimited, decode[ErrorResponse](t, resp).Code)
}

func TestConversionHistory(t *testing.T) {
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer s.Close()

	app := newTestApp(&Handler{Store: s})
	user := uuid.New().String()

	resp, err := app.Test(newRequest(t, upload{
		filename: "august.txt",
		content:  statementText,
		headers:  map[string]string{UserHeader: user},
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	converted := decode[ConvertResponse](t, resp)
	require.NotEmpty(t, converted.ConversionID)

	req := httptest.NewRequest(http.MethodGet, "/api/conversions", nil)
	req.Header.Set(UserHeader, user)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[map[string][]map[string]any](t, resp)
	require.Len(t, list["conversions"], 1)
	assert.Equal(t, "august.txt", list["conversions"][0]["filename"])

	req = httptest.NewRequest(http.MethodGet, "/api/conversions/"+converted.ConversionID+"/csv", nil)
	req.Header.Set(UserHeader, user)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	csv, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, converted.CSVData, string(csv))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "august.csv")

	req = httptest.NewRequest(http.MethodGet, "/api/conversions/"+uuid.New().String()+"/csv", nil)
	req.Header.Set(UserHeader, user)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/conversions", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(&Handler{Metrics: metrics.New()})

	resp, err := app.Test(newRequest(t, upload{filename: "a.txt", content: statementText}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, err = app.Test(newRequest(t, upload{filename: "a.docx", content: "x"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, `ledger_conversions_total{outcome="parsed"} 1`)
	assert.Contains(t, body, `ledger_errors_total{code="INVALID_FILE_TYPE"} 1`)
	assert.Contains(t, body, `ledger_extraction_duration_seconds_count{method="text"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(&Handler{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeNotFound, decode[ErrorResponse](t, resp).Code)
}
