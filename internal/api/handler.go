// Package api serves statement conversion over HTTP.
package api

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/insightdelivered/statement-ledger/internal/extractor"
	"github.com/insightdelivered/statement-ledger/internal/metrics"
	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/parser"
	"github.com/insightdelivered/statement-ledger/internal/store"
	"github.com/insightdelivered/statement-ledger/internal/writer"
)

// UserHeader carries the caller's user id for conversion history.
const UserHeader = "X-User-ID"

// ConvertResponse is the JSON response from POST /api/convert.
type ConvertResponse struct {
	Success          bool   `json:"success"`
	Filename         string `json:"filename"`
	CSVData          string `json:"csvData"`
	TransactionCount int    `json:"transactionCount"`
	UsedSampleData   bool   `json:"usedSampleData"`
	FallbackReason   string `json:"fallbackReason,omitempty"`
	ConversionID     string `json:"conversionId,omitempty"`
}

// Handler holds the dependencies of the HTTP handlers. Store and Metrics
// may be nil.
type Handler struct {
	Parser      *parser.Parser
	PDF         extractor.Extractor
	Store       store.Store
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Header      writer.HeaderStyle
	Timeout     time.Duration
	MaxFileSize int64
	Version     string
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.Version,
		"storage": h.Store != nil,
	})
}

// HandleConvert accepts a multipart upload in field "file" and returns the
// ledger as CSV. A non-empty "extractedText" field skips server-side
// extraction.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	resp, err := h.convert(c)
	if err != nil {
		if h.Metrics != nil {
			h.Metrics.ObserveError(asError(err).Code)
		}
		return err
	}
	if h.Metrics != nil {
		h.Metrics.ObserveConversion(resp.UsedSampleData, resp.TransactionCount)
	}
	return c.JSON(resp)
}

func (h *Handler) convert(c *fiber.Ctx) (*ConvertResponse, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, newError(fiber.StatusBadRequest, CodeNoFile, "No file uploaded",
			"Attach the statement in the form field 'file'.")
	}
	if h.MaxFileSize > 0 && fh.Size > h.MaxFileSize {
		return nil, newError(fiber.StatusRequestEntityTooLarge, CodeFileTooLarge, "File too large",
			"The statement exceeds the upload size limit.")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".pdf" && ext != ".txt" {
		return nil, newError(fiber.StatusBadRequest, CodeInvalidFileType, "Invalid file type",
			"Only PDF and plain-text statements are supported.")
	}

	header := h.Header
	if v := c.FormValue("header"); v != "" {
		if header, err = writer.ParseHeaderStyle(v); err != nil {
			return nil, newError(fiber.StatusBadRequest, CodeInvalidParameter, "Invalid header style",
				"header must be 'upper' or 'title'.")
		}
	}

	userID, err := userFromRequest(c)
	if err != nil {
		return nil, err
	}

	text := c.FormValue("extractedText")
	if strings.TrimSpace(text) == "" {
		text, err = h.extract(c, fh, ext)
		if err != nil {
			return nil, err
		}
	}

	ledger := h.Parser.Parse(text)
	if !ledger.UsedSampleData && ledger.FallbackReason == models.FallbackInsufficientText {
		return nil, newError(fiber.StatusUnprocessableEntity, CodeInsufficientText, "Insufficient text",
			"Too little text was extracted to find any transactions.")
	}

	w := &writer.CSVWriter{Header: header}
	csv := w.String(ledger.Transactions)
	resp := &ConvertResponse{
		Success:          true,
		Filename:         strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename)) + ".csv",
		CSVData:          csv,
		TransactionCount: len(ledger.Transactions),
		UsedSampleData:   ledger.UsedSampleData,
		FallbackReason:   string(ledger.FallbackReason),
	}

	if h.Store != nil && userID != uuid.Nil {
		conv, err := h.Store.Save(c.UserContext(), models.Conversion{
			UserID:           userID,
			Filename:         fh.Filename,
			TransactionCount: resp.TransactionCount,
			UsedSampleData:   resp.UsedSampleData,
			ByteSize:         len(csv),
			CSV:              csv,
		})
		if err != nil {
			h.Logger.Error("failed to save conversion", slog.Any("error", err))
		} else {
			resp.ConversionID = conv.ID.String()
		}
	}

	h.Logger.Info("statement converted",
		slog.String("filename", fh.Filename),
		slog.Int("transactions", resp.TransactionCount),
		slog.Bool("sample", resp.UsedSampleData),
		slog.Int("text_length", ledger.TextLength),
		slog.Int("discarded", ledger.Discarded),
	)
	return resp, nil
}

func (h *Handler) extract(c *fiber.Ctx, fh *multipart.FileHeader, ext string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", newError(fiber.StatusBadRequest, CodeNoFile, "Unreadable upload", "The uploaded file could not be read.")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", newError(fiber.StatusBadRequest, CodeNoFile, "Unreadable upload", "The uploaded file could not be read.")
	}

	var ex extractor.Extractor = extractor.TextExtractor{}
	if ext == ".pdf" {
		ex = h.PDF
	}

	start := time.Now()
	res, err := extractor.ExtractWithTimeout(c.UserContext(), ex, data, h.Timeout)
	if h.Metrics != nil {
		method := "failed"
		if res != nil {
			method = res.Method
		}
		h.Metrics.ObserveExtraction(method, time.Since(start))
	}
	if err != nil {
		return "", extractionError(err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return "", extractionError(extractor.ErrNoText)
	}
	return res.Text, nil
}

// HandleListConversions returns the caller's conversion history.
func (h *Handler) HandleListConversions(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	list, err := h.Store.List(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"conversions": list})
}

// HandleConversionCSV downloads the CSV of one stored conversion.
func (h *Handler) HandleConversionCSV(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return newError(fiber.StatusBadRequest, CodeInvalidParameter, "Invalid id", "Conversion id must be a UUID.")
	}
	conv, err := h.Store.Get(c.UserContext(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return newError(fiber.StatusNotFound, CodeNotFound, "Not found", "No such conversion.")
	}
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(conv.Filename, filepath.Ext(conv.Filename)) + ".csv"
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.SendString(conv.CSV)
}

func userFromRequest(c *fiber.Ctx) (uuid.UUID, error) {
	v := strings.TrimSpace(c.Get(UserHeader))
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, newError(fiber.StatusBadRequest, CodeInvalidParameter, "Invalid user id",
			UserHeader+" must be a UUID.")
	}
	return id, nil
}

func requireUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := userFromRequest(c)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, newError(fiber.StatusBadRequest, CodeInvalidParameter, "Missing user id",
			UserHeader+" header is required.")
	}
	return id, nil
}
