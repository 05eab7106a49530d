package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor decodes PDF bytes with the pdf library first, then a raw
// content-stream decoder, then the pdftotext binary if it is installed.
type PDFExtractor struct {
	Logger *slog.Logger
	// Pdftotext is the binary name or path; empty disables the fallback.
	Pdftotext string
}

// NewPDFExtractor returns a PDFExtractor with the pdftotext fallback enabled.
func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PDFExtractor{Logger: logger, Pdftotext: "pdftotext"}
}

// Extract returns the readable text of data. Library errors are classified
// into the package sentinels; ErrNoText means every method ran but none
// produced readable text.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("%PDF")) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrCorrupted)
	}

	res, libErr := extractWithLibrary(data)
	if libErr == nil && IsReadable(res.Pages) {
		return res, nil
	}
	if libErr != nil {
		libErr = Classify(libErr)
		logger.Debug("pdf library failed", slog.Any("error", libErr))
		if errors.Is(libErr, ErrPasswordProtected) {
			return nil, libErr
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, Classify(err)
	}

	if pages := extractRaw(data); IsReadable(pages) {
		return newResult(pages, "raw"), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, Classify(err)
	}

	if e.Pdftotext != "" {
		pages, err := e.extractWithPdftotext(ctx, data)
		if err == nil && IsReadable(pages) {
			return newResult(pages, "pdftotext"), nil
		}
		if err != nil {
			logger.Debug("pdftotext fallback failed", slog.Any("error", err))
		}
	}

	if libErr != nil {
		return nil, libErr
	}
	return nil, ErrNoText
}

// extractWithLibrary tries the pdf library's row, content and plain-text
// readers in turn. The library panics on some malformed input.
func extractWithLibrary(data []byte) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: pdf reader panic: %v", ErrCorrupted, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := r.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrStructure)
	}

	methods := []struct {
		name string
		fn   func(*pdf.Reader, int) []string
	}{
		{"rows", pagesByRow},
		{"content", pagesByContent},
		{"plain", pagesByPlainText},
	}
	var pages []string
	for _, m := range methods {
		pages = m.fn(r, n)
		if IsReadable(pages) {
			return &Result{Text: strings.Join(pages, "\n"), Pages: pages, PageCount: n, Method: m.name}, nil
		}
	}

	if rd, err := r.GetPlainText(); err == nil {
		if b, err := io.ReadAll(rd); err == nil {
			whole := []string{strings.TrimSpace(string(b))}
			if IsReadable(whole) {
				return &Result{Text: whole[0], Pages: whole, PageCount: n, Method: "document"}, nil
			}
		}
	}
	return &Result{Text: strings.Join(pages, "\n"), Pages: pages, PageCount: n, Method: "plain"}, nil
}

func pagesByRow(r *pdf.Reader, n int) []string {
	var pages []string
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// columnGap is the x distance that separates two text runs into columns.
const columnGap = 15

// pagesByContent rebuilds rows from positioned text runs, top to bottom and
// left to right.
func pagesByContent(r *pdf.Reader, n int) []string {
	type run struct {
		x float64
		s string
	}
	var pages []string
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		rows := make(map[int][]run)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			rows[y] = append(rows[y], run{t.X, t.S})
		}
		if len(rows) == 0 {
			continue
		}

		ys := make([]int, 0, len(rows))
		for y := range rows {
			ys = append(ys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		lines := make([]string, 0, len(ys))
		for _, y := range ys {
			runs := rows[y]
			sort.Slice(runs, func(a, b int) bool { return runs[a].x < runs[b].x })
			var b strings.Builder
			for j, rn := range runs {
				if j > 0 && rn.x-runs[j-1].x > columnGap {
					b.WriteString("  ")
				}
				b.WriteString(rn.s)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func pagesByPlainText(r *pdf.Reader, n int) []string {
	var pages []string
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

// extractWithPdftotext shells out to poppler's pdftotext. Pages come back
// separated by form feeds.
func (e *PDFExtractor) extractWithPdftotext(ctx context.Context, data []byte) ([]string, error) {
	bin, err := exec.LookPath(e.Pdftotext)
	if err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	out, err := exec.CommandContext(ctx, bin, "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	var pages []string
	for _, p := range strings.Split(string(out), "\f") {
		if p = strings.TrimSpace(p); p != "" {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}
