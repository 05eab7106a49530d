// Package extractor pulls plain text out of uploaded statement documents.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// DefaultTimeout bounds a single extraction.
const DefaultTimeout = 25 * time.Second

// Sentinel errors surfaced to callers. Library failures are wrapped so that
// errors.Is matches one of these.
var (
	ErrPasswordProtected = errors.New("document is password protected")
	ErrCorrupted         = errors.New("document is corrupted")
	ErrStructure         = errors.New("document structure is invalid")
	ErrTimeout           = errors.New("text extraction timed out")
	ErrNoText            = errors.New("no readable text could be extracted")
)

// Result is the text recovered from one document.
type Result struct {
	Text      string
	Pages     []string
	PageCount int
	Method    string
}

// Extractor turns document bytes into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Result, error)
}

func newResult(pages []string, method string) *Result {
	return &Result{
		Text:      strings.Join(pages, "\n"),
		Pages:     pages,
		PageCount: len(pages),
		Method:    method,
	}
}

// Classify maps a PDF library error onto one of the package sentinels.
// Errors that already wrap a sentinel, context.Canceled and nil are returned
// unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, s := range []error{ErrPasswordProtected, ErrCorrupted, ErrStructure, ErrTimeout, ErrNoText} {
		if errors.Is(err, s) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, pdf.ErrInvalidPassword), strings.Contains(msg, "encrypt"), strings.Contains(msg, "password"):
		return fmt.Errorf("%w: %v", ErrPasswordProtected, err)
	case strings.Contains(msg, "malformed"), strings.Contains(msg, "xref"), strings.Contains(msg, "trailer"):
		return fmt.Errorf("%w: %v", ErrStructure, err)
	default:
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
}

// ExtractWithTimeout runs ex against data and gives up after d, returning
// ErrTimeout. A non-positive d means DefaultTimeout.
func ExtractWithTimeout(ctx context.Context, ex Extractor, data []byte, d time.Duration) (*Result, error) {
	if d <= 0 {
		d = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := ex.Extract(ctx, data)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		if errors.Is(o.err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return o.res, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// TextExtractor treats the input as already-extracted UTF-8 text.
type TextExtractor struct{}

// Extract splits data on form feeds into pages.
func (TextExtractor) Extract(_ context.Context, data []byte) (*Result, error) {
	pages := strings.Split(string(data), "\f")
	res := newResult(pages, "text")
	if strings.TrimSpace(res.Text) == "" {
		return res, ErrNoText
	}
	return res, nil
}
