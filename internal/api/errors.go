package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/statement-ledger/internal/extractor"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeNoFile            = "NO_FILE"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeInvalidFileType   = "INVALID_FILE_TYPE"
	CodeInvalidParameter  = "INVALID_PARAMETER"
	CodePasswordProtected = "PDF_PASSWORD_PROTECTED"
	CodeCorrupted         = "PDF_CORRUPTED"
	CodeInvalidStructure  = "PDF_INVALID_STRUCTURE"
	CodeExtractionTimeout = "EXTRACTION_TIMEOUT"
	CodeNoTextExtracted   = "NO_TEXT_EXTRACTED"
	CodeInsufficientText  = "INSUFFICIENT_TEXT"
	CodeRateLimited       = "RATE_LIMITED"
	CodeNotFound          = "NOT_FOUND"
	CodeCanceled          = "REQUEST_CANCELED"
	CodeInternal          = "INTERNAL_ERROR"
)

// StatusClientClosedRequest is sent when the client gives up before the
// conversion finishes.
const StatusClientClosedRequest = 499

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is a handler failure with a stable code and a user-facing message.
type Error struct {
	Status  int
	Code    string
	Title   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(status int, code, title, message string) *Error {
	return &Error{Status: status, Code: code, Title: title, Message: message}
}

// extractionError maps an extractor failure to the error the client sees.
func extractionError(err error) *Error {
	var e *Error
	switch {
	case errors.Is(err, context.Canceled):
		e = newError(StatusClientClosedRequest, CodeCanceled, "Request canceled",
			"The request was canceled before text extraction finished.")
	case errors.Is(err, extractor.ErrTimeout):
		e = newError(fiber.StatusGatewayTimeout, CodeExtractionTimeout, "Extraction timed out",
			"The document took too long to read. Try a smaller file or paste the statement text instead.")
	case errors.Is(err, extractor.ErrPasswordProtected):
		e = newError(fiber.StatusUnprocessableEntity, CodePasswordProtected, "Password protected",
			"The PDF is password protected. Remove the password and upload it again.")
	case errors.Is(err, extractor.ErrStructure):
		e = newError(fiber.StatusUnprocessableEntity, CodeInvalidStructure, "Invalid PDF structure",
			"The PDF structure could not be read. Try re-saving or printing it to a new PDF.")
	case errors.Is(err, extractor.ErrCorrupted):
		e = newError(fiber.StatusUnprocessableEntity, CodeCorrupted, "Corrupted PDF",
			"The file is damaged or is not a valid PDF.")
	case errors.Is(err, extractor.ErrNoText):
		e = newError(fiber.StatusUnprocessableEntity, CodeNoTextExtracted, "No text extracted",
			"No readable text was found. The statement may be a scanned image.")
	default:
		e = newError(fiber.StatusInternalServerError, CodeInternal, "Extraction failed",
			"Text extraction failed unexpectedly.")
	}
	e.Err = err
	return e
}

// asError converts any handler error into an *Error.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusRequestEntityTooLarge:
			return &Error{Status: fe.Code, Code: CodeFileTooLarge, Title: "File too large", Message: fe.Message, Err: err}
		case fiber.StatusNotFound:
			return &Error{Status: fe.Code, Code: CodeNotFound, Title: "Not found", Message: fe.Message, Err: err}
		case fiber.StatusTooManyRequests:
			return &Error{Status: fe.Code, Code: CodeRateLimited, Title: "Too many requests", Message: fe.Message, Err: err}
		}
		if fe.Code < fiber.StatusInternalServerError {
			return &Error{Status: fe.Code, Code: CodeInvalidParameter, Title: "Bad request", Message: fe.Message, Err: err}
		}
	}
	return &Error{Status: fiber.StatusInternalServerError, Code: CodeInternal, Title: "Internal error",
		Message: "An unexpected error occurred.", Err: err}
}
