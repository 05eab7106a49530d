package api

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"golang.org/x/time/rate"

	"github.com/insightdelivered/statement-ledger/internal/extractor"
	"github.com/insightdelivered/statement-ledger/internal/parser"
)

// AppConfig holds the server-level settings of NewApp.
type AppConfig struct {
	BodyLimit          int
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// multipartOverhead is added to the file limit so that form boundaries do
// not trip the body limit before the file size check runs.
const multipartOverhead = 1 << 20

// NewApp wires h into a fiber app with recovery, request ids, structured
// request logging and per-client rate limiting on conversions.
func NewApp(h *Handler, cfg AppConfig) *fiber.App {
	if h.Logger == nil {
		h.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if h.Parser == nil {
		h.Parser = parser.New(parser.WithLogger(h.Logger))
	}
	if h.PDF == nil {
		h.PDF = extractor.NewPDFExtractor(h.Logger)
	}
	if h.MaxFileSize == 0 && cfg.BodyLimit > 0 {
		h.MaxFileSize = int64(cfg.BodyLimit)
	}

	bodyLimit := fiber.DefaultBodyLimit
	if cfg.BodyLimit > 0 {
		bodyLimit = cfg.BodyLimit + multipartOverhead
	}

	app := fiber.New(fiber.Config{
		AppName:               "statement-ledger",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(h.Logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger(h.Logger))

	api := app.Group("/api")
	api.Get("/health", h.HandleHealth)
	api.Post("/convert", rateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst), h.HandleConvert)
	if h.Store != nil {
		api.Get("/conversions", h.HandleListConversions)
		api.Get("/conversions/:id/csv", h.HandleConversionCSV)
	}
	if h.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.Metrics.Handler()))
	}
	return app
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		e := asError(err)
		if e.Status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("path", c.Path()),
				slog.String("code", e.Code),
				slog.Any("error", err),
			)
		}
		return c.Status(e.Status).JSON(ErrorResponse{
			Error:   e.Title,
			Code:    e.Code,
			Message: e.Message,
		})
	}
}

// requestLogger logs one line per request. Errors are rendered here so the
// logged status is the one the client receives.
func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		rid, _ := c.Locals("requestid").(string)
		logger.Info("request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", rid),
			slog.String("ip", c.IP()),
		)
		return nil
	}
}

// maxTrackedClients bounds the limiter table; it is reset when full.
const maxTrackedClients = 10000

// rateLimiter applies a token bucket per client IP. A non-positive rate
// disables limiting.
func rateLimiter(perSecond float64, burst int) fiber.Handler {
	if perSecond <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}

	var mu sync.Mutex
	clients := make(map[string]*rate.Limiter)
	get := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := clients[ip]
		if !ok {
			if len(clients) >= maxTrackedClients {
				clients = make(map[string]*rate.Limiter)
			}
			l = rate.NewLimiter(rate.Limit(perSecond), burst)
			clients[ip] = l
		}
		return l
	}

	return func(c *fiber.Ctx) error {
		if !get(c.IP()).Allow() {
			return newError(fiber.StatusTooManyRequests, CodeRateLimited, "Too many requests",
				"Conversion rate limit exceeded. Try again shortly.")
		}
		return c.Next()
	}
}
