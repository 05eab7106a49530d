package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-ledger/internal/api"
	"github.com/insightdelivered/statement-ledger/internal/buildinfo"
	"github.com/insightdelivered/statement-ledger/internal/config"
	"github.com/insightdelivered/statement-ledger/internal/metrics"
	"github.com/insightdelivered/statement-ledger/internal/store"
	"github.com/insightdelivered/statement-ledger/internal/writer"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(load configLoader) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger := cfg.Log.NewLogger(logOut)

	p, err := newParser(cfg.Parser, logger)
	if err != nil {
		return err
	}
	header, err := writer.ParseHeaderStyle(cfg.Parser.Header)
	if err != nil {
		return err
	}

	h := &api.Handler{
		Parser:  p,
		PDF:     newPDFExtractor(cfg.Extractor, logger),
		Metrics: metrics.New(),
		Logger:  logger,
		Header:  header,
		Timeout: cfg.Extractor.Timeout,
		Version: buildinfo.Version,
	}

	if cfg.Storage.Path != "" {
		s, err := store.OpenBolt(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer s.Close()
		h.Store = s

		retention := store.NewRetention(s, cfg.Storage.Retention(), logger)
		if err := retention.Start(cfg.Storage.RetentionSchedule); err != nil {
			return err
		}
		defer func() { <-retention.Stop().Done() }()
	}

	app := api.NewApp(h, api.AppConfig{
		BodyLimit:          cfg.Server.BodyLimit(),
		RateLimitPerSecond: cfg.Server.RateLimitPerSecond,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			slog.String("addr", cfg.Server.Addr),
			slog.Bool("storage", h.Store != nil),
			slog.String("version", buildinfo.Version),
		)
		errCh <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}
