// Command expertfinder crawls a social network into the graph store, answers
// expert finding queries and serves them over gRPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/odit-bit/expertfinder/config"
	"github.com/odit-bit/expertfinder/logger"
)

const (
	serviceName    = "expertfinder"
	serviceVersion = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:           serviceName,
	Short:         "Find the experts of a topic on a social network",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statsCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is what every command starts from.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

// setup loads the configuration, builds the logger and installs tracing.
// The returned shutdown flushes pending spans.
func setup(ctx context.Context) (*env, func(context.Context) error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, err
	}

	shutdown := func(context.Context) error { return log.Sync() }
	if cfg.OTelExporterHost != "" {
		exporter, err := newGrpcExporter(ctx, cfg.OTelExporterHost)
		if err != nil {
			return nil, nil, err
		}
		otelShutdown, err := setupOTelSDK(ctx, serviceName, serviceVersion, cfg.Env, exporter)
		if err != nil {
			return nil, nil, err
		}
		shutdown = func(ctx context.Context) error {
			return errors.Join(otelShutdown(ctx), log.Sync())
		}
		log.Info("trace export enabled", zap.String("host", cfg.OTelExporterHost))
	}
	return &env{cfg: cfg, log: log}, shutdown, nil
}

// run wraps a command body with setup and shutdown.
func run(body func(ctx context.Context, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		e, shutdown, err := setup(ctx)
		if err != nil {
			return err
		}
		defer func() {
			// stderr cannot always be synced, the error is ignored
			_ = shutdown(context.Background())
		}()
		return body(ctx, e)
	}
}
