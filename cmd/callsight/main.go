// Command callsight analyses sales-call transcripts for customer objections.
//
// Each subcommand runs one pipeline stage against the directories named in
// the YAML config; "run" executes all of them in order.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/callsight/internal/app"
	"github.com/MrWong99/callsight/internal/config"
	"github.com/MrWong99/callsight/internal/health"
	"github.com/MrWong99/callsight/internal/observe"
)

// version is overwritten at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("interrupted")
			return 130
		}
		fmt.Fprintf(os.Stderr, "callsight: %v\n", err)
		return 1
	}
	return 0
}

// cli holds the persistent flags and the state built from them.
type cli struct {
	configPath string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "callsight",
		Short:         "Detect customer objections in sales-call transcripts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadConfig(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "text", "log output format: text or json")

	root.AddCommand(
		c.cleanCmd(),
		c.analyzeCmd(),
		c.detectCmd(),
		c.validateCmd(),
		c.metricsCmd(),
		c.summarizeCmd(),
		c.reportCmd(),
		c.runCmd(),
		c.catalogCmd(),
	)
	return root
}

// loadConfig reads the config file and installs the logger. A missing
// default config file falls back to the built-in defaults.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	if c.logFormat != "text" && c.logFormat != "json" {
		return fmt.Errorf("--log-format must be text or json, got %q", c.logFormat)
	}

	cfg, err := config.Load(c.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
		if err := config.Validate(cfg); err != nil {
			return err
		}
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("config file %q not found: copy configs/example.yaml to get started", c.configPath)
	case err != nil:
		return err
	}
	c.cfg = cfg

	slog.SetDefault(newLogger(os.Stderr, c.logFormat, cfg.LogLevel))
	slog.Debug("configuration loaded", "config", c.configPath, "log_level", cfg.LogLevel)
	return nil
}

// withApp sets up telemetry and providers, builds the application, runs fn
// and tears everything down again.
func (c *cli) withApp(ctx context.Context, fn func(context.Context, *app.App) error) (err error) {
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    c.cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := shutdownTelemetry(shutdownCtx); serr != nil {
			slog.Warn("telemetry shutdown error", "err", serr)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	providers, err := buildProviders(c.cfg, reg)
	if err != nil {
		return err
	}

	application, err := app.New(ctx, c.cfg, providers)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			slog.Warn("close error", "err", cerr)
		}
	}()

	if addr := c.cfg.Telemetry.MetricsAddr; addr != "" {
		hh := health.New(application.Progress(), application.Checkers()...)
		srv := observe.NewMetricsServer(addr, observe.DefaultMetrics(), hh.Register)
		go func() {
			if serr := srv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				slog.Error("metrics server error", "addr", addr, "err", serr)
			}
		}()
		slog.Info("serving metrics", "addr", addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return fn(ctx, application)
}

func newLogger(w io.Writer, format string, level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
