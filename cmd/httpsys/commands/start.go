package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpsys/internal/logger"
	"github.com/marmos91/httpsys/internal/telemetry"
	"github.com/marmos91/httpsys/pkg/api"
	"github.com/marmos91/httpsys/pkg/config"
	"github.com/marmos91/httpsys/pkg/httpsys"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the listener",
	Long: `Start the httpsys listener with the specified configuration.

The listener creates or attaches to the configured request queue, routes the
configured prefixes to it, installs delegation rules and serves the management
API until it receives SIGINT or SIGTERM.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/httpsys/config.yaml.

Examples:
  # Start with the default config
  httpsys start

  # Start with custom config file
  httpsys start --config C:\ProgramData\httpsys\config.yaml

  # Start with environment variable overrides
  HTTPSYS_LOGGING_LEVEL=DEBUG httpsys start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file, e.g. "+GetDefaultPidFile())
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "httpsys",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "httpsys",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	listenerMetrics := config.InitializeMetrics(cfg)
	if listenerMetrics == nil {
		logger.Info("Metrics collection disabled")
	}

	httpAPI := httpsys.Default()
	features := httpAPI.Features()
	logger.Info("HTTP Server API initialized",
		"version", features.Version,
		"supported", features.Supported,
		"delegation", features.SupportsDelegation,
		"trailers", features.SupportsTrailers,
		"reset", features.SupportsReset)

	opts, err := cfg.Listener.ListenerOptions()
	if err != nil {
		return err
	}

	listener, err := httpsys.NewListener(httpAPI, opts, logger.With(logger.KeyComponent, "listener"),
		httpsys.WithMetrics(listenerMetrics))
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			logger.Error("listener close error", "error", err)
		}
	}()

	if err := listener.Start(ctx); err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}

	for _, d := range cfg.Delegation {
		if _, err := listener.CreateDelegationRule(ctx, d.QueueName, d.Prefix); err != nil {
			return fmt.Errorf("failed to delegate %s to queue %q: %w", d.Prefix, d.QueueName, err)
		}
	}

	if pidFile != "" {
		if err := writePidFile(pidFile); err != nil {
			return err
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	if cfg.API.IsEnabled() {
		apiServer := api.NewServer(cfg.API, listener, httpAPI)
		go func() {
			serverDone <- apiServer.Start(ctx)
		}()
		logger.Info("API server enabled", "address", cfg.API.Addr())
	} else {
		logger.Info("API server disabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Listener is running. Press Ctrl+C to stop.", "queue", listener.Status().QueueName)

	var serveErr error
	apiStopped := !cfg.API.IsEnabled()
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
	case serveErr = <-serverDone:
		apiStopped = true
		if serveErr != nil {
			logger.Error("API server error", "error", serveErr)
		}
	}
	cancel()

	// ShutdownTimeout bounds draining the API server and withdrawing the
	// prefixes together. The deferred Close releases whatever is left.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stopCancel()

	if !apiStopped {
		switch err := drainServer(stopCtx, serverDone); {
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn("API server did not stop within the shutdown timeout", "timeout", cfg.ShutdownTimeout)
		case err != nil:
			logger.Error("API server shutdown error", "error", err)
		}
	}

	if err := listener.Stop(stopCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached, closing the listener", "timeout", cfg.ShutdownTimeout)
			return serveErr
		}
		logger.Error("Listener shutdown error", "error", err)
		return err
	}
	logger.Info("Listener stopped gracefully")

	return serveErr
}

// drainServer waits for the API server goroutine to report on done. It
// returns the server's error, or ctx.Err() if ctx ends first.
func drainServer(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writePidFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}
