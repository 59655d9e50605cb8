package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/greenfinch/internal/adapters/log"
	"github.com/bft-labs/greenfinch/internal/cliconfig"
	"github.com/bft-labs/greenfinch/pkg/greenfinch"
	"github.com/bft-labs/greenfinch/pkg/log"
	"github.com/bft-labs/greenfinch/plugins/configwatcher"
)

const helpDescription = `
Deliver buffered telemetry records to the ingestion endpoint in batches.

Highlights:
  - Separate queues for events, people and groups, persisted between runs.
  - Periodic and on-demand flushes with at most one batch in flight per queue.
  - Backs off automatically after repeated failures and honors Retry-After.
  - Configure via file, env (GREENFINCH_*), or flags; edits to the file are
    picked up while running.
`

var exampleUsage = strings.TrimSpace(`
  greenfinch --token <project-token>
  greenfinch --config $HOME/.greenfinch/config.toml --once
  echo '{"event":"signup"}' | greenfinch enqueue events
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logAdapter.New(logAdapter.Options{}).Error("greenfinch", log.Err(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "greenfinch",
		Short:         "Deliver buffered telemetry records to the ingestion endpoint",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, changed, err := resolveConfig(cmd, &cfg, cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := logAdapter.New(logAdapter.Options{Format: cfg.LogFormat, Level: cfg.LogLevel})
			logger.Info("configuration", log.Any("config", cfg.Redacted()))
			return run(cfg, cfgFile, changed, logger)
		},
	}

	// Flags
	f := root.PersistentFlags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.greenfinch/config.toml)")
	f.StringVar(&cfg.Token, "token", cfg.Token, "project token sent with every request")
	f.StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "ingestion base URL (defaults to the production host)")
	if err := f.MarkHidden("service-url"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to hide service-url flag:", err)
	}
	f.StringVar(&cfg.QueueDir, "queue-dir", cfg.QueueDir, "directory for persisted queues (default: $HOME/.greenfinch/queue)")
	f.IntVar(&cfg.MaxQueueSize, "max-queue-size", cfg.MaxQueueSize, "maximum records per queue; oldest are evicted")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json, none)")

	root.Flags().StringVar(&cfg.ServiceName, "service-name", cfg.ServiceName, "service name sent with events")
	root.Flags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "send to the staging host")
	root.Flags().DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "flush timer period (0 disables the timer)")
	root.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "maximum records per request")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	root.Flags().BoolVar(&cfg.UseIPForGeolocation, "use-ip", cfg.UseIPForGeolocation, "let ingestion geolocate by request IP")
	root.Flags().StringVar(&cfg.AutomaticEvents, "automatic-events", cfg.AutomaticEvents, "send $ae_ events: true, false or empty for unknown")
	root.Flags().StringVar(&cfg.PayloadEncoding, "payload-encoding", cfg.PayloadEncoding, "batch encoding (json, base64)")
	root.Flags().BoolVar(&cfg.Compress, "compress", cfg.Compress, "gzip request bodies")
	root.Flags().BoolVar(&cfg.FlushOnStop, "flush-on-stop", cfg.FlushOnStop, "flush every queue before exiting")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9090)")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "flush queued records once and exit")

	root.AddCommand(newEnqueueCmd(&cfg, &cfgPath))
	return root
}

// resolveConfig layers the config file and environment under the flags
// set on cmd. It returns the config file path and the changed flags.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, map[string]bool, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if err := cliconfig.Resolve(cfg, cfgFile, changed); err != nil {
		return "", nil, fmt.Errorf("load config: %w", err)
	}
	if !cliconfig.FileExists(cfgFile) {
		cfgFile = ""
	}
	return cfgFile, changed, nil
}

func run(cfg cliconfig.Config, cfgFile string, changed map[string]bool, logger log.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	g, err := greenfinch.New(libConfig(cfg),
		greenfinch.WithLogger(logger),
		greenfinch.WithMetricsRegisterer(reg),
		greenfinch.WithConfigPath(cfgFile),
		configwatcher.WithConfigWatcher(configwatcher.Config{
			DebounceDelay: configwatcher.DefaultConfig().DebounceDelay,
			Pinned:        changed,
		}),
	)
	if err != nil {
		return fmt.Errorf("create greenfinch: %w", err)
	}
	if cfg.FlushInterval == 0 {
		g.SetFlushInterval(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", log.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", log.String("addr", cfg.MetricsAddr))
	}

	if err := g.Start(ctx); err != nil {
		return fmt.Errorf("start greenfinch: %w", err)
	}

	if cfg.Once {
		if err := g.Flush(ctx); err != nil {
			logger.Error("flush failed", log.Err(err))
		}
	} else {
		// Setup signal handling for graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		sig := <-sigCh
		logger.Info("received signal, stopping...", log.String("signal", sig.String()))
	}

	if err := g.Stop(); err != nil {
		return fmt.Errorf("stop greenfinch: %w", err)
	}
	for _, c := range []greenfinch.Category{greenfinch.CategoryEvents, greenfinch.CategoryPeople, greenfinch.CategoryGroups} {
		if n := g.QueueLength(c); n > 0 {
			logger.Info("records left queued", log.String("category", string(c)), log.Int("records", n))
		}
	}
	return nil
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// libConfig converts the CLI configuration to the library configuration.
func libConfig(cfg cliconfig.Config) greenfinch.Config {
	return greenfinch.Config{
		Token:               cfg.Token,
		ServiceName:         cfg.ServiceName,
		ServiceURL:          cfg.ServiceURL,
		Debug:               cfg.Debug,
		FlushInterval:       cfg.FlushInterval,
		BatchSize:           cfg.BatchSize,
		MaxQueueSize:        cfg.MaxQueueSize,
		QueueDir:            cfg.QueueDir,
		HTTPTimeout:         cfg.HTTPTimeout,
		UseIPForGeolocation: cfg.UseIPForGeolocation,
		AutomaticEvents:     cfg.AutoEvents(),
		PayloadEncoding:     cfg.PayloadEncoding,
		Compress:            cfg.Compress,
		FlushOnStop:         cfg.FlushOnStop,
	}
}
