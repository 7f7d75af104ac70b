package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/vigil/pkg/cli"
	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/maintenance"
	"mercator-hq/vigil/pkg/safety/catalog"
	"mercator-hq/vigil/pkg/safety/engine"
	"mercator-hq/vigil/pkg/safety/profile"
	"mercator-hq/vigil/pkg/server"
	"mercator-hq/vigil/pkg/telemetry/health"
	"mercator-hq/vigil/pkg/telemetry/metrics"
	"mercator-hq/vigil/pkg/telemetry/tracing"
)

// profileStatsInterval is how often the profile gauges are refreshed.
const profileStatsInterval = 30 * time.Second

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Vigil API server",
	Long: `Start the Vigil API server with the specified configuration.

The server exposes session and interaction evaluation, the safety report,
crisis responses and catalog management over HTTP, plus health and metrics
endpoints.

Examples:
  # Start with default config
  vigil run

  # Start with custom config
  vigil run --config /etc/vigil/vigil.yaml

  # Override listen address
  vigil run --listen 0.0.0.0:8080

  # Validate config without starting server
  vigil run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

// readRunConfig is readConfig plus the run command's flag overrides.
func readRunConfig(path string) (*config.Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := readRunConfig(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		if err := config.Validate(cfg); err != nil {
			return cli.NewConfigError(cfgFile, err)
		}
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	logs, err := newLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer logs.Close()
	logger := logs.Slog()

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	fmt.Fprintf(out, "Vigil v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	comps, err := buildComponents(ctx, cfg, logger,
		[]catalog.ManagerOption{catalog.WithReloadHook(collector.RecordCatalogReload)},
		engine.WithRecorder(collector),
		engine.WithTracer(tracer.Tracer()),
	)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer comps.Close()

	collector.UpdateCatalog(comps.catalog.Current())
	comps.catalog.OnReload(collector.UpdateCatalog)
	fmt.Fprintf(out, "✓ Catalog loaded (version %s, %d patterns, source %s)\n",
		comps.catalog.Current().Version(), comps.catalog.Current().Size(), comps.catalog.Source().Name())
	fmt.Fprintf(out, "✓ Profile store: %s\n", cfg.Profiles.Backend)
	fmt.Fprintf(out, "✓ Event log: %s\n", cfg.Events.Backend)

	stopReloader, err := startCatalogReloader(ctx, cfg.Catalog, comps, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer stopReloader()

	if cfg.Telemetry.Metrics.Enabled {
		go refreshProfileStats(ctx, comps.store, collector, logger)
	}

	live := config.NewLive(cfgFile, cfg, readRunConfig)
	go handleReloads(ctx, cli.ReloadRequests(ctx), live, logs, comps.catalog, logger)

	scheduler := maintenance.NewScheduler(cfg.Maintenance, comps.profiles, comps.log,
		maintenance.WithLogger(logger),
		maintenance.WithProfileStats(collector.UpdateProfiles),
	)
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start maintenance scheduler: %w", err))
	}
	defer scheduler.Stop()
	for _, job := range []string{maintenance.JobProfileEviction, maintenance.JobEventArchive} {
		if next := scheduler.NextRun(job); next != nil {
			logger.Debug("maintenance job scheduled", "job", job, "next_run", next)
		}
	}

	keys, tlsConfig, err := openSecurity(ctx, cfg.Server, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	scheme := "http"
	if tlsConfig != nil {
		scheme = "https"
	}
	if keys != nil {
		fmt.Fprintf(out, "✓ API key auth: %d keys\n", keys.Len())
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("catalog", health.Critical, health.CatalogCheck(comps.catalog))
	checker.RegisterCheck("profiles", health.Degrading, health.PingCheck(comps.store))
	checker.RegisterCheck("events", health.Degrading, health.PingCheck(comps.log))

	srv := server.NewServer(cfg, server.Dependencies{
		Engine:  comps.engine,
		Metrics: collector,
		Tracer:  tracer.Tracer(),
		Health:  checker,
		Version: health.NewVersionInfo(Version, GitCommit, BuildDate),
		Logger:  logger,
		Keys:    keys,
		TLS:     tlsConfig,
	})

	fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Health.Enabled {
		fmt.Fprintf(out, "✓ Health endpoint: %s://%s%s\n", scheme, cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: %s://%s%s\n", scheme, cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// startCatalogReloader starts the file watcher or git poller named by cfg
// and returns a function that stops it.
func startCatalogReloader(ctx context.Context, cfg config.CatalogConfig, comps *components, logger *slog.Logger) (func(), error) {
	switch {
	case cfg.Source == "file" && cfg.Watch:
		fw, err := catalog.NewFileWatcher(cfg.FilePath, comps.catalog, cfg.WatchDebounce)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog watcher: %w", err)
		}
		watchCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := fw.Watch(watchCtx); err != nil {
				logger.Error("catalog watcher stopped", "error", err)
			}
		}()
		return func() {
			cancel()
			<-done
		}, nil
	case cfg.Source == "git" && comps.git != nil:
		poller := catalog.NewGitPoller(comps.git, comps.catalog, cfg.Git.PollInterval)
		if err := poller.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start catalog poller: %w", err)
		}
		return poller.Stop, nil
	}
	return func() {}, nil
}

// refreshProfileStats keeps the profile gauges current until ctx is done.
func refreshProfileStats(ctx context.Context, store profile.Store, collector *metrics.Collector, logger *slog.Logger) {
	ticker := time.NewTicker(profileStatsInterval)
	defer ticker.Stop()

	for {
		stats, err := profile.Summarize(ctx, store)
		if err != nil {
			logger.Warn("failed to summarize profiles", "error", err)
		} else {
			collector.UpdateProfiles(stats)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// logLevelSetter is implemented by *logging.Logger.
type logLevelSetter interface {
	SetLevel(level string) error
}

// handleReloads re-reads the configuration and the catalog on every request
// from reloads. Failures are logged and the running state is kept.
func handleReloads(ctx context.Context, reloads <-chan struct{}, live *config.Live, logs logLevelSetter, cat *catalog.Manager, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reloads:
		}

		logger.Info("reload requested")
		res, err := live.Reload()
		if err != nil {
			logger.Error("configuration reload failed", "error", err)
		} else {
			if res.LogLevel != "" {
				if err := logs.SetLevel(res.LogLevel); err != nil {
					logger.Error("log level not changed", "error", err)
				} else {
					logger.Info("log level changed", "level", res.LogLevel)
				}
			}
			if len(res.Restart) > 0 {
				logger.Warn("configuration changes need a restart", "sections", res.Restart)
			}
		}

		// The manager logs reload outcomes.
		_, _ = cat.Reload(ctx)
	}
}
