package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sunteam/sun/internal/config"
	"github.com/sunteam/sun/internal/events"
	"github.com/sunteam/sun/internal/logging"
	"github.com/sunteam/sun/internal/metrics"
	"github.com/sunteam/sun/internal/modules"
	"github.com/sunteam/sun/internal/notify"
	"github.com/sunteam/sun/internal/pulse"
	"github.com/sunteam/sun/internal/supervisor"
	"github.com/sunteam/sun/internal/version"
)

var daemonConfig string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sun notifier daemon",
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVarP(&daemonConfig, "config", "c", "", "path to sun.toml")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	var (
		cfg      *config.Config
		warnings []string
	)

	cfgPath, err := config.Resolve(daemonConfig)
	switch {
	case err == nil:
		cfg, warnings, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
	case daemonConfig != "":
		// An explicitly requested file must exist.
		return err
	default:
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}

	logger := logging.New(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	for _, w := range warnings {
		logger.Warn("config warning", "warning", w)
	}
	if cfgPath == "" {
		logger.Info("no config file found, using defaults")
	} else {
		logger.Info("config loaded", "path", cfgPath)
	}

	bus := events.NewBus(logger)
	ticker := events.NewTicker(bus)
	defer ticker.Stop()

	collector := metrics.New()
	collector.SetBuildInfo(version.Version, runtime.Version())
	collector.Observe(bus)

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			logger.Info("metrics listening", "addr", cfg.Metrics.Listen)
			if serr := srv.ListenAndServe(); serr != nil && serr != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", serr)
			}
		}()
		defer srv.Close()
	}

	notifier, err := notify.NewClient(bus)
	if err != nil {
		return fmt.Errorf("notification service: %w", err)
	}

	store := config.NewStore()
	store.Publish(cfg)

	deps := modules.Deps{
		Store:     store,
		NewSender: func() notify.Sender { return notifier.NewHandle() },
		Bus:       bus,
		Logger:    logger,
	}

	sup := supervisor.New(supervisor.Options{
		Store:    store,
		Bus:      bus,
		Notifier: notifier,
		Logger:   logger,
		Workers: map[supervisor.Module]supervisor.Worker{
			supervisor.Sound:      modules.Sound(deps, openPulse),
			supervisor.Battery:    modules.Battery(deps),
			supervisor.Keyboard:   modules.Keyboard(deps),
			supervisor.Brightness: modules.Brightness(deps),
		},
	})

	if cfgPath != "" {
		watcher, werr := config.NewWatcher(cfgPath, logger)
		if werr != nil {
			return werr
		}
		defer watcher.Stop()

		updates := make(chan config.Update)
		go watcher.Run(updates)
		go func() {
			for u := range updates {
				if u.Err != nil {
					sup.Ctrl() <- supervisor.ConfigReloadFailed{Err: u.Err}
					continue
				}
				sup.Ctrl() <- supervisor.ConfigReloaded{Snapshot: u.Snapshot, Warnings: u.Warnings}
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		logger.Info("received signal", "signal", sig.String())
		sup.Shutdown()
	}()

	logger.Info("sun running", "pid", os.Getpid(), "version", version.Version)
	return sup.Run()
}

func openPulse() (modules.AudioSource, error) {
	src, err := pulse.Open()
	if err != nil {
		return nil, err
	}
	return src, nil
}
