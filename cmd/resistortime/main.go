package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/combee/resistor-time-config/internal/api"
	"github.com/combee/resistor-time-config/internal/bridge"
	"github.com/combee/resistor-time-config/internal/config"
	"github.com/combee/resistor-time-config/internal/logging"
	"github.com/combee/resistor-time-config/internal/pebble"
	"github.com/combee/resistor-time-config/internal/store"
	"github.com/combee/resistor-time-config/internal/watch"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	variant    string
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:           "resistortime",
		Short:         "Configuration bridge for the Resistor Time watchface",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default: search the usual locations)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&variant, "variant", "", "Settings page variant (current, legacy)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bridge and connect to the watch",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	rootCmd.AddCommand(serveCmd, newShowCmd(), newCloseCmd(), newPreviewCmd(), newPortsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies command line overrides.
func loadConfig(log hclog.Logger) *config.Config {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Warn("could not load config file, using defaults", "error", err)
		cfg = config.Default()
		if configPath != "" {
			cfg.ConfigPath = configPath
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if variant != "" {
		cfg.Bridge.Variant = variant
	}
	return cfg
}

func bridgeOptions(cfg *config.Config) (bridge.Options, error) {
	v, err := bridge.ParseVariant(cfg.Bridge.Variant)
	if err != nil {
		return bridge.Options{}, err
	}
	base := cfg.Server.PublicURL
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	return bridge.Options{
		Variant:       v,
		LegacyPageURL: cfg.Bridge.LegacyPageURL,
		FormURL:       base + "/config",
	}, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Bridge.StorePath == "" {
		return store.NewMemory(), nil
	}
	return store.OpenFile(cfg.Bridge.StorePath)
}

// newManager builds the watch manager and starts every configured
// transport. Transports that fail to start are logged and skipped.
func newManager(ctx context.Context, cfg *config.Config, log hclog.Logger) (*watch.Manager, error) {
	app, err := pebble.ParseUUID(cfg.Watch.AppUUID)
	if err != nil {
		return nil, err
	}
	mgr := watch.NewManager(app, cfg.Watch.MessageKeys, cfg.Watch.AckTimeout, log.Named("watch"))

	for i := range cfg.Watch.Transports {
		tc := &cfg.Watch.Transports[i]
		var t watch.Transport
		switch tc.Type {
		case watch.TypeDevConn:
			t = watch.NewDevConn(tc, log.Named("watch"))
		case watch.TypeSerial:
			t = watch.NewSerial(tc, log.Named("watch"))
		case watch.TypeQemu:
			t = watch.NewQemu(tc, log.Named("watch"))
		default:
			log.Warn("unknown transport type", "id", tc.ID, "type", tc.Type)
			continue
		}
		if err := mgr.AddTransport(ctx, t); err != nil {
			log.Warn("transport not started", "id", tc.ID, "error", err)
		}
	}
	return mgr, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	boot := logging.NewLogger("resistortime", logging.Level(logLevel), nil)
	cfg := loadConfig(boot)

	logBuf := logging.NewBuffer(cfg.Logging.BufferSize)
	log := logging.NewLogger("resistortime", logging.Level(cfg.Logging.Level), io.MultiWriter(os.Stderr, logBuf))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := bridgeOptions(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	mgr, err := newManager(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer mgr.Close()

	host := api.NewHost(log.Named("host"), nil)
	b := bridge.New(opts, nil, host, mgr, st, log.Named("bridge"))
	srv := api.NewServer(cfg, b, mgr, host, logBuf, log.Named("api"))

	if cfg.ConfigPath != "" {
		w, err := config.NewWatcher(ctx, cfg.ConfigPath, func(c *config.Config) {
			log.SetLevel(hclog.LevelFromString(logging.Level(c.Logging.Level)))
			opts, err := bridgeOptions(c)
			if err != nil {
				log.Warn("ignoring reloaded config", "error", err)
				return
			}
			b.SetOptions(opts)
			log.Info("config reloaded", "path", c.ConfigPath, "variant", opts.Variant)
		}, func(err error) {
			log.Warn("config watcher", "error", err)
		})
		if err != nil {
			log.Warn("config reload disabled", "error", err)
		} else {
			defer w.Close()
		}
	}

	log.Info("resistor time bridge starting", "port", cfg.Server.Port, "variant", opts.Variant, "transports", len(cfg.Watch.Transports))
	return srv.Start(ctx)
}

// waitConnected gives reconnecting transports a moment to come up.
func waitConnected(ctx context.Context, mgr *watch.Manager, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !mgr.Connected() {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	return true
}
