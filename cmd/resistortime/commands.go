package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/combee/resistor-time-config/internal/bridge"
	"github.com/combee/resistor-time-config/internal/logging"
	"github.com/combee/resistor-time-config/internal/pebble"
	"github.com/combee/resistor-time-config/internal/watch"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the settings page URL the watch would open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger("resistortime", logging.Level(logLevel), nil)
			cfg := loadConfig(log)
			opts, err := bridgeOptions(cfg)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}

			host := bridge.HostFunc(func(ctx context.Context, url string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), url)
				return err
			})
			b := bridge.New(opts, nil, host, nil, st, log.Named("bridge"))
			_, err = b.ShowConfiguration(cmd.Context())
			return err
		},
	}
}

func newCloseCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "close <response>",
		Short: "Apply a settings page response and send it to the watch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger("resistortime", logging.Level(logLevel), nil)
			cfg := loadConfig(log)
			opts, err := bridgeOptions(cfg)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			mgr, err := newManager(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer mgr.Close()
			if !waitConnected(ctx, mgr, wait) {
				log.Warn("no transport connected", "waited", wait)
			}

			b := bridge.New(opts, nil, nil, mgr, st, log.Named("bridge"))
			sent, err := b.WebviewClosed(ctx, args[0])
			if err != nil {
				return err
			}
			if sent == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "empty response, nothing sent")
				return nil
			}

			d := sent.Pending.Result()
			if !d.OK() {
				return fmt.Errorf("settings saved but not delivered: %w", d.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %s via %s (transaction %d)\n", sent.ID, d.Transport, d.TransactionID)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "How long to wait for a transport to connect")
	return cmd
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports a paired watch may be reachable on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger("resistortime", logging.Level(logLevel), nil)
			mgr := watch.NewManager(pebble.UUID{}, nil, 0, log.Named("watch"))
			ports, err := mgr.Discover()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(os.Stderr, "no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Device, p.Name)
			}
			return nil
		},
	}
}
