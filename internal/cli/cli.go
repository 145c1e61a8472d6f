// Package cli defines the print-agent command tree.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesa-livre/print-agent/internal/config"
	"github.com/mesa-livre/print-agent/internal/device"
	"github.com/mesa-livre/print-agent/internal/state"
)

// Version is stamped at build time.
var Version = "1.0.0"

const defaultConfigFile = "config/config.json"

func NewRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "print-agent",
		Short:         "Local print agent for restaurant order receipts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile, "path to config file")

	root.AddCommand(newServeCommand(&configFile))
	root.AddCommand(newDetectCommand(&configFile))
	root.AddCommand(newResetCommand(&configFile))
	root.AddCommand(newVersionCommand())

	return root
}

func newServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the agent: HTTP API, order watcher and print queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *configFile)
		},
	}
}

func newDetectCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "List printers visible on this host and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			log := config.NewLogger(cfg.LogLevel)
			locator := device.NewLocator(log, cfg.FallbackPaths)

			printers := locator.Discover()
			if len(printers) == 0 {
				fmt.Println("No printers found.")
				return nil
			}
			for _, p := range printers {
				fmt.Printf("%-30s  %-10s  %s\n", p.DisplayName, p.Status, p.Transport.Path)
			}
			return nil
		},
	}
}

func newResetCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the auto-print state database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			store, err := state.Open(cfg.StateDB)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Reset(); err != nil {
				return err
			}
			fmt.Println("State cleared.")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agent version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("print-agent %s\n", Version)
		},
	}
}
