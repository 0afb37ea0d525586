// Package cli provides the playground command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/di"
	"github.com/aristath/playground/pkg/logger"
)

// app carries what every subcommand needs once the root has run.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "playground",
		Short: "Synthetic stock market and portfolio ledger",
		Long: `playground drives a seeded agent-based market built from real price histories,
and keeps an auditable ledger of a real portfolio with monthly deposits.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.LogLevel = "debug"
			}
			if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
				cfg.DataDir = dataDir
			}
			a.cfg = cfg
			a.log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
			return nil
		},
	}

	rootCmd.AddCommand(newSimulateCmd(a))
	rootCmd.AddCommand(newLedgerCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("data-dir", "", "Override PLAYGROUND_DATA_DIR")

	return rootCmd
}

// withContainer wires the services, runs fn and closes the databases.
func (a *app) withContainer(ctx context.Context, fn func(c *di.Container) error) error {
	container, err := di.Wire(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer container.Close()
	return fn(container)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
