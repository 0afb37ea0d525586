package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/di"
)

// newSimulateCmd creates the simulate command
func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded market simulation",
		Long: `Build the universe from provider histories, generate the population and step
the market day by day. Flags override the MARKET_* environment.
Example: playground simulate --seed 42 --days 60 --tickers AAPL,MSFT`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyMarketFlags(cmd, &a.cfg.Market); err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				entries, err := di.UniverseEntries(a.cfg.Market)
				if err != nil {
					return err
				}
				result, err := c.Simulation.Run(cmd.Context(), entries)
				if err != nil {
					return fmt.Errorf("simulation failed: %w", err)
				}

				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer f.Close()
					if err := printJSON(f, result); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s (seed %d, strategy %s)\n", result.RunID, result.Seed, result.Strategy)
				fmt.Fprintf(out, "Companies: %d  Agents: %d  Days: %d  Trades: %d\n",
					len(result.Companies), len(result.Agents), len(result.Days), result.Trades)
				if n := len(result.Days); n > 0 {
					last := result.Days[n-1]
					fmt.Fprintf(out, "Last day %s  world trend %.4f\n", last.Date.Format("2006-01-02"), last.Trends.World.Value)
				}
				return nil
			})
		},
	}

	cmd.Flags().Uint64("seed", 0, "Random seed")
	cmd.Flags().Int("days", 0, "Days to step; 0 runs to the end of the world index")
	cmd.Flags().Int("pool", 0, "Number of agents")
	cmd.Flags().StringSlice("tickers", nil, "Tickers merged into the universe")
	cmd.Flags().String("universe", "", "YAML universe file")
	cmd.Flags().String("start", "", "Start date in YYYY-MM-DD format")
	cmd.Flags().StringP("output", "o", "", "Write the full result as JSON to this file")

	return cmd
}

func applyMarketFlags(cmd *cobra.Command, m *config.MarketConfig) error {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		m.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("days") {
		m.Days, _ = flags.GetInt("days")
	}
	if flags.Changed("pool") {
		m.PoolSize, _ = flags.GetInt("pool")
	}
	if flags.Changed("tickers") {
		m.Tickers, _ = flags.GetStringSlice("tickers")
	}
	if flags.Changed("universe") {
		m.UniverseFile, _ = flags.GetString("universe")
	}
	if flags.Changed("start") {
		s, _ := flags.GetString("start")
		start, err := time.Parse("2006-01-02", s)
		if err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
		}
		m.StartDate = start
	}
	return m.Validate()
}
