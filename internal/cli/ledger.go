package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/aristath/playground/internal/di"
	"github.com/aristath/playground/internal/modules/ledger"
)

// newLedgerCmd creates the ledger command group
func newLedgerCmd(a *app) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Operate the real portfolio ledger",
	}

	ledgerCmd.AddCommand(newTradeCmd(a, ledger.ActionBuy))
	ledgerCmd.AddCommand(newTradeCmd(a, ledger.ActionSell))

	ledgerCmd.AddCommand(&cobra.Command{
		Use:   "deposit AMOUNT",
		Short: "Credit cash to the balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				t, err := c.Ledger.Deposit(cmd.Context(), time.Now().UTC(), amount)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), t)
			})
		},
	})

	ledgerCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current portfolio state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				state, err := c.Ledger.Status()
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), state)
			})
		},
	})

	ledgerCmd.AddCommand(&cobra.Command{
		Use:   "snapshot",
		Short: "Revalue holdings and append today's snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				now := time.Now().UTC()
				if err := c.Ledger.Revalue(cmd.Context(), now); err != nil {
					return err
				}
				snap, err := c.Ledger.Snapshot(cmd.Context(), now)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snap)
			})
		},
	})

	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show performance metrics against the benchmark",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, err := parseDateFlag(cmd, "since")
			if err != nil {
				return err
			}
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				now := time.Now().UTC()
				if since.IsZero() {
					state, err := c.Ledger.Status()
					if err != nil {
						return err
					}
					since = state.InceptionDate
				}
				benchmark, _ := cmd.Flags().GetString("benchmark")
				bench, rf, err := c.Reference.Load(cmd.Context(), since, benchmark)
				if err != nil {
					// Metrics without a benchmark still carry the ledger's own figures
					a.log.Warn().Err(err).Msg("Benchmark unavailable")
					bench, rf = nil, nil
				}
				m, err := c.Ledger.Metrics(cmd.Context(), now, since, bench, rf)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			})
		},
	}
	metricsCmd.Flags().String("since", "", "Start of the comparison window in YYYY-MM-DD format (inception if not provided)")
	metricsCmd.Flags().String("benchmark", "", "Benchmark symbol or index key: world, sector:NAME, region:NAME (configured symbol if not provided)")
	ledgerCmd.AddCommand(metricsCmd)

	return ledgerCmd
}

// newTradeCmd creates the buy or sell command
func newTradeCmd(a *app, action ledger.Action) *cobra.Command {
	verb := "buy"
	if action == ledger.ActionSell {
		verb = "sell"
	}

	cmd := &cobra.Command{
		Use:   verb + " SYMBOL QUANTITY",
		Short: fmt.Sprintf("Record a %s at the given or current price", verb),
		Long: fmt.Sprintf(`Record a %s. Without --price the provider's current price is used.
Example: playground ledger %s AAPL 10 --price 187.5`, verb, verb),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := args[0]
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || qty <= 0 {
				return fmt.Errorf("quantity must be a positive integer, got %q", args[1])
			}
			date, err := parseDateFlag(cmd, "date")
			if err != nil {
				return err
			}
			if date.IsZero() {
				date = time.Now().UTC()
			}
			priceStr, _ := cmd.Flags().GetString("price")

			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				var price decimal.Decimal
				if priceStr != "" {
					if price, err = decimal.NewFromString(priceStr); err != nil {
						return fmt.Errorf("invalid price %q: %w", priceStr, err)
					}
				} else {
					p, err := c.Provider.GetCurrentPrice(cmd.Context(), symbol)
					if err != nil {
						return fmt.Errorf("failed to get price for %s: %w", symbol, err)
					}
					price = decimal.NewFromFloat(p)
				}

				var t ledger.Transaction
				if action == ledger.ActionBuy {
					t, err = c.Ledger.Buy(cmd.Context(), date, symbol, price, qty)
				} else {
					t, err = c.Ledger.Sell(cmd.Context(), date, symbol, price, qty)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), t)
			})
		},
	}

	cmd.Flags().String("price", "", "Price per share (current price if not provided)")
	cmd.Flags().String("date", "", "Trade date in YYYY-MM-DD format (today if not provided)")

	return cmd
}

func parseDateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s, use YYYY-MM-DD: %w", name, err)
	}
	return t, nil
}
