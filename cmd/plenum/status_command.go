package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"plenum/internal/aggregate"
	"plenum/internal/config"
	"plenum/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show aggregate ledger progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				summary, err := aggregate.Summarize(cmd.Context(), store)
				if err != nil {
					return fmt.Errorf("summarize ledger: %w", err)
				}

				out := cmd.OutOrStdout()
				color := shouldColorize(out)

				rows := [][]string{
					{"pending", strconv.Itoa(summary.Pending)},
					{"in_progress", strconv.Itoa(summary.InProgress)},
					{"done", strconv.Itoa(summary.Done)},
					{"failed", strconv.Itoa(summary.Failed)},
					{"total", strconv.Itoa(summary.Total)},
				}
				fmt.Fprintln(out, renderTable(
					[]string{"STATUS", "ITEMS"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))

				rate := fmt.Sprintf("%.1f%%", summary.SuccessRate()*100)
				switch {
				case summary.Terminal() == 0:
					// Nothing finished yet; a rate would be noise.
				case summary.Failed == 0:
					fmt.Fprintf(out, "Success rate: %s\n", colorize(rate, ansiGreen, color))
				case summary.Done == 0:
					fmt.Fprintf(out, "Success rate: %s\n", colorize(rate, ansiRed, color))
				default:
					fmt.Fprintf(out, "Success rate: %s\n", colorize(rate, ansiYellow, color))
				}
				if summary.Complete() {
					fmt.Fprintln(out, colorize("All items terminal", ansiGreen, color))
				}
				fmt.Fprintf(out, "Last update: %s\n", formatTimestamp(summary.LastUpdated))
				fmt.Fprintf(out, "Ledger: %s\n", store.Path())
				return nil
			})
		},
	}
}
