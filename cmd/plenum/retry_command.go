package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plenum/internal/config"
	"plenum/internal/ledger"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed items for another pass",
		Long: `Retry moves failed items back to pending so the next run picks them up
again. Without arguments every failed item is requeued. Attempt history
and retry counts are preserved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				requeued, err := store.RetryFailed(cmd.Context(), args...)
				if err != nil {
					return fmt.Errorf("retry failed items: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d items\n", requeued)
				return nil
			})
		},
	}
}
