package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"plenum/internal/config"
	"plenum/internal/ledger"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List ledger items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []ledger.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				for _, part := range strings.Split(trimmed, ",") {
					status, ok := ledger.ParseStatus(part)
					if !ok {
						return fmt.Errorf("unknown status %q (expected one of %v)", part, ledger.AllStatuses())
					}
					statuses = append(statuses, status)
				}
			}

			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return fmt.Errorf("list items: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No matching items")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.Kind,
						string(item.Status),
						strconv.Itoa(item.RetryCount),
						truncate(item.LastError, 48),
						formatTimestamp(item.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "KIND", "STATUS", "RETRIES", "LAST ERROR", "UPDATED"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by status (comma separated)")
	return cmd
}
