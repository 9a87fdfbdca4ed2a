package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plenum/internal/config"
	"plenum/internal/ledger"
	"plenum/internal/manifest"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Seed the ledger from a manifest file",
		Long: `Import reads a CSV manifest and creates a pending ledger item per row.
Re-importing the same manifest is safe: existing items keep their status,
retry counts, and attempt history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(manifestPath)
			if err != nil {
				return fmt.Errorf("load manifest: %w", err)
			}
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				inserted := 0
				for _, row := range m.Rows {
					ok, err := store.Create(cmd.Context(), ledger.Seed{
						ID:        row.ID,
						Kind:      row.Kind.String(),
						SourceURL: row.URL,
						Language:  row.Language,
						Title:     row.Title,
					})
					if err != nil {
						return fmt.Errorf("import item %s: %w", row.ID, err)
					}
					if ok {
						inserted++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new items (%d already present) from %s\n",
					inserted, m.Len()-inserted, manifestPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest CSV file")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}
