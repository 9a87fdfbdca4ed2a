package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"plenum/internal/manifest"
	"plenum/internal/partition"
)

func newPartitionsCommand() *cobra.Command {
	var (
		totalItems     int
		partitionCount int
		manifestPath   string
	)

	cmd := &cobra.Command{
		Use:         "partitions",
		Short:       "Print the partition plan for a manifest",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			total := totalItems
			if manifestPath != "" {
				m, err := manifest.Load(manifestPath)
				if err != nil {
					return fmt.Errorf("load manifest: %w", err)
				}
				total = m.Len()
			}
			if total < 0 {
				return fmt.Errorf("provide --total or --manifest")
			}

			plan, err := partition.Plan(total, partitionCount)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(plan))
			for _, rng := range plan {
				rows = append(rows, []string{
					strconv.Itoa(rng.Index),
					strconv.Itoa(rng.Start),
					strconv.Itoa(rng.End),
					strconv.Itoa(rng.Len()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"INDEX", "START", "END", "ITEMS"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&totalItems, "total", -1, "Total number of manifest items")
	cmd.Flags().IntVar(&partitionCount, "count", 1, "Number of partitions")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Derive the total from a manifest file")
	return cmd
}
