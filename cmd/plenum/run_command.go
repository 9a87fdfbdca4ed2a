package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"plenum/internal/config"
	"plenum/internal/fetch"
	"plenum/internal/ledger"
	"plenum/internal/logging"
	"plenum/internal/manifest"
	"plenum/internal/partition"
	"plenum/internal/runlock"
	"plenum/internal/worker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		manifestPath   string
		partitionCount int
		partitionIndex int
		startIndex     int
		endIndex       int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one partition of the manifest",
		Long: `Run drives every item in the partition to a terminal state: downloaded,
or failed with its retry budget spent. Completed items from earlier runs
are skipped, so re-launching a crashed partition resumes where it stopped.

The exit code reports infrastructure health only. A partition whose items
all failed still exits 0; a manifest or ledger that cannot be opened does
not.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(manifestPath)
			if err != nil {
				return fmt.Errorf("load manifest: %w", err)
			}

			rng, err := resolveRange(m.Len(), partitionCount, partitionIndex, startIndex, endIndex)
			if err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				lock := runlock.New(filepath.Join(cfg.Paths.DataDir, "locks"), rng.Index)
				if err := lock.Acquire(); err != nil {
					return err
				}
				defer lock.Release()

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logging: %w", err)
				}

				fetcher := fetch.NewHTTPFetcher(cfg)
				runner := worker.NewRunner(cfg, store, fetcher, logger)
				summary, err := runner.Run(cmd.Context(), m, rng)
				if err != nil {
					return fmt.Errorf("partition %s: %w", rng, err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Partition %d %s finished: %d done, %d failed, %d skipped, %s in %s\n",
					rng.Index, rng, summary.Done, summary.Failed, summary.Skipped,
					formatBytes(summary.Bytes), summary.Elapsed.Round(summaryRounding))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest CSV file")
	cmd.Flags().IntVar(&partitionCount, "partitions", 1, "Total number of partitions")
	cmd.Flags().IntVar(&partitionIndex, "index", 0, "Partition index to process")
	cmd.Flags().IntVar(&startIndex, "start", -1, "Explicit range start (overrides --partitions)")
	cmd.Flags().IntVar(&endIndex, "end", -1, "Explicit range end, exclusive")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

// resolveRange prefers an explicit [start, end) range over partition
// arithmetic. Explicit ranges still carry the index so the run lock and log
// correlation name a stable partition.
func resolveRange(totalItems, count, index, start, end int) (partition.Range, error) {
	if start >= 0 || end >= 0 {
		if start < 0 || end < start {
			return partition.Range{}, fmt.Errorf("%w: explicit range [%d,%d)", partition.ErrInvalidPartition, start, end)
		}
		if end > totalItems {
			end = totalItems
		}
		if start > totalItems {
			start = totalItems
		}
		return partition.Range{Index: index, Start: start, End: end}, nil
	}
	return partition.ForIndex(totalItems, count, index)
}
