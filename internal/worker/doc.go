// Package worker drives one partition's slice of the manifest to a terminal
// state: every row ends done, failed with its budget spent, or skipped
// because a previous run already finished it. Ledger write failures abort
// the run; download failures never do.
package worker
