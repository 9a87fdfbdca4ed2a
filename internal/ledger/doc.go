// Package ledger persists per-item download status in SQLite so partition
// runs can crash and resume without re-downloading finished work.
//
// Each work item carries a status (pending, in_progress, done, failed), a
// retry count, and an append-only attempt history. Transitions are guarded in
// SQL: an UPDATE only matches rows in a legal source status, so two processes
// racing on the same id cannot double-apply a transition. Every mutating call
// commits before it returns; resumability depends on the ledger never being
// ahead of or behind actual progress.
package ledger
