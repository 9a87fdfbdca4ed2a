package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"plenum/internal/config"
)

// Store manages work-item persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database inside the configured
// data directory and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "ledger.db"))
}

// OpenPath opens a ledger database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// synchronous=FULL: every transition must survive a crash immediately
	// after the call returns; the resume pass trusts the recorded status.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new pending item if the id is absent. Re-running an import
// over an existing ledger is a no-op per item: a completed item is never reset.
// The boolean reports whether a row was inserted.
func (s *Store) Create(ctx context.Context, seed Seed) (bool, error) {
	if strings.TrimSpace(seed.ID) == "" {
		return false, errors.New("seed id must not be empty")
	}
	if strings.TrimSpace(seed.SourceURL) == "" {
		return false, fmt.Errorf("seed %s: source url must not be empty", seed.ID)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO work_items (
            id, kind, source_url, language, title, status, retry_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		seed.ID,
		seed.Kind,
		seed.SourceURL,
		nullableString(seed.Language),
		nullableString(seed.Title),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert work item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CreateStrict inserts a new pending item and fails with ErrAlreadyExists
// when the id is taken.
func (s *Store) CreateStrict(ctx context.Context, seed Seed) (*Item, error) {
	inserted, err := s.Create(ctx, seed)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, seed.ID)
	}
	return s.GetByID(ctx, seed.ID)
}

// GetByID fetches a work item by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ItemsByStatus returns items matching a status ordered by id.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	return s.List(ctx, status)
}

// List returns work items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM work_items`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkInProgress transitions a pending or failed item to in_progress and
// records the start timestamp.
func (s *Store) MarkInProgress(ctx context.Context, id string) (*Item, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE work_items
         SET status = ?, started_at = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusInProgress,
		timestamp,
		timestamp,
		id,
		StatusPending,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("mark in progress: %w", err)
	}
	if err := s.requireTransition(ctx, res, id, StatusInProgress); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// MarkDone transitions an in_progress item to done, recording the completion
// timestamp and transfer metrics.
func (s *Store) MarkDone(ctx context.Context, id string, metrics Metrics) error {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE work_items
         SET status = ?, completed_at = ?, updated_at = ?,
             bytes_downloaded = ?, download_seconds = ?, last_error = NULL
         WHERE id = ? AND status = ?`,
		StatusDone,
		timestamp,
		timestamp,
		metrics.Bytes,
		metrics.Seconds,
		id,
		StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return s.requireTransition(ctx, res, id, StatusDone)
}

// MarkFailed transitions an in_progress item to failed, increments the retry
// count, and appends to the attempt history. The updated item is returned so
// callers can consult the new retry count for backoff decisions.
func (s *Store) MarkFailed(ctx context.Context, id string, cause string) (*Item, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mark failed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		status   string
		attempts sql.NullString
	)
	err = tx.QueryRowContext(ctx, `SELECT status, attempts_json FROM work_items WHERE id = ?`, id).
		Scan(&status, &attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read item for failure: %w", err)
	}
	if Status(status) != StatusInProgress {
		return nil, badTransition(id, Status(status), StatusFailed)
	}

	history, err := decodeAttempts(attempts.String)
	if err != nil {
		return nil, fmt.Errorf("decode attempt history for %s: %w", id, err)
	}
	history = append(history, Attempt{At: now, Error: cause, Status: StatusFailed})
	encoded, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode attempt history for %s: %w", id, err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE work_items
         SET status = ?, retry_count = retry_count + 1, last_error = ?,
             attempts_json = ?, updated_at = ?
         WHERE id = ?`,
		StatusFailed,
		cause,
		string(encoded),
		timestamp,
		id,
	); err != nil {
		return nil, fmt.Errorf("mark failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mark failed: %w", err)
	}
	return s.GetByID(ctx, id)
}

// ReclaimStale returns in_progress items older than cutoff to pending so a
// restarted worker can re-attempt them. Retry counts are preserved.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE work_items
         SET status = ?, started_at = NULL, updated_at = ?
         WHERE status = ? AND (started_at IS NULL OR started_at < ?)`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusInProgress,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for another pass. With no
// ids, every failed item is requeued. Attempt history and retry counts are
// preserved; only the status and last error are reset.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE work_items
            SET status = ?, last_error = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, timestamp, StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE work_items
        SET status = ?, last_error = NULL, updated_at = ?
        WHERE status = ? AND id IN (` + placeholders + `)`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM work_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// LastUpdatedAt returns the most recent mutation timestamp across all items,
// or the zero time for an empty ledger.
func (s *Store) LastUpdatedAt(ctx context.Context) (time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM work_items`).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("ledger last updated: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, nil
	}
	return parseTimeString(raw.String)
}

func (s *Store) requireTransition(ctx context.Context, res sql.Result, id string, to Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return badTransition(id, item.Status, to)
}

const itemColumns = "id, kind, source_url, language, title, status, retry_count, last_error, attempts_json, bytes_downloaded, download_seconds, created_at, updated_at, started_at, completed_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           string
		kind         string
		sourceURL    string
		language     sql.NullString
		title        sql.NullString
		statusStr    string
		retryCount   int
		lastError    sql.NullString
		attemptsRaw  sql.NullString
		bytes        sql.NullInt64
		seconds      sql.NullFloat64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&sourceURL,
		&language,
		&title,
		&statusStr,
		&retryCount,
		&lastError,
		&attemptsRaw,
		&bytes,
		&seconds,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:         id,
		Kind:       kind,
		SourceURL:  sourceURL,
		Language:   language.String,
		Title:      title.String,
		Status:     Status(statusStr),
		RetryCount: retryCount,
		LastError:  lastError.String,
		Bytes:      bytes.Int64,
		Seconds:    seconds.Float64,
	}

	attempts, err := decodeAttempts(attemptsRaw.String)
	if err != nil {
		return nil, fmt.Errorf("decode attempt history for %s: %w", id, err)
	}
	item.Attempts = attempts

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			item.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			item.CompletedAt = &completed
		}
	}
	return item, nil
}

func decodeAttempts(raw string) ([]Attempt, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var attempts []Attempt
	if err := json.Unmarshal([]byte(raw), &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
