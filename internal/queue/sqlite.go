package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteStore manages item persistence backed by SQLite.
type sqliteStore struct {
	db   *sql.DB
	path string
}

func openSQLite(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := initSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, path: filepath.Clean(path)}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const itemColumns = "id, name, source_path, fingerprint, size, status, scheduled_at, completed_at, external_id, payload, last_error, retry_count, created_at, updated_at"

func (s *sqliteStore) GetByName(ctx context.Context, name string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE name = ?`, name)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by name: %w", err)
	}
	return item, nil
}

func (s *sqliteStore) GetByFingerprint(ctx context.Context, fingerprint string) (*Item, error) {
	if fingerprint == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM items WHERE fingerprint = ? ORDER BY id LIMIT 1`,
		fingerprint,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by fingerprint: %w", err)
	}
	return item, nil
}

func (s *sqliteStore) Upsert(ctx context.Context, item *Item) (*Item, error) {
	if item == nil || item.Name == "" {
		return nil, errors.New("upsert requires an item with a name")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE name = ?`, item.Name)
	existing, err := scanItem(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		status := item.Status
		if status == "" {
			status = StatusNew
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO items (
                name, source_path, fingerprint, size, status, scheduled_at,
                completed_at, external_id, payload, last_error, retry_count,
                created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			item.Name,
			nullableString(item.SourcePath),
			nullableString(item.Fingerprint),
			item.Size,
			status,
			nullableTime(item.ScheduledAt),
			nullableTime(item.CompletedAt),
			nullableString(item.ExternalID),
			nullableString(item.Payload),
			nullableString(item.LastError),
			formatTime(now),
			formatTime(now),
		)
		if err != nil {
			return nil, fmt.Errorf("insert item: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read existing item: %w", err)
	default:
		merged := merge(existing, item)
		merged.UpdatedAt = now
		_, err = tx.ExecContext(
			ctx,
			`UPDATE items
             SET source_path = ?, fingerprint = ?, size = ?, status = ?,
                 scheduled_at = ?, completed_at = ?, external_id = ?,
                 payload = ?, last_error = ?, updated_at = ?
             WHERE name = ?`,
			nullableString(merged.SourcePath),
			nullableString(merged.Fingerprint),
			merged.Size,
			merged.Status,
			nullableTime(merged.ScheduledAt),
			nullableTime(merged.CompletedAt),
			nullableString(merged.ExternalID),
			nullableString(merged.Payload),
			nullableString(merged.LastError),
			formatTime(now),
			merged.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("update item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return s.GetByName(ctx, item.Name)
}

func (s *sqliteStore) SetProcessing(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE name = ?`,
		StatusProcessing,
		formatTime(time.Now().UTC()),
		name,
	)
	if err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	return requireAffected(res, name)
}

func (s *sqliteStore) SetUploaded(ctx context.Context, name, externalID, payload string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE items
         SET status = ?, external_id = ?, payload = ?, completed_at = ?,
             last_error = NULL, updated_at = ?
         WHERE name = ?`,
		StatusUploaded,
		nullableString(externalID),
		nullableString(payload),
		formatTime(now),
		formatTime(now),
		name,
	)
	if err != nil {
		return fmt.Errorf("set uploaded: %w", err)
	}
	return requireAffected(res, name)
}

func (s *sqliteStore) SetFailed(ctx context.Context, name, message string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE items
         SET status = ?, last_error = ?, retry_count = retry_count + 1, updated_at = ?
         WHERE name = ?`,
		StatusFailed,
		nullableString(message),
		formatTime(time.Now().UTC()),
		name,
	)
	if err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return requireAffected(res, name)
}

const pendingOrder = ` ORDER BY scheduled_at IS NOT NULL, scheduled_at, created_at`

func (s *sqliteStore) ListPending(ctx context.Context) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE status IN (?, ?, ?)` + pendingOrder
	return s.queryItems(ctx, query, StatusNew, StatusScheduled, StatusFailed)
}

func (s *sqliteStore) ListReady(ctx context.Context, now time.Time) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
        WHERE status IN (?, ?)
          AND (scheduled_at IS NULL OR scheduled_at <= ?)` + pendingOrder
	return s.queryItems(ctx, query, StatusScheduled, StatusFailed, formatTime(now.UTC()))
}

func (s *sqliteStore) ListRecent(ctx context.Context, limit int) ([]*Item, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY updated_at DESC, id DESC LIMIT ?`
	return s.queryItems(ctx, query, limit)
}

func (s *sqliteStore) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	baseQuery := `SELECT ` + itemColumns + ` FROM items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		return s.queryItems(ctx, baseQuery+orderClause)
	}

	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return s.queryItems(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
}

func (s *sqliteStore) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
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

func (s *sqliteStore) Retry(ctx context.Context, names ...string) (int64, error) {
	timestamp := formatTime(time.Now().UTC())
	if len(names) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE items SET status = ?, scheduled_at = NULL, updated_at = ? WHERE status = ?`,
			StatusScheduled,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(names))
	args := make([]any, 0, len(names)+3)
	args = append(args, StatusScheduled, timestamp, StatusFailed)
	for _, name := range names {
		args = append(args, name)
	}
	query := `UPDATE items SET status = ?, scheduled_at = NULL, updated_at = ?
        WHERE status = ? AND name IN (` + placeholders + `)`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

func (s *sqliteStore) ClearUploaded(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE status = ?`, StatusUploaded)
	if err != nil {
		return 0, fmt.Errorf("clear uploaded: %w", err)
	}
	return res.RowsAffected()
}

func (s *sqliteStore) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

func (s *sqliteStore) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
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

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           int64
		name         string
		sourcePath   sql.NullString
		fingerprint  sql.NullString
		size         sql.NullInt64
		statusStr    string
		scheduledRaw sql.NullString
		completedRaw sql.NullString
		externalID   sql.NullString
		payload      sql.NullString
		lastError    sql.NullString
		retryCount   sql.NullInt64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&name,
		&sourcePath,
		&fingerprint,
		&size,
		&statusStr,
		&scheduledRaw,
		&completedRaw,
		&externalID,
		&payload,
		&lastError,
		&retryCount,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:          id,
		Name:        name,
		SourcePath:  sourcePath.String,
		Fingerprint: fingerprint.String,
		Size:        size.Int64,
		Status:      Status(statusStr),
		ExternalID:  externalID.String,
		Payload:     payload.String,
		LastError:   lastError.String,
		RetryCount:  int(retryCount.Int64),
	}

	if scheduledRaw.Valid {
		if t, err := parseTimeString(scheduledRaw.String); err == nil {
			item.ScheduledAt = &t
		}
	}
	if completedRaw.Valid {
		if t, err := parseTimeString(completedRaw.String); err == nil {
			item.CompletedAt = &t
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func requireAffected(res sql.Result, name string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// timeLayout is RFC 3339 with fixed-width nanoseconds so stored timestamps
// sort lexicographically in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
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
