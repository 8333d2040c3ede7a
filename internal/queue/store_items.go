package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a queue item does not exist.
var ErrNotFound = errors.New("queue item not found")

const itemColumns = `id, session_dir, route, viewport, status, error_message,
progress_stage, progress_index, progress_total, progress_message,
cost_euro, annotation_count, report_path, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var item Item
	var status, created, updated string
	err := row.Scan(
		&item.ID, &item.SessionDir, &item.Route, &item.Viewport, &status, &item.ErrorMessage,
		&item.ProgressStage, &item.ProgressIndex, &item.ProgressTotal, &item.ProgressMessage,
		&item.CostEuro, &item.AnnotationCount, &item.ReportPath, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	item.Status = Status(status)
	item.CreatedAt, _ = time.Parse(time.RFC3339, created)
	item.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &item, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Add enqueues a screen. A screen already queued keeps its row: finished or
// failed rows reset to pending for a re-run, pending and processing rows are
// returned as they are.
func (s *Store) Add(ctx context.Context, sessionDir, route, viewport string) (*Item, error) {
	ctx = ensureContext(ctx)
	ts := now()
	_, err := s.execWithRetry(ctx, `
INSERT INTO screens (session_dir, route, viewport, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(session_dir, route, viewport) DO UPDATE SET
    status = ?,
    error_message = '',
    progress_stage = '',
    progress_index = 0,
    progress_total = 0,
    progress_message = '',
    updated_at = ?
WHERE screens.status IN (?, ?, ?)`,
		sessionDir, route, viewport, string(StatusPending), ts, ts,
		string(StatusPending), ts,
		string(StatusCompleted), string(StatusFailed), string(StatusCancelled),
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue screen: %w", err)
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM screens WHERE session_dir = ? AND route = ? AND viewport = ?",
		sessionDir, route, viewport)
	item, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("load enqueued screen: %w", err)
	}
	return item, nil
}

// GetByID loads one item.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM screens WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load screen %d: %w", id, err)
	}
	return item, nil
}

// List returns items filtered by status, oldest first. No statuses means all.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + itemColumns + " FROM screens"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list screens: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan screen: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ClaimNextPending atomically moves the oldest pending screen to processing
// and returns it. Returns nil when the queue has no pending work.
func (s *Store) ClaimNextPending(ctx context.Context) (*Item, error) {
	ctx = ensureContext(ctx)
	var claimed *Item
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()

		row := tx.QueryRowContext(ctx,
			"SELECT "+itemColumns+" FROM screens WHERE status = ? ORDER BY id LIMIT 1",
			string(StatusPending))
		item, err := scanItem(row)
		if errors.Is(err, sql.ErrNoRows) {
			claimed = nil
			return tx.Commit()
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE screens SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(StatusProcessing), now(), item.ID, string(StatusPending)); err != nil {
			return err
		}
		item.Status = StatusProcessing
		claimed = item
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("claim pending screen: %w", err)
	}
	return claimed, nil
}

// UpdateProgress stores the stage progress shown by queue status.
func (s *Store) UpdateProgress(ctx context.Context, id int64, stage string, index, total int, message string) error {
	_, err := s.execWithRetry(ensureContext(ctx), `
UPDATE screens SET progress_stage = ?, progress_index = ?, progress_total = ?,
progress_message = ?, updated_at = ? WHERE id = ?`,
		stage, index, total, message, now(), id)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// MarkCompleted finishes an item with its result summary.
func (s *Store) MarkCompleted(ctx context.Context, id int64, costEuro float64, annotationCount int, reportPath string) error {
	_, err := s.execWithRetry(ensureContext(ctx), `
UPDATE screens SET status = ?, cost_euro = ?, annotation_count = ?, report_path = ?,
error_message = '', updated_at = ? WHERE id = ?`,
		string(StatusCompleted), costEuro, annotationCount, reportPath, now(), id)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// MarkFailed finishes an item with an error message.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	_, err := s.execWithRetry(ensureContext(ctx),
		"UPDATE screens SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		string(StatusFailed), message, now(), id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// MarkCancelled returns an interrupted item to a terminal state without an
// error, so a later run can requeue it.
func (s *Store) MarkCancelled(ctx context.Context, id int64) error {
	_, err := s.execWithRetry(ensureContext(ctx),
		"UPDATE screens SET status = ?, updated_at = ? WHERE id = ?",
		string(StatusCancelled), now(), id)
	if err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}
	return nil
}

// ResetStale returns processing screens to pending. Called on startup to
// recover from a crashed or killed run.
func (s *Store) ResetStale(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ensureContext(ctx),
		"UPDATE screens SET status = ?, updated_at = ? WHERE status = ?",
		string(StatusPending), now(), string(StatusProcessing))
	if err != nil {
		return 0, fmt.Errorf("reset stale screens: %w", err)
	}
	count, _ := res.RowsAffected()
	return count, nil
}

// Clear removes items in the given statuses. No statuses clears everything.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	ctx = ensureContext(ctx)
	query := "DELETE FROM screens"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear screens: %w", err)
	}
	count, _ := res.RowsAffected()
	return count, nil
}

// Health aggregates queue counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	var summary HealthSummary
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM screens GROUP BY status")
	if err != nil {
		return summary, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return summary, fmt.Errorf("scan queue health: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		case StatusCancelled:
			summary.Cancelled = count
		}
	}
	return summary, rows.Err()
}
