package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const eligibleClause = "i.acquired = 0 AND i.file_missing = 0 AND i.skip = 0 AND i.failed = 0"

// GetItem fetches an item by id, returning nil when absent.
func (s *Store) GetItem(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ItemByExternalID fetches an item by external id, returning nil when absent.
func (s *Store) ItemByExternalID(ctx context.Context, externalID string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM items WHERE external_id = ?`, strings.TrimSpace(externalID))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by external id: %w", err)
	}
	return item, nil
}

// NextEligible selects the next item the queue processor should acquire.
// When any source has auto-acquire enabled, only items of such sources are
// candidates; otherwise only items of single-item sources are. Ties resolve
// by row id.
func (s *Store) NextEligible(ctx context.Context) (*Item, error) {
	ctx = ensureContext(ctx)
	var autoSources int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sources WHERE auto_acquire = 1`).Scan(&autoSources); err != nil {
		return nil, fmt.Errorf("count auto sources: %w", err)
	}

	condition, arg := "s.auto_acquire = ?", any(1)
	if autoSources == 0 {
		condition, arg = "s.kind = ?", any(string(KindVideo))
	}
	query := `SELECT ` + prefixedItemColumns() + ` FROM items i JOIN sources s ON s.id = i.source_id
        WHERE ` + condition + ` AND ` + eligibleClause + ` ORDER BY i.id LIMIT 1`
	item, err := scanItem(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next eligible item: %w", err)
	}
	return item, nil
}

func prefixedItemColumns() string {
	cols := strings.Split(itemColumns, ", ")
	for i, col := range cols {
		cols[i] = "i." + col
	}
	return strings.Join(cols, ", ")
}

// ListItems returns items matching filter, newest first.
func (s *Store) ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.SourceID > 0 {
		clauses = append(clauses, "i.source_id = ?")
		args = append(args, filter.SourceID)
	}
	switch strings.ToLower(strings.TrimSpace(filter.Status)) {
	case "", "all":
	case StatusAcquired:
		clauses = append(clauses, "i.acquired = 1")
	case StatusMissing:
		clauses = append(clauses, "i.file_missing = 1")
	case StatusFailed:
		clauses = append(clauses, "i.failed = 1")
	case StatusSkipped:
		clauses = append(clauses, "i.skip = 1")
	case StatusPending:
		clauses = append(clauses, eligibleClause)
	default:
		return nil, fmt.Errorf("unknown status filter %q", filter.Status)
	}

	query := `SELECT ` + prefixedItemColumns() + ` FROM items i`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY i.upload_date DESC, i.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return s.queryItems(ctx, query, args...)
}

// AcquiredItems returns every item currently marked acquired.
func (s *Store) AcquiredItems(ctx context.Context) ([]*Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE acquired = 1 ORDER BY id`)
}

// ItemsBySource returns all items of one source ordered by id.
func (s *Store) ItemsBySource(ctx context.Context, sourceID int64) ([]*Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE source_id = ? ORDER BY id`, sourceID)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
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

// ClearFailure drops a stale failure flag before a new attempt.
func (s *Store) ClearFailure(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE items SET failed = 0, error_detail = '', updated_at = ? WHERE id = ?`,
		nowUTC(), id,
	); err != nil {
		return fmt.Errorf("clear failure: %w", err)
	}
	return nil
}

// MarkFailed records a failed acquisition. Acquired rows are never marked failed.
func (s *Store) MarkFailed(ctx context.Context, id int64, detail string) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE items SET failed = 1, error_detail = ?, updated_at = ? WHERE id = ? AND acquired = 0`,
		detail, nowUTC(), id,
	); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// MarkAcquired records a successful acquisition and clears every failure and
// missing flag in the same commit.
func (s *Store) MarkAcquired(ctx context.Context, id int64, acq Acquisition) error {
	acquiredAt := acq.AcquiredAt
	if acquiredAt.IsZero() {
		acquiredAt = time.Now()
	}
	if _, err := s.execWithRetry(ctx,
		`UPDATE items SET
            acquired = 1, acquired_at = ?, output_path = ?,
            thumbnail_url = CASE WHEN ? != '' THEN ? ELSE thumbnail_url END,
            description = CASE WHEN ? != '' THEN ? ELSE description END,
            duration = CASE WHEN ? > 0 THEN ? ELSE duration END,
            failed = 0, error_detail = '', file_missing = 0, updated_at = ?
         WHERE id = ?`,
		formatTime(acquiredAt), acq.OutputPath,
		acq.ThumbnailURL, acq.ThumbnailURL,
		acq.Description, acq.Description,
		acq.Duration, acq.Duration,
		nowUTC(), id,
	); err != nil {
		return fmt.Errorf("mark acquired: %w", err)
	}
	return nil
}

// ResetFailed clears the failure flag. It reports false when the item was not failed.
func (s *Store) ResetFailed(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE items SET failed = 0, error_detail = '', updated_at = ? WHERE id = ? AND failed = 1`,
		nowUTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("reset failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ResetMissing makes a missing item eligible again by clearing file_missing
// and skip. It reports false when the item was not missing.
func (s *Store) ResetMissing(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE items SET file_missing = 0, skip = 0, updated_at = ? WHERE id = ? AND file_missing = 1`,
		nowUTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("reset missing: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ToggleSkip flips the skip flag and returns the new value.
func (s *Store) ToggleSkip(ctx context.Context, id int64) (bool, error) {
	var skip bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current int
		err := tx.QueryRowContext(ctx, `SELECT skip FROM items WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("item %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load item: %w", err)
		}
		skip = current == 0
		if _, err := tx.ExecContext(ctx, `UPDATE items SET skip = ?, updated_at = ? WHERE id = ?`, boolToInt(skip), nowUTC(), id); err != nil {
			return fmt.Errorf("toggle skip: %w", err)
		}
		return nil
	})
	return skip, err
}

// MarkMissing demotes acquired items whose files are gone: acquired is
// cleared, file_missing and skip are set. All ids change in one commit.
func (s *Store) MarkMissing(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, nowUTC())
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE items SET acquired = 0, file_missing = 1, skip = 1, updated_at = ?
         WHERE id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("mark missing: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Stats summarizes items by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT
        COUNT(1),
        COALESCE(SUM(CASE WHEN acquired = 0 AND file_missing = 0 AND skip = 0 AND failed = 0 THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(acquired), 0),
        COALESCE(SUM(failed), 0),
        COALESCE(SUM(file_missing), 0),
        COALESCE(SUM(skip), 0)
        FROM items`)
	var stats Stats
	if err := row.Scan(&stats.Total, &stats.Pending, &stats.Acquired, &stats.Failed, &stats.Missing, &stats.Skipped); err != nil {
		return Stats{}, fmt.Errorf("item stats: %w", err)
	}
	return stats, nil
}
