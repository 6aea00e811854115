package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AddSource registers a source together with its initial items in one commit.
// It returns the stored source and the number of items actually inserted;
// items whose external id is already tracked are left untouched.
func (s *Store) AddSource(ctx context.Context, src NewSource, items []NewItem) (*Source, int, error) {
	src.ExternalID = strings.TrimSpace(src.ExternalID)
	if src.ExternalID == "" {
		return nil, 0, errors.New("source external id is required")
	}
	var (
		id       int64
		inserted int
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM sources WHERE external_id = ?`, src.ExternalID).Scan(&exists); err != nil {
			return fmt.Errorf("check source: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", ErrSourceExists, src.ExternalID)
		}
		now := nowUTC()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sources (kind, external_id, name, added_at, last_checked, bucket_id, auto_acquire)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(src.Kind), src.ExternalID, src.Name, now, now, nullableInt64(src.BucketID), boolToInt(src.AutoAcquire),
		)
		if err != nil {
			return fmt.Errorf("insert source: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		inserted, err = insertItems(ctx, tx, id, items, false)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	source, err := s.GetSource(ctx, id)
	return source, inserted, err
}

func insertItems(ctx context.Context, tx *sql.Tx, sourceID int64, items []NewItem, skip bool) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO items (
            external_id, title, channel, upload_date, source_id, duration,
            thumbnail_url, description, skip, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare item insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	now := nowUTC()
	for _, item := range items {
		externalID := strings.TrimSpace(item.ExternalID)
		if externalID == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx,
			externalID,
			defaultLabel(item.Title),
			defaultLabel(item.Channel),
			item.UploadDate,
			sourceID,
			item.Duration,
			item.ThumbnailURL,
			item.Description,
			boolToInt(skip),
			now,
			now,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert item %s: %w", externalID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func defaultLabel(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Unknown"
	}
	return value
}

// RecordRefresh applies a whole poller pass in one commit: unseen items are
// inserted with the per-source skip flag and every visited source has its
// last_checked timestamp advanced, including sources that yielded nothing.
func (s *Store) RecordRefresh(ctx context.Context, refreshes []SourceRefresh) (int, error) {
	total := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		total = 0
		now := nowUTC()
		for _, refresh := range refreshes {
			inserted, err := insertItems(ctx, tx, refresh.SourceID, refresh.Items, refresh.Skip)
			if err != nil {
				return err
			}
			total += inserted
			if _, err := tx.ExecContext(ctx, `UPDATE sources SET last_checked = ? WHERE id = ?`, now, refresh.SourceID); err != nil {
				return fmt.Errorf("update last_checked: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// GetSource fetches a source by id, returning nil when absent.
func (s *Store) GetSource(ctx context.Context, id int64) (*Source, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return src, nil
}

// SourceByExternalID fetches a source by its external id, returning nil when absent.
func (s *Store) SourceByExternalID(ctx context.Context, externalID string) (*Source, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+sourceColumns+` FROM sources WHERE external_id = ?`, strings.TrimSpace(externalID))
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source by external id: %w", err)
	}
	return src, nil
}

// ListSources returns every source ordered by id.
func (s *Store) ListSources(ctx context.Context) ([]*Source, error) {
	return s.querySources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

// ListRefreshableSources returns the sources a poller pass visits: every
// source except single-item ones.
func (s *Store) ListRefreshableSources(ctx context.Context) ([]*Source, error) {
	return s.querySources(ctx, `SELECT `+sourceColumns+` FROM sources WHERE kind != ? ORDER BY id`, string(KindVideo))
}

func (s *Store) querySources(ctx context.Context, query string, args ...any) ([]*Source, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// SetAutoAcquire updates a source's auto-acquire flag.
func (s *Store) SetAutoAcquire(ctx context.Context, id int64, auto bool) error {
	res, err := s.execWithRetry(ctx, `UPDATE sources SET auto_acquire = ? WHERE id = ?`, boolToInt(auto), id)
	if err != nil {
		return fmt.Errorf("set auto_acquire: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSource removes a source; its items cascade.
func (s *Store) DeleteSource(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %d: %w", id, ErrNotFound)
	}
	return nil
}

// SourceItemCounts returns the number of items per source id.
func (s *Store) SourceItemCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT source_id, COUNT(1) FROM items GROUP BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("count source items: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}
