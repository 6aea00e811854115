package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// BucketPath returns the directory a bucket named name occupies under root.
func BucketPath(root, name string) string {
	dir := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	return filepath.Join(root, dir)
}

func (s *Store) ensureDefaultBucket(ctx context.Context, name, path string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM buckets WHERE is_default = 1`).Scan(&count); err != nil {
			return fmt.Errorf("check default bucket: %w", err)
		}
		if count > 0 {
			return nil
		}
		res, err := tx.ExecContext(ctx, `UPDATE buckets SET is_default = 1 WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("promote default bucket: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO buckets (name, path, description, is_default, created_at) VALUES (?, ?, ?, 1, ?)`,
			name, path, "Default download location", nowUTC(),
		); err != nil {
			return fmt.Errorf("create default bucket: %w", err)
		}
		return nil
	})
}

// CreateBucket inserts a bucket. When makeDefault is set the previous default
// is cleared in the same transaction.
func (s *Store) CreateBucket(ctx context.Context, name, path, description string, makeDefault bool) (*Bucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("bucket name is required")
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if makeDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE buckets SET is_default = 0 WHERE is_default = 1`); err != nil {
				return fmt.Errorf("clear default bucket: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO buckets (name, path, description, is_default, created_at) VALUES (?, ?, ?, ?, ?)`,
			name, path, description, boolToInt(makeDefault), nowUTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrBucketExists, name)
			}
			return fmt.Errorf("insert bucket: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetBucket(ctx, id)
}

// GetBucket fetches a bucket by id, returning nil when absent.
func (s *Store) GetBucket(ctx context.Context, id int64) (*Bucket, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+bucketColumns+` FROM buckets WHERE id = ?`, id)
	bucket, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bucket: %w", err)
	}
	return bucket, nil
}

// BucketByName fetches a bucket by name, returning nil when absent.
func (s *Store) BucketByName(ctx context.Context, name string) (*Bucket, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+bucketColumns+` FROM buckets WHERE name = ?`, strings.TrimSpace(name))
	bucket, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bucket by name: %w", err)
	}
	return bucket, nil
}

// DefaultBucket returns the current default bucket, or nil if none is marked.
func (s *Store) DefaultBucket(ctx context.Context) (*Bucket, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+bucketColumns+` FROM buckets WHERE is_default = 1 ORDER BY id LIMIT 1`)
	bucket, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get default bucket: %w", err)
	}
	return bucket, nil
}

// ListBuckets returns every bucket ordered by name.
func (s *Store) ListBuckets(ctx context.Context) ([]*Bucket, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+bucketColumns+` FROM buckets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*Bucket
	for rows.Next() {
		bucket, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	return buckets, rows.Err()
}

// SetDefaultBucket marks id as the only default bucket.
func (s *Store) SetDefaultBucket(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM buckets WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check bucket: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("bucket %d: %w", id, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE buckets SET is_default = 0 WHERE is_default = 1 AND id != ?`, id); err != nil {
			return fmt.Errorf("clear default bucket: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE buckets SET is_default = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("set default bucket: %w", err)
		}
		return nil
	})
}

// DeleteBucket removes a non-default bucket and re-points its sources at the
// default bucket.
func (s *Store) DeleteBucket(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var isDefault int
		err := tx.QueryRowContext(ctx, `SELECT is_default FROM buckets WHERE id = ?`, id).Scan(&isDefault)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("bucket %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load bucket: %w", err)
		}
		if isDefault != 0 {
			return ErrDefaultBucket
		}
		var defaultID sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM buckets WHERE is_default = 1 LIMIT 1`).Scan(&defaultID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load default bucket: %w", err)
		}
		var target any
		if defaultID.Valid {
			target = defaultID.Int64
		}
		if _, err := tx.ExecContext(ctx, `UPDATE sources SET bucket_id = ? WHERE bucket_id = ?`, target, id); err != nil {
			return fmt.Errorf("reassign sources: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM buckets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete bucket: %w", err)
		}
		return nil
	})
}
