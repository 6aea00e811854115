package catalog

import (
	"database/sql"
	"errors"
	"time"
)

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func formatTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
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

func parseNullTime(value sql.NullString) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return time.Time{}
	}
	return t
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

type rowScanner interface {
	Scan(dest ...any) error
}

const itemColumns = "id, external_id, title, channel, upload_date, source_id, duration, thumbnail_url, description, acquired, output_path, acquired_at, file_missing, skip, failed, error_detail, created_at, updated_at"

func scanItem(scanner rowScanner) (*Item, error) {
	var (
		item        Item
		acquired    int
		fileMissing int
		skip        int
		failed      int
		acquiredAt  sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&item.ID,
		&item.ExternalID,
		&item.Title,
		&item.Channel,
		&item.UploadDate,
		&item.SourceID,
		&item.Duration,
		&item.ThumbnailURL,
		&item.Description,
		&acquired,
		&item.OutputPath,
		&acquiredAt,
		&fileMissing,
		&skip,
		&failed,
		&item.ErrorDetail,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	item.Acquired = acquired != 0
	item.FileMissing = fileMissing != 0
	item.Skip = skip != 0
	item.Failed = failed != 0
	item.AcquiredAt = parseNullTime(acquiredAt)
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}

const sourceColumns = "id, kind, external_id, name, added_at, last_checked, bucket_id, auto_acquire"

func scanSource(scanner rowScanner) (*Source, error) {
	var (
		src         Source
		kind        string
		addedRaw    string
		lastChecked sql.NullString
		bucketID    sql.NullInt64
		auto        int
	)
	if err := scanner.Scan(&src.ID, &kind, &src.ExternalID, &src.Name, &addedRaw, &lastChecked, &bucketID, &auto); err != nil {
		return nil, err
	}
	src.Kind = Kind(kind)
	src.AutoAcquire = auto != 0
	if added, err := parseTimeString(addedRaw); err == nil {
		src.AddedAt = added
	}
	src.LastChecked = parseNullTime(lastChecked)
	if bucketID.Valid {
		id := bucketID.Int64
		src.BucketID = &id
	}
	return &src, nil
}

const bucketColumns = "id, name, path, description, is_default, created_at"

func scanBucket(scanner rowScanner) (*Bucket, error) {
	var (
		bucket     Bucket
		isDefault  int
		createdRaw string
	)
	if err := scanner.Scan(&bucket.ID, &bucket.Name, &bucket.Path, &bucket.Description, &isDefault, &createdRaw); err != nil {
		return nil, err
	}
	bucket.IsDefault = isDefault != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		bucket.CreatedAt = created
	}
	return &bucket, nil
}
