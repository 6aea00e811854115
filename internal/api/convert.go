package api

import (
	"fmt"
	"time"

	"vibetube/internal/catalog"
	"vibetube/internal/deps"
	"vibetube/internal/preflight"
	"vibetube/internal/sources"
	"vibetube/internal/workflow"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromItem converts a catalog item into its transport representation.
func FromItem(item *catalog.Item) Item {
	if item == nil {
		return Item{}
	}
	return Item{
		ID:           item.ID,
		ExternalID:   item.ExternalID,
		Title:        item.Title,
		Channel:      item.Channel,
		UploadDate:   item.UploadDate,
		SourceID:     item.SourceID,
		Duration:     item.Duration,
		ThumbnailURL: item.ThumbnailURL,
		Description:  item.Description,
		Status:       item.Status(),
		Acquired:     item.Acquired,
		FileMissing:  item.FileMissing,
		Skip:         item.Skip,
		Failed:       item.Failed,
		ErrorDetail:  item.ErrorDetail,
		OutputPath:   item.OutputPath,
		AcquiredAt:   formatTime(item.AcquiredAt),
		CreatedAt:    formatTime(item.CreatedAt),
		UpdatedAt:    formatTime(item.UpdatedAt),
	}
}

// FromItems converts a slice of catalog items.
func FromItems(items []*catalog.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, FromItem(item))
	}
	return out
}

// FromSource converts a source summary.
func FromSource(summary sources.Summary) Source {
	src := summary.Source
	if src == nil {
		return Source{}
	}
	return Source{
		ID:          src.ID,
		Kind:        string(src.Kind),
		ExternalID:  src.ExternalID,
		Name:        src.Name,
		AddedAt:     formatTime(src.AddedAt),
		LastChecked: formatTime(src.LastChecked),
		BucketID:    src.BucketID,
		AutoAcquire: src.AutoAcquire,
		Items:       summary.Items,
	}
}

// FromSources converts source summaries.
func FromSources(list []sources.Summary) []Source {
	out := make([]Source, 0, len(list))
	for _, summary := range list {
		if summary.Source == nil {
			continue
		}
		out = append(out, FromSource(summary))
	}
	return out
}

// FromBucket converts a bucket.
func FromBucket(bucket *catalog.Bucket) Bucket {
	if bucket == nil {
		return Bucket{}
	}
	return Bucket{
		ID:          bucket.ID,
		Name:        bucket.Name,
		Path:        bucket.Path,
		Description: bucket.Description,
		IsDefault:   bucket.IsDefault,
		CreatedAt:   formatTime(bucket.CreatedAt),
	}
}

// FromBuckets converts buckets.
func FromBuckets(buckets []*catalog.Bucket) []Bucket {
	out := make([]Bucket, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket == nil {
			continue
		}
		out = append(out, FromBucket(bucket))
	}
	return out
}

// FromSetting converts a setting. Credential text is replaced by a marker.
func FromSetting(setting catalog.Setting) Setting {
	value := setting.Value
	if setting.Key == catalog.SettingCookies {
		value = MaskSecret(value)
	}
	return Setting{Key: setting.Key, Value: value, Version: setting.Version}
}

// MaskSecret describes a secret value without revealing it.
func MaskSecret(value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("<set, %d bytes>", len(value))
}

// FromStats converts item counts.
func FromStats(stats catalog.Stats) Stats {
	return Stats{
		Total:    stats.Total,
		Pending:  stats.Pending,
		Acquired: stats.Acquired,
		Failed:   stats.Failed,
		Missing:  stats.Missing,
		Skipped:  stats.Skipped,
	}
}

// FromLoopStatuses converts loop snapshots, preserving order.
func FromLoopStatuses(statuses []workflow.LoopStatus) []LoopStatus {
	out := make([]LoopStatus, len(statuses))
	for i, st := range statuses {
		out[i] = LoopStatus{
			Name:       st.Name,
			Running:    st.Running,
			Iterations: st.Iterations,
			LastRun:    formatTime(st.LastRun),
			NextRun:    formatTime(st.NextRun),
			LastError:  st.LastError,
			LastResult: st.LastResult,
		}
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
	}
	return out
}
