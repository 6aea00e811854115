package ipc

import "vibetube/internal/api"

// Item mirrors the HTTP API item DTO for IPC callers.
type Item = api.Item

// Source mirrors the HTTP API source DTO.
type Source = api.Source

// Bucket mirrors the HTTP API bucket DTO.
type Bucket = api.Bucket

// Setting mirrors the HTTP API setting DTO.
type Setting = api.Setting

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and loop status information.
type StatusResponse = api.DaemonStatus

// StopRequest asks the daemon process to exit.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// LoopRequest names one loop; empty means all loops.
type LoopRequest struct {
	Name string `json:"name"`
}

// LoopResponse lists the loops whose state changed.
type LoopResponse struct {
	Changed []string `json:"changed"`
}

// SourceAddRequest registers a source.
type SourceAddRequest struct {
	Kind        string `json:"kind"`
	ExternalID  string `json:"external_id"`
	Bucket      string `json:"bucket"`
	AutoAcquire bool   `json:"auto_acquire"`
}

// SourceAddResponse reports the registered source.
type SourceAddResponse struct {
	Source Source `json:"source"`
	Items  int    `json:"items"`
}

// SourceListRequest lists sources.
type SourceListRequest struct{}

// SourceListResponse contains every source.
type SourceListResponse struct {
	Sources []Source `json:"sources"`
}

// SourceRemoveRequest removes a source.
type SourceRemoveRequest struct {
	ID          int64 `json:"id"`
	DeleteFiles bool  `json:"delete_files"`
}

// SourceRemoveResponse reports a removal.
type SourceRemoveResponse struct {
	Name         string `json:"name"`
	FilesDeleted int    `json:"files_deleted"`
	FilesTotal   int    `json:"files_total"`
}

// IDRequest addresses one row by id.
type IDRequest struct {
	ID int64 `json:"id"`
}

// ToggleResponse reports a flag's new value, or whether a reset applied.
type ToggleResponse struct {
	Value bool `json:"value"`
}

// ItemListRequest filters item listing.
type ItemListRequest struct {
	Status   string `json:"status"`
	SourceID int64  `json:"source_id"`
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
}

// ItemListResponse contains items.
type ItemListResponse struct {
	Items []Item `json:"items"`
}

// ItemResponse contains one item.
type ItemResponse struct {
	Item Item `json:"item"`
}

// DownloadRequest triggers an acquisition.
type DownloadRequest struct {
	ID   int64 `json:"id"`
	Wait bool  `json:"wait"`
}

// DownloadResponse reports a trigger-download.
type DownloadResponse struct {
	Item    Item   `json:"item"`
	Started bool   `json:"started"`
	Waited  bool   `json:"waited"`
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

// DeleteFilesResponse reports a delete-item-files.
type DeleteFilesResponse struct {
	Folder      string `json:"folder"`
	AlreadyGone bool   `json:"already_gone"`
}

// TriggerRequest runs a pass now; Wait blocks until it finishes.
type TriggerRequest struct {
	Wait bool `json:"wait"`
}

// RefreshResponse reports a manual refresh.
type RefreshResponse struct {
	Waited   bool `json:"waited"`
	Sources  int  `json:"sources"`
	NewItems int  `json:"new_items"`
}

// ScanResponse reports a manual scan.
type ScanResponse struct {
	Waited  bool `json:"waited"`
	Changed int  `json:"changed"`
}

// BucketAddRequest creates a bucket.
type BucketAddRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

// BucketRequest addresses a bucket by name.
type BucketRequest struct {
	Name string `json:"name"`
}

// BucketResponse contains one bucket.
type BucketResponse struct {
	Bucket Bucket `json:"bucket"`
}

// BucketListResponse contains every bucket.
type BucketListResponse struct {
	Buckets []Bucket `json:"buckets"`
}

// EmptyRequest carries no parameters.
type EmptyRequest struct{}

// EmptyResponse carries no result.
type EmptyResponse struct{}

// SettingRequest addresses a setting, with a value for writes.
type SettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SettingResponse contains one setting.
type SettingResponse struct {
	Setting Setting `json:"setting"`
}

// SettingListResponse contains every setting.
type SettingListResponse struct {
	Settings []Setting `json:"settings"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
