package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Item describes a catalog item in a transport-friendly format.
type Item struct {
	ID           int64  `json:"id"`
	ExternalID   string `json:"externalId"`
	Title        string `json:"title"`
	Channel      string `json:"channel"`
	UploadDate   string `json:"uploadDate,omitempty"`
	SourceID     int64  `json:"sourceId"`
	Duration     int    `json:"duration"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Description  string `json:"description,omitempty"`
	Status       string `json:"status"`
	Acquired     bool   `json:"acquired"`
	FileMissing  bool   `json:"fileMissing"`
	Skip         bool   `json:"skip"`
	Failed       bool   `json:"failed"`
	ErrorDetail  string `json:"errorDetail,omitempty"`
	OutputPath   string `json:"outputPath,omitempty"`
	AcquiredAt   string `json:"acquiredAt,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// Source describes a tracked source with its item count.
type Source struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	ExternalID  string `json:"externalId"`
	Name        string `json:"name"`
	AddedAt     string `json:"addedAt,omitempty"`
	LastChecked string `json:"lastChecked,omitempty"`
	BucketID    *int64 `json:"bucketId,omitempty"`
	AutoAcquire bool   `json:"autoAcquire"`
	Items       int    `json:"items"`
}

// Bucket describes a destination directory.
type Bucket struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"isDefault"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Setting is one runtime setting.
type Setting struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Version int64  `json:"version"`
}

// Stats summarizes item counts by status.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Acquired int `json:"acquired"`
	Failed   int `json:"failed"`
	Missing  int `json:"missing"`
	Skipped  int `json:"skipped"`
}

// LoopStatus mirrors one workflow loop.
type LoopStatus struct {
	Name       string `json:"name"`
	Running    bool   `json:"running"`
	Iterations int    `json:"iterations"`
	LastRun    string `json:"lastRun,omitempty"`
	NextRun    string `json:"nextRun,omitempty"`
	LastError  string `json:"lastError,omitempty"`
	LastResult string `json:"lastResult,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult is one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running              bool               `json:"running"`
	PID                  int                `json:"pid"`
	DatabasePath         string             `json:"databasePath"`
	LockFilePath         string             `json:"lockFilePath"`
	StorageRoot          string             `json:"storageRoot"`
	LogPath              string             `json:"logPath,omitempty"`
	InFlight             int                `json:"inFlight"`
	// MetadataCacheEntries is nil when the metadata cache is disabled.
	MetadataCacheEntries *int               `json:"metadataCacheEntries,omitempty"`
	Loops                []LoopStatus       `json:"loops"`
	Stats                Stats              `json:"stats"`
	Dependencies         []DependencyStatus `json:"dependencies"`
	Checks               []CheckResult      `json:"checks"`
}

// ItemListResponse wraps a collection of items for HTTP responses.
type ItemListResponse struct {
	Items []Item `json:"items"`
}

// SourceListResponse wraps a collection of sources for HTTP responses.
type SourceListResponse struct {
	Sources []Source `json:"sources"`
}
