package store

import "time"

// MediaType is the coarse kind of an indexed file
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaOther MediaType = "other"
)

// MediaRecord is one row of the media index
type MediaRecord struct {
	ID         int64
	Path       string
	Name       string
	Size       int64
	ModTime    time.Time
	MediaType  MediaType
	IsDownload bool
	IndexedAt  time.Time
}

// Preference is a persisted boolean toggle
type Preference struct {
	Key       string    `json:"key" yaml:"key"`
	Value     bool      `json:"value" yaml:"value"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// CleanRecord is one clean run in the history
type CleanRecord struct {
	ID           string    `json:"id" yaml:"id"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time `json:"finished_at" yaml:"finished_at"`
	Deleted      int       `json:"deleted" yaml:"deleted"`
	Failed       int       `json:"failed" yaml:"failed"`
	BytesFreed   int64     `json:"bytes_freed" yaml:"bytes_freed"`
	Types        []string  `json:"types" yaml:"types"`
	DryRun       bool      `json:"dry_run" yaml:"dry_run"`
	ManifestPath string    `json:"manifest_path,omitempty" yaml:"manifest_path,omitempty"`
}
