// Package models defines the client-side view of server jobs.
package models

import (
	"time"
)

// Job status values reported by the server.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// IsActive reports whether a status still produces progress updates.
func IsActive(status string) bool {
	return status == StatusQueued || status == StatusProcessing
}

// JobConfig echoes the configuration a job was submitted with. The server
// includes it only once the job reaches a terminal status.
type JobConfig struct {
	SaveImages *bool `json:"save_images,omitempty"`
}

// SaveImagesEnabled reports whether no-face images were kept server-side.
// An absent field means the server default (save) applied.
func (c *JobConfig) SaveImagesEnabled() bool {
	if c == nil || c.SaveImages == nil {
		return true
	}
	return *c.SaveImages
}

// JobStatus is one poll response for a single job. The server omits zero
// counters, so every counter defaults to 0 on decode.
type JobStatus struct {
	ID                 string     `json:"id,omitempty"`
	Status             string     `json:"status"`
	Processed          int        `json:"processed"`
	RowsToProcess      int        `json:"rows_to_process"`
	TotalRows          int        `json:"total_rows,omitempty"`
	Progress           float64    `json:"progress"`
	GoodCount          int        `json:"good_count"`
	NoFaceCount        int        `json:"noface_count"`
	DownloadErrorCount int        `json:"download_error_count"`
	Error              string     `json:"error,omitempty"`
	Message            string     `json:"message,omitempty"`
	Config             *JobConfig `json:"config,omitempty"`
}

// Terminal reports whether the status will never change again.
func (s *JobStatus) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// JobSummary is one entry of the jobs history listing.
type JobSummary struct {
	JobID              string `json:"job_id"`
	OriginalFilename   string `json:"original_filename"`
	Status             string `json:"status"`
	UploadedAt         string `json:"uploaded_at"`
	Processed          int    `json:"processed"`
	RowsToProcess      int    `json:"rows_to_process"`
	GoodCount          int    `json:"good_count"`
	NoFaceCount        int    `json:"noface_count"`
	DownloadErrorCount int    `json:"download_error_count"`
}

// uploadedAtLayouts covers RFC3339 and the fractional local timestamps the
// server emits.
var uploadedAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// UploadedTime parses the upload timestamp. The zero time is returned for
// values that do not parse; callers sort such entries last.
func (j *JobSummary) UploadedTime() time.Time {
	for _, layout := range uploadedAtLayouts {
		if t, err := time.Parse(layout, j.UploadedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// UploadConfig is the configuration bundle submitted alongside a CSV file.
// Values are passed through as-is; the server is authoritative on range
// checks.
type UploadConfig struct {
	DownloadTimeout int
	MediapipeThresh float64
	DNNThresh       float64
	NumThreads      int
	BatchSize       int
	SaveImages      bool
}
