// Package render formats job progress and history for terminal output.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/faceaudit/faceaudit/internal/models"
)

// ClampPercent maps a raw server progress value onto [0, 100]. The server
// reports progress as a 0-100 float but transient states can push it out of
// range; the display never shows a value outside the bar.
func ClampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// PercentLabel formats a clamped progress value for display.
func PercentLabel(p float64) string {
	return fmt.Sprintf("%.0f%%", ClampPercent(p))
}

// totalRows resolves the row count a job was asked to process, falling back
// to the full CSV row count for servers that omit rows_to_process.
func totalRows(s *models.JobStatus) int {
	if s.RowsToProcess == 0 && s.TotalRows > 0 {
		return s.TotalRows
	}
	return s.RowsToProcess
}

// ProgressLine formats the per-poll progress text for an active job.
func ProgressLine(s *models.JobStatus) string {
	return fmt.Sprintf("%d / %d images processed", s.Processed, totalRows(s))
}

// CountsLine formats the live detection counters shown alongside progress.
func CountsLine(s *models.JobStatus) string {
	return fmt.Sprintf("faces: %d  no face: %d  errors: %d",
		s.GoodCount, s.NoFaceCount, s.DownloadErrorCount)
}

// Summary formats the final results line for a completed job. The total is
// the server's row count, not the sum of the counters: rows that hit an
// internal error land in no counter bucket.
func Summary(s *models.JobStatus) string {
	return fmt.Sprintf("Processed %d images: %d with faces, %d without faces, %d errors",
		totalRows(s), s.GoodCount, s.NoFaceCount, s.DownloadErrorCount)
}

// FailureLine formats a job failure for display. The server error message
// wins when present.
func FailureLine(s *models.JobStatus) string {
	if s.Error != "" {
		return fmt.Sprintf("Job failed: %s", s.Error)
	}
	return "Job failed"
}

// ExpiredLine is the message shown when the server no longer knows the
// tracked job, typically after a server restart.
const ExpiredLine = "Session expired: the server no longer knows this job (it may have restarted). Submit the file again."

// StatusLabel renders a server status for display. Queued jobs show as
// processing; the distinction carries no information the user can act on.
func StatusLabel(status string) string {
	switch status {
	case models.StatusQueued, models.StatusProcessing:
		return "processing"
	case models.StatusCompleted:
		return "completed"
	case models.StatusFailed:
		return "failed"
	case models.StatusCancelled:
		return "cancelled"
	default:
		return status
	}
}

// SortByUploadedDesc orders history entries newest first. Entries with an
// unparseable timestamp sort last, ties break on job id for stable output.
func SortByUploadedDesc(jobs []models.JobSummary) {
	sort.SliceStable(jobs, func(i, j int) bool {
		ti, tj := jobs[i].UploadedTime(), jobs[j].UploadedTime()
		if ti.Equal(tj) {
			return jobs[i].JobID > jobs[j].JobID
		}
		return ti.After(tj)
	})
}

// ActiveCount reports how many history entries are still queued or
// processing.
func ActiveCount(jobs []models.JobSummary) int {
	n := 0
	for _, j := range jobs {
		if models.IsActive(j.Status) {
			n++
		}
	}
	return n
}

// HistoryRow formats one line of the jobs listing.
func HistoryRow(j *models.JobSummary) string {
	uploaded := "-"
	if t := j.UploadedTime(); !t.IsZero() {
		uploaded = t.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%-36s  %-10s  %-16s  %5d/%-5d  %s",
		j.JobID,
		StatusLabel(j.Status),
		uploaded,
		j.Processed,
		j.RowsToProcess,
		j.OriginalFilename,
	)
}

// HistoryHeader is the column header matching HistoryRow's layout.
func HistoryHeader() string {
	return fmt.Sprintf("%-36s  %-10s  %-16s  %-11s  %s",
		"JOB ID", "STATUS", "UPLOADED", "PROGRESS", "FILE")
}

// HistoryTable formats a full jobs listing, newest first.
func HistoryTable(jobs []models.JobSummary) string {
	if len(jobs) == 0 {
		return "No jobs yet."
	}

	sorted := make([]models.JobSummary, len(jobs))
	copy(sorted, jobs)
	SortByUploadedDesc(sorted)

	var b strings.Builder
	b.WriteString(HistoryHeader())
	b.WriteByte('\n')
	for i := range sorted {
		b.WriteString(HistoryRow(&sorted[i]))
		b.WriteByte('\n')
	}
	b.WriteString(fmt.Sprintf("\n%d job(s), %d active\n", len(sorted), ActiveCount(sorted)))
	return b.String()
}
