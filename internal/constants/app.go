// Package constants centralizes endpoint paths, timing, and transport limits.
package constants

import (
	"time"
)

// Server API paths. The prefixes take a job id path segment.
const (
	UploadPath               = "/api/upload"
	StatusPathPrefix         = "/api/status/"
	CancelPathPrefix         = "/api/cancel/"
	DownloadPathPrefix       = "/api/download/"
	DownloadNoFacePathPrefix = "/api/download-noface/"
	JobsPath                 = "/api/jobs"
)

// Timer cadence.
const (
	// StatusPollInterval is the fixed delay between status fetches for the
	// active job. The server updates counters in batches, so polling faster
	// buys nothing.
	StatusPollInterval = 2 * time.Second

	// HistoryRefreshInterval drives the jobs-list view. Independent of the
	// status poller; both only read server state.
	HistoryRefreshInterval = 10 * time.Second
)

// HTTP transport settings.
const (
	HTTPDialTimeout           = 10 * time.Second
	HTTPDialKeepAlive         = 30 * time.Second
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 10 * time.Second
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPRequestTimeout bounds a single request including body transfer.
	// Artifact downloads can be large, so this is generous.
	HTTPRequestTimeout = 300 * time.Second
)

// Retry settings for idempotent GETs (list, downloads). The upload POST and
// the status poll are never retried at the HTTP layer: upload is one-shot by
// contract, and the poll loop retries on its own tick.
const (
	RetryMax     = 4
	RetryWaitMin = 500 * time.Millisecond
	RetryWaitMax = 10 * time.Second
)

// Default proxy port when a host is configured without one.
const DefaultProxyPort = 8080

// EventBusDefaultBuffer is the channel buffer per event subscriber.
const EventBusDefaultBuffer = 256
