// Package api implements the HTTP client for the face-detection audit server.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/faceaudit/faceaudit/internal/config"
	"github.com/faceaudit/faceaudit/internal/constants"
	"github.com/faceaudit/faceaudit/internal/httpx"
	"github.com/faceaudit/faceaudit/internal/logging"
	"github.com/faceaudit/faceaudit/internal/models"
)

// retryLogger adapts the retryablehttp.LeveledLogger interface to zerolog.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Retry chatter stays at debug.
	l.logger.Debug().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func fieldMap(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

// Client talks to the audit server.
//
// Two underlying HTTP clients are used on purpose: the upload POST and the
// status poll go through a bare client (upload is one-shot by contract and
// the poll loop retries on its own tick), while idempotent GETs such as the
// jobs listing and artifact downloads go through retryablehttp.
type Client struct {
	httpClient  *nethttp.Client
	retryClient *nethttp.Client
	baseURL     string
	logger      *logging.Logger
}

// NewClient creates a new API client for the configured server.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient, err := httpx.NewClient(&cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = constants.RetryMax
	rc.RetryWaitMin = constants.RetryWaitMin
	rc.RetryWaitMax = constants.RetryWaitMax
	rc.Logger = &retryLogger{logger: logger}

	return &Client{
		httpClient:  httpClient,
		retryClient: rc.StandardClient(),
		baseURL:     strings.TrimSuffix(cfg.ServerURL, "/"),
		logger:      logger,
	}, nil
}

// newRequest builds a request against the server with a correlation id.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// errorMessage extracts the {error} payload from a non-2xx response body.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		return strings.TrimSpace(string(data))
	}
	return payload.Error
}

// Status fetches the current status of one job. A 404 maps to
// ErrJobNotFound; transport errors are returned as-is so the polling loop
// can classify them as transient.
func (c *Client) Status(ctx context.Context, jobID string) (*models.JobStatus, error) {
	req, err := c.newRequest(ctx, nethttp.MethodGet, constants.StatusPathPrefix+jobID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusNotFound {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("status fetch failed: status %d: %s", resp.StatusCode, errorMessage(resp.Body))
	}

	var status models.JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode job status: %w", err)
	}
	return &status, nil
}

// Cancel asks the server to stop a job. Partial results are kept
// server-side. A rejection surfaces as *CancelError; an unknown id as
// ErrJobNotFound.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	req, err := c.newRequest(ctx, nethttp.MethodPost, constants.CancelPathPrefix+jobID, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cancel request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusNotFound {
		return fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &CancelError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}
	return nil
}

// ListJobs fetches the job history. Order is not meaningful server-side;
// the render layer sorts by upload time.
func (c *Client) ListJobs(ctx context.Context) ([]models.JobSummary, error) {
	req, err := c.newRequest(ctx, nethttp.MethodGet, constants.JobsPath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.retryClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jobs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("jobs fetch failed: status %d: %s", resp.StatusCode, errorMessage(resp.Body))
	}

	var jobs []models.JobSummary
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs list: %w", err)
	}
	return jobs, nil
}
