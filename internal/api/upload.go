package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/faceaudit/faceaudit/internal/constants"
	"github.com/faceaudit/faceaudit/internal/models"
)

// uploadResponse is the body of a successful POST /api/upload.
type uploadResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Upload submits a CSV file plus the configuration bundle and returns the
// server-assigned job id.
//
// Exactly one request is issued per invocation; uploads are user-triggered
// and never retried. A non-2xx response maps to *SubmissionError carrying
// the server message when present.
func (c *Client) Upload(ctx context.Context, filePath string, cfg models.UploadConfig) (string, error) {
	if !strings.EqualFold(filepath.Ext(filePath), ".csv") {
		return "", &SubmissionError{Message: "only CSV files are allowed"}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", &SubmissionError{Message: fmt.Sprintf("could not open file: %v", err)}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("could not create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("could not copy file data: %w", err)
	}

	fields := map[string]string{
		"download_timeout": strconv.Itoa(cfg.DownloadTimeout),
		"mediapipe_thresh": strconv.FormatFloat(cfg.MediapipeThresh, 'f', -1, 64),
		"dnn_thresh":       strconv.FormatFloat(cfg.DNNThresh, 'f', -1, 64),
		"num_threads":      strconv.Itoa(cfg.NumThreads),
		"batch_size":       strconv.Itoa(cfg.BatchSize),
		"save_images":      strconv.FormatBool(cfg.SaveImages),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("could not write form field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("could not close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, nethttp.MethodPost, constants.UploadPath, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &SubmissionError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.JobID == "" {
		return "", fmt.Errorf("upload response missing job_id")
	}

	c.logger.Info().
		Str("job_id", result.JobID).
		Str("file", filepath.Base(filePath)).
		Msg("Upload accepted")

	return result.JobID, nil
}
