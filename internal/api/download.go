package api

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"path/filepath"

	"github.com/faceaudit/faceaudit/internal/constants"
)

// ProgressFunc receives byte counts while an artifact streams to disk.
// total is -1 when the server does not send Content-Length.
type ProgressFunc func(written, total int64)

// DownloadResults fetches the processed CSV for a completed job into
// destPath. The request goes through the retrying client; retries happen
// before the body stream starts, so a partial file is never retried into.
func (c *Client) DownloadResults(ctx context.Context, jobID, destPath string, progress ProgressFunc) error {
	return c.downloadArtifact(ctx, constants.DownloadPathPrefix+jobID, destPath, progress)
}

// DownloadNoFaceImages fetches the ZIP of images without detected faces.
// Only available when the job ran with save_images enabled.
func (c *Client) DownloadNoFaceImages(ctx context.Context, jobID, destPath string, progress ProgressFunc) error {
	return c.downloadArtifact(ctx, constants.DownloadNoFacePathPrefix+jobID, destPath, progress)
}

func (c *Client) downloadArtifact(ctx context.Context, path, destPath string, progress ProgressFunc) error {
	req, err := c.newRequest(ctx, nethttp.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.retryClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusNotFound {
		return fmt.Errorf("artifact %s: %w", path, ErrJobNotFound)
	}
	if resp.StatusCode != nethttp.StatusOK {
		return fmt.Errorf("download failed: status %d: %s", resp.StatusCode, errorMessage(resp.Body))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write to a temp file and rename so an interrupted download never
	// leaves a truncated artifact under the final name.
	tmpPath := destPath + ".part"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	total := resp.ContentLength
	var written int64
	buf := make([]byte, 128*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				os.Remove(tmpPath)
				return fmt.Errorf("failed to write artifact: %w", writeErr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to read artifact: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	c.logger.Info().
		Str("path", destPath).
		Int64("bytes", written).
		Msg("Artifact downloaded")

	return nil
}

// ResultsFilename is the local name for the processed CSV, matching the
// server's attachment name.
func ResultsFilename(originalFilename string) string {
	return "processed_" + filepath.Base(originalFilename)
}

// NoFaceFilename is the local name for the no-face image archive.
func NoFaceFilename(jobID string) string {
	return fmt.Sprintf("noface_images_%s.zip", jobID)
}
