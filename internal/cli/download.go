package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/faceaudit/faceaudit/internal/api"
	"github.com/faceaudit/faceaudit/internal/models"
	"github.com/faceaudit/faceaudit/internal/progress"
)

func newDownloadCmd() *cobra.Command {
	var (
		outDir string
		noface bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "download [job-id]",
		Short: "Download the processed results CSV",
		Long: `Download job artifacts. With no argument the tracked job is used;
pass a job id to fetch artifacts of any job from the history.

By default only the processed CSV is fetched. --noface fetches the
archive of images where no face was detected (available when the job
ran with save_images); --all fetches both.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newTracker()
			if err != nil {
				return err
			}
			defer t.Close()

			ctx := GetContext()

			jobID, displayName, err := resolveDownloadTarget(ctx, t, args)
			if err != nil {
				return err
			}

			ui := progress.NewDownloadUI()
			var wg sync.WaitGroup
			errs := make(chan error, 2)

			if !noface || all {
				name := api.ResultsFilename(displayName)
				dest := filepath.Join(outDir, name)
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- fetchArtifact(ui, name, dest, func(p api.ProgressFunc) error {
						return t.client.DownloadResults(ctx, jobID, dest, p)
					})
				}()
			}

			if noface || all {
				name := api.NoFaceFilename(jobID)
				dest := filepath.Join(outDir, name)
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- fetchArtifact(ui, name, dest, func(p api.ProgressFunc) error {
						return t.client.DownloadNoFaceImages(ctx, jobID, dest, p)
					})
				}()
			}

			wg.Wait()
			ui.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&noface, "noface", false, "Download the no-face image archive instead of the CSV")
	cmd.Flags().BoolVar(&all, "all", false, "Download both the CSV and the no-face archive")

	return cmd
}

// resolveDownloadTarget picks the job to download from: the explicit id
// argument, or the tracked session. Explicit ids get their display name from
// the job history so the CSV lands under the server's attachment name.
func resolveDownloadTarget(ctx context.Context, t *tracker, args []string) (jobID, displayName string, err error) {
	if len(args) == 1 {
		jobID = args[0]
		displayName = "results.csv"
		if jobs, listErr := t.client.ListJobs(ctx); listErr == nil {
			for i := range jobs {
				if jobs[i].JobID == jobID {
					displayName = jobs[i].OriginalFilename
					break
				}
			}
		}
		return jobID, displayName, nil
	}

	rec, err := t.store.Load()
	if err != nil {
		return "", "", err
	}
	if rec == nil {
		return "", "", api.ErrNoActiveSession
	}

	status, err := t.client.Status(ctx, rec.JobID)
	if err != nil {
		return "", "", err
	}
	if models.IsActive(status.Status) {
		return "", "", fmt.Errorf("job %s is still running; wait for completion or cancel first", rec.JobID)
	}

	return rec.JobID, rec.DisplayName, nil
}

// fetchArtifact runs one download with a progress bar.
func fetchArtifact(ui *progress.DownloadUI, name, dest string, run func(api.ProgressFunc) error) error {
	bar := ui.AddArtifact(name, -1)

	var size int64
	err := run(func(written, total int64) {
		size = written
		bar.Update(written, total)
	})

	bar.Complete(dest, size, err)
	return err
}
