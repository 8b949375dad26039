package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/faceaudit/faceaudit/internal/models"
)

func newSubmitCmd() *cobra.Command {
	var (
		downloadTimeout int
		mediapipeThresh float64
		dnnThresh       float64
		numThreads      int
		batchSize       int
		saveImages      bool
		noSaveImages    bool
		watch           bool
	)

	cmd := &cobra.Command{
		Use:   "submit <file.csv>",
		Short: "Upload a CSV of image URLs and start tracking the audit",
		Long: `Upload a CSV file to the audit server and begin tracking the job.

The job id is stored locally, so a later "faceaudit watch" resumes
tracking even after this process exits. Detection settings default to
the values in the config file; flags override per submission.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]

			t, err := newTracker()
			if err != nil {
				return err
			}
			defer t.Close()

			// A live session means a job may still be running; make the
			// user decide instead of silently abandoning it.
			rec, err := t.store.Load()
			if err != nil {
				return err
			}
			if rec != nil {
				return fmt.Errorf("already tracking job %s (%s); run \"faceaudit watch\", \"faceaudit cancel\", or \"faceaudit reset\" first",
					rec.JobID, rec.DisplayName)
			}

			uploadCfg := t.cfg.Detection.UploadConfig()
			applyDetectionFlags(cmd, &uploadCfg, downloadTimeout, mediapipeThresh, dnnThresh, numThreads, batchSize, saveImages, noSaveImages)

			ctx := GetContext()
			displayName := filepath.Base(filePath)

			jobID, err := t.controller.Submit(ctx, filePath, displayName, uploadCfg)
			if err != nil {
				return err
			}

			fmt.Printf("Submitted %s\n", displayName)
			fmt.Printf("Job ID: %s\n", jobID)

			if watch {
				return runWatch(ctx, t)
			}

			fmt.Println("Run \"faceaudit watch\" to follow progress.")
			return nil
		},
	}

	cmd.Flags().IntVar(&downloadTimeout, "download-timeout", 0, "Per-image download timeout in seconds")
	cmd.Flags().Float64Var(&mediapipeThresh, "mediapipe-thresh", 0, "MediaPipe detection confidence threshold")
	cmd.Flags().Float64Var(&dnnThresh, "dnn-thresh", 0, "DNN detection confidence threshold")
	cmd.Flags().IntVar(&numThreads, "num-threads", 0, "Server worker threads for this job")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per processing batch")
	cmd.Flags().BoolVar(&saveImages, "save-images", false, "Keep no-face images server-side (default from config)")
	cmd.Flags().BoolVar(&noSaveImages, "no-save-images", false, "Discard no-face images server-side")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow progress until the job finishes")

	return cmd
}

// applyDetectionFlags overlays explicitly-set flags onto the config defaults.
func applyDetectionFlags(cmd *cobra.Command, cfg *models.UploadConfig,
	downloadTimeout int, mediapipeThresh, dnnThresh float64, numThreads, batchSize int,
	saveImages, noSaveImages bool) {

	if cmd.Flags().Changed("download-timeout") {
		cfg.DownloadTimeout = downloadTimeout
	}
	if cmd.Flags().Changed("mediapipe-thresh") {
		cfg.MediapipeThresh = mediapipeThresh
	}
	if cmd.Flags().Changed("dnn-thresh") {
		cfg.DNNThresh = dnnThresh
	}
	if cmd.Flags().Changed("num-threads") {
		cfg.NumThreads = numThreads
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if cmd.Flags().Changed("save-images") {
		cfg.SaveImages = saveImages
	}
	if noSaveImages {
		cfg.SaveImages = false
	}
}
