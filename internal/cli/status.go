package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceaudit/faceaudit/internal/api"
	"github.com/faceaudit/faceaudit/internal/models"
	"github.com/faceaudit/faceaudit/internal/render"
)

func newStatusCmd() *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current state of the tracked job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newTracker()
			if err != nil {
				return err
			}
			defer t.Close()

			displayName := ""
			tracked := false
			if jobID == "" {
				rec, err := t.store.Load()
				if err != nil {
					return err
				}
				if rec == nil {
					fmt.Println("No active session.")
					return nil
				}
				jobID = rec.JobID
				displayName = rec.DisplayName
				tracked = true
			}

			status, err := t.client.Status(GetContext(), jobID)
			if api.IsNotFound(err) {
				if tracked {
					// Server-side state loss. Drop the record so the
					// next submit starts clean.
					if clearErr := t.store.Clear(); clearErr != nil {
						return clearErr
					}
					fmt.Println(render.ExpiredLine)
					return nil
				}
				return err
			}
			if err != nil {
				return err
			}

			if displayName != "" {
				fmt.Printf("File:   %s\n", displayName)
			}
			fmt.Printf("Job ID: %s\n", jobID)
			fmt.Printf("Status: %s\n", render.StatusLabel(status.Status))

			switch status.Status {
			case models.StatusCompleted:
				fmt.Println(render.Summary(status))
				fmt.Println("Run \"faceaudit download\" to fetch the results.")
			case models.StatusFailed:
				fmt.Println(render.FailureLine(status))
				if tracked {
					// Failed jobs end the session; the next submit must
					// not be blocked by a dead record.
					if clearErr := t.store.Clear(); clearErr != nil {
						return clearErr
					}
				}
			default:
				fmt.Printf("Progress: %s (%s)\n", render.ProgressLine(status), render.PercentLabel(status.Progress))
				fmt.Println(render.CountsLine(status))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Inspect a specific job instead of the tracked one")
	return cmd
}
