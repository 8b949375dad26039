package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceaudit/faceaudit/internal/api"
	"github.com/faceaudit/faceaudit/internal/render"
)

func newCancelCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the tracked job",
		Long: `Ask the server to stop the tracked job. Rows processed so far are
kept server-side and stay downloadable from the job history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newTracker()
			if err != nil {
				return err
			}
			defer t.Close()

			rec, err := t.store.Load()
			if err != nil {
				return err
			}
			if rec == nil {
				return api.ErrNoActiveSession
			}

			if !yes {
				ok, err := promptConfirm(fmt.Sprintf("Cancel the audit of %s? Partial results are kept.", rec.DisplayName))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Cancel aborted; the job keeps running.")
					return nil
				}
			}

			err = t.client.Cancel(GetContext(), rec.JobID)
			switch {
			case err == nil:
				if clearErr := t.store.Clear(); clearErr != nil {
					return clearErr
				}
				fmt.Println("Job cancelled. Partial results remain on the server.")
				return nil
			case api.IsNotFound(err):
				if clearErr := t.store.Clear(); clearErr != nil {
					return clearErr
				}
				fmt.Println(render.ExpiredLine)
				return nil
			default:
				// Rejection leaves the job running and the session intact.
				return err
			}
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
