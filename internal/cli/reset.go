package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceaudit/faceaudit/internal/session"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the tracked job without touching the server",
		Long: `Drop the local session record. The job itself keeps running
server-side; use "faceaudit cancel" to actually stop it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := session.NewStore(session.DefaultSessionFilePath())

			rec, err := store.Load()
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Println("No active session.")
				return nil
			}

			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Printf("Stopped tracking job %s (%s).\n", rec.JobID, rec.DisplayName)
			return nil
		},
	}
}
