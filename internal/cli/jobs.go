package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceaudit/faceaudit/internal/constants"
	"github.com/faceaudit/faceaudit/internal/history"
	"github.com/faceaudit/faceaudit/internal/render"
)

func newJobsCmd() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List past and running jobs",
		Long: `Show the server's job history, newest first. With --follow the
listing refreshes every ` + constants.HistoryRefreshInterval.String() + ` until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newTracker()
			if err != nil {
				return err
			}
			defer t.Close()

			ctx := GetContext()
			refresher := history.NewRefresher(t.client, constants.HistoryRefreshInterval, GetLogger())

			if !follow {
				jobs, err := refresher.RefreshNow(ctx)
				if err != nil {
					return err
				}
				fmt.Print(render.HistoryTable(jobs))
				return nil
			}

			refresher.Start(ctx)
			defer refresher.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case jobs := <-refresher.Updates():
					fmt.Print("\n" + render.HistoryTable(jobs))
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep refreshing the listing")
	return cmd
}
