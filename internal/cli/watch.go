package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceaudit/faceaudit/internal/events"
	"github.com/faceaudit/faceaudit/internal/progress"
	"github.com/faceaudit/faceaudit/internal/render"
	"github.com/faceaudit/faceaudit/internal/track"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the tracked job until it finishes",
		Long: `Poll the tracked job and render a progress bar until the job reaches
a terminal state. Resumes from the stored session, so it works across
restarts of this client.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newTracker()
			if err != nil {
				return err
			}
			defer t.Close()

			ctx := GetContext()
			restored, err := t.controller.Restore(ctx)
			if err != nil {
				return err
			}
			if !restored {
				fmt.Println("No active session. Submit a file first: faceaudit submit <file.csv>")
				return nil
			}

			return runWatch(ctx, t)
		},
	}
}

// runWatch drives the controller loop and renders bus events until the
// tracked job reaches a terminal state or the context is cancelled.
func runWatch(ctx context.Context, t *tracker) error {
	sub := t.bus.SubscribeAll()
	bar := progress.NewWatchBar()

	done := make(chan track.State, 1)
	go func() {
		done <- t.controller.Run(ctx)
	}()

	var final track.State
loop:
	for {
		select {
		case ev := <-sub:
			renderEvent(ev, bar)
		case final = <-done:
			break loop
		}
	}

	// Drain events published before the loop ended.
	for {
		select {
		case ev := <-sub:
			renderEvent(ev, bar)
		default:
			return finishWatch(final, t)
		}
	}
}

func renderEvent(ev events.Event, bar *progress.WatchBar) {
	switch e := ev.(type) {
	case *events.ProgressEvent:
		if e.Total > 0 {
			bar.Start(int64(e.Total), e.DisplayName)
			bar.SetTotal(int64(e.Total))
		}
		bar.SetDescription(fmt.Sprintf("%s  (faces: %d  no face: %d  errors: %d)",
			e.DisplayName, e.Good, e.NoFace, e.Errors))
		bar.Update(int64(e.Processed))

	case *events.CompletedEvent:
		bar.Finish()
		fmt.Println(e.Summary)

	case *events.FailureEvent:
		bar.Clear()
		fmt.Printf("Job failed: %s\n", e.Message)

	case *events.ExpiredEvent:
		bar.Clear()
		fmt.Println(render.ExpiredLine)

	case *events.ResetEvent:
		bar.Clear()
	}
}

func finishWatch(final track.State, t *tracker) error {
	switch final {
	case track.StateCompleted:
		fmt.Println("Run \"faceaudit download\" to fetch the results.")
		if s := t.controller.LastStatus(); s != nil && s.Config.SaveImagesEnabled() && s.NoFaceCount > 0 {
			fmt.Println("No-face images are available: faceaudit download --noface")
		}
		return nil
	case track.StateFailed:
		return fmt.Errorf("job failed")
	case track.StateExpired:
		return fmt.Errorf("session expired")
	case track.StateIdle:
		fmt.Println("Job cancelled. Partial results remain on the server.")
		return nil
	default:
		// Context cancelled mid-watch; the session record keeps the job
		// resumable.
		fmt.Println("\nWatch interrupted. Run \"faceaudit watch\" to resume.")
		return nil
	}
}
