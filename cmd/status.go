package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/output"
	"github.com/marcus/todosync/internal/syncconfig"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show replica and connectivity status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		all, err := a.service.List(true)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		pending, err := a.service.Pending()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		var open, done, deleted, failed int
		for _, t := range all {
			switch {
			case t.Deleted:
				deleted++
			case t.Completed:
				done++
			default:
				open++
			}
			if t.SyncError != "" {
				failed++
			}
		}

		// Health check only; don't wake the engine just to report status.
		online := a.client.Health(cmd.Context()) == nil

		dbPath, _ := syncconfig.GetDBPath()
		output.Info("server   %s (%s)", syncconfig.GetServerURL(), output.FormatOnline(online))
		output.Info("replica  %s (%s)", dbPath, syncconfig.GetStoreBackend())
		output.Info("todos    %d open, %d done", open, done)
		if deleted > 0 {
			output.Info("deleted  %d awaiting confirmation", deleted)
		}

		switch {
		case failed > 0:
			output.Warning("%d todo(s) failed to sync", failed)
		case len(pending) > 0:
			output.Info("pending  %d todo(s) waiting for sync", len(pending))
		default:
			output.Success("everything synced")
		}

		for _, t := range all {
			if t.SyncError != "" {
				fmt.Println(output.FormatTodoLong(t))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
