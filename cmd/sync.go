package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/output"
	"github.com/marcus/todosync/internal/sync"
	"github.com/marcus/todosync/internal/syncconfig"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the local replica with the server now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		pending, err := a.service.Pending()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if err := a.syncNow(cmd.Context()); err != nil {
			if errors.Is(err, sync.ErrNotConnected) {
				output.Warning("server unreachable at %s, changes stay queued", syncconfig.GetServerURL())
				return err
			}
			output.Error("sync failed: %v", err)
			return err
		}

		output.Success("synced %d todo(s)", len(pending))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
