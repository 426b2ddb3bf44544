package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/events"
	"github.com/marcus/todosync/internal/output"
	"github.com/marcus/todosync/internal/sync"
	"github.com/marcus/todosync/internal/syncconfig"
	"github.com/marcus/todosync/internal/tui/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of todos and sync activity",
	Long: `Runs the sync engine in the foreground with a live view of the
replica. The engine probes connectivity, pushes dirty todos and retries
failures while the view is open.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		a.service.OnMutate(func() {
			if syncconfig.GetAutoSyncEnabled() {
				a.engine.TriggerSync(sync.TriggerMutation)
			}
		})

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go a.monitor.Run(ctx, a.client, syncconfig.GetProbeInterval())

		model := watch.NewModel(a.service, a.engine, a.monitor.Online(), syncconfig.GetProbeInterval())
		p := tea.NewProgram(model, tea.WithAltScreen())

		// Forward sync events into the program.
		for _, kind := range []events.Kind{
			events.KindSyncStart, events.KindSyncComplete,
			events.KindSyncError, events.KindOnlineStatusChange,
		} {
			unsub := a.bus.Subscribe(kind, func(ev events.Event) {
				p.Send(watch.BusMsg(ev))
			})
			defer unsub()
		}

		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
