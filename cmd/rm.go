package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/output"
)

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete", "del"},
	Short:   "Delete a todo",
	Long: `Delete a todo. A todo the server already knows is tombstoned locally
and removed for good once the server confirms the deletion.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			output.Error("invalid id %q", args[0])
			return err
		}

		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.service.Delete(id); err != nil {
			output.Error("%v", err)
			return err
		}

		output.Success("deleted #%d", id)
		a.maybeAutoSync(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
