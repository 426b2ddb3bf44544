package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/output"
)

var doneCmd = &cobra.Command{
	Use:     "done <id>",
	Aliases: []string{"toggle"},
	Short:   "Toggle a todo's completed flag",
	Args:    cobra.ExactArgs(1),
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

		todo, err := a.service.Toggle(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if todo.Completed {
			output.Success("done #%d %s", todo.LocalID, todo.Title)
		} else {
			output.Success("reopened #%d %s", todo.LocalID, todo.Title)
		}
		a.maybeAutoSync(cmd.Context())
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <title>",
	Short: "Rename a todo",
	Args:  cobra.ExactArgs(2),
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

		current, err := a.service.Get(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		todo, err := a.service.Update(id, args[1], current.Completed)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		output.Success("updated #%d %s", todo.LocalID, todo.Title)
		a.maybeAutoSync(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(editCmd)
}
