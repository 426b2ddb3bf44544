package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/output"
)

var addCmd = &cobra.Command{
	Use:     "add <title>",
	Aliases: []string{"create", "new"},
	Short:   "Add a new todo",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := args[0]
		if title == "" {
			output.Error("title is required")
			return fmt.Errorf("title is required")
		}

		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		todo, err := a.service.Create(title)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		output.Success("added #%d %s", todo.LocalID, todo.Title)
		a.maybeAutoSync(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
