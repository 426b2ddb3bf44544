package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/output"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List todos",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		long, _ := cmd.Flags().GetBool("long")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		a.maybeSyncOnStart(cmd.Context())

		todos, err := a.service.List(all)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if asJSON {
			return output.JSON(todos)
		}

		if len(todos) == 0 {
			output.Info("no todos")
			return nil
		}
		for _, t := range todos {
			if long {
				fmt.Println(output.FormatTodoLong(t))
			} else {
				fmt.Println(output.FormatTodo(t))
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolP("all", "a", false, "include deleted todos awaiting sync")
	listCmd.Flags().BoolP("long", "l", false, "show sync details per todo")
	listCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}
