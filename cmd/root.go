// Package cmd implements the todosync CLI commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var version string

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "todosync",
	Short: "Offline-first todo list with background sync",
	Long: `todosync - an offline-first todo list.

Every change lands in the local replica first and syncs to the server
when connectivity allows. Nothing blocks on the network.`,
}

// Execute runs the root command
func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
