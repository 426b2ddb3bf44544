package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/output"
	"github.com/marcus/todosync/internal/syncconfig"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up todosync interactively",
	Long:  `Writes the todosync config and assigns this device its sync identity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !output.IsTTY() {
			output.Error("init needs an interactive terminal")
			return fmt.Errorf("stdout is not a terminal")
		}

		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		serverURL := cfg.Sync.URL
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		backend := cfg.Store
		if backend == "" {
			backend = "sqlite"
		}
		autoSync := cfg.Sync.Auto.Enabled == nil || *cfg.Sync.Auto.Enabled

		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Value(&serverURL).
				Validate(func(s string) error {
					u, err := url.Parse(strings.TrimSpace(s))
					if err != nil || u.Scheme == "" || u.Host == "" {
						return fmt.Errorf("need a full URL like http://host:8080")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Local store").
				Options(
					huh.NewOption("SQLite", "sqlite"),
					huh.NewOption("Bolt", "bolt"),
				).
				Value(&backend),
			huh.NewConfirm().
				Title("Sync after every change").
				Description("When off, changes queue until you run todosync sync").
				Value(&autoSync),
		))

		if err := form.Run(); err != nil {
			return err
		}

		cfg.Sync.URL = strings.TrimSuffix(strings.TrimSpace(serverURL), "/")
		cfg.Store = backend
		cfg.Sync.Auto.Enabled = &autoSync
		if err := syncconfig.SaveConfig(cfg); err != nil {
			output.Error("save config: %v", err)
			return err
		}

		deviceID, err := syncconfig.GetDeviceID()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		output.Success("configured sync against %s", cfg.Sync.URL)
		output.Info("device id: %s", deviceID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
