package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"twitch-keyword-watcher/settings"
)

func InstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Write default values for settings that are not set yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Install(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			pterm.Success.Printf("Defaults installed: %d keyword(s), sound %t, volume %.2f\n",
				len(s.Keywords), s.SoundEnabled, s.SoundVolume)
			return nil
		},
	}
}
