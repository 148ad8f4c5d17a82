package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"twitch-keyword-watcher/options"
	"twitch-keyword-watcher/sound"
)

func PlaySoundCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test-sound",
		Short: "Play the notification sound at the saved volume",
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := options.Load(cmd.Context(), a.store)
			if err != nil {
				return err
			}

			cfg := a.cfg.Sound
			player := sound.NewCommandPlayer(cfg.Command, cfg.File)
			if err := player.PlayAndWait(cmd.Context(), form.SoundVolume); err != nil {
				pterm.Error.Printf("Could not play %s: %v\n", cfg.File, err)
				return err
			}
			pterm.Success.Printf("Played %s at %s\n", cfg.File, options.VolumeLabel(form.SoundVolume))
			return nil
		},
	}
}
