package main

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"twitch-keyword-watcher/options"
)

func ShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := options.Load(cmd.Context(), a.store)
			if err != nil {
				return err
			}

			keywords := options.ParseKeywords(form.KeywordsText)
			tableData := pterm.TableData{
				{"Setting", "Value"},
				{"Keywords", strings.Join(keywords, ", ")},
				{"Sound", strconv.FormatBool(form.SoundEnabled)},
				{"Volume", options.VolumeLabel(form.SoundVolume)},
			}
			_ = pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
			pterm.Printf("%d keyword(s) in area %s\n", len(keywords), a.store.Area())
			return nil
		},
	}
}
