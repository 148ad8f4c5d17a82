package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"twitch-keyword-watcher/logger"
	"twitch-keyword-watcher/options"
)

// saveInput собирает значения флагов save; nil означает, что флаг не задан.
type saveInput struct {
	keywordsText *string
	keywords     []string
	sound        *bool
	volume       *float64
}

// apply накладывает заданные флаги на загруженную форму.
func (in saveInput) apply(form options.Form) options.Form {
	var lines []string
	if in.keywordsText != nil {
		lines = append(lines, *in.keywordsText)
	}
	lines = append(lines, in.keywords...)
	if in.keywordsText != nil || len(in.keywords) > 0 {
		form.KeywordsText = strings.Join(lines, "\n")
	}
	if in.sound != nil {
		form.SoundEnabled = *in.sound
	}
	if in.volume != nil {
		form.SoundVolume = *in.volume
	}
	return form
}

func SaveCmd(a *app) *cobra.Command {
	var (
		keywordsFile string
		keywords     []string
		soundOn      bool
		volume       float64
		statusTTL    time.Duration
	)

	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save keywords and sound settings",
		Long: `Saves all settings at once. Flags that are not given keep their stored values.
Keywords are read one per line; blank lines are dropped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			form, err := options.Load(ctx, a.store)
			if err != nil {
				return err
			}

			in := saveInput{keywords: keywords}
			if cmd.Flags().Changed("keywords-file") {
				text, err := readKeywords(keywordsFile, cmd.InOrStdin())
				if err != nil {
					return err
				}
				in.keywordsText = &text
			}
			if cmd.Flags().Changed("sound") {
				in.sound = &soundOn
			}
			if cmd.Flags().Changed("volume") {
				in.volume = &volume
			}

			display, err := newAreaDisplay()
			if err != nil {
				return err
			}
			defer display.stop()
			status := options.NewStatus(display, statusTTL)

			saved, saveErr := options.Save(ctx, a.store, in.apply(form))
			var done <-chan struct{}
			if saveErr != nil {
				logger.Errorf("options: %v", saveErr)
				done = status.Show(options.StatusSaveError, true)
			} else {
				logger.Debugf("options: сохранено ключевых слов %d", len(saved.Keywords))
				done = status.Show(options.StatusSaved, false)
			}

			select {
			case <-done:
			case <-ctx.Done():
			}
			return saveErr
		},
	}

	saveCmd.Flags().StringVar(&keywordsFile, "keywords-file", "", "Read keywords from a file, one per line (- for stdin)")
	saveCmd.Flags().StringArrayVarP(&keywords, "keyword", "k", nil, "Keyword to watch for (repeatable)")
	saveCmd.Flags().BoolVar(&soundOn, "sound", true, "Play a sound on match")
	saveCmd.Flags().Float64Var(&volume, "volume", 0.5, "Sound volume from 0 to 1")
	saveCmd.Flags().DurationVar(&statusTTL, "status-ttl", options.StatusClearDelay, "How long the status line stays on screen")

	return saveCmd
}

func readKeywords(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read keywords: %w", err)
	}
	return string(data), nil
}

// areaDisplay выводит строку статуса в перерисовываемую область терминала.
type areaDisplay struct {
	area *pterm.AreaPrinter
}

func newAreaDisplay() (*areaDisplay, error) {
	area, err := pterm.DefaultArea.Start()
	if err != nil {
		return nil, fmt.Errorf("status area: %w", err)
	}
	return &areaDisplay{area: area}, nil
}

func (d *areaDisplay) Show(message string, isError bool) {
	if isError {
		d.area.Update(pterm.Error.Sprint(message))
		return
	}
	d.area.Update(pterm.Success.Sprint(message))
}

func (d *areaDisplay) Clear() {
	d.area.Update("")
}

func (d *areaDisplay) stop() {
	_ = d.area.Stop()
}
