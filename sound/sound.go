// Package sound проигрывает звук уведомления внешним плеером.
package sound

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"twitch-keyword-watcher/logger"
)

// Player запускает проигрывание и не ждёт его окончания.
type Player interface {
	Play(ctx context.Context, volume float64) error
}

// paplay принимает громкость в диапазоне 0..65536.
const paplayMaxVolume = 65536

// CommandPlayer проигрывает файл командой вида `<Command> --volume=<n> <File>`.
type CommandPlayer struct {
	Command string
	File    string

	start func(*exec.Cmd) error
	run   func(*exec.Cmd) error
}

// NewCommandPlayer создаёт плеер поверх внешней команды (по умолчанию paplay).
func NewCommandPlayer(command, file string) *CommandPlayer {
	return &CommandPlayer{Command: command, File: file}
}

// Play возвращает ошибку только если процесс не удалось запустить.
// Ошибка самого проигрывания логируется в фоне.
func (p *CommandPlayer) Play(ctx context.Context, volume float64) error {
	cmd := exec.CommandContext(ctx, p.Command, p.args(volume)...)

	start := p.start
	if start == nil {
		start = (*exec.Cmd).Start
	}
	if err := start(cmd); err != nil {
		return fmt.Errorf("sound: запуск %s: %w", p.Command, err)
	}

	if cmd.Process != nil {
		go func() {
			if err := cmd.Wait(); err != nil && ctx.Err() == nil {
				logger.Warnf("sound: проигрывание %s завершилось ошибкой: %v", p.File, err)
			}
		}()
	}
	return nil
}

// PlayAndWait проигрывает звук и ждёт окончания; нужен для проверки звука из утилиты настроек.
func (p *CommandPlayer) PlayAndWait(ctx context.Context, volume float64) error {
	cmd := exec.CommandContext(ctx, p.Command, p.args(volume)...)

	run := p.run
	if run == nil {
		run = (*exec.Cmd).Run
	}
	if err := run(cmd); err != nil {
		return fmt.Errorf("sound: %s: %w", p.Command, err)
	}
	return nil
}

func (p *CommandPlayer) args(volume float64) []string {
	return []string{"--volume=" + strconv.Itoa(scaleVolume(volume)), p.File}
}

func scaleVolume(volume float64) int {
	v := math.Max(0, math.Min(1, volume))
	return int(math.Round(v * paplayMaxVolume))
}
