package sound

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayPassesScaledVolume(t *testing.T) {
	var got []string
	p := NewCommandPlayer("paplay", "sounds/notification.mp3")
	p.start = func(cmd *exec.Cmd) error {
		got = cmd.Args
		return nil
	}

	require.NoError(t, p.Play(context.Background(), 0.5))
	assert.Equal(t, []string{"paplay", "--volume=32768", "sounds/notification.mp3"}, got)
}

func TestPlayReportsStartFailure(t *testing.T) {
	p := NewCommandPlayer("paplay", "x.mp3")
	p.start = func(*exec.Cmd) error { return errors.New("not found") }

	err := p.Play(context.Background(), 1)
	assert.ErrorContains(t, err, "not found")
}

func TestScaleVolumeClamps(t *testing.T) {
	assert.Equal(t, 0, scaleVolume(-1))
	assert.Equal(t, 0, scaleVolume(0))
	assert.Equal(t, paplayMaxVolume, scaleVolume(1))
	assert.Equal(t, paplayMaxVolume, scaleVolume(3))
}

func TestPlayMissingBinary(t *testing.T) {
	p := NewCommandPlayer("definitely-not-a-player-binary", "x.mp3")
	assert.Error(t, p.Play(context.Background(), 0.5))
}

func TestPlayAndWaitReportsExitError(t *testing.T) {
	var got []string
	p := NewCommandPlayer("paplay", "x.mp3")
	p.run = func(cmd *exec.Cmd) error {
		got = cmd.Args
		return errors.New("exit status 1")
	}

	err := p.PlayAndWait(context.Background(), 0)
	assert.ErrorContains(t, err, "exit status 1")
	assert.Equal(t, []string{"paplay", "--volume=0", "x.mp3"}, got)
}
