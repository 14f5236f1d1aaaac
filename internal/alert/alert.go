// Package alert plays the call to prayer through an external audio player.
package alert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrPlayback wraps every failure to start the audio. Callers log it and
// carry on.
var ErrPlayback = errors.New("audio playback failed")

// Player starts the call to prayer without waiting for it to finish.
type Player interface {
	Play(ctx context.Context) error
	Stop()
}

// candidates are tried in order when no player command is configured.
var candidates = [][]string{
	{"paplay"},
	{"aplay", "-q"},
	{"afplay"},
	{"mpv", "--no-video", "--really-quiet"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
}

// DetectCommand returns the first known audio player found in PATH.
func DetectCommand() ([]string, error) {
	for _, c := range candidates {
		if _, err := exec.LookPath(c[0]); err == nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: no audio player found in PATH", ErrPlayback)
}

// CommandPlayer runs an audio player process on a file.
type CommandPlayer struct {
	command []string
	file    string
	logger  *zap.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommandPlayer plays file with command, a whitespace separated command
// line such as "paplay" or "mpv --no-video". An empty command is resolved
// with DetectCommand on first use.
func NewCommandPlayer(command, file string, logger *zap.Logger) *CommandPlayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandPlayer{command: strings.Fields(command), file: file, logger: logger}
}

// Play starts the player. A playback already in progress is stopped first.
func (p *CommandPlayer) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.file == "" {
		return fmt.Errorf("%w: no athan audio selected", ErrPlayback)
	}
	if _, err := os.Stat(p.file); err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}

	command := p.command
	if len(command) == 0 {
		c, err := DetectCommand()
		if err != nil {
			return err
		}
		command = c
	}

	p.Stop()

	args := append(append([]string(nil), command[1:]...), p.file)
	cmd := exec.Command(command[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	log := p.logger.With(zap.String("player", command[0]), zap.Int("pid", cmd.Process.Pid))
	log.Debug("Started athan playback")

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
		if err != nil {
			log.Debug("Athan playback ended", zap.Error(err))
		}
	}()
	return nil
}

// Stop kills the running playback, if any.
func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	cmd := p.cmd
	p.cmd = nil
	p.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// Playing reports whether a playback process is still running.
func (p *CommandPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// Mutable wraps a Player with a mute switch that can be flipped while the
// engine runs.
type Mutable struct {
	player Player
	muted  atomic.Bool
}

func NewMutable(p Player, muted bool) *Mutable {
	m := &Mutable{player: p}
	m.muted.Store(muted)
	return m
}

func (m *Mutable) SetMuted(muted bool) {
	m.muted.Store(muted)
	if muted {
		m.player.Stop()
	}
}

func (m *Mutable) Muted() bool { return m.muted.Load() }

// Play is a no-op while muted.
func (m *Mutable) Play(ctx context.Context) error {
	if m.muted.Load() {
		return nil
	}
	return m.player.Play(ctx)
}

func (m *Mutable) Stop() { m.player.Stop() }

// Nop never plays anything.
type Nop struct{}

func (Nop) Play(context.Context) error { return nil }
func (Nop) Stop()                      {}
