// Package speech plays synthesized audio.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Player plays one audio clip and returns when playback ends
type Player interface {
	Play(ctx context.Context, audio io.Reader) error
}

// CommandPlayer pipes audio into an external player process
type CommandPlayer struct {
	Name string
	Args []string
}

// DefaultPlayer reads MP3 from stdin with mpg123
var DefaultPlayer = CommandPlayer{Name: "mpg123", Args: []string{"-q", "-"}}

// Play runs the player until it exits
func (p CommandPlayer) Play(ctx context.Context, audio io.Reader) error {
	cmd := exec.CommandContext(ctx, p.Name, p.Args...)
	cmd.Stdin = audio
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("failed to play audio with %s: %w: %s", p.Name, err, msg)
		}
		return fmt.Errorf("failed to play audio with %s: %w", p.Name, err)
	}
	return nil
}

// Play starts playback in the background. The returned channel receives nil
// when playback ends or the playback error, and is then closed.
func Play(ctx context.Context, p Player, audio []byte) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- p.Play(ctx, bytes.NewReader(audio))
	}()
	return done
}
