// Package output injects resolved text and keystrokes into the focused window.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/rbright/voxkeys/internal/config"
	"github.com/rbright/voxkeys/internal/keys"
)

// Injector is the transport the engine drives. Operations may be buffered until Flush.
type Injector interface {
	TypeText(ctx context.Context, text string) error
	SendKey(ctx context.Context, stroke keys.Stroke) error
	Flush(ctx context.Context) error
	Discard()
}

// New builds the injector selected by output.backend.
func New(cfg config.Config, logger *slog.Logger) (Injector, error) {
	switch cfg.Output.Backend {
	case "wtype":
		return NewWtype(cfg, logger), nil
	case "uinput":
		return NewUinput(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported output backend %q", cfg.Output.Backend)
	}
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
