package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/voxkeys/internal/config"
)

// Paster inserts text by setting the clipboard and dispatching a paste.
type Paster struct {
	clipboard []string
	pasteCmd  []string
	shortcut  string
	logger    *slog.Logger
}

// NewPaster constructs a clipboard paster from runtime config.
func NewPaster(cfg config.Config, logger *slog.Logger) *Paster {
	return &Paster{
		clipboard: cfg.Clipboard.Argv,
		pasteCmd:  cfg.PasteCmd.Argv,
		shortcut:  cfg.Paste.Shortcut,
		logger:    logger,
	}
}

// Paste writes text to the clipboard, then pastes it into the active window.
func (p *Paster) Paste(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	clipboardCtx, clipboardCancel := context.WithTimeout(ctx, 2*time.Second)
	defer clipboardCancel()
	if err := runCommandWithInput(clipboardCtx, p.clipboard, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if len(p.pasteCmd) > 0 {
		pasteCtx, pasteCancel := context.WithTimeout(ctx, 2*time.Second)
		defer pasteCancel()
		if err := runCommandWithInput(pasteCtx, p.pasteCmd, ""); err != nil {
			return fmt.Errorf("paste command: %w", err)
		}
		p.logPaste("paste_cmd")
		return nil
	}

	pasteCtx, pasteCancel := context.WithTimeout(ctx, 1200*time.Millisecond)
	defer pasteCancel()
	window, err := sendPasteShortcut(pasteCtx, p.shortcut)
	if err != nil {
		return fmt.Errorf("paste shortcut: %w", err)
	}
	p.logPaste("sendshortcut", "window_class", window.Class)
	return nil
}

func (p *Paster) logPaste(via string, fields ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Debug("text pasted", append([]any{"via", via}, fields...)...)
}
