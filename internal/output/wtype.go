package output

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/voxkeys/internal/config"
	"github.com/rbright/voxkeys/internal/keys"
)

var wtypeModifiers = map[string]string{
	"ctrl":  "ctrl",
	"shift": "shift",
	"alt":   "alt",
	"win":   "logo",
}

// Wtype injects through the wtype virtual-keyboard client.
//
// Arguments accumulate until Flush so modifiers held by one step stay held for the
// following steps of the same pass. wtype releases everything when it exits, so keys
// still down at the end of an invocation are pressed again at the start of the next.
type Wtype struct {
	argv     []string
	textMode string
	paster   *Paster
	logger   *slog.Logger

	args  []string
	raw   bool
	held  []keys.Name
	carry []keys.Name
	run   func(ctx context.Context, argv []string, input string) error
}

// NewWtype constructs the wtype injector from runtime config.
func NewWtype(cfg config.Config, logger *slog.Logger) *Wtype {
	return &Wtype{
		argv:     append([]string(nil), cfg.Output.WtypeCmd.Argv...),
		textMode: cfg.Output.TextMode,
		paster:   NewPaster(cfg, logger),
		logger:   logger,
		run:      runCommandWithInput,
	}
}

// TypeText queues text, or pastes it immediately in paste mode.
func (w *Wtype) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if w.textMode == "paste" {
		if err := w.Flush(ctx); err != nil {
			return err
		}
		return w.paster.Paste(ctx, text)
	}
	if w.raw {
		if err := w.Flush(ctx); err != nil {
			return err
		}
	}
	if strings.HasPrefix(text, "-") {
		// everything after "--" is literal text, so no options may follow in this invocation
		w.args = append(w.args, "--", text)
		w.raw = true
		return nil
	}
	w.args = append(w.args, text)
	return nil
}

// SendKey queues one stroke.
func (w *Wtype) SendKey(ctx context.Context, stroke keys.Stroke) error {
	if w.raw {
		if err := w.Flush(ctx); err != nil {
			return err
		}
	}
	w.args = append(w.args, strokeArgs(stroke)...)
	w.track(stroke)
	return nil
}

// Flush runs wtype with everything queued since the last flush.
func (w *Wtype) Flush(ctx context.Context) error {
	if len(w.args) == 0 {
		return nil
	}
	argv := make([]string, 0, len(w.argv)+2*len(w.carry)+len(w.args))
	argv = append(argv, w.argv...)
	for _, key := range w.carry {
		argv = append(argv, holdArgs(key, true)...)
	}
	argv = append(argv, w.args...)
	w.args = nil
	w.raw = false

	if w.logger != nil {
		w.logger.Debug("wtype flush", "argc", len(argv), "carried", len(w.carry))
	}
	if err := w.run(ctx, argv, ""); err != nil {
		return fmt.Errorf("wtype: %w", err)
	}
	w.carry = append(w.carry[:0], w.held...)
	return nil
}

// Discard drops queued arguments and forgets held keys without running anything.
func (w *Wtype) Discard() {
	w.args = nil
	w.raw = false
	w.held = nil
	w.carry = nil
}

func (w *Wtype) track(stroke keys.Stroke) {
	switch stroke.Direction {
	case keys.DirectionDown:
		for _, mod := range stroke.Modifiers {
			w.held = addHeld(w.held, mod)
		}
		w.held = addHeld(w.held, stroke.Key)
	case keys.DirectionUp:
		w.held = removeHeld(w.held, stroke.Key)
		for _, mod := range stroke.Modifiers {
			w.held = removeHeld(w.held, mod)
		}
	}
}

func addHeld(held []keys.Name, key keys.Name) []keys.Name {
	for _, k := range held {
		if k.Canonical == key.Canonical {
			return held
		}
	}
	return append(held, key)
}

func removeHeld(held []keys.Name, key keys.Name) []keys.Name {
	out := held[:0]
	for _, k := range held {
		if k.Canonical != key.Canonical {
			out = append(out, k)
		}
	}
	return out
}

func strokeArgs(stroke keys.Stroke) []string {
	args := make([]string, 0, 8)
	switch stroke.Direction {
	case keys.DirectionDown:
		for _, mod := range stroke.Modifiers {
			args = append(args, holdArgs(mod, true)...)
		}
		args = append(args, holdArgs(stroke.Key, true)...)
	case keys.DirectionUp:
		args = append(args, holdArgs(stroke.Key, false)...)
		for i := len(stroke.Modifiers) - 1; i >= 0; i-- {
			args = append(args, holdArgs(stroke.Modifiers[i], false)...)
		}
	default:
		if stroke.Repeat > 0 {
			for _, mod := range stroke.Modifiers {
				args = append(args, holdArgs(mod, true)...)
			}
			for i := 0; i < stroke.Repeat; i++ {
				if stroke.Key.Modifier {
					args = append(args, holdArgs(stroke.Key, true)...)
					args = append(args, holdArgs(stroke.Key, false)...)
				} else {
					args = append(args, "-k", stroke.Key.Keysym)
				}
				if i < stroke.Repeat-1 && stroke.InnerPause > 0 {
					args = append(args, pauseArgs(stroke.InnerPause)...)
				}
			}
			for i := len(stroke.Modifiers) - 1; i >= 0; i-- {
				args = append(args, holdArgs(stroke.Modifiers[i], false)...)
			}
		}
	}
	if stroke.OuterPause > 0 {
		args = append(args, pauseArgs(stroke.OuterPause)...)
	}
	return args
}

func holdArgs(key keys.Name, down bool) []string {
	if mod, ok := wtypeModifiers[key.Canonical]; ok && key.Modifier {
		if down {
			return []string{"-M", mod}
		}
		return []string{"-m", mod}
	}
	if down {
		return []string{"-P", key.Keysym}
	}
	return []string{"-p", key.Keysym}
}

func pauseArgs(d time.Duration) []string {
	return []string{"-s", strconv.FormatInt(d.Milliseconds(), 10)}
}
