package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/voxkeys/internal/config"
	"github.com/rbright/voxkeys/internal/keys"
)

// keyCode is a kernel key code plus whether the US layout needs shift to produce it.
type keyCode struct {
	code  int
	shift bool
}

type keyDevice interface {
	Down(code int) error
	Up(code int) error
}

var textRunes = map[rune]string{
	' ': "space", '\n': "enter", '\t': "tab",
	':': "colon", ';': "semicolon", ',': "comma", '.': "dot",
	'-': "minus", '_': "underscore", '+': "plus", '=': "equal",
	'<': "langle", '>': "rangle", '{': "lbrace", '}': "rbrace",
	'[': "lbracket", ']': "rbracket", '(': "lparen", ')': "rparen",
	'/': "slash", '\\': "backslash", '\'': "squote", '"': "dquote",
	'`': "backtick", '~': "tilde", '!': "exclamation", '?': "question",
	'@': "at", '#': "hash", '$': "dollar", '%': "percent",
	'^': "caret", '&': "ampersand", '*': "asterisk", '|': "bar",
}

// Uinput injects through a kernel virtual keyboard.
//
// Held keys persist across passes until released by a key step or Discard.
type Uinput struct {
	dev    keyDevice
	codes  map[string]keyCode
	delay  time.Duration
	held   map[string]int
	logger *slog.Logger

	readClipboard  func() (string, error)
	writeClipboard func(string) error
}

// NewUinput opens the virtual keyboard.
func NewUinput(cfg config.Config, logger *slog.Logger) (*Uinput, error) {
	dev, err := newKeyDevice()
	if err != nil {
		return nil, err
	}
	return newUinput(dev, keyCodes, time.Duration(cfg.Output.KeyDelayMS)*time.Millisecond, logger), nil
}

func newUinput(dev keyDevice, codes map[string]keyCode, delay time.Duration, logger *slog.Logger) *Uinput {
	return &Uinput{
		dev:            dev,
		codes:          codes,
		delay:          delay,
		held:           make(map[string]int),
		logger:         logger,
		readClipboard:  clipboard.ReadAll,
		writeClipboard: clipboard.WriteAll,
	}
}

// TypeText types text key by key when the layout covers every rune, otherwise pastes it.
func (u *Uinput) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	strokes, ok := u.textCodes(text)
	if !ok {
		return u.pasteText(ctx, text)
	}
	for _, code := range strokes {
		if err := u.tap(ctx, code, nil); err != nil {
			return err
		}
	}
	return nil
}

// SendKey emits one stroke immediately.
func (u *Uinput) SendKey(ctx context.Context, stroke keys.Stroke) error {
	code, ok := u.codes[stroke.Key.Canonical]
	if !ok {
		return fmt.Errorf("uinput: no key code for %q", stroke.Key.Canonical)
	}
	mods, err := u.modifierCodes(stroke.Modifiers)
	if err != nil {
		return err
	}

	switch stroke.Direction {
	case keys.DirectionDown:
		for _, mod := range mods {
			if err := u.down(mod); err != nil {
				return err
			}
		}
		for i, mod := range stroke.Modifiers {
			u.held[mod.Canonical] = mods[i]
		}
		if err := u.down(code.code); err != nil {
			return err
		}
		u.held[stroke.Key.Canonical] = code.code
	case keys.DirectionUp:
		if err := u.up(code.code); err != nil {
			return err
		}
		delete(u.held, stroke.Key.Canonical)
		for i := len(mods) - 1; i >= 0; i-- {
			if err := u.up(mods[i]); err != nil {
				return err
			}
			delete(u.held, stroke.Modifiers[i].Canonical)
		}
	default:
		for i := 0; i < stroke.Repeat; i++ {
			if err := u.tap(ctx, code, mods); err != nil {
				return err
			}
			if i < stroke.Repeat-1 {
				if err := wait(ctx, stroke.InnerPause); err != nil {
					return err
				}
			}
		}
	}
	return wait(ctx, stroke.OuterPause)
}

// Flush is a no-op: uinput events are delivered as they are sent.
func (u *Uinput) Flush(context.Context) error { return nil }

// Discard releases every held key.
func (u *Uinput) Discard() {
	for name, code := range u.held {
		if err := u.dev.Up(code); err != nil && u.logger != nil {
			u.logger.Warn("release held key failed", "key", name, "error", err.Error())
		}
		delete(u.held, name)
	}
}

func (u *Uinput) textCodes(text string) ([]keyCode, bool) {
	out := make([]keyCode, 0, len(text))
	for _, r := range text {
		var name string
		shift := false
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			name = string(r)
		case r >= 'A' && r <= 'Z':
			name = string(r - 'A' + 'a')
			shift = true
		default:
			name = textRunes[r]
		}
		code, ok := u.codes[name]
		if name == "" || !ok {
			return nil, false
		}
		code.shift = code.shift || shift
		out = append(out, code)
	}
	return out, true
}

func (u *Uinput) modifierCodes(mods []keys.Name) ([]int, error) {
	out := make([]int, 0, len(mods))
	for _, mod := range mods {
		code, ok := u.codes[mod.Canonical]
		if !ok {
			return nil, fmt.Errorf("uinput: no key code for modifier %q", mod.Canonical)
		}
		out = append(out, code.code)
	}
	return out, nil
}

func (u *Uinput) tap(ctx context.Context, code keyCode, mods []int) error {
	if code.shift {
		if shift, ok := u.codes["shift"]; ok {
			mods = append(append([]int(nil), mods...), shift.code)
		}
	}
	for _, mod := range mods {
		if err := u.down(mod); err != nil {
			return err
		}
	}
	if err := u.down(code.code); err != nil {
		return err
	}
	if err := u.up(code.code); err != nil {
		return err
	}
	for i := len(mods) - 1; i >= 0; i-- {
		if err := u.up(mods[i]); err != nil {
			return err
		}
	}
	return wait(ctx, u.delay)
}

func (u *Uinput) pasteText(ctx context.Context, text string) error {
	previous, _ := u.readClipboard()
	if err := u.writeClipboard(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	if err := wait(ctx, 80*time.Millisecond); err != nil {
		return err
	}

	ctrl, okCtrl := u.codes["ctrl"]
	v, okV := u.codes["v"]
	if !okCtrl || !okV {
		return fmt.Errorf("uinput: paste shortcut keys unavailable")
	}
	if err := u.tap(ctx, v, []int{ctrl.code}); err != nil {
		return err
	}

	if err := wait(ctx, 120*time.Millisecond); err != nil {
		return err
	}
	if err := u.writeClipboard(previous); err != nil && u.logger != nil {
		u.logger.Warn("restore clipboard failed", "error", err.Error())
	}
	return nil
}

func (u *Uinput) down(code int) error {
	if err := u.dev.Down(code); err != nil {
		return fmt.Errorf("uinput key down %d: %w", code, err)
	}
	return nil
}

func (u *Uinput) up(code int) error {
	if err := u.dev.Up(code); err != nil {
		return fmt.Errorf("uinput key up %d: %w", code, err)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
