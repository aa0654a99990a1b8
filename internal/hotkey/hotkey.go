// Package hotkey registers the global sleep/wake toggle shortcut.
package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

var namedKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "enter": hotkey.KeyReturn, "return": hotkey.KeyReturn,
	"tab": hotkey.KeyTab, "escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// Binding is a parsed shortcut such as "super+shift+m".
type Binding struct {
	Mods []hotkey.Modifier
	Key  hotkey.Key
}

// ParseBinding parses a "+"-joined shortcut into modifiers and one key.
func ParseBinding(s string) (Binding, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Binding{}, fmt.Errorf("empty hotkey binding")
	}

	var (
		binding  Binding
		keyFound bool
	)
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			binding.Mods = append(binding.Mods, hotkey.ModCtrl)
		case "shift":
			binding.Mods = append(binding.Mods, hotkey.ModShift)
		case "alt":
			binding.Mods = append(binding.Mods, modAlt())
		case "super", "win", "cmd", "command":
			binding.Mods = append(binding.Mods, modSuper())
		default:
			if keyFound {
				return Binding{}, fmt.Errorf("hotkey %q names more than one key", s)
			}
			key, ok := namedKeys[part]
			if !ok {
				return Binding{}, fmt.Errorf("hotkey %q: unknown key %q", s, part)
			}
			binding.Key = key
			keyFound = true
		}
	}
	if !keyFound {
		return Binding{}, fmt.Errorf("hotkey %q has no key", s)
	}
	return binding, nil
}

// Listener calls onPress each time the registered shortcut is pressed.
type Listener struct {
	binding Binding
	onPress func(context.Context)
	logger  *slog.Logger

	mu     sync.Mutex
	hk     *hotkey.Hotkey
	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener parses binding and prepares a listener.
func NewListener(binding string, onPress func(context.Context), logger *slog.Logger) (*Listener, error) {
	parsed, err := ParseBinding(binding)
	if err != nil {
		return nil, err
	}
	return &Listener{binding: parsed, onPress: onPress, logger: logger}, nil
}

// Start registers the shortcut and dispatches presses until ctx ends or Stop is called.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	hk := hotkey.New(l.binding.Mods, l.binding.Key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey: %w", err)
	}
	l.hk = hk

	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.loop(ctx, hk.Keydown(), l.done)
	return nil
}

func (l *Listener) loop(ctx context.Context, keydown <-chan hotkey.Event, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			if l.logger != nil {
				l.logger.Debug("hotkey pressed")
			}
			if l.onPress != nil {
				l.onPress(ctx)
			}
		}
	}
}

// Stop unregisters the shortcut and waits briefly for the dispatch goroutine.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	if l.hk != nil {
		if err := l.hk.Unregister(); err != nil && l.logger != nil {
			l.logger.Warn("unregister hotkey failed", "error", err.Error())
		}
		l.hk = nil
	}
	if l.done != nil {
		select {
		case <-l.done:
		case <-time.After(100 * time.Millisecond):
		}
	}
}
