package output

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/voxkeys/internal/hypr"
)

// terminalClasses bind paste to Ctrl+Shift+V instead of Ctrl+V.
var terminalClasses = map[string]struct{}{
	"alacritty":              {},
	"com.mitchellh.ghostty":  {},
	"foot":                   {},
	"footclient":             {},
	"kitty":                  {},
	"org.wezfurlong.wezterm": {},
}

// sendPasteShortcut dispatches shortcut to the focused window and returns that window.
func sendPasteShortcut(ctx context.Context, shortcut string) (hypr.ActiveWindow, error) {
	window, err := focusedWindow(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return hypr.ActiveWindow{}, err
	}

	payload, err := pasteShortcutPayload(shortcut, window)
	if err != nil {
		return window, err
	}
	return window, hypr.SendShortcut(ctx, payload)
}

// pasteShortcutPayload renders a "MODS,KEY,address:ADDR" sendshortcut payload.
// A plain CTRL modifier gains SHIFT when the target is a terminal.
func pasteShortcutPayload(shortcut string, window hypr.ActiveWindow) (string, error) {
	mods, key, ok := strings.Cut(strings.TrimSpace(shortcut), ",")
	mods, key = strings.TrimSpace(mods), strings.TrimSpace(key)
	if !ok || key == "" {
		return "", fmt.Errorf("paste shortcut %q must look like MODS,KEY", shortcut)
	}

	address := strings.TrimSpace(window.Address)
	if address == "" {
		return "", fmt.Errorf("focused window address is required")
	}

	if strings.EqualFold(mods, "CTRL") && isTerminal(window) {
		mods = "CTRL SHIFT"
	}
	return fmt.Sprintf("%s,%s,address:%s", mods, key, address), nil
}

func isTerminal(window hypr.ActiveWindow) bool {
	for _, class := range []string{window.Class, window.InitialClass} {
		if _, ok := terminalClasses[strings.ToLower(strings.TrimSpace(class))]; ok {
			return true
		}
	}
	return false
}

// focusedWindow polls hyprctl until a window with an address is focused.
func focusedWindow(ctx context.Context, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	lastErr := fmt.Errorf("no focused window")
	for attempt := range max(attempts, 1) {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return hypr.ActiveWindow{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return hypr.ActiveWindow{}, err
		}

		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve focused window: %w", lastErr)
}
