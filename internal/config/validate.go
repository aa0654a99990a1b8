package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if !cfg.Grammar.Builtin && len(cfg.Grammar.Files) == 0 {
		return nil, fmt.Errorf("grammar.files must not be empty when grammar.builtin=false")
	}
	if cfg.Grammar.MaxPasses <= 0 {
		return nil, fmt.Errorf("grammar.max_passes must be > 0")
	}

	switch cfg.Output.Backend {
	case "wtype":
		if len(cfg.Output.WtypeCmd.Argv) == 0 {
			return nil, fmt.Errorf("output.wtype_cmd must not be empty when output.backend=wtype")
		}
	case "uinput":
	case "":
		return nil, fmt.Errorf("output.backend must not be empty")
	default:
		return nil, fmt.Errorf("output.backend must be one of: wtype, uinput")
	}
	switch cfg.Output.TextMode {
	case "type":
	case "paste":
		if len(cfg.Clipboard.Argv) == 0 {
			return nil, fmt.Errorf("clipboard_cmd must not be empty when output.text_mode=paste")
		}
		if cfg.PasteCmd.Raw != "" && len(cfg.PasteCmd.Argv) == 0 {
			return nil, fmt.Errorf("paste_cmd is configured but empty")
		}
		if len(cfg.PasteCmd.Argv) == 0 && strings.TrimSpace(cfg.Paste.Shortcut) == "" {
			return nil, fmt.Errorf("paste.shortcut must not be empty when output.text_mode=paste and paste_cmd is unset")
		}
	default:
		return nil, fmt.Errorf("output.text_mode must be one of: type, paste")
	}
	if cfg.Output.KeyDelayMS < 0 {
		return nil, fmt.Errorf("output.key_delay_ms must be >= 0")
	}

	if cfg.Feedback.Enable {
		switch cfg.Feedback.Backend {
		case "hypr", "beeep":
		case "desktop":
			if strings.TrimSpace(cfg.Feedback.DesktopAppName) == "" {
				return nil, fmt.Errorf("feedback.desktop_app_name must not be empty when feedback.backend=desktop")
			}
		case "":
			return nil, fmt.Errorf("feedback.backend must not be empty")
		default:
			return nil, fmt.Errorf("feedback.backend must be one of: hypr, desktop, beeep")
		}
	}
	if cfg.Feedback.TimeoutMS < 0 {
		return nil, fmt.Errorf("feedback.timeout_ms must be >= 0")
	}

	if cfg.Hotkey.Enable && strings.TrimSpace(cfg.Hotkey.Binding) == "" {
		return nil, fmt.Errorf("hotkey.binding must not be empty when hotkey.enable=true")
	}

	if cfg.Recognizer.TimeoutMS < 0 {
		return nil, fmt.Errorf("recognizer.timeout_ms must be >= 0")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if cfg.Microphone.MuteOnSleep && strings.TrimSpace(cfg.Microphone.Source) == "" {
		warnings = append(warnings, Warning{Message: "microphone.mute_on_sleep=true with empty microphone.source; using the default source"})
	}
	if cfg.Feedback.SoundEnable && !cfg.Feedback.Enable {
		warnings = append(warnings, Warning{Message: "feedback.sound_enable has no effect while feedback.enable=false"})
	}

	return warnings, nil
}
