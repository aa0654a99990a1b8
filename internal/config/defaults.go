package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"
	wtype := "wtype"

	return Config{
		Grammar: GrammarConfig{
			Builtin:   true,
			MaxPasses: 64,
		},
		Output: OutputConfig{
			Backend:    "wtype",
			WtypeCmd:   CommandConfig{Raw: wtype, Argv: mustParseArgv(wtype)},
			TextMode:   "type",
			KeyDelayMS: 10,
		},
		Paste:     PasteConfig{Shortcut: "CTRL,V"},
		Clipboard: CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
		Microphone: MicrophoneConfig{
			MuteOnSleep: false,
			Source:      "default",
		},
		Feedback: FeedbackConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "voxkeys",
			TimeoutMS:      1600,
			SoundEnable:    true,
		},
		Hotkey: HotkeyConfig{
			Enable:  false,
			Binding: "super+shift+m",
		},
		Recognizer: RecognizerConfig{
			Service:   "",
			TimeoutMS: 1500,
		},
		Log: LogConfig{Level: "info"},
	}
}
