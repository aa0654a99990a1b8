// Package config resolves, parses, validates, and defaults voxkeys configuration.
package config

// Config is the fully materialized runtime configuration used by voxkeys.
type Config struct {
	Grammar    GrammarConfig
	Output     OutputConfig
	Paste      PasteConfig
	Clipboard  CommandConfig
	PasteCmd   CommandConfig
	Microphone MicrophoneConfig
	Feedback   FeedbackConfig
	Hotkey     HotkeyConfig
	Recognizer RecognizerConfig
	Log        LogConfig
}

// GrammarConfig selects the rule files loaded at startup.
type GrammarConfig struct {
	Builtin         bool
	Files           []string
	UppercasePrefix string
	MaxPasses       int
}

// OutputConfig selects the key-injection backend.
type OutputConfig struct {
	Backend  string
	WtypeCmd CommandConfig
	TextMode string
	// KeyDelayMS is inserted between keystrokes by the uinput backend.
	KeyDelayMS int
}

// PasteConfig controls clipboard-paste text insertion.
type PasteConfig struct {
	Shortcut string
}

// MicrophoneConfig controls side effects of the sleeping state.
type MicrophoneConfig struct {
	StartAsleep bool
	MuteOnSleep bool
	Source      string
	SleepSubmap string
}

// FeedbackConfig controls status notifications and audio cues.
type FeedbackConfig struct {
	Enable          bool
	Backend         string
	DesktopAppName  string
	TimeoutMS       int
	SoundEnable     bool
	SoundSleepFile  string
	SoundWakeFile   string
	SoundRejectFile string
}

// HotkeyConfig controls the optional global sleep/wake toggle.
type HotkeyConfig struct {
	Enable  bool
	Binding string
}

// RecognizerConfig points at the upstream speech recognizer health endpoint.
type RecognizerConfig struct {
	GRPC      string
	Service   string
	TimeoutMS int
}

// LogConfig controls the JSONL runtime log.
type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
