package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Grammar    *jsoncGrammar    `json:"grammar"`
	Output     *jsoncOutput     `json:"output"`
	Paste      *jsoncPaste      `json:"paste"`
	Microphone *jsoncMicrophone `json:"microphone"`
	Feedback   *jsoncFeedback   `json:"feedback"`
	Hotkey     *jsoncHotkey     `json:"hotkey"`
	Recognizer *jsoncRecognizer `json:"recognizer"`
	Log        *jsoncLog        `json:"log"`

	ClipboardCmd *string `json:"clipboard_cmd"`
	PasteCmd     *string `json:"paste_cmd"`
}

type jsoncGrammar struct {
	Builtin         *bool            `json:"builtin"`
	Files           *jsoncStringList `json:"files"`
	UppercasePrefix *string          `json:"uppercase_prefix"`
	MaxPasses       *int             `json:"max_passes"`
}

type jsoncOutput struct {
	Backend    *string `json:"backend"`
	WtypeCmd   *string `json:"wtype_cmd"`
	TextMode   *string `json:"text_mode"`
	KeyDelayMS *int    `json:"key_delay_ms"`
}

type jsoncPaste struct {
	Shortcut *string `json:"shortcut"`
}

type jsoncMicrophone struct {
	StartAsleep *bool   `json:"start_asleep"`
	MuteOnSleep *bool   `json:"mute_on_sleep"`
	Source      *string `json:"source"`
	SleepSubmap *string `json:"sleep_submap"`
}

type jsoncFeedback struct {
	Enable          *bool   `json:"enable"`
	Backend         *string `json:"backend"`
	DesktopAppName  *string `json:"desktop_app_name"`
	TimeoutMS       *int    `json:"timeout_ms"`
	SoundEnable     *bool   `json:"sound_enable"`
	SoundSleepFile  *string `json:"sound_sleep_file"`
	SoundWakeFile   *string `json:"sound_wake_file"`
	SoundRejectFile *string `json:"sound_reject_file"`
}

type jsoncHotkey struct {
	Enable  *bool   `json:"enable"`
	Binding *string `json:"binding"`
}

type jsoncRecognizer struct {
	GRPC      *string `json:"grpc"`
	Service   *string `json:"service"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Grammar != nil {
		if payload.Grammar.Builtin != nil {
			cfg.Grammar.Builtin = *payload.Grammar.Builtin
		}
		if payload.Grammar.Files != nil {
			files := make([]string, 0, len(*payload.Grammar.Files))
			for _, file := range *payload.Grammar.Files {
				file = strings.TrimSpace(file)
				if file == "" {
					continue
				}
				files = append(files, file)
			}
			cfg.Grammar.Files = files
		}
		if payload.Grammar.UppercasePrefix != nil {
			cfg.Grammar.UppercasePrefix = strings.TrimSpace(*payload.Grammar.UppercasePrefix)
		}
		if payload.Grammar.MaxPasses != nil {
			cfg.Grammar.MaxPasses = *payload.Grammar.MaxPasses
		}
	}

	if payload.Output != nil {
		if payload.Output.Backend != nil {
			cfg.Output.Backend = strings.ToLower(strings.TrimSpace(*payload.Output.Backend))
		}
		if payload.Output.WtypeCmd != nil {
			cmd, err := parseCommand("output.wtype_cmd", *payload.Output.WtypeCmd)
			if err != nil {
				return nil, err
			}
			cfg.Output.WtypeCmd = cmd
		}
		if payload.Output.TextMode != nil {
			cfg.Output.TextMode = strings.ToLower(strings.TrimSpace(*payload.Output.TextMode))
		}
		if payload.Output.KeyDelayMS != nil {
			cfg.Output.KeyDelayMS = *payload.Output.KeyDelayMS
		}
	}

	if payload.Paste != nil && payload.Paste.Shortcut != nil {
		cfg.Paste.Shortcut = strings.TrimSpace(*payload.Paste.Shortcut)
	}

	if payload.Microphone != nil {
		if payload.Microphone.StartAsleep != nil {
			cfg.Microphone.StartAsleep = *payload.Microphone.StartAsleep
		}
		if payload.Microphone.MuteOnSleep != nil {
			cfg.Microphone.MuteOnSleep = *payload.Microphone.MuteOnSleep
		}
		if payload.Microphone.Source != nil {
			cfg.Microphone.Source = strings.TrimSpace(*payload.Microphone.Source)
		}
		if payload.Microphone.SleepSubmap != nil {
			cfg.Microphone.SleepSubmap = strings.TrimSpace(*payload.Microphone.SleepSubmap)
		}
	}

	if payload.Feedback != nil {
		if payload.Feedback.Enable != nil {
			cfg.Feedback.Enable = *payload.Feedback.Enable
		}
		if payload.Feedback.Backend != nil {
			cfg.Feedback.Backend = strings.ToLower(strings.TrimSpace(*payload.Feedback.Backend))
		}
		if payload.Feedback.DesktopAppName != nil {
			cfg.Feedback.DesktopAppName = strings.TrimSpace(*payload.Feedback.DesktopAppName)
		}
		if payload.Feedback.TimeoutMS != nil {
			cfg.Feedback.TimeoutMS = *payload.Feedback.TimeoutMS
		}
		if payload.Feedback.SoundEnable != nil {
			cfg.Feedback.SoundEnable = *payload.Feedback.SoundEnable
		}
		if payload.Feedback.SoundSleepFile != nil {
			cfg.Feedback.SoundSleepFile = strings.TrimSpace(*payload.Feedback.SoundSleepFile)
		}
		if payload.Feedback.SoundWakeFile != nil {
			cfg.Feedback.SoundWakeFile = strings.TrimSpace(*payload.Feedback.SoundWakeFile)
		}
		if payload.Feedback.SoundRejectFile != nil {
			cfg.Feedback.SoundRejectFile = strings.TrimSpace(*payload.Feedback.SoundRejectFile)
		}
	}

	if payload.Hotkey != nil {
		if payload.Hotkey.Enable != nil {
			cfg.Hotkey.Enable = *payload.Hotkey.Enable
		}
		if payload.Hotkey.Binding != nil {
			cfg.Hotkey.Binding = strings.ToLower(strings.TrimSpace(*payload.Hotkey.Binding))
		}
	}

	if payload.Recognizer != nil {
		if payload.Recognizer.GRPC != nil {
			cfg.Recognizer.GRPC = strings.TrimSpace(*payload.Recognizer.GRPC)
		}
		if payload.Recognizer.Service != nil {
			cfg.Recognizer.Service = strings.TrimSpace(*payload.Recognizer.Service)
		}
		if payload.Recognizer.TimeoutMS != nil {
			cfg.Recognizer.TimeoutMS = *payload.Recognizer.TimeoutMS
		}
	}

	if payload.Log != nil && payload.Log.Level != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*payload.Log.Level))
	}

	if payload.ClipboardCmd != nil {
		cmd, err := parseCommand("clipboard_cmd", *payload.ClipboardCmd)
		if err != nil {
			return nil, err
		}
		cfg.Clipboard = cmd
	}

	if payload.PasteCmd != nil {
		cmd, err := parseCommand("paste_cmd", *payload.PasteCmd)
		if err != nil {
			return nil, err
		}
		cfg.PasteCmd = cmd
	}

	return warnings, nil
}

func parseCommand(field string, raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
