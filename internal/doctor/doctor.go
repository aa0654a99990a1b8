// Package doctor runs runtime readiness diagnostics for config, grammar, tools, audio, and the recognizer.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/voxkeys/internal/audio"
	"github.com/rbright/voxkeys/internal/config"
	"github.com/rbright/voxkeys/internal/grammar"
	"github.com/rbright/voxkeys/internal/hotkey"
	"github.com/rbright/voxkeys/internal/recognizer"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	}}

	checks = append(checks, checkGrammar(cfg.Config.Grammar))

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir available for the daemon socket", "XDG_RUNTIME_DIR is empty"))

	checks = append(checks, checkOutput(cfg.Config)...)

	usesHypr := cfg.Config.Feedback.Enable && cfg.Config.Feedback.Backend == "hypr"
	if usesHypr || strings.TrimSpace(cfg.Config.Microphone.SleepSubmap) != "" {
		checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
		checks = append(checks, checkBinary("hyprctl", "feedback and submaps use hyprctl"))
	}

	if cfg.Config.Microphone.MuteOnSleep {
		checks = append(checks, checkAudioSource(ctx, cfg.Config.Microphone.Source))
	}

	if cfg.Config.Hotkey.Enable {
		checks = append(checks, checkHotkey(cfg.Config.Hotkey.Binding))
	}

	if strings.TrimSpace(cfg.Config.Recognizer.GRPC) != "" {
		checks = append(checks, checkRecognizer(ctx, cfg.Config.Recognizer))
	}

	return Report{Checks: checks}
}

// checkGrammar loads the configured rule files exactly as serve would.
func checkGrammar(cfg config.GrammarConfig) Check {
	g, err := grammar.Load(grammar.Options{
		Builtin:         cfg.Builtin,
		Files:           cfg.Files,
		UppercasePrefix: cfg.UppercasePrefix,
	})
	if err != nil {
		return Check{Name: "grammar", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "grammar",
		Pass:    true,
		Message: fmt.Sprintf("%d rules, %d tables", len(g.Entries()), len(g.TableNames())),
	}
}

// checkOutput validates the tools required by the selected output backend.
func checkOutput(cfg config.Config) []Check {
	var checks []Check
	if cfg.Output.Backend == "uinput" {
		checks = append(checks, checkUinput())
	} else {
		checks = append(checks, checkCommand(cfg.Output.WtypeCmd.Argv, "wtype_cmd"))
	}

	if cfg.Output.TextMode != "paste" {
		return checks
	}
	checks = append(checks, checkCommand(cfg.Clipboard.Argv, "clipboard_cmd"))
	if len(cfg.PasteCmd.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.PasteCmd.Argv, "paste_cmd"))
	} else {
		checks = append(checks, checkBinary("hyprctl", "default paste path requires hyprctl"))
	}
	return checks
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

var uinputPath = "/dev/uinput"

// checkUinput validates that the uinput device node is writable.
func checkUinput() Check {
	f, err := os.OpenFile(uinputPath, os.O_WRONLY, 0)
	if err != nil {
		return Check{Name: "uinput", Pass: false, Message: fmt.Sprintf("cannot open %s: %v", uinputPath, err)}
	}
	_ = f.Close()
	return Check{Name: "uinput", Pass: true, Message: fmt.Sprintf("%s is writable", uinputPath)}
}

// checkAudioSource resolves the source muted while sleeping.
func checkAudioSource(ctx context.Context, source string) Check {
	device, err := audio.SelectDevice(ctx, source)
	if err != nil {
		return Check{Name: "microphone.source", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", device.ID)
	if device.Muted {
		message += " (currently muted)"
	}
	return Check{Name: "microphone.source", Pass: true, Message: message}
}

// checkHotkey validates the toggle binding syntax.
func checkHotkey(binding string) Check {
	if _, err := hotkey.ParseBinding(binding); err != nil {
		return Check{Name: "hotkey.binding", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hotkey.binding", Pass: true, Message: fmt.Sprintf("binding %q parses", binding)}
}

// checkRecognizer probes the recognizer gRPC health endpoint.
func checkRecognizer(ctx context.Context, cfg config.RecognizerConfig) Check {
	status, err := recognizer.Probe(ctx, cfg.GRPC, cfg.Service, time.Duration(cfg.TimeoutMS)*time.Millisecond)
	if err != nil {
		return Check{Name: "recognizer.health", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "recognizer.health",
		Pass:    true,
		Message: fmt.Sprintf("%s at %s (%dms)", status.State, status.Endpoint, status.Latency.Milliseconds()),
	}
}
