// Package cli parses the voxkeys command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandSay     Command = "say"
	CommandResolve Command = "resolve"
	CommandSleep   Command = "sleep"
	CommandWake    Command = "wake"
	CommandToggle  Command = "toggle"
	CommandStop    Command = "stop"
	CommandStatus  Command = "status"
	CommandRules   Command = "rules"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandServe:   {},
	CommandSay:     {},
	CommandResolve: {},
	CommandSleep:   {},
	CommandWake:    {},
	CommandToggle:  {},
	CommandStop:    {},
	CommandStatus:  {},
	CommandRules:   {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// phraseCommands consume every remaining argument as one spoken phrase.
var phraseCommands = map[Command]struct{}{
	CommandSay:     {},
	CommandResolve: {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Phrase     string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			if _, ok := phraseCommands[cmd]; ok {
				phrase := strings.Join(strings.Fields(strings.Join(args[i+1:], " ")), " ")
				if phrase == "" {
					return Parsed{}, fmt.Errorf("command %q requires a phrase", arg)
				}
				parsed.Phrase = phrase
				return parsed, nil
			}
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [PHRASE...]

Commands:
  serve     Run the voice command daemon
  say       Send a recognized phrase to the running daemon
  resolve   Print the operations a phrase resolves to without injecting them
  sleep     Put the recognizer to sleep
  wake      Wake the recognizer
  toggle    Wake when sleeping, otherwise sleep
  stop      Stop the running daemon
  status    Print current state
  rules     List loaded grammar rules and tables
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voxkeys/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
