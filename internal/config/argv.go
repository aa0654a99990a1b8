package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// parseArgv splits a shell-like command string into argv.
//
// Quotes group words, backslash escapes one rune, and a leading '#' disables the command.
// Outside single quotes, $VAR and ${VAR} expand from the environment. A word starting with
// "~/" expands to the home directory.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	s := argvScanner{input: []rune(input)}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s.argv, nil
}

type argvScanner struct {
	input []rune
	pos   int
	argv  []string

	word    strings.Builder
	inWord  bool
	tildeOK bool
}

func (s *argvScanner) scan() error {
	var quote rune
	for s.pos < len(s.input) {
		r := s.input[s.pos]
		s.pos++

		switch {
		case r == '\\' && quote != '\'':
			if s.pos >= len(s.input) {
				return fmt.Errorf("unterminated escape sequence in command: %q", string(s.input))
			}
			s.write(s.input[s.pos])
			s.pos++
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
			s.inWord = true
		case r == '$' && quote != '\'':
			s.write([]rune(s.expandVar())...)
		case quote == 0 && unicode.IsSpace(r):
			s.flush()
		case quote == 0 && r == '~' && !s.inWord && s.peekSlash():
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("expand ~ in command %q: %w", string(s.input), err)
			}
			s.write([]rune(filepath.Clean(home))...)
		default:
			s.write(r)
		}
	}

	if quote != 0 {
		return fmt.Errorf("unterminated quote in command: %q", string(s.input))
	}
	s.flush()
	return nil
}

func (s *argvScanner) write(runes ...rune) {
	s.inWord = true
	for _, r := range runes {
		s.word.WriteRune(r)
	}
}

func (s *argvScanner) flush() {
	if s.inWord {
		s.argv = append(s.argv, s.word.String())
	}
	s.word.Reset()
	s.inWord = false
}

func (s *argvScanner) peekSlash() bool {
	return s.pos >= len(s.input) || s.input[s.pos] == '/'
}

// expandVar consumes a variable name after '$'. A bare '$' stays literal.
func (s *argvScanner) expandVar() string {
	if s.pos < len(s.input) && s.input[s.pos] == '{' {
		end := s.pos + 1
		for end < len(s.input) && s.input[end] != '}' {
			end++
		}
		if end >= len(s.input) {
			return "$"
		}
		name := string(s.input[s.pos+1 : end])
		s.pos = end + 1
		return os.Getenv(name)
	}

	start := s.pos
	for s.pos < len(s.input) && isVarRune(s.input[s.pos], s.pos == start) {
		s.pos++
	}
	if s.pos == start {
		return "$"
	}
	return os.Getenv(string(s.input[start:s.pos]))
}

func isVarRune(r rune, first bool) bool {
	if r == '_' || unicode.IsLetter(r) {
		return true
	}
	return !first && unicode.IsDigit(r)
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
