//go:build linux

package output

import (
	"fmt"
	"time"

	"github.com/micmonay/keybd_event"
)

// keyCodes maps key names to Linux input event codes for a US layout.
var keyCodes = map[string]keyCode{
	"escape": {code: 1}, "minus": {code: 12}, "hyphen": {code: 12}, "equal": {code: 13},
	"backspace": {code: 14}, "tab": {code: 15}, "lbracket": {code: 26}, "rbracket": {code: 27},
	"enter": {code: 28}, "ctrl": {code: 29}, "semicolon": {code: 39}, "squote": {code: 40},
	"backtick": {code: 41}, "shift": {code: 42}, "backslash": {code: 43}, "comma": {code: 51},
	"dot": {code: 52}, "slash": {code: 53}, "alt": {code: 56}, "space": {code: 57},
	"home": {code: 102}, "up": {code: 103}, "pgup": {code: 104}, "left": {code: 105},
	"right": {code: 106}, "end": {code: 107}, "down": {code: 108}, "pgdown": {code: 109},
	"insert": {code: 110}, "del": {code: 111}, "win": {code: 125}, "apps": {code: 127},
	"f11": {code: 87}, "f12": {code: 88},

	"exclamation": {code: 2, shift: true}, "at": {code: 3, shift: true},
	"hash": {code: 4, shift: true}, "dollar": {code: 5, shift: true},
	"percent": {code: 6, shift: true}, "caret": {code: 7, shift: true},
	"ampersand": {code: 8, shift: true}, "asterisk": {code: 9, shift: true},
	"lparen": {code: 10, shift: true}, "rparen": {code: 11, shift: true},
	"underscore": {code: 12, shift: true}, "plus": {code: 13, shift: true},
	"lbrace": {code: 26, shift: true}, "rbrace": {code: 27, shift: true},
	"colon": {code: 39, shift: true}, "dquote": {code: 40, shift: true},
	"tilde": {code: 41, shift: true}, "bar": {code: 43, shift: true},
	"langle": {code: 51, shift: true}, "rangle": {code: 52, shift: true},
	"question": {code: 53, shift: true},
}

func init() {
	for i, c := range "1234567890" {
		keyCodes[string(c)] = keyCode{code: 2 + i}
	}
	for i, c := range "qwertyuiop" {
		keyCodes[string(c)] = keyCode{code: 16 + i}
	}
	for i, c := range "asdfghjkl" {
		keyCodes[string(c)] = keyCode{code: 30 + i}
	}
	for i, c := range "zxcvbnm" {
		keyCodes[string(c)] = keyCode{code: 44 + i}
	}
	for i := 1; i <= 10; i++ {
		keyCodes[fmt.Sprintf("f%d", i)] = keyCode{code: 58 + i}
	}
}

type bondingDevice struct {
	kb keybd_event.KeyBonding
}

func newKeyDevice() (keyDevice, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("open uinput keyboard: %w", err)
	}
	// the compositor needs a moment to register the new device
	time.Sleep(200 * time.Millisecond)
	return &bondingDevice{kb: kb}, nil
}

func (d *bondingDevice) Down(code int) error {
	d.kb.Clear()
	d.kb.SetKeys(code)
	return d.kb.Press()
}

func (d *bondingDevice) Up(code int) error {
	d.kb.Clear()
	d.kb.SetKeys(code)
	return d.kb.Release()
}
