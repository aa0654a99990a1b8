package keys

import (
	"strconv"
	"strings"
)

// Name describes one injectable key.
type Name struct {
	// Canonical is the name used in key specs.
	Canonical string
	// Keysym is the XKB keysym name understood by wtype.
	Keysym string
	// Modifier is set for keys that are held as modifiers (ctrl, shift, alt, win).
	Modifier bool
}

var names = map[string]Name{}

var aliases = map[string]string{
	"pageup":     "pgup",
	"pagedown":   "pgdown",
	"delete":     "del",
	"esc":        "escape",
	"return":     "enter",
	"control":    "ctrl",
	"super":      "win",
	"period":     "dot",
	"dash":       "hyphen",
	"equals":     "equal",
	"apostrophe": "squote",
	"quote":      "dquote",
	"lt":         "langle",
	"gt":         "rangle",
}

func init() {
	register := func(canonical, keysym string, modifier bool) {
		names[canonical] = Name{Canonical: canonical, Keysym: keysym, Modifier: modifier}
	}

	for _, m := range []struct{ name, keysym string }{
		{"ctrl", "Control_L"},
		{"shift", "Shift_L"},
		{"alt", "Alt_L"},
		{"win", "Super_L"},
	} {
		register(m.name, m.keysym, true)
	}

	for _, k := range []struct{ name, keysym string }{
		{"up", "Up"},
		{"down", "Down"},
		{"left", "Left"},
		{"right", "Right"},
		{"pgup", "Prior"},
		{"pgdown", "Next"},
		{"home", "Home"},
		{"end", "End"},
		{"insert", "Insert"},
		{"del", "Delete"},
		{"backspace", "BackSpace"},
		{"tab", "Tab"},
		{"enter", "Return"},
		{"space", "space"},
		{"escape", "Escape"},
		{"apps", "Menu"},
		{"colon", "colon"},
		{"semicolon", "semicolon"},
		{"comma", "comma"},
		{"dot", "period"},
		{"hyphen", "minus"},
		{"minus", "minus"},
		{"underscore", "underscore"},
		{"plus", "plus"},
		{"equal", "equal"},
		{"langle", "less"},
		{"rangle", "greater"},
		{"lbrace", "braceleft"},
		{"rbrace", "braceright"},
		{"lbracket", "bracketleft"},
		{"rbracket", "bracketright"},
		{"lparen", "parenleft"},
		{"rparen", "parenright"},
		{"slash", "slash"},
		{"backslash", "backslash"},
		{"squote", "apostrophe"},
		{"dquote", "quotedbl"},
		{"backtick", "grave"},
		{"tilde", "asciitilde"},
		{"exclamation", "exclam"},
		{"question", "question"},
		{"at", "at"},
		{"hash", "numbersign"},
		{"dollar", "dollar"},
		{"percent", "percent"},
		{"caret", "asciicircum"},
		{"ampersand", "ampersand"},
		{"asterisk", "asterisk"},
		{"bar", "bar"},
	} {
		register(k.name, k.keysym, false)
	}

	for i := 1; i <= 12; i++ {
		register("f"+strconv.Itoa(i), "F"+strconv.Itoa(i), false)
	}
	for c := 'a'; c <= 'z'; c++ {
		register(string(c), string(c), false)
	}
	for c := '0'; c <= '9'; c++ {
		register(string(c), string(c), false)
	}
}

// Lookup resolves a key name or alias.
func Lookup(raw string) (Name, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	name, ok := names[key]
	return name, ok
}
