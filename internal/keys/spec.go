// Package keys parses key specifications into ordered, injectable strokes.
//
// A spec is a comma-separated list of elements:
//
//	[modifiers-]key[/inner][:repeat][/outer]
//	[modifiers-]key:down|up[/outer]
//
// Modifiers are the letters c (ctrl), s (shift), a (alt) and w (win), e.g. "ca-left".
// Pauses are expressed in hundredths of a second.
package keys

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PauseUnit is the duration of one pause step in a key spec.
const PauseUnit = 10 * time.Millisecond

// Direction selects which phase of a keystroke is emitted.
type Direction int

const (
	// DirectionPress presses and releases the key Repeat times.
	DirectionPress Direction = iota
	// DirectionDown holds the key.
	DirectionDown
	// DirectionUp releases a held key.
	DirectionUp
)

func (d Direction) String() string {
	switch d {
	case DirectionDown:
		return "down"
	case DirectionUp:
		return "up"
	default:
		return "press"
	}
}

// Stroke is one key operation with optional modifiers and timing hints.
type Stroke struct {
	Key        Name
	Modifiers  []Name
	Direction  Direction
	Repeat     int
	InnerPause time.Duration
	OuterPause time.Duration
}

var modifierLetters = map[rune]string{
	'c': "ctrl",
	's': "shift",
	'a': "alt",
	'w': "win",
}

// String renders the stroke back into canonical spec form.
func (s Stroke) String() string {
	var b strings.Builder
	if len(s.Modifiers) > 0 {
		for _, m := range s.Modifiers {
			for letter, name := range modifierLetters {
				if name == m.Canonical {
					b.WriteRune(letter)
				}
			}
		}
		b.WriteByte('-')
	}
	b.WriteString(s.Key.Canonical)

	switch s.Direction {
	case DirectionDown, DirectionUp:
		b.WriteString(":" + s.Direction.String())
	default:
		if s.InnerPause > 0 {
			b.WriteString("/" + formatPause(s.InnerPause))
		}
		if s.Repeat != 1 || s.InnerPause > 0 {
			b.WriteString(":" + strconv.Itoa(s.Repeat))
		}
	}
	if s.OuterPause > 0 {
		b.WriteString("/" + formatPause(s.OuterPause))
	}
	return b.String()
}

// Parse converts a key spec into strokes in the order they must be emitted.
func Parse(spec string) ([]Stroke, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("key spec must not be empty")
	}

	elements := strings.Split(spec, ",")
	strokes := make([]Stroke, 0, len(elements))
	for _, raw := range elements {
		element := strings.TrimSpace(raw)
		if element == "" {
			return nil, fmt.Errorf("key spec %q contains an empty element", spec)
		}
		stroke, err := parseElement(element)
		if err != nil {
			return nil, fmt.Errorf("key spec %q: %w", spec, err)
		}
		strokes = append(strokes, stroke)
	}
	return strokes, nil
}

func parseElement(element string) (Stroke, error) {
	stroke := Stroke{Direction: DirectionPress, Repeat: 1}

	body := element
	if idx := strings.Index(element, "-"); idx > 0 && idx < len(element)-1 {
		mods, ok := parseModifiers(element[:idx])
		if ok {
			stroke.Modifiers = mods
			body = element[idx+1:]
		}
	}

	head, tail, hasColon := strings.Cut(body, ":")
	if !hasColon {
		keyName, outer, hasOuter := strings.Cut(head, "/")
		key, err := lookupKey(keyName)
		if err != nil {
			return Stroke{}, err
		}
		stroke.Key = key
		if hasOuter {
			pause, err := parsePause(outer)
			if err != nil {
				return Stroke{}, err
			}
			stroke.OuterPause = pause
		}
		return stroke, nil
	}

	keyName, inner, hasInner := strings.Cut(head, "/")
	key, err := lookupKey(keyName)
	if err != nil {
		return Stroke{}, err
	}
	stroke.Key = key
	if hasInner {
		pause, err := parsePause(inner)
		if err != nil {
			return Stroke{}, err
		}
		stroke.InnerPause = pause
	}

	action, outer, hasOuter := strings.Cut(tail, "/")
	action = strings.ToLower(strings.TrimSpace(action))
	switch action {
	case "down", "up":
		if hasInner {
			return Stroke{}, fmt.Errorf("element %q: inner pause is not allowed with %s", element, action)
		}
		if action == "down" {
			stroke.Direction = DirectionDown
		} else {
			stroke.Direction = DirectionUp
		}
	default:
		repeat, err := strconv.Atoi(action)
		if err != nil {
			return Stroke{}, fmt.Errorf("element %q: invalid repeat or direction %q", element, action)
		}
		if repeat < 0 {
			return Stroke{}, fmt.Errorf("element %q: repeat must be >= 0", element)
		}
		stroke.Repeat = repeat
	}

	if hasOuter {
		pause, err := parsePause(outer)
		if err != nil {
			return Stroke{}, err
		}
		stroke.OuterPause = pause
	}
	return stroke, nil
}

func parseModifiers(prefix string) ([]Name, bool) {
	mods := make([]Name, 0, len(prefix))
	seen := make(map[string]bool, len(prefix))
	for _, r := range strings.ToLower(prefix) {
		name, ok := modifierLetters[r]
		if !ok {
			return nil, false
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		key, _ := Lookup(name)
		mods = append(mods, key)
	}
	return mods, len(mods) > 0
}

func lookupKey(raw string) (Name, error) {
	key, ok := Lookup(raw)
	if !ok {
		return Name{}, fmt.Errorf("unknown key name %q", strings.TrimSpace(raw))
	}
	return key, nil
}

func parsePause(raw string) (time.Duration, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid pause %q", raw)
	}
	return time.Duration(value * float64(PauseUnit)), nil
}

func formatPause(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(PauseUnit), 'f', -1, 64)
}
