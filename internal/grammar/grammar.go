// Package grammar holds the immutable voice-command grammar: choice tables, parameter
// slots, and the ordered phrase-pattern entries matched against recognized phrases.
package grammar

import (
	"errors"
	"sort"
	"strconv"
)

var (
	// ErrNoMatch reports that no entry accepts the phrase.
	ErrNoMatch = errors.New("no rule matched")
	// ErrEmptyPhrase reports a phrase without words.
	ErrEmptyPhrase = errors.New("phrase is empty")
)

// SlotKind is the capture type of a parameter slot.
type SlotKind string

const (
	SlotInteger   SlotKind = "integer"
	SlotChoice    SlotKind = "choice"
	SlotDictation SlotKind = "dictation"
)

// Slot is a named, typed capture point within a spoken pattern.
type Slot struct {
	Name       string
	Kind       SlotKind
	Min        int
	Max        int
	Table      string
	Default    int
	HasDefault bool
}

// StepKind selects how one template step is resolved.
type StepKind string

const (
	StepText  StepKind = "text"
	StepKey   StepKind = "key"
	StepParam StepKind = "param"
	StepCall  StepKind = "call"
)

// Helper names accepted by call steps.
const (
	CallDictateWords   = "dictate_words"
	CallCancelAndSleep = "cancel_and_sleep"
)

// Step is one element of an action template.
//
// Value holds the literal text, the key spec, the slot name (param) or the helper name (call).
// Slot is the argument slot of a call step.
type Step struct {
	Kind  StepKind
	Value string
	Slot  string
}

// Entry maps one spoken pattern to its action template.
type Entry struct {
	Pattern  string
	Template []Step
	Slots    map[string]Slot
	Source   string

	expr node
}

// SlotNames lists the slots referenced by the pattern, sorted.
func (e Entry) SlotNames() []string {
	names := make([]string, 0, len(e.Slots))
	for name := range e.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Value is one captured parameter.
type Value struct {
	Kind SlotKind
	Int  int
	Text string
}

// String renders the value as it would be typed.
func (v Value) String() string {
	if v.Kind == SlotInteger {
		return strconv.Itoa(v.Int)
	}
	return v.Text
}

// Captures maps slot names to captured values.
type Captures map[string]Value

// Match is a phrase accepted by an entry plus its captured parameters.
type Match struct {
	Entry    Entry
	Captures Captures
}

// Grammar is the loaded, read-only rule set.
type Grammar struct {
	entries []Entry
	tables  map[string]*Table
}

// Entries returns the entries in match-priority order.
func (g *Grammar) Entries() []Entry {
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Table returns a named choice table.
func (g *Grammar) Table(name string) (*Table, bool) {
	t, ok := g.tables[name]
	return t, ok
}

// TableNames lists the loaded choice tables, sorted.
func (g *Grammar) TableNames() []string {
	names := make([]string, 0, len(g.tables))
	for name := range g.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match returns the first entry, in load order, whose pattern consumes every word of phrase.
func (g *Grammar) Match(phrase string) (Match, error) {
	words := splitPhrase(phrase)
	if len(words) == 0 {
		return Match{}, ErrEmptyPhrase
	}

	for _, entry := range g.entries {
		m := matcher{words: words, tables: g.tables, slots: entry.Slots}
		if captures, ok := m.run(entry.expr); ok {
			return Match{Entry: entry, Captures: captures}, nil
		}
	}
	return Match{}, ErrNoMatch
}
