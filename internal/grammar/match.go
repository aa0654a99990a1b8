package grammar

import (
	"strings"
	"unicode"
)

// word is one phrase token: the recognizer's spelling plus its comparison form.
type word struct {
	raw  string
	norm string
}

// capture is an immutable list cell so backtracking can drop bindings by keeping the old head.
type capture struct {
	name  string
	value Value
	next  *capture
}

func (c *capture) toMap() Captures {
	out := make(Captures)
	for cur := c; cur != nil; cur = cur.next {
		if _, exists := out[cur.name]; !exists {
			out[cur.name] = cur.value
		}
	}
	return out
}

type continuation func(pos int, caps *capture) bool

type matcher struct {
	words  []word
	tables map[string]*Table
	slots  map[string]Slot
}

// splitPhrase tokenizes on whitespace and drops tokens that are pure punctuation.
func splitPhrase(phrase string) []word {
	fields := strings.Fields(phrase)
	out := make([]word, 0, len(fields))
	for _, field := range fields {
		norm := normalizeWord(field)
		if norm == "" {
			continue
		}
		out = append(out, word{raw: field, norm: norm})
	}
	return out
}

func normalizeWord(raw string) string {
	trimmed := strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsPunct(r) && r != '-' && r != '\''
	})
	return strings.ToLower(trimmed)
}

func (m matcher) run(expr node) (Captures, bool) {
	var result *capture
	ok := m.match(expr, 0, nil, func(pos int, caps *capture) bool {
		if pos != len(m.words) {
			return false
		}
		result = caps
		return true
	})
	if !ok {
		return nil, false
	}
	return result.toMap(), true
}

func (m matcher) match(n node, pos int, caps *capture, k continuation) bool {
	switch v := n.(type) {
	case wordNode:
		if pos < len(m.words) && m.words[pos].norm == v.word {
			return k(pos+1, caps)
		}
		return false
	case seqNode:
		return m.matchSeq(v.items, pos, caps, k)
	case altNode:
		for _, option := range v.options {
			if m.match(option, pos, caps, k) {
				return true
			}
		}
		return false
	case optNode:
		if m.match(v.inner, pos, caps, k) {
			return true
		}
		return k(pos, caps)
	case slotNode:
		return m.matchSlot(v.name, pos, caps, k)
	default:
		return false
	}
}

func (m matcher) matchSeq(items []node, pos int, caps *capture, k continuation) bool {
	if len(items) == 0 {
		return k(pos, caps)
	}
	return m.match(items[0], pos, caps, func(next int, nextCaps *capture) bool {
		return m.matchSeq(items[1:], next, nextCaps, k)
	})
}

func (m matcher) matchSlot(name string, pos int, caps *capture, k continuation) bool {
	slot, ok := m.slots[name]
	if !ok || pos >= len(m.words) {
		return false
	}

	bind := func(end int, value Value) bool {
		return k(end, &capture{name: name, value: value, next: caps})
	}

	switch slot.Kind {
	case SlotInteger:
		if value, ok := parseNumberToken(m.words[pos].norm); ok && slot.inRange(value) {
			if bind(pos+1, Value{Kind: SlotInteger, Int: value}) {
				return true
			}
		}
		for size := 1; size <= maxNumberWords && pos+size <= len(m.words); size++ {
			value, ok := parseNumberWords(m.norms(pos, pos+size))
			if !ok || !slot.inRange(value) {
				continue
			}
			if bind(pos+size, Value{Kind: SlotInteger, Int: value}) {
				return true
			}
		}
		return false

	case SlotChoice:
		table, ok := m.tables[slot.Table]
		if !ok {
			return false
		}
		for _, form := range table.forms {
			end := pos + len(form.words)
			if end > len(m.words) || !equalWords(form.words, m.norms(pos, end)) {
				continue
			}
			if bind(end, Value{Kind: SlotChoice, Text: form.value}) {
				return true
			}
		}
		return false

	case SlotDictation:
		for end := len(m.words); end > pos; end-- {
			if bind(end, Value{Kind: SlotDictation, Text: m.raw(pos, end)}) {
				return true
			}
		}
		return false

	default:
		return false
	}
}

func (m matcher) norms(start, end int) []string {
	out := make([]string, 0, end-start)
	for _, w := range m.words[start:end] {
		out = append(out, w.norm)
	}
	return out
}

func (m matcher) raw(start, end int) string {
	parts := make([]string, 0, end-start)
	for _, w := range m.words[start:end] {
		parts = append(parts, w.raw)
	}
	return strings.Join(parts, " ")
}

func (s Slot) inRange(value int) bool {
	return value >= s.Min && value <= s.Max
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
