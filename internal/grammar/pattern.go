package grammar

import (
	"fmt"
	"strings"
	"unicode"
)

// node is one element of a compiled spoken pattern.
type node interface{}

type wordNode struct{ word string }

type slotNode struct{ name string }

type seqNode struct{ items []node }

type altNode struct{ options []node }

type optNode struct{ inner node }

type patternToken struct {
	kind  rune // 'w' word, or one of []()|<>
	value string
	pos   int
}

// compilePattern parses words, [optional], (alt|alt) and <slot> elements.
func compilePattern(pattern string) (node, error) {
	tokens, err := tokenizePattern(pattern)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("pattern is empty")
	}

	p := patternParser{tokens: tokens}
	root, err := p.parseAlternatives()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		return nil, fmt.Errorf("unexpected %q at offset %d", string(tok.kind), tok.pos)
	}
	return root, nil
}

func tokenizePattern(pattern string) ([]patternToken, error) {
	tokens := make([]patternToken, 0, 8)
	var word strings.Builder
	wordStart := 0

	flush := func() {
		if word.Len() == 0 {
			return
		}
		tokens = append(tokens, patternToken{kind: 'w', value: strings.ToLower(word.String()), pos: wordStart})
		word.Reset()
	}

	for i, r := range pattern {
		switch {
		case unicode.IsSpace(r):
			flush()
		case strings.ContainsRune("[]()|<>", r):
			flush()
			tokens = append(tokens, patternToken{kind: r, pos: i})
		default:
			if word.Len() == 0 {
				wordStart = i
			}
			word.WriteRune(r)
		}
	}
	flush()
	return tokens, nil
}

type patternParser struct {
	tokens []patternToken
	pos    int
}

func (p *patternParser) peek() (patternToken, bool) {
	if p.pos >= len(p.tokens) {
		return patternToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *patternParser) parseAlternatives() (node, error) {
	first, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	options := []node{first}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != '|' {
			break
		}
		p.pos++
		next, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		options = append(options, next)
	}
	if len(options) == 1 {
		return first, nil
	}
	return altNode{options: options}, nil
}

func (p *patternParser) parseSequence() (node, error) {
	items := make([]node, 0, 4)
	for {
		tok, ok := p.peek()
		if !ok || tok.kind == '|' || tok.kind == ']' || tok.kind == ')' {
			break
		}
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		pos := len(p.tokens)
		if tok, ok := p.peek(); ok {
			pos = tok.pos
		}
		return nil, fmt.Errorf("empty alternative near token %d", pos)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return seqNode{items: items}, nil
}

func (p *patternParser) parseItem() (node, error) {
	tok := p.tokens[p.pos]
	p.pos++

	switch tok.kind {
	case 'w':
		return wordNode{word: tok.value}, nil
	case '<':
		name, ok := p.peek()
		if !ok || name.kind != 'w' {
			return nil, fmt.Errorf("slot at offset %d is missing a name", tok.pos)
		}
		p.pos++
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		return slotNode{name: name.value}, nil
	case '[':
		inner, err := p.parseAlternatives()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return optNode{inner: inner}, nil
	case '(':
		inner, err := p.parseAlternatives()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", string(tok.kind), tok.pos)
	}
}

func (p *patternParser) expect(kind rune) error {
	tok, ok := p.peek()
	if !ok {
		return fmt.Errorf("missing closing %q", string(kind))
	}
	if tok.kind != kind {
		return fmt.Errorf("expected %q at offset %d", string(kind), tok.pos)
	}
	p.pos++
	return nil
}

// slotRefs lists slot names referenced by n in first-seen order.
func slotRefs(n node) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	var walk func(node)
	walk = func(n node) {
		switch v := n.(type) {
		case slotNode:
			if !seen[v.name] {
				seen[v.name] = true
				out = append(out, v.name)
			}
		case seqNode:
			for _, item := range v.items {
				walk(item)
			}
		case altNode:
			for _, option := range v.options {
				walk(option)
			}
		case optNode:
			walk(v.inner)
		}
	}
	walk(n)
	return out
}

// expandForms enumerates every concrete word sequence of a slot-free pattern.
func expandForms(n node) ([][]string, error) {
	switch v := n.(type) {
	case wordNode:
		return [][]string{{v.word}}, nil
	case slotNode:
		return nil, fmt.Errorf("slot <%s> is not allowed here", v.name)
	case optNode:
		inner, err := expandForms(v.inner)
		if err != nil {
			return nil, err
		}
		return append([][]string{{}}, inner...), nil
	case altNode:
		out := make([][]string, 0, len(v.options))
		for _, option := range v.options {
			forms, err := expandForms(option)
			if err != nil {
				return nil, err
			}
			out = append(out, forms...)
		}
		return out, nil
	case seqNode:
		out := [][]string{{}}
		for _, item := range v.items {
			forms, err := expandForms(item)
			if err != nil {
				return nil, err
			}
			next := make([][]string, 0, len(out)*len(forms))
			for _, prefix := range out {
				for _, form := range forms {
					combined := make([]string, 0, len(prefix)+len(form))
					combined = append(combined, prefix...)
					combined = append(combined, form...)
					next = append(next, combined)
				}
			}
			out = next
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported pattern node %T", n)
	}
}
