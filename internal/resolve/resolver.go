package resolve

import (
	"fmt"

	"github.com/rbright/voxkeys/internal/grammar"
)

// Resolver matches phrases against a grammar and resolves the winning entry.
type Resolver struct {
	grammar *grammar.Grammar
}

// Resolution is the outcome of resolving one phrase.
type Resolution struct {
	Phrase     string
	Match      grammar.Match
	Operations []Operation
}

// New builds a Resolver over an immutable grammar.
func New(g *grammar.Grammar) *Resolver {
	return &Resolver{grammar: g}
}

// Grammar returns the grammar in use.
func (r *Resolver) Grammar() *grammar.Grammar {
	return r.grammar
}

// Phrase matches phrase and resolves the first entry that accepts it.
func (r *Resolver) Phrase(phrase string) (Resolution, error) {
	m, err := r.grammar.Match(phrase)
	if err != nil {
		return Resolution{Phrase: phrase}, err
	}
	ops, err := Resolve(m.Entry, m.Captures)
	if err != nil {
		return Resolution{Phrase: phrase, Match: m}, fmt.Errorf("resolve %q: %w", m.Entry.Pattern, err)
	}
	return Resolution{Phrase: phrase, Match: m, Operations: ops}, nil
}
