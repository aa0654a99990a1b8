// Package resolve turns a matched grammar entry and its captures into ordered operations.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rbright/voxkeys/internal/grammar"
	"github.com/rbright/voxkeys/internal/keys"
)

// OpKind identifies where an operation is delivered.
type OpKind string

const (
	// OpText inserts literal text through the output transport.
	OpText OpKind = "text"
	// OpKey injects one keystroke through the output transport.
	OpKey OpKind = "key"
	// OpRedispatch feeds text back into the grammar as a new phrase.
	OpRedispatch OpKind = "redispatch"
	// OpFeedback shows a status string to the user.
	OpFeedback OpKind = "feedback"
	// OpMicState changes the recognizer listening state.
	OpMicState OpKind = "mic_state"
)

// MicSleeping is the listening state requested by the cancel-and-sleep helper.
const MicSleeping = "sleeping"

// SleepMessage is reported before the microphone goes to sleep.
const SleepMessage = "* Dictation canceled. Going to sleep. *"

// Operation is one concrete step produced by resolution.
type Operation struct {
	Kind   OpKind
	Text   string
	Stroke keys.Stroke
	State  string
}

// String renders the operation for logs and dry runs.
func (o Operation) String() string {
	switch o.Kind {
	case OpKey:
		return "key " + o.Stroke.String()
	case OpMicState:
		return "mic_state " + o.State
	default:
		return string(o.Kind) + " " + strconv.Quote(o.Text)
	}
}

// Resolve expands entry's template with captures, preserving step order.
//
// Captures are assumed to satisfy the slot constraints enforced by the matcher.
func Resolve(entry grammar.Entry, captures grammar.Captures) ([]Operation, error) {
	ops := make([]Operation, 0, len(entry.Template))
	lookup := func(name string) (string, error) {
		return slotValue(entry, captures, strings.ToLower(name))
	}

	for idx, step := range entry.Template {
		switch step.Kind {
		case grammar.StepText:
			text, err := grammar.Expand(step.Value, lookup)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", idx+1, err)
			}
			if text != "" {
				ops = append(ops, Operation{Kind: OpText, Text: text})
			}

		case grammar.StepKey:
			spec, err := grammar.Expand(step.Value, lookup)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", idx+1, err)
			}
			strokes, err := keys.Parse(spec)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", idx+1, err)
			}
			for _, stroke := range strokes {
				ops = append(ops, Operation{Kind: OpKey, Stroke: stroke})
			}

		case grammar.StepParam:
			text, err := lookup(step.Value)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", idx+1, err)
			}
			if text != "" {
				ops = append(ops, Operation{Kind: OpText, Text: text})
			}

		case grammar.StepCall:
			switch step.Value {
			case grammar.CallDictateWords:
				text, err := lookup(step.Slot)
				if err != nil {
					return nil, fmt.Errorf("step %d: %w", idx+1, err)
				}
				ops = append(ops, SplitWords(text)...)
			case grammar.CallCancelAndSleep:
				ops = append(ops, CancelAndSleep()...)
			default:
				return nil, fmt.Errorf("step %d: unknown call %q", idx+1, step.Value)
			}

		default:
			return nil, fmt.Errorf("step %d: unsupported step kind %q", idx+1, step.Kind)
		}
	}
	return ops, nil
}

// SplitWords types the first dictated word and redispatches the rest.
func SplitWords(text string) []Operation {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	ops := []Operation{{Kind: OpText, Text: words[0]}}
	if len(words) > 1 {
		ops = append(ops, Operation{Kind: OpRedispatch, Text: strings.Join(words[1:], " ")})
	}
	return ops
}

// CancelAndSleep reports the cancellation and puts the microphone to sleep.
func CancelAndSleep() []Operation {
	return []Operation{
		{Kind: OpFeedback, Text: SleepMessage},
		{Kind: OpMicState, State: MicSleeping},
	}
}

func slotValue(entry grammar.Entry, captures grammar.Captures, name string) (string, error) {
	if value, ok := captures[name]; ok {
		return value.String(), nil
	}
	slot, ok := entry.Slots[name]
	if !ok {
		return "", fmt.Errorf("pattern %q has no slot %q", entry.Pattern, name)
	}
	if slot.HasDefault {
		return strconv.Itoa(slot.Default), nil
	}
	return "", nil
}
