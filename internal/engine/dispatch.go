package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/voxkeys/internal/fsm"
	"github.com/rbright/voxkeys/internal/grammar"
	"github.com/rbright/voxkeys/internal/resolve"
)

// Pass is one trip of a phrase through the grammar.
type Pass struct {
	Phrase     string
	Pattern    string
	Source     string
	Operations []resolve.Operation
	Executed   int
	Err        error
}

// Result collects every pass started by one recognized phrase.
type Result struct {
	Phrase  string
	Passes  []Pass
	Dropped []string
}

// OperationStrings lists the executed operations of every pass in order.
func (r Result) OperationStrings() []string {
	out := make([]string, 0)
	for _, pass := range r.Passes {
		for _, op := range pass.Operations[:pass.Executed] {
			out = append(out, op.String())
		}
	}
	return out
}

// Summary describes the result in one line.
func (r Result) Summary() string {
	patterns := make([]string, 0, len(r.Passes))
	for _, pass := range r.Passes {
		if pass.Pattern != "" {
			patterns = append(patterns, pass.Pattern)
		}
	}
	if len(patterns) == 0 {
		return "no operations"
	}
	return "matched " + strings.Join(patterns, " -> ")
}

// Dispatch resolves and executes phrase, then every phrase it redispatches, before returning.
func (c *Controller) Dispatch(ctx context.Context, phrase string) (Result, error) {
	result := Result{Phrase: phrase}

	if c.State() == fsm.StateSleeping {
		c.feedback.CueReject(ctx)
		c.logger.Debug("phrase rejected while sleeping", "phrase", phrase)
		return result, ErrSleeping
	}
	if err := c.transition(fsm.EventDispatch); err != nil {
		return result, err
	}

	pending := []string{phrase}
	var dispatchErr error
	for passes := 0; len(pending) > 0; passes++ {
		if passes >= c.maxPasses {
			dispatchErr = fmt.Errorf("%w after %d passes", ErrRedispatchLimit, passes)
			result.Dropped = append(result.Dropped, pending...)
			break
		}

		next := pending[0]
		pending = pending[1:]

		pass, redispatch := c.runPass(ctx, next)
		result.Passes = append(result.Passes, pass)

		if pass.Err != nil {
			if passes > 0 && errors.Is(pass.Err, grammar.ErrNoMatch) {
				c.logger.Info("redispatched words matched no rule", "phrase", next)
				continue
			}
			dispatchErr = pass.Err
			break
		}

		pending = append(pending, redispatch...)
		if c.State() == fsm.StateSleeping && len(pending) > 0 {
			result.Dropped = append(result.Dropped, pending...)
			pending = nil
		}
	}

	switch {
	case dispatchErr == nil, isUnmatched(dispatchErr), errors.Is(dispatchErr, ErrRedispatchLimit):
		if c.State() == fsm.StateDispatching {
			_ = c.transition(fsm.EventDone)
		}
	case c.State() == fsm.StateSleeping:
		// a helper already put the recognizer to sleep; the microphone side effects stay applied
	default:
		c.toErrorAndReset()
	}

	c.logResult(result, dispatchErr)
	return result, dispatchErr
}

func (c *Controller) runPass(ctx context.Context, phrase string) (Pass, []string) {
	pass := Pass{Phrase: phrase}

	res, err := c.resolver.Phrase(phrase)
	if err != nil {
		pass.Err = err
		return pass, nil
	}
	pass.Pattern = res.Match.Entry.Pattern
	pass.Source = res.Match.Entry.Source
	pass.Operations = res.Operations

	redispatch := make([]string, 0, 1)
	for _, op := range res.Operations {
		if err := c.apply(ctx, op, &redispatch); err != nil {
			c.output.Discard()
			pass.Err = fmt.Errorf("%s: %w", op, err)
			return pass, nil
		}
		pass.Executed++
	}

	if err := c.output.Flush(ctx); err != nil {
		c.output.Discard()
		pass.Err = fmt.Errorf("flush output: %w", err)
		return pass, nil
	}
	return pass, redispatch
}

func (c *Controller) apply(ctx context.Context, op resolve.Operation, redispatch *[]string) error {
	switch op.Kind {
	case resolve.OpText:
		return c.output.TypeText(ctx, op.Text)
	case resolve.OpKey:
		return c.output.SendKey(ctx, op.Stroke)
	case resolve.OpRedispatch:
		*redispatch = append(*redispatch, op.Text)
		return nil
	case resolve.OpFeedback:
		c.logger.Info("feedback", "message", op.Text)
		c.feedback.Notify(ctx, op.Text)
		return nil
	case resolve.OpMicState:
		switch fsm.State(op.State) {
		case fsm.StateSleeping:
			return c.Sleep(ctx)
		case fsm.StateListening:
			return c.Wake(ctx)
		default:
			return fmt.Errorf("unsupported microphone state %q", op.State)
		}
	default:
		return fmt.Errorf("unsupported operation kind %q", op.Kind)
	}
}

func (c *Controller) logResult(result Result, err error) {
	fields := []any{
		"phrase", result.Phrase,
		"passes", len(result.Passes),
		"operations", len(result.OperationStrings()),
		"state", c.State(),
	}
	if len(result.Dropped) > 0 {
		fields = append(fields, "dropped", result.Dropped)
	}

	switch {
	case err == nil:
		c.logger.Info("phrase dispatched", append(fields, "summary", result.Summary())...)
	case isUnmatched(err):
		c.logger.Debug("phrase ignored", append(fields, "error", err.Error())...)
	default:
		c.logger.Error("phrase failed", append(fields, "error", err.Error())...)
	}
}

func isUnmatched(err error) bool {
	return errors.Is(err, grammar.ErrNoMatch) || errors.Is(err, grammar.ErrEmptyPhrase)
}
