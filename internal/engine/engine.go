// Package engine runs recognized phrases through the grammar one at a time and routes the
// resulting operations to the output transport, the feedback channel and the microphone.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/voxkeys/internal/fsm"
	"github.com/rbright/voxkeys/internal/ipc"
	"github.com/rbright/voxkeys/internal/keys"
	"github.com/rbright/voxkeys/internal/resolve"
)

// DefaultMaxPasses bounds how many redispatched passes one phrase may trigger.
const DefaultMaxPasses = 64

var (
	// ErrSleeping rejects phrases while the recognizer sleeps.
	ErrSleeping = errors.New("recognizer sleeping")
	// ErrStopped reports a request that arrived after the dispatch loop exited.
	ErrStopped = errors.New("engine stopped")
	// ErrRedispatchLimit reports a phrase whose redispatch chain did not terminate.
	ErrRedispatchLimit = errors.New("redispatch limit reached")
)

// Output is the OS-bound transport for text and key operations.
//
// Backends may buffer until Flush. Discard drops anything still buffered.
type Output interface {
	TypeText(ctx context.Context, text string) error
	SendKey(ctx context.Context, stroke keys.Stroke) error
	Flush(ctx context.Context) error
	Discard()
}

// Feedback is the user-visible status channel.
type Feedback interface {
	Notify(ctx context.Context, text string)
	CueSleep(ctx context.Context)
	CueWake(ctx context.Context)
	CueReject(ctx context.Context)
}

// Microphone applies listening-state side effects outside the process.
type Microphone interface {
	Sleep(ctx context.Context) error
	Wake(ctx context.Context) error
}

type noopFeedback struct{}

func (noopFeedback) Notify(context.Context, string) {}
func (noopFeedback) CueSleep(context.Context)       {}
func (noopFeedback) CueWake(context.Context)        {}
func (noopFeedback) CueReject(context.Context)      {}

type noopMicrophone struct{}

func (noopMicrophone) Sleep(context.Context) error { return nil }
func (noopMicrophone) Wake(context.Context) error  { return nil }

// Options tunes the controller.
type Options struct {
	MaxPasses   int
	StartAsleep bool
}

// Controller serializes phrase dispatch and listening-state changes.
type Controller struct {
	logger   *slog.Logger
	resolver *resolve.Resolver
	output   Output
	feedback Feedback
	mic      Microphone

	maxPasses int

	mu    sync.RWMutex
	state fsm.State

	jobs     chan job
	done     chan struct{}
	doneOnce sync.Once
}

type job struct {
	ctx   context.Context
	req   ipc.Request
	reply chan ipc.Response
}

// NewController constructs a controller with no-op fallbacks for optional collaborators.
func NewController(
	logger *slog.Logger,
	resolver *resolve.Resolver,
	output Output,
	feedback Feedback,
	mic Microphone,
	opts Options,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if feedback == nil {
		feedback = noopFeedback{}
	}
	if mic == nil {
		mic = noopMicrophone{}
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}

	state := fsm.StateListening
	if opts.StartAsleep {
		state = fsm.StateSleeping
	}

	return &Controller{
		logger:    logger,
		resolver:  resolver,
		output:    output,
		feedback:  feedback,
		mic:       mic,
		maxPasses: opts.MaxPasses,
		state:     state,
		jobs:      make(chan job),
		done:      make(chan struct{}),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run consumes queued requests until ctx is cancelled or a stop request is served.
func (c *Controller) Run(ctx context.Context) error {
	defer c.doneOnce.Do(func() { close(c.done) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-c.jobs:
			j.reply <- c.execute(j.ctx, j.req)
			if j.req.Command == ipc.CommandStop {
				return nil
			}
		}
	}
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Handle serves one IPC request. Everything except status waits for the dispatch loop.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case ipc.CommandPhrase, ipc.CommandSleep, ipc.CommandWake, ipc.CommandToggle, ipc.CommandStop:
		return c.submit(ctx, req)
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) submit(ctx context.Context, req ipc.Request) ipc.Response {
	j := job{ctx: ctx, req: req, reply: make(chan ipc.Response, 1)}

	select {
	case c.jobs <- j:
	case <-c.done:
		return ipc.Response{OK: false, State: string(c.State()), Error: ErrStopped.Error()}
	case <-ctx.Done():
		return ipc.Response{OK: false, State: string(c.State()), Error: ctx.Err().Error()}
	}

	select {
	case resp := <-j.reply:
		return resp
	case <-ctx.Done():
		return ipc.Response{OK: false, State: string(c.State()), Error: ctx.Err().Error()}
	}
}

func (c *Controller) execute(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandPhrase:
		return c.handlePhrase(ctx, req)
	case ipc.CommandSleep:
		return c.stateResponse(c.Sleep(ctx), "sleeping")
	case ipc.CommandWake:
		return c.stateResponse(c.Wake(ctx), "listening")
	case ipc.CommandToggle:
		if c.State() == fsm.StateSleeping {
			return c.stateResponse(c.Wake(ctx), "listening")
		}
		return c.stateResponse(c.Sleep(ctx), "sleeping")
	case ipc.CommandStop:
		return ipc.Response{OK: true, State: string(c.State()), Message: "stopping"}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) handlePhrase(ctx context.Context, req ipc.Request) ipc.Response {
	phrase := strings.TrimSpace(req.Text)
	if phrase == "" {
		return ipc.Response{OK: false, State: string(c.State()), Error: "phrase text is required"}
	}

	result, err := c.Dispatch(ctx, phrase)
	resp := ipc.Response{State: string(c.State()), Operations: result.OperationStrings()}
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.OK = true
	resp.Message = result.Summary()
	return resp
}

func (c *Controller) stateResponse(err error, message string) ipc.Response {
	if err != nil {
		return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
	}
	return ipc.Response{OK: true, State: string(c.State()), Message: message}
}

// Sleep moves the recognizer to sleeping and applies microphone side effects.
// Sleeping twice is not an error.
func (c *Controller) Sleep(ctx context.Context) error {
	if c.State() == fsm.StateSleeping {
		return nil
	}
	if err := c.transition(fsm.EventSleep); err != nil {
		return err
	}
	if err := c.mic.Sleep(ctx); err != nil {
		c.logger.Warn("microphone sleep failed", "error", err.Error())
	}
	c.feedback.CueSleep(ctx)
	c.logger.Info("recognizer sleeping")
	return nil
}

// Wake returns the recognizer to listening.
func (c *Controller) Wake(ctx context.Context) error {
	if c.State() != fsm.StateSleeping {
		return nil
	}
	if err := c.transition(fsm.EventWake); err != nil {
		return err
	}
	if err := c.mic.Wake(ctx); err != nil {
		c.logger.Warn("microphone wake failed", "error", err.Error())
	}
	c.feedback.CueWake(ctx)
	c.logger.Info("recognizer listening")
	return nil
}

func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}
