package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/voxkeys/internal/fsm"
	"github.com/rbright/voxkeys/internal/grammar"
	"github.com/rbright/voxkeys/internal/ipc"
	"github.com/rbright/voxkeys/internal/keys"
	"github.com/rbright/voxkeys/internal/resolve"
	"github.com/stretchr/testify/require"
)

type fakeOutput struct {
	mu        sync.Mutex
	pending   []string
	flushed   []string
	failOn    string
	flushErr  error
	discarded int
}

func (f *fakeOutput) TypeText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && text == f.failOn {
		return errors.New("inject failed")
	}
	f.pending = append(f.pending, "text:"+text)
	return nil
}

func (f *fakeOutput) SendKey(_ context.Context, stroke keys.Stroke) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, "key:"+stroke.String())
	return nil
}

func (f *fakeOutput) Flush(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flushErr != nil {
		return f.flushErr
	}
	f.flushed = append(f.flushed, f.pending...)
	f.pending = nil
	return nil
}

func (f *fakeOutput) Discard() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = nil
	f.discarded++
}

func (f *fakeOutput) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.flushed))
	copy(out, f.flushed)
	return out
}

type fakeFeedback struct {
	mu         sync.Mutex
	messages   []string
	sleepCues  atomic.Int32
	wakeCues   atomic.Int32
	rejectCues atomic.Int32
}

func (f *fakeFeedback) Notify(_ context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
}
func (f *fakeFeedback) CueSleep(context.Context)  { f.sleepCues.Add(1) }
func (f *fakeFeedback) CueWake(context.Context)   { f.wakeCues.Add(1) }
func (f *fakeFeedback) CueReject(context.Context) { f.rejectCues.Add(1) }

type fakeMicrophone struct {
	sleeps   atomic.Int32
	wakes    atomic.Int32
	sleepErr error
}

func (f *fakeMicrophone) Sleep(context.Context) error {
	f.sleeps.Add(1)
	return f.sleepErr
}

func (f *fakeMicrophone) Wake(context.Context) error {
	f.wakes.Add(1)
	return nil
}

func testResolver(t *testing.T, doc string) *resolve.Resolver {
	t.Helper()
	sources, err := grammar.BuiltinSources()
	require.NoError(t, err)
	if doc != "" {
		sources = append([]grammar.Source{{Name: "test.yaml", Data: []byte(doc)}}, sources...)
	}
	g, err := grammar.Parse(sources, "")
	require.NoError(t, err)
	return resolve.New(g)
}

func newTestController(t *testing.T, doc string, opts Options) (*Controller, *fakeOutput, *fakeFeedback, *fakeMicrophone) {
	t.Helper()
	out := &fakeOutput{}
	fb := &fakeFeedback{}
	mic := &fakeMicrophone{}
	return NewController(nil, testResolver(t, doc), out, fb, mic, opts), out, fb, mic
}

func TestDispatchWindowScenarioOrder(t *testing.T) {
	ctrl, out, _, _ := newTestController(t, "", Options{})

	result, err := ctrl.Dispatch(context.Background(), "window 3")
	require.NoError(t, err)
	require.Equal(t, []string{"key:win:down/3", "text:3", "key:win:up"}, out.sent())
	require.Equal(t, []string{"key win:down/3", `text "3"`, "key win:up"}, result.OperationStrings())
	require.Equal(t, fsm.StateListening, ctrl.State())
}

func TestDispatchRedispatchesRemainingWords(t *testing.T) {
	ctrl, out, _, _ := newTestController(t, "", Options{})

	result, err := ctrl.Dispatch(context.Background(), "word hello down 3 times")
	require.NoError(t, err)
	require.Len(t, result.Passes, 2)
	require.Equal(t, "word <text>", result.Passes[0].Pattern)
	require.Equal(t, "down 3 times", result.Passes[1].Phrase)
	require.Equal(t, "down [<n> times]", result.Passes[1].Pattern)
	require.Equal(t, []string{"text:hello", "key:down:3"}, out.sent())
	require.Equal(t, fsm.StateListening, ctrl.State())
}

func TestDispatchDropsUnmatchedRedispatch(t *testing.T) {
	ctrl, out, _, _ := newTestController(t, "", Options{})

	result, err := ctrl.Dispatch(context.Background(), "word hello zorblax")
	require.NoError(t, err)
	require.Len(t, result.Passes, 2)
	require.ErrorIs(t, result.Passes[1].Err, grammar.ErrNoMatch)
	require.Equal(t, []string{"text:hello"}, out.sent())
}

func TestDispatchUnmatchedPhrase(t *testing.T) {
	ctrl, out, _, _ := newTestController(t, "", Options{})

	_, err := ctrl.Dispatch(context.Background(), "sing me a song")
	require.ErrorIs(t, err, grammar.ErrNoMatch)
	require.Empty(t, out.sent())
	require.Equal(t, fsm.StateListening, ctrl.State())
}

func TestDispatchCancelAndSleepDropsPendingWords(t *testing.T) {
	ctrl, out, fb, mic := newTestController(t, `
slots:
  text: {type: dictation}
rules:
  - say: nap then <text>
    do:
      - {call: cancel_and_sleep}
      - {call: dictate_words, slot: text}
`, Options{})

	result, err := ctrl.Dispatch(context.Background(), "nap then one two three")
	require.NoError(t, err)
	require.Equal(t, fsm.StateSleeping, ctrl.State())
	require.Equal(t, []string{"two three"}, result.Dropped)
	require.Equal(t, []string{"text:one"}, out.sent())
	require.Equal(t, []string{resolve.SleepMessage}, fb.messages)
	require.Equal(t, int32(1), mic.sleeps.Load())
	require.Equal(t, int32(1), fb.sleepCues.Load())

	_, err = ctrl.Dispatch(context.Background(), "home")
	require.ErrorIs(t, err, ErrSleeping)
	require.Equal(t, int32(1), fb.rejectCues.Load())
}

func TestDispatchOutputFailureAbortsPhrase(t *testing.T) {
	ctrl, out, _, _ := newTestController(t, "", Options{})
	out.failOn = "3"

	result, err := ctrl.Dispatch(context.Background(), "window 3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "inject failed")
	require.Empty(t, out.sent())
	require.Equal(t, 1, out.discarded)
	require.Equal(t, []string{"key win:down/3"}, result.OperationStrings())
	require.Equal(t, fsm.StateListening, ctrl.State())
}

func TestDispatchFlushFailure(t *testing.T) {
	ctrl, out, _, _ := newTestController(t, "", Options{})
	out.flushErr = errors.New("wtype exited 1")

	_, err := ctrl.Dispatch(context.Background(), "home")
	require.Error(t, err)
	require.Contains(t, err.Error(), "flush output")
	require.Equal(t, 1, out.discarded)
	require.Equal(t, fsm.StateListening, ctrl.State())
}

func TestDispatchFailureAfterSleepStaysAsleep(t *testing.T) {
	ctrl, out, _, mic := newTestController(t, `
rules:
  - say: quit now
    do:
      - {text: bye}
      - {call: cancel_and_sleep}
`, Options{})
	out.flushErr = errors.New("wtype died")

	_, err := ctrl.Dispatch(context.Background(), "quit now")
	require.Error(t, err)
	require.Contains(t, err.Error(), "flush output: wtype died")
	require.Equal(t, fsm.StateSleeping, ctrl.State())
	require.Equal(t, int32(1), mic.sleeps.Load())

	out.flushErr = nil
	require.NoError(t, ctrl.Wake(context.Background()))
	require.Equal(t, fsm.StateListening, ctrl.State())
	require.Equal(t, int32(1), mic.wakes.Load())
}

func TestDispatchRedispatchLimit(t *testing.T) {
	ctrl, _, _, _ := newTestController(t, `
slots:
  text: {type: dictation}
rules:
  - say: again <text>
    do: [{call: dictate_words, slot: text}]
`, Options{MaxPasses: 3})

	result, err := ctrl.Dispatch(context.Background(), "again again again again again again again again again again")
	require.ErrorIs(t, err, ErrRedispatchLimit)
	require.Len(t, result.Passes, 3)
	require.Equal(t, []string{"again again again again"}, result.Dropped)
	require.Equal(t, fsm.StateListening, ctrl.State())
}

func TestMicrophoneErrorsAreNotFatal(t *testing.T) {
	ctrl, _, fb, mic := newTestController(t, "", Options{})
	mic.sleepErr = errors.New("pulse unavailable")

	require.NoError(t, ctrl.Sleep(context.Background()))
	require.Equal(t, fsm.StateSleeping, ctrl.State())
	require.Equal(t, int32(1), fb.sleepCues.Load())

	require.NoError(t, ctrl.Sleep(context.Background()))
	require.Equal(t, int32(1), mic.sleeps.Load())

	require.NoError(t, ctrl.Wake(context.Background()))
	require.Equal(t, fsm.StateListening, ctrl.State())
	require.Equal(t, int32(1), mic.wakes.Load())
}

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	ctrl, _, _, _ := newTestController(t, "", Options{StartAsleep: true})

	status := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateSleeping), status.State)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleThroughRunLoop(t *testing.T) {
	ctrl, out, _, _ := newTestController(t, "", Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- ctrl.Run(ctx)
	}()

	resp := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandPhrase, Text: "down 5 times"})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, []string{"key down:5"}, resp.Operations)
	require.Equal(t, "matched down [<n> times]", resp.Message)
	require.Equal(t, []string{"key:down:5"}, out.sent())

	resp = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandPhrase, Text: "  "})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "phrase text is required")

	resp = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandToggle})
	require.True(t, resp.OK)
	require.Equal(t, "sleeping", resp.State)

	resp = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandPhrase, Text: "home"})
	require.False(t, resp.OK)
	require.Equal(t, ErrSleeping.Error(), resp.Error)

	resp = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandWake})
	require.True(t, resp.OK)
	require.Equal(t, "listening", resp.State)

	resp = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	require.True(t, resp.OK)
	require.Equal(t, "stopping", resp.Message)

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop")
	}

	resp = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandSleep})
	require.False(t, resp.OK)
	require.Equal(t, ErrStopped.Error(), resp.Error)
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	ctrl, _, _, _ := newTestController(t, "", Options{})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- ctrl.Run(ctx)
	}()

	cancel()
	require.NoError(t, <-runDone)
	<-ctrl.Done()
}
