// Package app maps parsed CLI commands onto the daemon, the IPC client, and the diagnostics.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/voxkeys/internal/audio"
	"github.com/rbright/voxkeys/internal/cli"
	"github.com/rbright/voxkeys/internal/config"
	"github.com/rbright/voxkeys/internal/doctor"
	"github.com/rbright/voxkeys/internal/engine"
	"github.com/rbright/voxkeys/internal/feedback"
	"github.com/rbright/voxkeys/internal/grammar"
	"github.com/rbright/voxkeys/internal/hotkey"
	"github.com/rbright/voxkeys/internal/ipc"
	"github.com/rbright/voxkeys/internal/keys"
	"github.com/rbright/voxkeys/internal/logging"
	"github.com/rbright/voxkeys/internal/mic"
	"github.com/rbright/voxkeys/internal/output"
	"github.com/rbright/voxkeys/internal/recognizer"
	"github.com/rbright/voxkeys/internal/resolve"
	"github.com/rbright/voxkeys/internal/version"
)

const (
	probeTimeout   = 220 * time.Millisecond
	forwardTimeout = 5 * time.Second
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voxkeys"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voxkeys"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	case cli.CommandSay:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandPhrase, Text: parsed.Phrase})
	case cli.CommandResolve:
		return r.commandResolve(ctx, cfgLoaded.Config, parsed.Phrase, logger)
	case cli.CommandSleep:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandSleep})
	case cli.CommandWake:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandWake})
	case cli.CommandToggle:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandToggle})
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStop})
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandRules:
		return r.commandRules(cfgLoaded.Config)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func loadGrammar(cfg config.GrammarConfig) (*grammar.Grammar, error) {
	return grammar.Load(grammar.Options{
		Builtin:         cfg.Builtin,
		Files:           cfg.Files,
		UppercasePrefix: cfg.UppercasePrefix,
	})
}

// commandServe owns the socket and runs the dispatch loop until stopped or signalled.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	g, err := loadGrammar(cfg.Grammar)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: load grammar: %v\n", err)
		logger.Error("load grammar failed", "error", err.Error())
		return 1
	}

	injector, err := output.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	micCtl := mic.New(cfg.Microphone, logger)
	controller := engine.NewController(
		logger,
		resolve.New(g),
		injector,
		feedback.NewNotifier(cfg.Feedback, logger),
		micCtl,
		engine.Options{MaxPasses: cfg.Grammar.MaxPasses, StartAsleep: cfg.Microphone.StartAsleep},
	)

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{Retries: 8, Logger: logger})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	if cfg.Microphone.StartAsleep {
		if err := micCtl.Sleep(ctx); err != nil {
			logger.Warn("microphone sleep failed", "error", err.Error())
		}
	}

	if strings.TrimSpace(cfg.Recognizer.GRPC) != "" {
		r.logRecognizer(ctx, cfg.Recognizer, logger)
	}

	if cfg.Hotkey.Enable {
		hk, err := hotkey.NewListener(cfg.Hotkey.Binding, func(ctx context.Context) {
			resp := controller.Handle(ctx, ipc.Request{ID: uuid.NewString(), Command: ipc.CommandToggle})
			if !resp.OK {
				logger.Warn("hotkey toggle failed", "error", resp.Error)
			}
		}, logger)
		if err == nil {
			err = hk.Start(ctx)
		}
		if err != nil {
			fmt.Fprintf(r.Stderr, "warning: hotkey disabled: %v\n", err)
			logger.Warn("hotkey disabled", "binding", cfg.Hotkey.Binding, "error", err.Error())
		} else {
			defer hk.Stop()
		}
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	logger.Info("daemon started",
		"socket", socketPath,
		"state", controller.State(),
		"rules", len(g.Entries()),
		"backend", cfg.Output.Backend,
	)
	fmt.Fprintf(r.Stdout, "voxkeys %s on %s\n", controller.State(), socketPath)

	runErr := controller.Run(ctx)
	injector.Discard()
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	if runErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	}

	logger.Info("daemon stopped")
	return 0
}

// logRecognizer reports recognizer health at startup. An unhealthy recognizer is not fatal.
func (r Runner) logRecognizer(ctx context.Context, cfg config.RecognizerConfig, logger *slog.Logger) {
	status, err := recognizer.Probe(ctx, cfg.GRPC, cfg.Service, time.Duration(cfg.TimeoutMS)*time.Millisecond)
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: recognizer: %v\n", err)
		logger.Warn("recognizer health failed", "endpoint", cfg.GRPC, "error", err.Error())
		return
	}
	logger.Info("recognizer healthy",
		"endpoint", status.Endpoint,
		"state", status.State,
		"latency_ms", status.Latency.Milliseconds(),
	)
}

// commandResolve runs phrase through the grammar without touching the focused window.
func (r Runner) commandResolve(ctx context.Context, cfg config.Config, phrase string, logger *slog.Logger) int {
	g, err := loadGrammar(cfg.Grammar)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: load grammar: %v\n", err)
		return 1
	}

	controller := engine.NewController(
		logger,
		resolve.New(g),
		dryRunOutput{},
		nil,
		nil,
		engine.Options{MaxPasses: cfg.Grammar.MaxPasses},
	)

	result, err := controller.Dispatch(ctx, phrase)
	for i, pass := range result.Passes {
		if pass.Pattern == "" {
			fmt.Fprintf(r.Stdout, "pass %d: %q (no match)\n", i+1, pass.Phrase)
			continue
		}
		fmt.Fprintf(r.Stdout, "pass %d: %q -> %q [%s]\n", i+1, pass.Phrase, pass.Pattern, pass.Source)
		for _, op := range pass.Operations[:pass.Executed] {
			fmt.Fprintf(r.Stdout, "  %s\n", op)
		}
	}
	for _, dropped := range result.Dropped {
		fmt.Fprintf(r.Stdout, "dropped: %q\n", dropped)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// dryRunOutput accepts every operation without injecting it.
type dryRunOutput struct{}

func (dryRunOutput) TypeText(context.Context, string) error     { return nil }
func (dryRunOutput) SendKey(context.Context, keys.Stroke) error { return nil }
func (dryRunOutput) Flush(context.Context) error                { return nil }
func (dryRunOutput) Discard()                                   {}

func (r Runner) commandRules(cfg config.Config) int {
	g, err := loadGrammar(cfg.Grammar)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: load grammar: %v\n", err)
		return 1
	}

	for _, entry := range g.Entries() {
		fmt.Fprintf(r.Stdout, "%-32s %s\n", entry.Pattern, entry.Source)
	}
	for _, name := range g.TableNames() {
		table, _ := g.Table(name)
		fmt.Fprintf(r.Stdout, "table %s: %d entries\n", name, table.Len())
	}
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, probeTimeout)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "stopped"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "stopped")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req, forwardTimeout)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: voxkeys daemon is not running\n")
		return 1
	}
	for _, op := range resp.Operations {
		fmt.Fprintf(r.Stdout, "  %s\n", op)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
