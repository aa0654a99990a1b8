// Package feedback shows status notifications and plays audio cues for listening-state changes.
package feedback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/rbright/voxkeys/internal/config"
	"github.com/rbright/voxkeys/internal/hypr"
)

// Notifier routes notifications to Hyprland, freedesktop DBus or beeep based on config backend.
type Notifier struct {
	cfg      config.FeedbackConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex

	beep func(title, message, icon string) error
	cue  func(ctx context.Context, kind cueKind, cfg config.FeedbackConfig) error
}

// NewNotifier creates a notifier from config.
func NewNotifier(cfg config.FeedbackConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: messagesFromEnv(),
		beep:     beeep.Notify,
		cue:      emitCue,
	}
}

// Notify shows text through the configured backend. Every notification is logged.
func (n *Notifier) Notify(ctx context.Context, text string) {
	if n.logger != nil {
		n.logger.Info("feedback", "text", text)
	}
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 1, n.timeoutMS(), "rgb(89b4fa)", text)
	})
}

// CueSleep plays the sleep cue.
func (n *Notifier) CueSleep(context.Context) {
	n.playCue(cueSleep)
}

// CueWake plays the wake cue and replaces any sleep notice with a short listening notice.
func (n *Notifier) CueWake(ctx context.Context) {
	n.playCue(cueWake)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		if err := n.dismiss(ctx); err != nil {
			return err
		}
		return n.notify(ctx, 5, n.timeoutMS(), "rgb(a6e3a1)", n.messages.listening)
	})
}

// CueReject plays the reject cue and reminds the user the recognizer is asleep.
func (n *Notifier) CueReject(ctx context.Context) {
	n.playCue(cueReject)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 3, n.timeoutMS(), "rgb(f38ba8)", n.messages.asleep)
	})
}

func (n *Notifier) timeoutMS() int {
	if n.cfg.TimeoutMS <= 0 {
		return 1200
	}
	return n.cfg.TimeoutMS
}

// notify dispatches output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	switch n.cfg.Backend {
	case "desktop":
		return n.notifyDesktop(ctx, timeoutMS, text)
	case "beeep":
		return n.beep(n.appName(), text, "")
	default:
		return hypr.Notify(ctx, icon, timeoutMS, color, text)
	}
}

// dismiss removes notification output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	switch n.cfg.Backend {
	case "desktop":
		return n.dismissDesktop(ctx)
	case "beeep":
		return nil
	default:
		return hypr.DismissNotify(ctx)
	}
}

func (n *Notifier) appName() string {
	if n.cfg.DesktopAppName == "" {
		return "voxkeys"
	}
	return n.cfg.DesktopAppName
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	id, err := desktopNotify(ctx, n.appName(), replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes a notification with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("feedback dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := n.cue(ctx, kind, n.cfg); err != nil {
			n.log("feedback audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
