// Package mic applies the sleeping/listening side effects outside the process:
// muting the capture source and switching the Hyprland submap.
package mic

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rbright/voxkeys/internal/audio"
	"github.com/rbright/voxkeys/internal/config"
	"github.com/rbright/voxkeys/internal/hypr"
)

// Controller implements the sleep and wake side effects selected by config.
type Controller struct {
	cfg    config.MicrophoneConfig
	logger *slog.Logger
	submap hypr.Controller
	mute   func(ctx context.Context, source string, mute bool) (audio.Device, error)
}

// New constructs a microphone controller.
func New(cfg config.MicrophoneConfig, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logger,
		submap: hypr.CLIController{},
		mute:   audio.SetMute,
	}
}

// Sleep mutes the source and enters the sleep submap when configured.
func (c *Controller) Sleep(ctx context.Context) error {
	return c.apply(ctx, true)
}

// Wake reverses Sleep.
func (c *Controller) Wake(ctx context.Context) error {
	return c.apply(ctx, false)
}

func (c *Controller) apply(ctx context.Context, sleeping bool) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var errs []error
	if c.cfg.MuteOnSleep {
		device, err := c.mute(ctx, c.cfg.Source, sleeping)
		if err != nil {
			errs = append(errs, err)
		} else if c.logger != nil {
			c.logger.Debug("microphone mute set", "source", device.ID, "muted", sleeping)
		}
	}
	if c.cfg.SleepSubmap != "" {
		var err error
		if sleeping {
			err = c.submap.SetSubmap(ctx, c.cfg.SleepSubmap)
		} else {
			err = c.submap.ResetSubmap(ctx)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
