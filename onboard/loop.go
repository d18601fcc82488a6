package onboard

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

// timers resolve at roughly this granularity, so the last stretch of every
// interval is spent yielding instead
const spinThreshold = time.Millisecond

// Loop is the actuation activity. Each iteration ticks both channels and,
// unless the controller is overridden, writes their state to the drive and
// steer pins. It never waits on command input.
type Loop struct {
	ctrl     *Controller
	train    *Drivetrain
	interval time.Duration
	sleep    Sleeper
	log      *slog.Logger

	ticks    atomic.Uint64
	errLimit *rate.Limiter
}

func NewLoop(ctrl *Controller, train *Drivetrain, interval time.Duration, log *slog.Logger) *Loop {
	return &Loop{
		ctrl:     ctrl,
		train:    train,
		interval: interval,
		sleep:    Sleep,
		log:      log,
		errLimit: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Ticks is the number of completed iterations.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// Run iterates until the controller stops running or ctx is done, then resets
// every pin through Controller.Shutdown and returns its result.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("actuation loop started", "tag", "Success", "interval", l.interval)
	for l.ctrl.IsRunning() {
		deadline := time.Now().Add(l.interval)
		l.step()
		l.ticks.Add(1)

		if err := l.wait(ctx, deadline); err != nil {
			break
		}
	}
	l.log.Info("actuation loop stopped", "tag", "Success", "ticks", l.Ticks())
	return l.ctrl.Shutdown()
}

// wait returns at deadline or when ctx is done. Only the part of the wait above
// spinThreshold goes through the Sleeper.
func (l *Loop) wait(ctx context.Context, deadline time.Time) error {
	if remaining := time.Until(deadline); remaining > spinThreshold {
		if err := l.sleep(ctx, remaining-spinThreshold); err != nil {
			return err
		}
	}
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return ctx.Err()
}

func (l *Loop) step() {
	drive, steer := l.train.DriveChannel(), l.train.SteerChannel()
	drive.Tick()
	steer.Tick()

	// the override line is held high while we are in control and dropped when
	// the operator takes over
	var err error
	if l.ctrl.IsOverridden() {
		err = l.ensureOverridePin(false)
	} else {
		err = multierr.Combine(
			l.ensureOverridePin(true),
			l.ctrl.SetDigitalOutput(PIN_DRIVE, drive.Eval()),
			l.ctrl.SetDigitalOutput(PIN_STEER, steer.Eval()),
		)
	}
	if err != nil && l.errLimit.Allow() {
		l.log.Error("actuation write failed", "tag", "Error", "err", err)
	}
}

// ensureOverridePin reads before it writes so the pin is only touched when its
// level has to change.
func (l *Loop) ensureOverridePin(high bool) error {
	level, err := l.ctrl.ReadDigitalInput(PIN_OVERRIDE)
	if err != nil {
		return err
	}
	if level == high {
		return nil
	}
	return l.ctrl.SetDigitalOutput(PIN_OVERRIDE, high)
}
