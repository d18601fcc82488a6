package onboard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	jerrors "github.com/CodedInternet/gojacobian/onboard/errors"
)

type Direction uint8

const (
	DirectionForward Direction = iota
	DirectionBackward
)

// ParseDirection accepts exactly "f" or "b".
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "f":
		return DirectionForward, true
	case "b":
		return DirectionBackward, true
	}
	return DirectionForward, false
}

func (d Direction) String() string {
	if d == DirectionBackward {
		return "backwards"
	}
	return "forward"
}

// ReversalState is the drivetrain's reverse latch. It only changes through
// Drive; nothing else may set it.
type ReversalState int32

const (
	StateForwardOrIdle ReversalState = iota
	StateBraking
	StateReverse
)

func (s ReversalState) String() string {
	switch s {
	case StateBraking:
		return "BRAKING"
	case StateReverse:
		return "REVERSE"
	default:
		return "FORWARD_OR_IDLE"
	}
}

func (s ReversalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ReversalState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "FORWARD_OR_IDLE":
		*s = StateForwardOrIdle
	case "BRAKING":
		*s = StateBraking
	case "REVERSE":
		*s = StateReverse
	default:
		return fmt.Errorf("unknown reversal state %q", text)
	}
	return nil
}

// Drivetrain turns drive and steer intents into duty cycles on the two PWM
// channels. Sequences are serialized by lock; holds inside them never touch the
// channel locks, so the actuation loop keeps ticking through a brake.
type Drivetrain struct {
	lock     *sync.Mutex
	drive    *PWM
	steer    *PWM
	tuning   DriveTuning
	steering SteerTuning
	state    atomic.Int32
	sleep    Sleeper
	log      *slog.Logger
}

func NewDrivetrain(drive, steer *PWM, config JacobianConfig, log *slog.Logger) *Drivetrain {
	return &Drivetrain{
		lock:     new(sync.Mutex),
		drive:    drive,
		steer:    steer,
		tuning:   config.Drive,
		steering: config.Steer,
		sleep:    Sleep,
		log:      log,
	}
}

// SetSleeper replaces the hold primitive, mainly for tests.
func (d *Drivetrain) SetSleeper(s Sleeper) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.sleep = s
}

func (d *Drivetrain) State() ReversalState {
	return ReversalState(d.state.Load())
}

func (d *Drivetrain) DriveChannel() *PWM { return d.drive }
func (d *Drivetrain) SteerChannel() *PWM { return d.steer }

func (d *Drivetrain) setDrivePulse(pulse time.Duration) {
	d.drive.SetDutyCycle(DutyCycleFromPulseWidth(d.drive.Frequency(), pulse))
}

// Drive applies percent (clamped to 0-100) of full throttle in dir. Going
// backwards from FORWARD_OR_IDLE first runs the reverse arming sequence; going
// forward from REVERSE just clears the latch. NaN is refused before anything
// moves.
func (d *Drivetrain) Drive(ctx context.Context, dir Direction, percent float64) error {
	if math.IsNaN(percent) {
		return jerrors.ParseError{Command: "drive", Reason: "percentage must be a number"}
	}
	d.lock.Lock()
	defer d.lock.Unlock()

	percent = clamp(percent, 0, 100)
	switch dir {
	case DirectionForward:
		if d.State() == StateReverse {
			d.state.Store(int32(StateForwardOrIdle))
		}
	case DirectionBackward:
		if d.State() != StateReverse {
			if err := d.armReverse(ctx); err != nil {
				return err
			}
		}
	}

	pulse := DrivePulse(d.tuning, dir, percent)
	d.setDrivePulse(pulse)
	d.log.Debug("the vehicle is now moving", "tag", "Success", "direction", dir,
		"percent", percent, "pulse_ms", ms(pulse))
	return nil
}

// armReverse is the neutral-then-arm pattern ESCs need before they accept
// reverse throttle. On cancellation the drive is left at neutral and the latch
// is not set.
func (d *Drivetrain) armReverse(ctx context.Context) error {
	d.state.Store(int32(StateBraking))
	d.log.Debug("beginning break routine", "tag", "Break routine")

	d.setDrivePulse(d.tuning.Brake)
	d.log.Debug("holding break", "tag", "Break routine", "hold", d.tuning.BrakeHold)
	if err := d.sleep(ctx, d.tuning.BrakeHold); err != nil {
		return d.abortReverse(err)
	}

	d.setDrivePulse(d.tuning.Arm)
	d.log.Debug("pulsing reset", "tag", "Break routine", "hold", d.tuning.ArmHold)
	if err := d.sleep(ctx, d.tuning.ArmHold); err != nil {
		return d.abortReverse(err)
	}

	d.state.Store(int32(StateReverse))
	d.log.Debug("break routine finished", "tag", "Break routine")
	return nil
}

func (d *Drivetrain) abortReverse(err error) error {
	d.setDrivePulse(d.tuning.Neutral)
	d.state.Store(int32(StateForwardOrIdle))
	return err
}

// Brake stops the vehicle without touching the latch. Forward idle and reverse
// idle have different neutral points, so each has its own brake/idle pair. The
// idle pulse is applied even if the hold is cancelled.
func (d *Drivetrain) Brake(ctx context.Context) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	brake, idle := d.tuning.StopForwardBrake, d.tuning.StopForwardIdle
	if d.State() == StateReverse {
		brake, idle = d.tuning.StopReverseBrake, d.tuning.StopReverseIdle
	}

	d.setDrivePulse(brake)
	err := d.sleep(ctx, d.tuning.StopHold)
	d.setDrivePulse(idle)

	d.log.Debug("the vehicle has stopped moving", "tag", "Success", "latch", d.State())
	return err
}

// Steer sets the servo to micros microseconds of pulse, clamped to the
// configured travel, and returns the applied pulse.
func (d *Drivetrain) Steer(micros int) time.Duration {
	d.lock.Lock()
	defer d.lock.Unlock()

	pulse := SteerPulse(d.steering, micros)
	d.steer.SetDutyCycle(DutyCycleFromPulseWidth(d.steer.Frequency(), pulse))
	d.log.Debug("the steering pulse width is now set", "tag", "Success", "pulse_ms", ms(pulse))
	return pulse
}

// Center returns the steering to its rest position.
func (d *Drivetrain) Center() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.steer.SetDutyCycle(DutyCycleFromPulseWidth(d.steer.Frequency(), d.steering.Center))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
