package onboard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/CodedInternet/gojacobian/onboard/hardware"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1500000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// recordingSleeper never blocks. It records each hold along with the drive
// duty cycle in force when the hold began.
type recordingSleeper struct {
	lock  sync.Mutex
	drive *PWM
	holds []time.Duration
	duty  []float64
	fail  error
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.holds = append(r.holds, d)
	if r.drive != nil {
		r.duty = append(r.duty, r.drive.DutyCycle())
	}
	return r.fail
}

// newTestRig builds a controller on the simulator with the default pinout.
func newTestRig() (*hardware.Simulator, *Controller, *Drivetrain) {
	config := DefaultConfig()
	sim := hardware.NewSimulator()
	ctrl, err := NewController(config.Name, sim, discardLogger())
	if err != nil {
		panic(err)
	}
	for _, pin := range config.Pins {
		if err := ctrl.ConfigurePin(pin.ID, pin.Name, pin.Mode, pin.Pull); err != nil {
			panic(err)
		}
	}
	drive := NewPWM(config.Frequency, DutyCycleFromPulseWidth(config.Frequency, config.Drive.Neutral))
	steer := NewPWM(config.Frequency, DutyCycleFromPulseWidth(config.Frequency, config.Steer.Center))
	return sim, ctrl, NewDrivetrain(drive, steer, config, discardLogger())
}
