package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/CodedInternet/gojacobian/onboard"
	"github.com/CodedInternet/gojacobian/onboard/hardware"
)

type entry struct {
	source string
	line   string
	err    error
}

type memoryRecorder struct {
	lock    sync.Mutex
	entries []entry
}

func (r *memoryRecorder) Record(source, line string, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries = append(r.entries, entry{source, line, err})
}

func (r *memoryRecorder) Lines() (lines []string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, e := range r.entries {
		lines = append(lines, e.line)
	}
	return
}

type holdRecorder struct {
	lock  sync.Mutex
	holds []time.Duration
}

func (h *holdRecorder) Sleep(ctx context.Context, d time.Duration) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.holds = append(h.holds, d)
	return ctx.Err()
}

type rig struct {
	ctrl     *onboard.Controller
	train    *onboard.Drivetrain
	level    *slog.LevelVar
	out      *bytes.Buffer
	holds    *holdRecorder
	recorder *memoryRecorder
	d        *Dispatcher
}

func newRig() *rig {
	config := onboard.DefaultConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctrl, err := onboard.NewController(config.Name, hardware.NewSimulator(), log)
	if err != nil {
		panic(err)
	}
	for _, pin := range config.Pins {
		ctrl.ConfigurePin(pin.ID, pin.Name, pin.Mode, pin.Pull)
	}
	drive := onboard.NewPWM(config.Frequency, onboard.DutyCycleFromPulseWidth(config.Frequency, config.Drive.Neutral))
	steer := onboard.NewPWM(config.Frequency, onboard.DutyCycleFromPulseWidth(config.Frequency, config.Steer.Center))
	train := onboard.NewDrivetrain(drive, steer, config, log)

	r := &rig{
		ctrl:     ctrl,
		train:    train,
		level:    new(slog.LevelVar),
		out:      new(bytes.Buffer),
		holds:    new(holdRecorder),
		recorder: new(memoryRecorder),
	}
	train.SetSleeper(r.holds.Sleep)
	r.d = NewDispatcher(ctrl, train, r.level, log, r.out)
	r.d.SetRecorder(r.recorder)
	return r
}

func pulseDuty(pulse time.Duration) float64 {
	return onboard.DutyCycleFromPulseWidth(60, pulse)
}
