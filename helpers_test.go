package main

import (
	"io"
	"io/ioutil"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/CodedInternet/gojacobian/onboard"
	"github.com/CodedInternet/gojacobian/onboard/command"
	"github.com/CodedInternet/gojacobian/onboard/hardware"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type session struct {
	sim        *hardware.Simulator
	ctrl       *onboard.Controller
	train      *onboard.Drivetrain
	dispatcher *command.Dispatcher
}

func newSession() *session {
	config := onboard.DefaultConfig()
	log := discardLogger()
	sim := hardware.NewSimulator()
	ctrl, err := onboard.NewController(config.Name, sim, log)
	if err != nil {
		panic(err)
	}
	for _, pin := range config.Pins {
		ctrl.ConfigurePin(pin.ID, pin.Name, pin.Mode, pin.Pull)
	}
	drive := onboard.NewPWM(config.Frequency, onboard.DutyCycleFromPulseWidth(config.Frequency, config.Drive.Neutral))
	steer := onboard.NewPWM(config.Frequency, onboard.DutyCycleFromPulseWidth(config.Frequency, config.Steer.Center))
	train := onboard.NewDrivetrain(drive, steer, config, log)
	return &session{
		sim:        sim,
		ctrl:       ctrl,
		train:      train,
		dispatcher: command.NewDispatcher(ctrl, train, new(slog.LevelVar), log, io.Discard),
	}
}

func tempJournal() (*Journal, func()) {
	dir, err := ioutil.TempDir("", "journal")
	if err != nil {
		panic(err)
	}
	j, err := openJournal(filepath.Join(dir, "db", "journal.db"), discardLogger())
	if err != nil {
		panic(err)
	}
	return j, func() {
		j.Close()
		os.RemoveAll(dir)
	}
}
