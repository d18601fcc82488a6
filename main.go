package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/CodedInternet/gojacobian/onboard"
	"github.com/CodedInternet/gojacobian/onboard/command"
	"github.com/CodedInternet/gojacobian/onboard/hardware"
	"github.com/caarlos0/env/v6"
)

type EnvConfig struct {
	CONFIG         string        `env:"JACOBIAN_CONFIG" envDefault:""`
	DEBUG          bool          `env:"DEBUG" envDefault:"false"`
	LOG_FORMAT     string        `env:"LOG_FORMAT" envDefault:"text"`
	LOG_OUTPUT     string        `env:"LOG_OUTPUT" envDefault:"stderr"`
	JOURNAL        string        `env:"JOURNAL" envDefault:"./tmp/journal.db"`
	LISTEN         string        `env:"LISTEN" envDefault:""`
	STATE_INTERVAL time.Duration `env:"STATE_INTERVAL" envDefault:"100ms"`
	NICE           int           `env:"NICE" envDefault:"0"`
}

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "Layout file (yaml), overrides JACOBIAN_CONFIG")
	simulated := flag.Bool("sim", false, "Run the controller against the simulated GPIO")
	plain := flag.Bool("plain", false, "Read commands line by line instead of the interactive shell")
	routine := flag.String("routine", "", "Run a routine script before the session starts")
	flag.Parse()

	cfg := new(EnvConfig)
	if err := env.Parse(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "unable to parse environment: %v\n", err)
		return 1
	}

	level := new(slog.LevelVar)
	if cfg.DEBUG {
		level.Set(slog.LevelDebug)
	}
	log, closeLog, err := newLogger(cfg.LOG_FORMAT, cfg.LOG_OUTPUT, level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	config := onboard.DefaultConfig()
	if *configFile == "" {
		*configFile = cfg.CONFIG
	}
	if *configFile != "" {
		if config, err = onboard.LoadConfig(*configFile); err != nil {
			log.Error("unable to load layout", "tag", "FATAL", "file", *configFile, "err", err)
			return 1
		}
	}
	if *simulated {
		config.Backend = "sim"
	}

	if err := onboard.RaisePriority(cfg.NICE); err != nil {
		log.Error("unable to raise scheduling priority", "tag", "Error", "nice", cfg.NICE, "err", err)
	}

	gpio, err := hardware.New(config.Backend, config.Chip)
	if err != nil {
		log.Error(err.Error(), "tag", "FATAL")
		return 1
	}
	ctrl, err := onboard.NewController(config.Name, gpio, log)
	if err != nil {
		log.Error(err.Error(), "tag", "FATAL", "backend", config.Backend)
		return 1
	}
	defer ctrl.Shutdown()

	for _, pin := range config.Pins {
		// failures are logged by the controller and leave the pin unregistered
		ctrl.ConfigurePin(pin.ID, pin.Name, pin.Mode, pin.Pull)
	}

	drive := onboard.NewPWM(config.Frequency, onboard.DutyCycleFromPulseWidth(config.Frequency, config.Drive.Neutral))
	steer := onboard.NewPWM(config.Frequency, onboard.DutyCycleFromPulseWidth(config.Frequency, config.Steer.Center))
	train := onboard.NewDrivetrain(drive, steer, config, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dispatcher := command.NewDispatcher(ctrl, train, level, log, os.Stdout)
	dispatcher.OnStop(cancel)

	var journal *Journal
	if cfg.JOURNAL != "" {
		if journal, err = openJournal(cfg.JOURNAL, log); err != nil {
			log.Error("unable to open journal, continuing without it", "tag", "Error", "file", cfg.JOURNAL, "err", err)
			journal = nil
		} else {
			defer journal.Close()
			dispatcher.SetRecorder(journal)
		}
	}

	var wg sync.WaitGroup
	loop := onboard.NewLoop(ctrl, train, config.TickInterval(), log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil {
			log.Error("pin reset incomplete", "tag", "Error", "err", err)
		}
	}()

	if cfg.LISTEN != "" {
		server := NewStateServer(ctrl, train, journal, cfg.STATE_INTERVAL, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.ListenAndServe(ctx, cfg.LISTEN); err != nil {
				log.Error("state feed stopped", "tag", "Error", "err", err)
			}
		}()
	}

	if *routine != "" {
		if _, err := dispatcher.Routines().Run(ctx, *routine); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(err.Error(), "tag", "Error")
		}
	}

	// the command source is joined here, before the loop and the server
	if ctrl.IsRunning() && ctx.Err() == nil {
		if *plain {
			runPlain(ctx, ctrl, dispatcher, os.Stdin)
		} else {
			runShell(ctx, ctrl, dispatcher, journal)
		}
	}

	ctrl.SetRunning(false)
	cancel()
	wg.Wait()

	// already done by the loop unless it never started
	ctrl.Shutdown()
	return 0
}
