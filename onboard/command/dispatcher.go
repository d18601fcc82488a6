package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/CodedInternet/gojacobian/onboard"
	jerrors "github.com/CodedInternet/gojacobian/onboard/errors"
)

const SOURCE_SHELL = "shell"

// Handler runs one command with its raw argument text.
type Handler func(ctx context.Context, args string) error

// Recorder receives every dispatched line with its outcome.
type Recorder interface {
	Record(source, line string, err error)
}

// Dispatcher maps command names to handlers. Every failure it sees is
// recoverable: it is logged, returned, and the session carries on.
type Dispatcher struct {
	ctrl  *onboard.Controller
	train *onboard.Drivetrain
	level *slog.LevelVar
	log   *slog.Logger
	out   io.Writer

	handlers map[string]Handler
	routines *Interpreter
	recorder Recorder
	onStop   func()
}

// NewDispatcher wires the fixed command table. level is the handler level the
// log command toggles between Info and Debug.
func NewDispatcher(ctrl *onboard.Controller, train *onboard.Drivetrain, level *slog.LevelVar, log *slog.Logger, out io.Writer) *Dispatcher {
	d := &Dispatcher{
		ctrl:  ctrl,
		train: train,
		level: level,
		log:   log,
		out:   out,
	}
	d.handlers = map[string]Handler{
		"drive":    d.drive,
		"steer":    d.steer,
		"break":    d.brake,
		"override": d.override,
		"stop":     d.stop,
		"log":      d.toggleLog,
		"load":     d.load,
		"help":     d.help,
	}
	d.routines = NewInterpreter(d, log)
	return d
}

// SetRecorder attaches a journal. nil detaches it.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// OnStop registers f to run after a stop command has cleared the run flag.
func (d *Dispatcher) OnStop(f func()) {
	d.onStop = f
}

func (d *Dispatcher) Routines() *Interpreter {
	return d.routines
}

// Commands lists the command names in order.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs one interactive line. Blank lines are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) error {
	cmd := Tokenize(line)
	if len(cmd.Name) == 0 {
		return nil
	}

	handler, ok := d.handlers[cmd.Name]
	var err error
	if !ok {
		err = jerrors.UnknownCommandError{Name: cmd.Name}
	} else {
		err = handler(ctx, cmd.Args)
	}

	d.record(SOURCE_SHELL, cmd.String(), err)
	if err != nil && ctx.Err() == nil {
		d.log.Error(err.Error(), "tag", "Error")
	}
	return err
}

func (d *Dispatcher) record(source, line string, err error) {
	if d.recorder != nil {
		d.recorder.Record(source, line, err)
	}
}

func (d *Dispatcher) drive(ctx context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return jerrors.ParseError{Command: "drive", Reason: "must be invoked with exactly two arguments"}
	}
	dir, ok := onboard.ParseDirection(fields[0])
	if !ok {
		return jerrors.ParseError{Command: "drive", Reason: "must be invoked with a valid direction, 'f' or 'b'"}
	}
	percent, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || math.IsNaN(percent) {
		return jerrors.ParseError{Command: "drive", Reason: "percentage must be a number"}
	}
	if percent < 0 || percent > 100 {
		d.log.Debug("drive percentage clamped", "tag", "Success", "requested", percent)
	}
	return d.train.Drive(ctx, dir, percent)
}

func (d *Dispatcher) steer(_ context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return jerrors.ParseError{Command: "steer", Reason: "must be invoked with exactly one pulse time (ms) * 1000"}
	}
	micros, err := strconv.Atoi(fields[0])
	if errors.Is(err, strconv.ErrRange) {
		// out of range is clamped like any other excess
		micros = math.MaxInt
		if strings.HasPrefix(fields[0], "-") {
			micros = math.MinInt
		}
	} else if err != nil {
		return jerrors.ParseError{Command: "steer", Reason: "pulse time must be a whole number"}
	}
	if applied := d.train.Steer(micros); applied != time.Duration(micros)*time.Microsecond {
		d.log.Debug("steering pulse clamped", "tag", "Success", "requested", micros,
			"applied", applied.Microseconds())
	}
	return nil
}

func (d *Dispatcher) brake(ctx context.Context, args string) error {
	if len(strings.TrimSpace(args)) != 0 {
		return jerrors.ParseError{Command: "break", Reason: "takes no arguments"}
	}
	return d.train.Brake(ctx)
}

func (d *Dispatcher) override(_ context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return jerrors.ParseError{Command: "override", Reason: "must be invoked with exactly one specified state"}
	}
	switch fields[0] {
	case "0":
		d.ctrl.SetOverride(false)
	case "1":
		d.ctrl.SetOverride(true)
	default:
		return jerrors.ParseError{Command: "override", Reason: "state must be 0 or 1"}
	}
	return nil
}

// stop only clears the run flag. The actuation loop owns the pin reset and
// runs it after its final write.
func (d *Dispatcher) stop(_ context.Context, _ string) error {
	d.log.Info("JacobianOS is shutting down", "tag", "Success")
	d.ctrl.SetRunning(false)
	if d.onStop != nil {
		d.onStop()
	}
	return nil
}

func (d *Dispatcher) toggleLog(_ context.Context, _ string) error {
	if d.level.Level() <= slog.LevelDebug {
		d.level.Set(slog.LevelInfo)
		d.log.Info("JacobianOS will now discontinue to log commands", "tag", "Success")
	} else {
		d.level.Set(slog.LevelDebug)
		d.log.Info("JacobianOS is now set to log commands", "tag", "Success")
	}
	return nil
}

func (d *Dispatcher) load(ctx context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return jerrors.ParseError{Command: "load", Reason: "must be invoked with a path to a routine script"}
	}
	_, err := d.routines.Run(ctx, fields[0])
	return err
}

func (d *Dispatcher) help(_ context.Context, _ string) error {
	WriteHelp(d.out)
	return nil
}
