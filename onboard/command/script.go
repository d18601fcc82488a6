package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CodedInternet/gojacobian/onboard"
	jerrors "github.com/CodedInternet/gojacobian/onboard/errors"
)

const SCRIPT_EXT = ".jors"

// Result summarises a routine run. Errors holds one ScriptError per failed
// line; each was already logged.
type Result struct {
	Path   string
	Lines  int
	Errors []error
}

// Interpreter runs JacobianOS Routine Scripts. Motion directives share the
// dispatcher's handlers; log and wait only exist inside routines.
type Interpreter struct {
	dispatcher *Dispatcher
	log        *slog.Logger
	sleep      onboard.Sleeper
}

func NewInterpreter(d *Dispatcher, log *slog.Logger) *Interpreter {
	return &Interpreter{
		dispatcher: d,
		log:        log,
		sleep:      onboard.Sleep,
	}
}

// SetSleeper replaces the primitive used by wait.
func (i *Interpreter) SetSleeper(s onboard.Sleeper) {
	i.sleep = s
}

// ResolveScript applies the .jors rules to a load argument: a missing extension
// is appended, any other extension is refused, and the file must exist.
func ResolveScript(arg string) (string, error) {
	if len(arg) == 0 {
		return "", jerrors.ScriptPathError{Path: arg, Reason: "a path to a routine script is required"}
	}
	path := arg
	switch ext := filepath.Ext(arg); ext {
	case "":
		path = arg + SCRIPT_EXT
	case SCRIPT_EXT:
	default:
		return "", jerrors.ScriptPathError{Path: arg, Reason: "must be a JacobianOS Routine Script (.jors)"}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", jerrors.ScriptPathError{Path: path, Reason: "does not exist"}
		}
		return "", jerrors.ScriptPathError{Path: path, Reason: err.Error()}
	}
	if info.IsDir() {
		return "", jerrors.ScriptPathError{Path: path, Reason: "is a directory"}
	}
	return path, nil
}

// Run executes the routine at arg line by line. Line errors are logged and
// skipped. Whatever happens after the file opens, the vehicle is braked and
// the steering re-centred before Run returns.
func (i *Interpreter) Run(ctx context.Context, arg string) (result Result, err error) {
	path, err := ResolveScript(arg)
	if err != nil {
		return result, err
	}
	result.Path = path

	f, err := os.Open(path)
	if err != nil {
		return result, jerrors.ScriptPathError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	i.log.Info("JacobianOS is now beginning specified routine", "tag", "Success", "routine", path)
	defer i.finish(ctx, path)

	source := "routine:" + path
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		result.Lines++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		if !i.dispatcher.ctrl.IsRunning() {
			return result, nil
		}

		lineErr := i.exec(ctx, line)
		i.dispatcher.record(source, line, lineErr)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if lineErr != nil {
			lineErr = jerrors.ScriptError{Path: path, Line: result.Lines, Err: lineErr}
			result.Errors = append(result.Errors, lineErr)
			i.log.Error(lineErr.Error(), "tag", "JORS Syntax Error", "line", result.Lines)
		}
	}
	if err = scanner.Err(); err != nil {
		return result, jerrors.ScriptPathError{Path: path, Reason: err.Error()}
	}
	return result, nil
}

func (i *Interpreter) exec(ctx context.Context, line string) error {
	cmd := Tokenize(line)
	switch cmd.Name {
	case "drive", "steer", "break":
		return i.dispatcher.handlers[cmd.Name](ctx, cmd.Args)
	case "log":
		i.log.Info(cmd.Args, "tag", "JORS Log", "source", "routine")
		return nil
	case "wait":
		return i.wait(ctx, cmd.Args)
	}
	return jerrors.UnknownCommandError{Name: cmd.Name}
}

func (i *Interpreter) wait(ctx context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return jerrors.ParseError{Command: "wait", Reason: "wait time must be specified as: wait (float)[time in seconds]"}
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return jerrors.ParseError{Command: "wait", Reason: fmt.Sprintf("%q is not a number of seconds", fields[0])}
	}
	if seconds < 0 {
		seconds = 0
	}
	return i.sleep(ctx, onboard.Seconds(seconds))
}

// finish leaves the vehicle at rest. A cancelled ctx shortens the brake hold
// but the idle pulse is still applied.
func (i *Interpreter) finish(ctx context.Context, path string) {
	i.log.Info("JacobianOS has finished specified routine", "tag", "Success", "routine", path)
	if err := i.dispatcher.train.Brake(ctx); err != nil && ctx.Err() == nil {
		i.log.Error("unable to brake after routine", "tag", "Error", "err", err)
	}
	i.dispatcher.train.Center()
}
