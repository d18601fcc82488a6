package errors

import (
	"errors"
	"fmt"
)

// ErrInitFailed marks the only fatal condition: the GPIO backend could not start.
var ErrInitFailed = errors.New("gpio initialization failed")

type PinNameError struct {
	Name string
}

func (err PinNameError) Error() string {
	return fmt.Sprintf("no pin was found with the name %s", err.Name)
}

type DuplicatePinError struct {
	Name string
	ID   int
}

func (err DuplicatePinError) Error() string {
	return fmt.Sprintf("pin name %s is already registered to pin %d", err.Name, err.ID)
}

type UnknownCommandError struct {
	Name string
}

func (err UnknownCommandError) Error() string {
	if len(err.Name) == 0 {
		return "empty command"
	}
	return fmt.Sprintf("unknown command %q, type \"help\" for a list of commands", err.Name)
}

type ParseError struct {
	Command string
	Reason  string
}

func (err ParseError) Error() string {
	if len(err.Command) == 0 {
		err.Command = "UNKNOWN"
	}
	return fmt.Sprintf("%s: %s, see \"help\" for details", err.Command, err.Reason)
}

// ScriptPathError is returned when a routine cannot be opened at all.
type ScriptPathError struct {
	Path   string
	Reason string
}

func (err ScriptPathError) Error() string {
	return fmt.Sprintf("routine %s: %s", err.Path, err.Reason)
}

// ScriptError reports a failed line inside a routine.
type ScriptError struct {
	Path string
	Line int
	Err  error
}

func (err ScriptError) Error() string {
	return fmt.Sprintf("%s:%d: %v", err.Path, err.Line, err.Err)
}

func (err ScriptError) Unwrap() error {
	return err.Err
}
