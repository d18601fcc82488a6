package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/CodedInternet/gojacobian/onboard"
	"github.com/CodedInternet/gojacobian/onboard/command"
	"github.com/abiosoft/ishell"
)

const PROMPT = "[Command ready]: "

// shellLine rebuilds the line ishell split into words, so the dispatcher sees
// what the operator typed.
func shellLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// runShell is the interactive command source. Leaving the shell by any route
// (exit, Ctrl-C, EOF) issues stop, so the pin reset always runs.
func runShell(ctx context.Context, ctrl *onboard.Controller, d *command.Dispatcher, journal *Journal) {
	shell := ishell.New()
	shell.SetPrompt(PROMPT)
	shell.Println("JacobianOS version " + command.VERSION + ", type \"help\" for a list of commands")

	dispatch := func(c *ishell.Context, line string) {
		d.Dispatch(ctx, line)
		if !ctrl.IsRunning() {
			c.Stop()
		}
	}

	for _, name := range d.Commands() {
		name := name
		shell.AddCmd(&ishell.Cmd{
			Name: name,
			Help: command.Summary(name),
			Func: func(c *ishell.Context) {
				dispatch(c, shellLine(name, c.Args))
			},
		})
	}
	shell.AddCmd(&ishell.Cmd{
		Name: "exit",
		Help: "same as stop",
		Func: func(c *ishell.Context) {
			dispatch(c, "stop")
		},
	})

	if journal != nil {
		shell.AddCmd(&ishell.Cmd{
			Name: "history",
			Help: "history [n]: list the last n journaled commands",
			Func: func(c *ishell.Context) {
				n := 10
				if len(c.Args) > 0 {
					v, err := strconv.Atoi(c.Args[0])
					if err != nil || v <= 0 {
						c.Err(fmt.Errorf("history: %q is not a positive count", c.Args[0]))
						return
					}
					n = v
				}
				entries, err := journal.Recent(n)
				if err != nil {
					c.Err(err)
					return
				}
				for i := len(entries) - 1; i >= 0; i-- {
					e := entries[i]
					c.Printf("%s %-8s %s", e.Time.Format("15:04:05.000"), e.Source, e.Line)
					if e.Error != "" {
						c.Printf("  (%s)", e.Error)
					}
					c.Println()
				}
			},
		})
	}

	shell.NotFound(func(c *ishell.Context) {
		dispatch(c, strings.Join(c.RawArgs, " "))
	})
	shell.Interrupt(func(c *ishell.Context, count int, input string) {
		dispatch(c, "stop")
	})
	shell.EOF(func(c *ishell.Context) {
		dispatch(c, "stop")
	})

	go func() {
		<-ctx.Done()
		shell.Close()
	}()
	shell.Run()
}

// runPlain reads newline-terminated commands from in, for piped input and
// headless runs. EOF issues stop.
func runPlain(ctx context.Context, ctrl *onboard.Controller, d *command.Dispatcher, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				d.Dispatch(ctx, "stop")
				return <-readErr
			}
			d.Dispatch(ctx, line)
			if !ctrl.IsRunning() {
				return nil
			}
		}
	}
}
