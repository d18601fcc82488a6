package command

import (
	"fmt"
	"io"
)

const VERSION = "1.1.0"

type usage struct {
	name, args, help string
}

var commandUsage = []usage{
	{"help", "(no args)", "General help command. Use when the format of commands is forgotten."},
	{"log", "(no args)", "Toggle the debug command logging."},
	{"load", "(path_to_routine)", "Load a *.jors file to automate commands. The extension may be left off."},
	{"stop", "(no args)", "Terminate the entire application, resetting every pin."},
	{"drive", "('f' or 'b', 0 - 100)", "Translate the car forwards or backwards at a percentage of top speed."},
	{"break", "(no args)", "Stop the car from translating."},
	{"steer", "(1200 - 2000)", "Rotate the front axis full right to full left, as pulse time in milliseconds * 1000."},
	{"override", "(0 or 1)", "Set the manual override on or off from software."},
}

var routineUsage = []usage{
	{"drive", "('f' or 'b', 0 - 100)", "As the interactive command."},
	{"steer", "(1200 - 2000)", "As the interactive command."},
	{"break", "(no args)", "As the interactive command."},
	{"log", "(message)", "Print message to the console."},
	{"wait", "(seconds)", "Pause the routine, fractions allowed."},
}

// WriteHelp prints the version banner and the command summary.
func WriteHelp(w io.Writer) {
	fmt.Fprintf(w, "\nJacobianOS version %s\n", VERSION)
	fmt.Fprintln(w, "List of valid commands...")
	fmt.Fprintln(w, "[NOTE] Please enter commands and arguments with single spaces in between, no commas or other delimiters.")
	fmt.Fprintln(w)
	for _, u := range commandUsage {
		fmt.Fprintf(w, "\t%s %s: %s\n", u.name, u.args, u.help)
	}
	fmt.Fprintln(w, "\nRoutine scripts (.jors) accept one directive per line, blank lines and # comments are ignored:")
	for _, u := range routineUsage {
		fmt.Fprintf(w, "\t%s %s: %s\n", u.name, u.args, u.help)
	}
	fmt.Fprintln(w)
}

// Summary returns the one-line usage for name, used as shell help.
func Summary(name string) string {
	for _, u := range commandUsage {
		if u.name == name {
			return u.name + " " + u.args
		}
	}
	return name
}
