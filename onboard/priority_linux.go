package onboard

import (
	"golang.org/x/sys/unix"
)

// RaisePriority sets the process niceness. Negative values need CAP_SYS_NICE;
// zero leaves the scheduler alone.
func RaisePriority(nice int) error {
	if nice == 0 {
		return nil
	}
	return unix.Setpriority(unix.PRIO_PROCESS, 0, nice)
}
