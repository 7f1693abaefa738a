//go:build linux

package op

import (
	"time"

	"golang.org/x/sys/unix"
)

// newTimerFD arms a one-shot CLOCK_MONOTONIC timerfd for d, for the epoll
// readiness backend to register as a read-ready source. Returns 0 (an
// invalid fd) on failure; the caller falls back to execute_blocking's
// time.Sleep path.
func newTimerFD(d time.Duration) int32 {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return 0
	}
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return 0
	}
	return int32(fd)
}

func closeTimerFD(fd int32) {
	if fd > 0 {
		unix.Close(int(fd))
	}
}
