//go:build !linux

package op

import "time"

// newTimerFD is a no-op off Linux; the kqueue pollingv2 backend uses
// EVFILT_TIMER directly against the operation's id instead of a timerfd.
func newTimerFD(d time.Duration) int32 { return 0 }

func closeTimerFD(fd int32) {}
