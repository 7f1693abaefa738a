//go:build !linux

package op

import "golang.org/x/sys/unix"

// acceptConn emulates accept4 where the platform lacks it: accept, then set
// CLOEXEC and non-blocking as two follow-up calls.
func acceptConn(fd int) (int, unix.Sockaddr, error) {
	newFD, peer, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, err
	}
	if err := unix.SetNonblock(newFD, true); err != nil {
		unix.Close(newFD)
		return -1, nil, err
	}
	if _, err := unix.FcntlInt(uintptr(newFD), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(newFD)
		return -1, nil, err
	}
	return newFD, peer, nil
}
