//go:build darwin

package op

import "golang.org/x/sys/unix"

// createSocket falls back to a follow-up fcntl/ioctl dance: darwin has no
// atomic SOCK_CLOEXEC/SOCK_NONBLOCK at socket(2) time, so there is a small
// race window between creation and these calls. The fd is closed if
// setup fails partway through.
func createSocket(domain, typ, protocol int) (int, error) {
	fd, err := unix.Socket(domain, typ, protocol)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// setNoSigpipe sets SO_NOSIGPIPE, darwin's per-socket SIGPIPE suppression.
func setNoSigpipe(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}

// noSignalFlag is 0 here: SO_NOSIGPIPE, set once at socket creation, already
// covers every send on this fd.
const noSignalFlag = 0
