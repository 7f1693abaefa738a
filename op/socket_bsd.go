//go:build freebsd || netbsd || openbsd || dragonfly

package op

import "golang.org/x/sys/unix"

// createSocket uses SOCK_CLOEXEC|SOCK_NONBLOCK, atomic on the BSDs just as
// on Linux.
func createSocket(domain, typ, protocol int) (int, error) {
	return unix.Socket(domain, typ|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, protocol)
}

// setNoSigpipe sets SO_NOSIGPIPE so a write to a peer-closed socket returns
// EPIPE instead of raising SIGPIPE.
func setNoSigpipe(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}

// noSignalFlag is 0 here: SO_NOSIGPIPE, set once at socket creation, already
// covers every send on this fd.
const noSignalFlag = 0
