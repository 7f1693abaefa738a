//go:build linux

package op

import "golang.org/x/sys/unix"

// createSocket uses SOCK_CLOEXEC|SOCK_NONBLOCK, set atomically at creation
// time the way every modern Linux kernel allows (no fcntl race window).
func createSocket(domain, typ, protocol int) (int, error) {
	return unix.Socket(domain, typ|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, protocol)
}

// setNoSigpipe is a no-op on Linux; send.go uses MSG_NOSIGNAL per call
// instead of SO_NOSIGPIPE.
func setNoSigpipe(fd int) error { return nil }

// noSignalFlag is ORed into every send() call so a peer-closed socket
// returns EPIPE instead of raising SIGPIPE.
const noSignalFlag = unix.MSG_NOSIGNAL
