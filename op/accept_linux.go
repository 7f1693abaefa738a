//go:build linux

package op

import "golang.org/x/sys/unix"

// acceptConn uses accept4 so CLOEXEC+NONBLOCK are set atomically on the new
// fd, matching accept semantics.
func acceptConn(fd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(fd, unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK)
}
