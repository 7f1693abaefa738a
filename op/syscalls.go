package op

import (
	"golang.org/x/sys/unix"
)

// The helpers in this file translate a Go syscall error into the raw signed
// machine word convention every Operation.ExecuteBlocking returns: the
// success value non-negative, or -errno.

func rawResult(n int, err error) int64 {
	if err != nil {
		if errno, ok := err.(unix.Errno); ok {
			return -int64(errno)
		}
		return -int64(unix.EIO)
	}
	return int64(n)
}

func pread(fd int32, buf []byte, offset int64) int64 {
	n, err := unix.Pread(int(fd), buf, offset)
	if err == unix.ESPIPE {
		// Pipes and sockets have no file position: read them as a stream.
		n, err = unix.Read(int(fd), buf)
	}
	return rawResult(n, err)
}

func pwrite(fd int32, buf []byte, offset int64) int64 {
	n, err := unix.Pwrite(int(fd), buf, offset)
	if err == unix.ESPIPE {
		// Pipes and sockets have no file position: write them as a stream.
		n, err = unix.Write(int(fd), buf)
	}
	return rawResult(n, err)
}

func preadv(fd int32, iovs [][]byte, offset int64) int64 {
	n, err := unix.Preadv(int(fd), iovs, offset)
	return rawResult(n, err)
}

func pwritev(fd int32, iovs [][]byte, offset int64) int64 {
	n, err := unix.Pwritev(int(fd), iovs, offset)
	return rawResult(n, err)
}
