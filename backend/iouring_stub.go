//go:build !linux

package backend

import "fmt"

// IOUringState is unavailable off Linux; construction always fails so the
// runtime falls back to pollingv2/blocking, mirroring ublk-go's own
// //go:build !giouring stub pattern for an unavailable backend.
type IOUringState struct{}

// NewIOUringState always returns an error on non-Linux platforms.
func NewIOUringState(entries uint32) (*IOUringState, error) {
	return nil, fmt.Errorf("io_uring backend is only available on linux")
}

// NewIOUringStateSQPoll always returns an error on non-Linux platforms.
func NewIOUringStateSQPoll(entries, idleMillis uint32) (*IOUringState, error) {
	return nil, fmt.Errorf("io_uring backend is only available on linux")
}

// RegisterBuffers is unavailable on non-Linux platforms.
func (s *IOUringState) RegisterBuffers(bufs [][]byte) (*BufferGroup, error) {
	return nil, fmt.Errorf("io_uring backend is only available on linux")
}

func (s *IOUringState) Split() (Submitter, Driver) {
	panic("iouring backend unavailable on this platform")
}

func (s *IOUringState) Close() error { return nil }
