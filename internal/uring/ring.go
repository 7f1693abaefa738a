//go:build linux

// Package uring is the raw, hand-rolled io_uring ring: direct io_uring_setup
// / io_uring_enter syscalls and mmap'd SQ/CQ rings, generalized from a
// URING_CMD-only ring into one that can submit any of op.SubmissionEntry's
// shapes. Used as the Linux default; a build with the giouring tag bypasses
// this in favor of github.com/pawelgaczynski/giouring instead.
package uring

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ioUringSetupFlagNone          = 0
	ioUringSetupFlagSQPoll uint32 = 1 << 1 // IORING_SETUP_SQPOLL
	ioUringEnterGetEvents         = 1 << 0
	ioUringEnterSQWakeup          = 1 << 1 // IORING_ENTER_SQ_WAKEUP

	// sqNeedWakeup mirrors IORING_SQ_NEED_WAKEUP: set by the kernel's
	// SQPOLL thread in the SQ ring's flags word when it has gone to sleep
	// and needs an io_uring_enter(IORING_ENTER_SQ_WAKEUP) to resume.
	sqNeedWakeup uint32 = 1 << 0

	ioUringRegisterBuffers   = 0 // IORING_REGISTER_BUFFERS
	ioUringUnregisterBuffers = 1 // IORING_UNREGISTER_BUFFERS
)

// sqe64 is the standard 64-byte Submission Queue Entry.
type sqe64 struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	len         uint32
	opcodeFlags uint32
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceFdIn  int32
	addr3       uint64
	_           uint64
}

// cqe16 is the standard 16-byte Completion Queue Entry.
type cqe16 struct {
	userData uint64
	res      int32
	flags    uint32
}

// ringOffsets mirrors both io_uring_sqring_offsets and
// io_uring_cqring_offsets: the two kernel structs have the same size and
// uint32 layout, so one Go struct serves both, with field names taken from
// the SQ side. On the CQ side the 5th field is "overflow", the 6th (dropped
// here) is "cqes", the offset of the CQE array, and the 7th (array here)
// is "flags"; so sqOff.array locates the SQ index array and cqOff.dropped
// locates the CQE array.
type ringOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flags       uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	userAddr    uint64
}

type ioUringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        ringOffsets
	cqOff        ringOffsets
}

// CQE is the backend-visible completion: a (user_data, result) pair.
type CQE struct {
	UserData uint64
	Res      int32
}

// Ring is the generalized raw io_uring submission/completion ring. A single
// Ring is shared by a submitter and a completion side; Submit bumps the SQ
// tail (guarded by mu so concurrent submitters don't race the array write),
// Enter waits in io_uring_enter and Reap collects the ready CQEs.
type Ring struct {
	fd     int
	params ioUringParams

	sqMmap []byte
	cqMmap []byte
	sqes   []byte // separate SQE array mmap

	sqHead *uint32
	sqTail *uint32
	sqMask uint32
	sqArr  []uint32

	cqHead *uint32
	cqTail *uint32
	cqMask uint32

	sqFlags *uint32 // kernel-owned IORING_SQ_NEED_WAKEUP / IORING_SQ_CQ_OVERFLOW word
	sqpoll  bool

	mu sync.Mutex
}

// NewRing creates a ring with entries submission slots.
func NewRing(entries uint32) (*Ring, error) {
	return newRing(entries, 0)
}

// NewSQPollRing creates a ring with the kernel-side submission-queue
// polling thread enabled (IORING_SETUP_SQPOLL), parking for idleMillis
// before going to sleep. Submit then only calls io_uring_enter when the
// kernel signals IORING_SQ_NEED_WAKEUP, a plain SQ tail bump is a memory
// fence against the kernel thread unless it has already gone to sleep.
func NewSQPollRing(entries, idleMillis uint32) (*Ring, error) {
	return newRing(entries, idleMillis)
}

func newRing(entries, idleMillis uint32) (*Ring, error) {
	params := ioUringParams{flags: ioUringSetupFlagNone}
	sqpoll := idleMillis > 0
	if sqpoll {
		params.flags = ioUringSetupFlagSQPoll
		params.sqThreadIdle = idleMillis
	}

	ringFD, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP, uintptr(entries), uintptr(unsafe.Pointer(&params)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("io_uring_setup: %w", errno)
	}
	fd := int(ringFD)

	sqRingSize := params.sqOff.array + params.sqEntries*4
	cqRingSize := params.cqOff.dropped + params.cqEntries*uint32(unsafe.Sizeof(cqe16{}))

	sqMmap, err := unix.Mmap(fd, unix.IORING_OFF_SQ_RING, int(sqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap sq ring: %w", err)
	}

	cqMmap, err := unix.Mmap(fd, unix.IORING_OFF_CQ_RING, int(cqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqMmap)
		unix.Close(fd)
		return nil, fmt.Errorf("mmap cq ring: %w", err)
	}

	sqes, err := unix.Mmap(fd, unix.IORING_OFF_SQES, int(params.sqEntries)*int(unsafe.Sizeof(sqe64{})), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(cqMmap)
		unix.Munmap(sqMmap)
		unix.Close(fd)
		return nil, fmt.Errorf("mmap sqes: %w", err)
	}

	r := &Ring{
		fd:     fd,
		params: params,
		sqMmap: sqMmap,
		cqMmap: cqMmap,
		sqes:   sqes,
		sqpoll: sqpoll,
	}

	base := unsafe.Pointer(&sqMmap[0])
	r.sqHead = (*uint32)(unsafe.Add(base, params.sqOff.head))
	r.sqTail = (*uint32)(unsafe.Add(base, params.sqOff.tail))
	r.sqMask = *(*uint32)(unsafe.Add(base, params.sqOff.ringMask))
	r.sqFlags = (*uint32)(unsafe.Add(base, params.sqOff.flags))
	arrPtr := unsafe.Add(base, params.sqOff.array)
	r.sqArr = unsafe.Slice((*uint32)(arrPtr), params.sqEntries)

	cbase := unsafe.Pointer(&cqMmap[0])
	r.cqHead = (*uint32)(unsafe.Add(cbase, params.cqOff.head))
	r.cqTail = (*uint32)(unsafe.Add(cbase, params.cqOff.tail))
	r.cqMask = *(*uint32)(unsafe.Add(cbase, params.cqOff.ringMask))

	return r, nil
}

// Close unmaps the rings and closes the ring fd.
func (r *Ring) Close() error {
	unix.Munmap(r.sqes)
	unix.Munmap(r.cqMmap)
	unix.Munmap(r.sqMmap)
	return syscall.Close(r.fd)
}

// FD returns the underlying ring file descriptor.
func (r *Ring) FD() int32 { return int32(r.fd) }

// entryFromSubmission translates a backend-neutral op.SubmissionEntry into
// the kernel's sqe64 shape. Callers pass the already-populated entry; this
// only handles the field renaming/layout, never operation semantics.
func entryFromSubmission(opcode, flags uint8, fd int32, off uint64, addr uintptr, length uint32, opFlags uint32, bufIndex uint16, userData uint64) sqe64 {
	return sqe64{
		opcode:      opcode,
		flags:       flags,
		fd:          fd,
		off:         off,
		addr:        uint64(addr),
		len:         length,
		opcodeFlags: opFlags,
		userData:    userData,
		bufIndex:    bufIndex,
	}
}

// Submit writes one SQE for the given fields into the next slot and bumps
// the tail, making it visible to the kernel. Returns false if the queue is
// full (caller should treat this as backend.SubmitErrFull).
func (r *Ring) Submit(opcode, flags uint8, fd int32, off uint64, addr uintptr, length uint32, opFlags uint32, bufIndex uint16, userData uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	head := *r.sqHead
	tail := *r.sqTail
	if tail-head >= r.params.sqEntries {
		return false
	}

	index := tail & r.sqMask
	slot := unsafe.Add(unsafe.Pointer(&r.sqes[0]), uintptr(index)*unsafe.Sizeof(sqe64{}))
	*(*sqe64)(slot) = entryFromSubmission(opcode, flags, fd, off, addr, length, opFlags, bufIndex, userData)

	r.sqArr[index] = index

	// Barrier ensures the SQE write above is globally visible before any
	// other thread or the kernel observes the tail bump below.
	Sfence()
	*r.sqTail = tail + 1
	return true
}

// Enter calls io_uring_enter to submit toSubmit queued entries and wait for
// minComplete completions.
func (r *Ring) Enter(toSubmit, minComplete uint32, blocking bool) error {
	var flags uint32
	if blocking {
		flags = ioUringEnterGetEvents
	}
	if r.sqpoll {
		flags |= ioUringEnterSQWakeup
	}
	_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(r.fd), uintptr(toSubmit), uintptr(minComplete), uintptr(flags), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// NeedsWakeup reports whether the kernel's SQPOLL thread has gone to sleep
// and requires an explicit io_uring_enter(IORING_ENTER_SQ_WAKEUP) call to
// notice newly queued SQEs. Always true on a non-SQPOLL ring, so callers
// that only check this before deciding to Enter behave identically to the
// non-SQPOLL path when SQPOLL isn't active.
func (r *Ring) NeedsWakeup() bool {
	if !r.sqpoll {
		return true
	}
	return atomic.LoadUint32(r.sqFlags)&sqNeedWakeup != 0
}

// RegisterBuffers registers bufs with the kernel (IORING_REGISTER_BUFFERS)
// so read/write operations can reference them by index instead of passing
// a raw pointer on every submission, per registered-buffers
// addition. Returns the number of buffers the kernel is now aware of.
func (r *Ring) RegisterBuffers(bufs [][]byte) (int, error) {
	if len(bufs) == 0 {
		return 0, nil
	}
	iovecs := make([]unix.Iovec, len(bufs))
	for i, b := range bufs {
		if len(b) == 0 {
			continue
		}
		iovecs[i].Base = &b[0]
		iovecs[i].SetLen(len(b))
	}
	_, _, errno := unix.Syscall6(unix.SYS_IO_URING_REGISTER, uintptr(r.fd), uintptr(ioUringRegisterBuffers), uintptr(unsafe.Pointer(&iovecs[0])), uintptr(len(iovecs)), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return len(iovecs), nil
}

// UnregisterBuffers releases a prior RegisterBuffers call's kernel state.
func (r *Ring) UnregisterBuffers() error {
	_, _, errno := unix.Syscall6(unix.SYS_IO_URING_REGISTER, uintptr(r.fd), uintptr(ioUringUnregisterBuffers), 0, 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Reap drains up to max completion entries currently available without
// blocking (Enter must be called first to actually wait on the kernel).
func (r *Ring) Reap(max int) []CQE {
	var out []CQE
	head := *r.cqHead
	tail := *r.cqTail

	cqesBase := unsafe.Pointer(&r.cqMmap[0])
	cqesOff := r.params.cqOff.dropped

	for head != tail && len(out) < max {
		index := head & r.cqMask
		slot := (*cqe16)(unsafe.Add(cqesBase, uintptr(cqesOff)+uintptr(index)*unsafe.Sizeof(cqe16{})))
		out = append(out, CQE{UserData: slot.userData, Res: slot.res})
		head++
	}
	*r.cqHead = head
	return out
}
