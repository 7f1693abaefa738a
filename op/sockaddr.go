package op

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sockaddrStorageSize is sizeof(struct sockaddr_storage) on Linux: large
// enough to hold any AF_INET/AF_INET6 address the native io_uring Accept
// opcode writes into directly.
const sockaddrStorageSize = 128

// encodeSockaddr renders addr into the kernel's raw wire format
// (sockaddr_in / sockaddr_in6) for completion-model opcodes (Connect,
// Bind) that take a raw pointer+length in their SQE instead of going
// through the unix package's own ExecuteBlocking call. Per spec's
// "Address marshalling": AF_INET and AF_INET6 round-trip through
// sockaddr_storage, port and IPv4 address in network byte order, IPv6
// scope id carried over; unix.SockaddrInet6 has no flowinfo field, so
// flowinfo is written as 0 and not recovered on decode. Other families are
// rejected with EAFNOSUPPORT.
func encodeSockaddr(addr unix.Sockaddr) ([]byte, error) {
	switch a := addr.(type) {
	case *unix.SockaddrInet4:
		var raw unix.RawSockaddrInet4
		raw.Family = unix.AF_INET
		raw.Addr = a.Addr
		buf := make([]byte, unsafe.Sizeof(raw))
		*(*unix.RawSockaddrInet4)(unsafe.Pointer(&buf[0])) = raw
		binary.BigEndian.PutUint16(buf[2:4], uint16(a.Port))
		return buf, nil
	case *unix.SockaddrInet6:
		var raw unix.RawSockaddrInet6
		raw.Family = unix.AF_INET6
		raw.Addr = a.Addr
		raw.Scope_id = a.ZoneId
		buf := make([]byte, unsafe.Sizeof(raw))
		*(*unix.RawSockaddrInet6)(unsafe.Pointer(&buf[0])) = raw
		binary.BigEndian.PutUint16(buf[2:4], uint16(a.Port))
		return buf, nil
	default:
		return nil, unix.EAFNOSUPPORT
	}
}

// decodeSockaddr is encodeSockaddr's inverse, used to recover the peer
// address the native io_uring Accept opcode writes directly into a raw
// buffer (the pollingv2/blocking-fallback paths get this for free from
// unix.Accept4's own decoding instead, see accept_linux.go/accept_other.go).
func decodeSockaddr(buf []byte) (unix.Sockaddr, error) {
	if len(buf) < 4 {
		return nil, unix.EAFNOSUPPORT
	}
	family := *(*uint16)(unsafe.Pointer(&buf[0]))
	port := int(binary.BigEndian.Uint16(buf[2:4]))
	switch family {
	case unix.AF_INET:
		if len(buf) < int(unsafe.Sizeof(unix.RawSockaddrInet4{})) {
			return nil, unix.EINVAL
		}
		raw := *(*unix.RawSockaddrInet4)(unsafe.Pointer(&buf[0]))
		return &unix.SockaddrInet4{Port: port, Addr: raw.Addr}, nil
	case unix.AF_INET6:
		if len(buf) < int(unsafe.Sizeof(unix.RawSockaddrInet6{})) {
			return nil, unix.EINVAL
		}
		raw := *(*unix.RawSockaddrInet6)(unsafe.Pointer(&buf[0]))
		return &unix.SockaddrInet6{Port: port, ZoneId: raw.Scope_id, Addr: raw.Addr}, nil
	default:
		return nil, unix.EAFNOSUPPORT
	}
}
