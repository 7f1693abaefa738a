package op

// io_uring opcode numbers, from the kernel's uapi/linux/io_uring.h catalog.
// Kept as plain constants here (rather than importing a ring library into
// this package) so op stays backend-agnostic; the io_uring backends copy
// SubmissionEntry.Opcode into the raw SQE as is.
const (
	OpcodeNop       uint8 = 0
	OpcodeReadv     uint8 = 1
	OpcodeWritev    uint8 = 2
	OpcodeFsync     uint8 = 3
	OpcodeTimeout   uint8 = 11
	OpcodeAccept    uint8 = 13
	OpcodeConnect   uint8 = 16
	OpcodeOpenAt    uint8 = 18
	OpcodeClose     uint8 = 19
	OpcodeRead      uint8 = 22
	OpcodeWrite     uint8 = 23
	OpcodeSend      uint8 = 26
	OpcodeRecv      uint8 = 27
	OpcodeTee       uint8 = 33
	OpcodeShutdown  uint8 = 34
	OpcodeUnlinkAt  uint8 = 36
	OpcodeSymlinkAt uint8 = 38
	OpcodeLinkAt    uint8 = 39
	OpcodeSocket    uint8 = 45
	OpcodeFtruncate uint8 = 55
	OpcodeBind      uint8 = 56
	OpcodeListen    uint8 = 57
)

// IOSQE flags, used by the link-mode builder.
const (
	sqeFlagIOLink     uint8 = 1 << 2 // IOSQE_IO_LINK
	sqeFlagIOHardlink uint8 = 1 << 3 // IOSQE_IO_HARDLINK
)

func applyLinkMode(entry *SubmissionEntry, mode LinkMode) {
	switch mode {
	case LinkSoft:
		entry.Flags |= sqeFlagIOLink
	case LinkHard:
		entry.Flags |= sqeFlagIOHardlink
	}
}
