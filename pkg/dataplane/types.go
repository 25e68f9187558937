// Package dataplane is a table backend built on eBPF maps. Entries,
// members, groups and default entries live in hash maps a BPF program
// can look up; the Manager implements backend.Backend over them.
package dataplane

import "github.com/psaab/tblmgr/pkg/actionspec"

const (
	MaxActionData   = 64
	MaxAttachments  = actionspec.MaxResources
	MaxGroupMembers = 64
	MatchKeyLen     = 32
)

// Entry kinds.
const (
	EntryKindAction = 0
	EntryKindMember = 1
	EntryKindGroup  = 2
)

// Meter and LPF flag bits in ResourceValue.Flags.
const (
	ResFlagCIRPps      = 1 << 0
	ResFlagPIRPps      = 1 << 1
	ResFlagLPFSample   = 1 << 2
	ResFlagLPFSeparate = 1 << 3
)

// EntryKey mirrors the C struct tbl_entry_key. Members use the profile
// table handle.
type EntryKey struct {
	Table  uint32
	Handle uint32
}

// ResourceValue mirrors the C struct tbl_res. The payload words hold the
// configuration of the resource family named by Kind.
type ResourceValue struct {
	Handle uint32
	Index  uint32
	Kind   uint8
	Tag    uint8
	Direct uint8
	Flags  uint8
	Pad    [4]byte
	Words  [4]uint64
}

// EntryValue mirrors the C struct tbl_entry.
type EntryValue struct {
	ActFn    uint32
	Pipe     uint32
	Ref      uint32 // member entry or group handle
	TTL      uint32 // milliseconds, 0 disables aging
	LastHit  uint64 // CLOCK_MONOTONIC milliseconds
	Kind     uint8
	NumRes   uint8
	Hit      uint8
	Expired  uint8
	DataLen  uint16
	DataBits uint16
	Data     [MaxActionData]byte
	Res      [MaxAttachments]ResourceValue
}

// MatchKey mirrors the C struct tbl_match_key.
type MatchKey struct {
	Table    uint32
	Len      uint16
	Pad      uint16
	Key      [MatchKeyLen]byte
	Mask     [MatchKeyLen]byte
	Priority uint32
}

// GroupKey mirrors the C struct tbl_group_key.
type GroupKey struct {
	Table uint32
	Group uint32
}

// GroupValue mirrors the C struct tbl_group.
type GroupValue struct {
	MaxSize uint32
	Count   uint32
	Pipe    uint32
	Pad     uint32
	Members [MaxGroupMembers]uint32
	Enabled [MaxGroupMembers]uint8
}
