// Package actionspec holds the per-entry action spec handed to a
// pipeline backend: the packed action parameter buffer and the bounded list
// of resource attachments with their configuration.
package actionspec

import (
	"encoding/binary"
	"log/slog"

	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// MaxResources bounds the attachment list.
const MaxResources = catalog.DefaultMaxResources

// Tag says what a backend should do with an attachment.
type Tag uint8

const (
	TagUnchanged Tag = iota
	TagAttached
	TagDetached
)

func (t Tag) String() string {
	switch t {
	case TagAttached:
		return "attached"
	case TagDetached:
		return "detached"
	}
	return "unchanged"
}

// DataKind says what a Spec points at: inline action data, an action
// profile member or a selector group.
type DataKind uint8

const (
	KindActionData DataKind = iota
	KindMemberHandle
	KindGroupHandle
)

// Attachment binds one resource table to an entry. Only the payload
// matching Kind is meaningful.
type Attachment struct {
	Handle pipe.ResourceHandle
	Kind   catalog.ResourceKind
	Tag    Tag
	Index  uint32
	Direct bool

	Counter  CounterSpec
	Meter    MeterSpec
	LPF      LPFSpec
	WRED     WREDSpec
	Register RegisterCell
}

// Spec is the action spec of one entry: packed parameters plus resource attachments.
type Spec struct {
	data     []byte
	dataBits int

	res      [MaxResources]Attachment
	count    int
	direct   int
	indirect int

	kind   DataKind
	member pipe.EntryHandle
	group  pipe.GroupHandle

	// registers holds per-instance cells returned by a read.
	registers []RegisterCell
}

// New returns a spec with a zeroed buffer of dataBytes.
func New(dataBytes, dataBits int) *Spec {
	return &Spec{data: make([]byte, dataBytes), dataBits: dataBits}
}

// Reset zeroes the buffer in place and clears everything else.
func (s *Spec) Reset() {
	clear(s.data)
	s.clearResources()
}

// Reassign replaces the buffer with a zeroed one of dataBytes and clears
// everything else.
func (s *Spec) Reassign(dataBytes, dataBits int) {
	s.data = make([]byte, dataBytes)
	s.dataBits = dataBits
	s.clearResources()
}

func (s *Spec) clearResources() {
	s.res = [MaxResources]Attachment{}
	s.count, s.direct, s.indirect = 0, 0, 0
	s.kind = KindActionData
	s.member, s.group = 0, 0
	s.registers = nil
}

// Clone returns a deep copy.
func (s *Spec) Clone() *Spec {
	c := *s
	c.data = append([]byte(nil), s.data...)
	if s.registers != nil {
		c.registers = append([]RegisterCell(nil), s.registers...)
	}
	return &c
}

// Data returns the packed parameter buffer. The slice aliases s.
func (s *Spec) Data() []byte { return s.data }

// DataBits returns the declared bit width of the buffer.
func (s *Spec) DataBits() int { return s.dataBits }

// SetData overwrites the buffer with b, which must be the same length.
func (s *Spec) SetData(b []byte) error {
	if len(b) != len(s.data) {
		return status.Invalidf("action data is %d bytes, buffer holds %d", len(b), len(s.data))
	}
	copy(s.data, b)
	return nil
}

// Kind returns what s points at.
func (s *Spec) Kind() DataKind { return s.kind }

// MemberHandle returns the member entry handle of a member reference.
func (s *Spec) MemberHandle() pipe.EntryHandle { return s.member }

// GroupHandle returns the group handle of a group reference.
func (s *Spec) GroupHandle() pipe.GroupHandle { return s.group }

// SetMemberHandle points s at an action profile member.
func (s *Spec) SetMemberHandle(h pipe.EntryHandle) {
	s.kind = KindMemberHandle
	s.member, s.group = h, 0
}

// SetGroupHandle points s at a selector group.
func (s *Spec) SetGroupHandle(h pipe.GroupHandle) {
	s.kind = KindGroupHandle
	s.member, s.group = 0, h
}

func (s *Spec) region(f *catalog.Field) ([]byte, error) {
	off, n := int(f.Offset), f.Bytes()
	if off+n > len(s.data) {
		return nil, status.Invalidf("field %q (%d) at offset %d+%d is outside the %d-byte action buffer",
			f.Name, f.ID, off, n, len(s.data))
	}
	return s.data[off : off+n], nil
}

// SetActionParam packs v into the field's slot in network byte order.
// Parameters optimized out of the pipeline are written as zeros.
func (s *Spec) SetActionParam(f *catalog.Field, v uint64) error {
	if f.Bits > 64 {
		return status.Invalidf("field %q (%d) is %d bits wide, set it as bytes", f.Name, f.ID, f.Bits)
	}
	dst, err := s.region(f)
	if err != nil {
		return err
	}
	if f.HasRole(catalog.RoleActionParamOptimizedOut) {
		slog.Warn("action parameter optimized out, writing zeros", "field", f.Name, "id", f.ID)
		clear(dst)
		return nil
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	copy(dst, buf[8-len(dst):])
	return nil
}

// SetActionParamBytes copies b verbatim into the field's slot.
func (s *Spec) SetActionParamBytes(f *catalog.Field, b []byte) error {
	dst, err := s.region(f)
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return status.Invalidf("field %q (%d) wants %d bytes, got %d", f.Name, f.ID, len(dst), len(b))
	}
	if f.HasRole(catalog.RoleActionParamOptimizedOut) {
		slog.Warn("action parameter optimized out, writing zeros", "field", f.Name, "id", f.ID)
		clear(dst)
		return nil
	}
	copy(dst, b)
	return nil
}

// ActionParam unpacks the field's slot into a host-order integer.
func (s *Spec) ActionParam(f *catalog.Field) (uint64, error) {
	if f.Bits > 64 {
		return 0, status.Invalidf("field %q (%d) is %d bits wide, read it as bytes", f.Name, f.ID, f.Bits)
	}
	src, err := s.region(f)
	if err != nil {
		return 0, err
	}
	var buf [8]byte
	copy(buf[8-len(src):], src)
	return binary.BigEndian.Uint64(buf[:]), nil
}

// ActionParamBytes returns a copy of the field's slot.
func (s *Spec) ActionParamBytes(f *catalog.Field) ([]byte, error) {
	src, err := s.region(f)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), src...), nil
}
