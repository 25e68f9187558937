package catalog

import (
	"fmt"
	"slices"

	"github.com/psaab/tblmgr/pkg/status"
)

// FieldID identifies a data field within a table (or within an action of
// a table).
type FieldID uint32

// ActionID identifies an action. Zero means "no action".
type ActionID uint32

// TableID identifies a table.
type TableID uint32

// DataType is the value type a field accepts.
type DataType int

const (
	TypeUint64 DataType = iota
	TypeBytes
	TypeFloat
	TypeBool
	TypeString
	TypeUintArray
	TypeBoolArray
)

func (t DataType) String() string {
	switch t {
	case TypeUint64:
		return "uint64"
	case TypeBytes:
		return "bytes"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeUintArray:
		return "uint-array"
	case TypeBoolArray:
		return "bool-array"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Reserved ids of the fields common to tables. They sit above the range
// p4info assigns to action parameters.
const (
	FieldActionMemberID FieldID = 0x10001 + iota
	FieldSelectorGroupID
	FieldTTL
	FieldEntryHitState
	FieldCounterBytes
	FieldCounterPackets
	FieldMeterCIRPps
	FieldMeterPIRPps
	FieldMeterCBSPkts
	FieldMeterPBSPkts
	FieldMeterCIRKbps
	FieldMeterPIRKbps
	FieldMeterCBSKbits
	FieldMeterPBSKbits
	FieldLPFType
	FieldLPFGainTimeConstant
	FieldLPFDecayTimeConstant
	FieldLPFOutputScaleDown
	FieldWREDTimeConstant
	FieldWREDMinThreshold
	FieldWREDMaxThreshold
	FieldWREDMaxProbability
	FieldRegister
	FieldRegisterHi
	FieldRegisterLo
	FieldSelectorMembers
	FieldMemberStatus
	FieldMaxGroupSize
)

// Field is the catalog description of one data field.
type Field struct {
	ID   FieldID
	Name string
	// Bits is the declared width. Bytes() rounds it up.
	Bits uint32
	// Offset is the byte offset of an action parameter in the packed
	// action buffer.
	Offset    uint32
	Type      DataType
	Roles     []Role
	Mandatory bool
	ReadOnly  bool
	Choices   []string
}

// Bytes returns the field width rounded up to whole bytes.
func (f *Field) Bytes() int {
	return int((f.Bits + 7) / 8)
}

// HasRole reports whether the field carries role r.
func (f *Field) HasRole(r Role) bool {
	return slices.Contains(f.Roles, r)
}

// Role returns the primary role of the field.
func (f *Field) Role() Role {
	if len(f.Roles) == 0 {
		return RoleNone
	}
	return f.Roles[0]
}

// CheckUint validates an integer value against the field width.
func (f *Field) CheckUint(v uint64) error {
	switch f.Type {
	case TypeUint64, TypeBytes, TypeUintArray:
	default:
		return status.Invalidf("field %q (%d) of type %s does not take an integer", f.Name, f.ID, f.Type)
	}
	if f.Bits > 64 {
		return status.Invalidf("field %q (%d) is %d bits wide, set it as bytes", f.Name, f.ID, f.Bits)
	}
	if f.Bits < 64 && v > (uint64(1)<<f.Bits)-1 {
		return status.Invalidf("value %d exceeds %d-bit field %q (%d)", v, f.Bits, f.Name, f.ID)
	}
	return nil
}

// CheckBytes validates a byte string against the field width. The string
// must be exactly Bytes() long and its most significant byte must fit the
// bits left over in the top byte.
func (f *Field) CheckBytes(b []byte) error {
	switch f.Type {
	case TypeUint64, TypeBytes:
	default:
		return status.Invalidf("field %q (%d) of type %s does not take bytes", f.Name, f.ID, f.Type)
	}
	if len(b) != f.Bytes() {
		return status.Invalidf("field %q (%d) wants %d bytes, got %d", f.Name, f.ID, f.Bytes(), len(b))
	}
	if rem := f.Bits % 8; rem != 0 && b[0] > byte(1<<rem)-1 {
		return status.Invalidf("value 0x%x overflows %d-bit field %q (%d)", b, f.Bits, f.Name, f.ID)
	}
	return nil
}

// CheckString validates a string value against the field's choices.
func (f *Field) CheckString(s string) error {
	if f.Type != TypeString {
		return status.Invalidf("field %q (%d) of type %s does not take a string", f.Name, f.ID, f.Type)
	}
	if len(f.Choices) > 0 && !slices.Contains(f.Choices, s) {
		return status.Invalidf("%q is not a valid value for field %q (%d)", s, f.Name, f.ID)
	}
	return nil
}

func uintField(id FieldID, name string, bits uint32, roles ...Role) *Field {
	return &Field{ID: id, Name: name, Bits: bits, Type: TypeUint64, Roles: roles}
}

func floatField(id FieldID, name string, roles ...Role) *Field {
	return &Field{ID: id, Name: name, Bits: 32, Type: TypeFloat, Roles: roles}
}
