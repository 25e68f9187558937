package table

import (
	"encoding/binary"
	"maps"
	"slices"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/indirect"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

type refKind uint8

const (
	refNone refKind = iota
	refMember
	refGroup
)

// Data is the data half of a table entry, member or group. Its layout
// depends on the kind of table it was created for.
type Data struct {
	tbl    *catalog.Table
	idle   idle.Config
	action catalog.ActionID

	spec   *actionspec.Spec
	sized  bool
	active []catalog.FieldID
	all    bool

	// match-indirect
	ref    refKind
	member indirect.MemberID
	group  indirect.GroupID

	// match tables with idle tracking
	idleState idle.State

	// action profile members
	resIdx indirect.ResourceMap

	// selector groups
	members   []indirect.MemberID
	enabled   []bool
	maxSize   uint32
	sizeIsSet bool
}

func newData(t *catalog.Table, cfg idle.Config, action catalog.ActionID, fields []catalog.FieldID) (*Data, error) {
	d := &Data{tbl: t, idle: cfg, spec: actionspec.New(0, 0)}
	if err := d.Reset(action, fields...); err != nil {
		return nil, err
	}
	return d, nil
}

// Reset makes d empty data for action. An action of zero sizes the buffer
// for the largest action of the table. Resetting to the current action
// keeps the buffer and zeroes it. With no fields every field of the action
// is active.
func (d *Data) Reset(action catalog.ActionID, fields ...catalog.FieldID) error {
	if action != 0 {
		if !d.tbl.HasActions() {
			return status.Invalidf("table %s: %s tables take no action id", d.tbl.Name, d.tbl.Kind)
		}
		if _, err := d.tbl.Action(action); err != nil {
			return err
		}
	}
	for _, id := range fields {
		if _, err := d.tbl.Field(id, action); err != nil {
			return err
		}
	}

	switch {
	case d.sized && action == d.action:
		d.spec.Reset()
	case action == 0:
		n, bits := d.tbl.MaxDataSize()
		d.spec.Reassign(n, bits)
	default:
		a, _ := d.tbl.Action(action)
		n, bits := a.DataSize()
		d.spec.Reassign(n, bits)
	}
	d.action, d.sized = action, true

	if len(fields) == 0 {
		d.all = true
		d.active = d.tbl.FieldIDs(action)
	} else {
		d.all = false
		d.active = slices.Clone(fields)
	}
	d.ref, d.member, d.group = refNone, 0, 0
	d.idleState = idle.State{}
	d.resIdx = nil
	d.members, d.enabled = nil, nil
	d.maxSize, d.sizeIsSet = 0, false
	return nil
}

// Table returns the catalog description of the table d belongs to.
func (d *Data) Table() *catalog.Table { return d.tbl }

// ActionID returns the action d holds parameters for.
func (d *Data) ActionID() catalog.ActionID { return d.action }

// ActiveFields returns the fields currently active on d.
func (d *Data) ActiveFields() []catalog.FieldID { return slices.Clone(d.active) }

// AllFieldsSet reports whether d was created without an explicit field
// list.
func (d *Data) AllFieldsSet() bool { return d.all }

// IsActive reports whether field id is active.
func (d *Data) IsActive(id catalog.FieldID) bool { return slices.Contains(d.active, id) }

// MemberID returns the member d references, if any.
func (d *Data) MemberID() (indirect.MemberID, bool) { return d.member, d.ref == refMember }

// GroupID returns the group d references, if any.
func (d *Data) GroupID() (indirect.GroupID, bool) { return d.group, d.ref == refGroup }

// Spec returns the action spec staged on d.
func (d *Data) Spec() *actionspec.Spec { return d.spec }

func (d *Data) field(id catalog.FieldID) (*catalog.Field, error) {
	f, err := d.tbl.Field(id, d.action)
	if err != nil {
		return nil, err
	}
	if !d.IsActive(id) {
		return nil, status.Invalidf("table %s: field %q (%d) is not active", d.tbl.Name, f.Name, id)
	}
	return f, nil
}

func (d *Data) removeRole(r catalog.Role) {
	d.active = slices.DeleteFunc(d.active, func(id catalog.FieldID) bool {
		f, err := d.tbl.Field(id, d.action)
		return err == nil && f.HasRole(r)
	})
}

func (d *Data) roleOf(id catalog.FieldID) catalog.Role {
	f, err := d.tbl.Field(id, d.action)
	if err != nil {
		return catalog.RoleNone
	}
	return f.Role()
}

func (d *Data) handle(r catalog.Role) (pipe.ResourceHandle, error) {
	h, ok := d.tbl.ResourceHandle(r)
	if !ok {
		return 0, status.Invalidf("table %s: no %s resource for %v", d.tbl.Name, r.ResourceKind(), r)
	}
	return h, nil
}

// SetValue sets an integer field.
func (d *Data) SetValue(id catalog.FieldID, v uint64) error {
	f, err := d.field(id)
	if err != nil {
		return err
	}
	if err := f.CheckUint(v); err != nil {
		return err
	}
	for _, r := range f.Roles {
		if err := d.setUint(f, r, v); err != nil {
			return err
		}
	}
	return nil
}

// SetBytes sets a field from a network-order byte string.
func (d *Data) SetBytes(id catalog.FieldID, b []byte) error {
	f, err := d.field(id)
	if err != nil {
		return err
	}
	if err := f.CheckBytes(b); err != nil {
		return err
	}
	for _, r := range f.Roles {
		switch r {
		case catalog.RoleActionParam, catalog.RoleActionParamOptimizedOut:
			err = d.spec.SetActionParamBytes(f, b)
		default:
			if len(b) > 8 {
				return status.Invalidf("field %q (%d): %d bytes do not fit %v", f.Name, id, len(b), r)
			}
			err = d.setUint(f, r, bytesToUint(b))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Data) setUint(f *catalog.Field, r catalog.Role, v uint64) error {
	switch {
	case r == catalog.RoleActionParam || r == catalog.RoleActionParamOptimizedOut:
		return d.spec.SetActionParam(f, v)

	case r.IsIndex():
		h, err := d.handle(r)
		if err != nil {
			return err
		}
		if err := d.spec.SetResourceIndex(r.ResourceKind(), h, uint32(v)); err != nil {
			return err
		}
		if d.tbl.Kind == catalog.KindActionProfile {
			if d.resIdx == nil {
				d.resIdx = make(indirect.ResourceMap)
			}
			d.resIdx[r] = uint32(v)
		}
		return nil

	case r == catalog.RoleRegister || r == catalog.RoleRegisterHi || r == catalog.RoleRegisterLo:
		h, err := d.handle(r)
		if err != nil {
			return err
		}
		return d.spec.SetRegister(r, h, f.Bits, v)

	case r.ResourceKind() != catalog.ResourceNone:
		h, err := d.handle(r)
		if err != nil {
			return err
		}
		return d.spec.SetResourceValue(r, h, v)
	}

	switch r {
	case catalog.RoleActionMemberID:
		if d.ref == refGroup {
			return status.Invalidf("table %s: entry already references group %d", d.tbl.Name, d.group)
		}
		d.ref, d.member = refMember, indirect.MemberID(v)
		d.removeRole(catalog.RoleSelectorGroupID)
	case catalog.RoleSelectorGroupID:
		if d.ref == refMember {
			return status.Invalidf("table %s: entry already references member %d", d.tbl.Name, d.member)
		}
		d.ref, d.group = refGroup, indirect.GroupID(v)
		d.removeRole(catalog.RoleActionMemberID)
	case catalog.RoleTTL:
		if err := idle.CheckSet(d.idle, r); err != nil {
			return err
		}
		if err := idle.CheckTTL(d.idle, uint32(v)); err != nil {
			return err
		}
		d.idleState.TTL = uint32(v)
	case catalog.RoleEntryHitState:
		if err := idle.CheckSet(d.idle, r); err != nil {
			return err
		}
		if v > uint64(idle.HitActive) {
			return status.Invalidf("invalid entry hit state %d", v)
		}
		d.idleState.Hit = idle.HitState(v)
	case catalog.RoleMaxGroupSize:
		d.maxSize, d.sizeIsSet = uint32(v), true
	default:
		return status.Invalidf("field %q (%d): role %v does not take an integer", f.Name, f.ID, r)
	}
	return nil
}

// SetFloat sets a floating point field (LPF and WRED parameters).
func (d *Data) SetFloat(id catalog.FieldID, v float32) error {
	f, err := d.field(id)
	if err != nil {
		return err
	}
	if f.Type != catalog.TypeFloat {
		return status.Invalidf("field %q (%d) of type %s does not take a float", f.Name, id, f.Type)
	}
	for _, r := range f.Roles {
		h, err := d.handle(r)
		if err != nil {
			return err
		}
		if err := d.spec.SetResourceFloat(r, h, v); err != nil {
			return err
		}
	}
	return nil
}

// SetString sets a string field: the LPF type or the entry hit state.
func (d *Data) SetString(id catalog.FieldID, s string) error {
	f, err := d.field(id)
	if err != nil {
		return err
	}
	if err := f.CheckString(s); err != nil {
		return err
	}
	for _, r := range f.Roles {
		switch r {
		case catalog.RoleLPFType:
			t, err := actionspec.ParseLPFType(s)
			if err != nil {
				return err
			}
			h, err := d.handle(r)
			if err != nil {
				return err
			}
			if err := d.spec.SetLPFType(h, t); err != nil {
				return err
			}
		case catalog.RoleEntryHitState:
			if err := idle.CheckSet(d.idle, r); err != nil {
				return err
			}
			hit, err := idle.ParseHitState(s)
			if err != nil {
				return err
			}
			d.idleState.Hit = hit
		default:
			return status.Invalidf("field %q (%d): role %v does not take a string", f.Name, id, r)
		}
	}
	return nil
}

// SetMembers sets the member list of a selector group.
func (d *Data) SetMembers(id catalog.FieldID, members []indirect.MemberID) error {
	f, err := d.field(id)
	if err != nil {
		return err
	}
	if !f.HasRole(catalog.RoleSelectorMembers) {
		return status.Invalidf("field %q (%d) is not a member list", f.Name, id)
	}
	d.members = slices.Clone(members)
	return nil
}

// SetMemberStatus sets the per-member enable flags of a selector group.
func (d *Data) SetMemberStatus(id catalog.FieldID, enabled []bool) error {
	f, err := d.field(id)
	if err != nil {
		return err
	}
	if !f.HasRole(catalog.RoleMemberStatus) {
		return status.Invalidf("field %q (%d) is not a member status list", f.Name, id)
	}
	d.enabled = slices.Clone(enabled)
	return nil
}

// Value returns an integer field. Register fields return the first
// instance; use Values for all of them.
func (d *Data) Value(id catalog.FieldID) (uint64, error) {
	f, err := d.field(id)
	if err != nil {
		return 0, err
	}
	if f.Type != catalog.TypeUint64 && f.Type != catalog.TypeBytes {
		return 0, status.Invalidf("field %q (%d) of type %s is not an integer", f.Name, id, f.Type)
	}
	return d.getUint(f, f.Role())
}

func (d *Data) getUint(f *catalog.Field, r catalog.Role) (uint64, error) {
	switch {
	case r == catalog.RoleActionParam || r == catalog.RoleActionParamOptimizedOut:
		return d.spec.ActionParam(f)
	case r.IsIndex():
		if d.tbl.Kind == catalog.KindActionProfile {
			if v, ok := d.resIdx[r]; ok {
				return uint64(v), nil
			}
		}
		h, err := d.handle(r)
		if err != nil {
			return 0, err
		}
		v, err := d.spec.ResourceIndex(h)
		return uint64(v), err
	case r == catalog.RoleRegister || r == catalog.RoleRegisterHi || r == catalog.RoleRegisterLo:
		vals, err := d.registerValues(f, r)
		if err != nil || len(vals) == 0 {
			return 0, err
		}
		return vals[0], nil
	case r.ResourceKind() != catalog.ResourceNone:
		h, err := d.handle(r)
		if err != nil {
			return 0, err
		}
		return d.spec.ResourceValue(r, h)
	}
	switch r {
	case catalog.RoleActionMemberID:
		if d.ref != refMember {
			return 0, status.Invalidf("table %s: entry does not reference a member", d.tbl.Name)
		}
		return uint64(d.member), nil
	case catalog.RoleSelectorGroupID:
		if d.ref != refGroup {
			return 0, status.Invalidf("table %s: entry does not reference a group", d.tbl.Name)
		}
		return uint64(d.group), nil
	case catalog.RoleTTL:
		return uint64(d.idleState.TTL), nil
	case catalog.RoleEntryHitState:
		return uint64(d.idleState.Hit), nil
	case catalog.RoleMaxGroupSize:
		return uint64(d.maxSize), nil
	}
	return 0, status.Invalidf("field %q (%d): role %v is not an integer", f.Name, f.ID, r)
}

func (d *Data) registerValues(f *catalog.Field, r catalog.Role) ([]uint64, error) {
	h, err := d.handle(r)
	if err != nil {
		return nil, err
	}
	return d.spec.RegisterValues(r, h, f.Bits)
}

// Values returns every instance of a register field.
func (d *Data) Values(id catalog.FieldID) ([]uint64, error) {
	f, err := d.field(id)
	if err != nil {
		return nil, err
	}
	switch r := f.Role(); r {
	case catalog.RoleRegister, catalog.RoleRegisterHi, catalog.RoleRegisterLo:
		return d.registerValues(f, r)
	}
	v, err := d.getUint(f, f.Role())
	if err != nil {
		return nil, err
	}
	return []uint64{v}, nil
}

// Bytes returns a field as a network-order byte string of its width.
func (d *Data) Bytes(id catalog.FieldID) ([]byte, error) {
	f, err := d.field(id)
	if err != nil {
		return nil, err
	}
	switch f.Role() {
	case catalog.RoleActionParam, catalog.RoleActionParamOptimizedOut:
		return d.spec.ActionParamBytes(f)
	}
	v, err := d.getUint(f, f.Role())
	if err != nil {
		return nil, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	n := f.Bytes()
	if n > 8 || n == 0 {
		n = 8
	}
	return append([]byte(nil), buf[8-n:]...), nil
}

// Float returns a floating point field.
func (d *Data) Float(id catalog.FieldID) (float32, error) {
	f, err := d.field(id)
	if err != nil {
		return 0, err
	}
	if f.Type != catalog.TypeFloat {
		return 0, status.Invalidf("field %q (%d) of type %s is not a float", f.Name, id, f.Type)
	}
	h, err := d.handle(f.Role())
	if err != nil {
		return 0, err
	}
	return d.spec.ResourceFloat(f.Role(), h)
}

// String returns a string field.
func (d *Data) String(id catalog.FieldID) (string, error) {
	f, err := d.field(id)
	if err != nil {
		return "", err
	}
	switch f.Role() {
	case catalog.RoleLPFType:
		h, err := d.handle(f.Role())
		if err != nil {
			return "", err
		}
		return d.spec.LPFType(h).String(), nil
	case catalog.RoleEntryHitState:
		return d.idleState.Hit.String(), nil
	}
	return "", status.Invalidf("field %q (%d) is not a string", f.Name, id)
}

// Members returns the member list of a selector group.
func (d *Data) Members(id catalog.FieldID) ([]indirect.MemberID, error) {
	f, err := d.field(id)
	if err != nil {
		return nil, err
	}
	if !f.HasRole(catalog.RoleSelectorMembers) {
		return nil, status.Invalidf("field %q (%d) is not a member list", f.Name, id)
	}
	return slices.Clone(d.members), nil
}

// MemberStatus returns the per-member enable flags of a selector group.
func (d *Data) MemberStatus(id catalog.FieldID) ([]bool, error) {
	f, err := d.field(id)
	if err != nil {
		return nil, err
	}
	if !f.HasRole(catalog.RoleMemberStatus) {
		return nil, status.Invalidf("field %q (%d) is not a member status list", f.Name, id)
	}
	return slices.Clone(d.enabled), nil
}

func (d *Data) resources() indirect.ResourceMap { return maps.Clone(d.resIdx) }

func bytesToUint(b []byte) uint64 {
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:])
}
