package actionspec

import (
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// Len returns the number of attachments.
func (s *Spec) Len() int { return s.count }

// Direct returns the number of direct attachments.
func (s *Spec) Direct() int { return s.direct }

// Indirect returns the number of indirect attachments.
func (s *Spec) Indirect() int { return s.indirect }

// At returns the i-th attachment.
func (s *Spec) At(i int) Attachment { return s.res[i] }

// Attachments returns a copy of the attachment list.
func (s *Spec) Attachments() []Attachment {
	out := make([]Attachment, s.count)
	copy(out, s.res[:s.count])
	return out
}

// Attachment returns the attachment for handle h.
func (s *Spec) Attachment(h pipe.ResourceHandle) (Attachment, bool) {
	if i := s.find(h); i >= 0 {
		return s.res[i], true
	}
	return Attachment{}, false
}

func (s *Spec) find(h pipe.ResourceHandle) int {
	for i := 0; i < s.count; i++ {
		if s.res[i].Handle == h {
			return i
		}
	}
	return -1
}

func (s *Spec) countAs(direct bool, delta int) {
	if direct {
		s.direct += delta
	} else {
		s.indirect += delta
	}
}

// attach returns the attachment for h, appending a new one tagged
// Attached if there is none.
func (s *Spec) attach(h pipe.ResourceHandle, kind catalog.ResourceKind, direct bool) (*Attachment, error) {
	if i := s.find(h); i >= 0 {
		return &s.res[i], nil
	}
	if s.count == MaxResources {
		return nil, status.Invalidf("resource %#x: attachment list full (%d)", h, MaxResources)
	}
	a := &s.res[s.count]
	*a = Attachment{Handle: h, Kind: kind, Tag: TagAttached, Direct: direct}
	s.count++
	s.countAs(direct, 1)
	return a, nil
}

// Append adds a to the end of the list without looking for an existing
// attachment of the same handle.
func (s *Spec) Append(a Attachment) error {
	if s.count == MaxResources {
		return status.Invalidf("resource %#x: attachment list full (%d)", a.Handle, MaxResources)
	}
	s.res[s.count] = a
	s.count++
	s.countAs(a.Direct, 1)
	return nil
}

// Put replaces the attachment for a.Handle, or appends a if there is none.
func (s *Spec) Put(a Attachment) error {
	i := s.find(a.Handle)
	if i < 0 {
		return s.Append(a)
	}
	s.countAs(s.res[i].Direct, -1)
	s.res[i] = a
	s.countAs(a.Direct, 1)
	return nil
}

// Apply writes res over the list. Attachments tagged Unchanged are
// skipped; the rest replace the attachment of the same handle or are
// appended.
func (s *Spec) Apply(res []Attachment) error {
	for _, a := range res {
		if a.Tag == TagUnchanged {
			continue
		}
		if err := s.Put(a); err != nil {
			return err
		}
	}
	return nil
}

// Overlay returns a copy of next whose attachment list is the list of s
// with next's attachments applied. Resources next does not mention keep
// their state from s.
func (s *Spec) Overlay(next *Spec) (*Spec, error) {
	out := next.Clone()
	out.res = s.res
	out.count, out.direct, out.indirect = s.count, s.direct, s.indirect
	if err := out.Apply(next.Attachments()); err != nil {
		return nil, err
	}
	return out, nil
}

// Room returns how many more attachments fit.
func (s *Spec) Room() int { return MaxResources - s.count }

// RemoveAt drops the i-th attachment by moving the last one into its
// slot. Order is not preserved.
func (s *Spec) RemoveAt(i int) {
	if i < 0 || i >= s.count {
		return
	}
	s.countAs(s.res[i].Direct, -1)
	last := s.count - 1
	s.res[i] = s.res[last]
	s.res[last] = Attachment{}
	s.count = last
}

// SetResourceIndex points the entry at slot idx of the indirect resource h.
func (s *Spec) SetResourceIndex(kind catalog.ResourceKind, h pipe.ResourceHandle, idx uint32) error {
	a, err := s.attach(h, kind, false)
	if err != nil {
		return err
	}
	a.Tag = TagAttached
	a.Index = idx
	return nil
}

// ResourceIndex returns the index set for the indirect resource h.
func (s *Spec) ResourceIndex(h pipe.ResourceHandle) (uint32, error) {
	i := s.find(h)
	if i < 0 {
		return 0, status.Invalidf("resource %#x is not attached", h)
	}
	return s.res[i].Index, nil
}

// SetResourceValue stores an integer resource configuration value on the
// direct attachment for h, routing by role.
func (s *Spec) SetResourceValue(r catalog.Role, h pipe.ResourceHandle, v uint64) error {
	kind := r.ResourceKind()
	switch kind {
	case catalog.ResourceNone, catalog.ResourceRegister:
		return status.Invalidf("role %v is not a resource value", r)
	}
	// Validate against a scratch copy first so a bad role leaves the
	// list unchanged.
	a, existing := s.Attachment(h)
	if !existing {
		a = Attachment{Handle: h, Kind: kind}
	}
	var err error
	switch kind {
	case catalog.ResourceCounter:
		err = a.Counter.Set(r, v)
	case catalog.ResourceMeter:
		err = a.Meter.Set(r, v)
	case catalog.ResourceLPF:
		err = a.LPF.SetUint(r, v)
	case catalog.ResourceWRED:
		err = a.WRED.SetUint(r, v)
	}
	if err != nil {
		return err
	}
	return s.store(a, existing)
}

// SetResourceFloat stores a float resource value (LPF time constants,
// WRED time constant and max probability).
func (s *Spec) SetResourceFloat(r catalog.Role, h pipe.ResourceHandle, v float32) error {
	kind := r.ResourceKind()
	a, existing := s.Attachment(h)
	if !existing {
		a = Attachment{Handle: h, Kind: kind}
	}
	var err error
	switch kind {
	case catalog.ResourceLPF:
		err = a.LPF.SetFloat(r, v)
	case catalog.ResourceWRED:
		err = a.WRED.SetFloat(r, v)
	default:
		err = status.Invalidf("role %v does not take a float", r)
	}
	if err != nil {
		return err
	}
	return s.store(a, existing)
}

// SetLPFType stores the LPF type on the direct attachment for h.
func (s *Spec) SetLPFType(h pipe.ResourceHandle, t LPFType) error {
	return s.SetResourceValue(catalog.RoleLPFType, h, uint64(t))
}

// SetRegister stores a register value of the given cell width on the
// direct attachment for h.
func (s *Spec) SetRegister(r catalog.Role, h pipe.ResourceHandle, width uint32, v uint64) error {
	a, existing := s.Attachment(h)
	if !existing {
		a = Attachment{Handle: h, Kind: catalog.ResourceRegister}
	}
	if err := a.Register.Set(width, r, v); err != nil {
		return err
	}
	return s.store(a, existing)
}

func (s *Spec) store(a Attachment, existing bool) error {
	if existing {
		a.Tag = TagAttached
		s.res[s.find(a.Handle)] = a
		return nil
	}
	slot, err := s.attach(a.Handle, a.Kind, true)
	if err != nil {
		return err
	}
	a.Tag, a.Direct = TagAttached, true
	*slot = a
	return nil
}

// ResourceValue returns an integer resource value for h. A resource with
// no attachment reads as zero.
func (s *Spec) ResourceValue(r catalog.Role, h pipe.ResourceHandle) (uint64, error) {
	a, _ := s.Attachment(h)
	switch r.ResourceKind() {
	case catalog.ResourceCounter:
		return a.Counter.Get(r)
	case catalog.ResourceMeter:
		return a.Meter.Get(r)
	case catalog.ResourceLPF:
		return a.LPF.Uint(r)
	case catalog.ResourceWRED:
		return a.WRED.Uint(r)
	}
	return 0, status.Invalidf("role %v is not a resource value", r)
}

// ResourceFloat returns a float resource value for h.
func (s *Spec) ResourceFloat(r catalog.Role, h pipe.ResourceHandle) (float32, error) {
	a, _ := s.Attachment(h)
	switch r.ResourceKind() {
	case catalog.ResourceLPF:
		return a.LPF.Float(r)
	case catalog.ResourceWRED:
		return a.WRED.Float(r)
	}
	return 0, status.Invalidf("role %v does not hold a float", r)
}

// LPFType returns the LPF type stored for h.
func (s *Spec) LPFType(h pipe.ResourceHandle) LPFType {
	a, _ := s.Attachment(h)
	return a.LPF.Type
}

// SetRegisterCells records the per-instance register cells of a read.
func (s *Spec) SetRegisterCells(cells []RegisterCell) {
	s.registers = append([]RegisterCell(nil), cells...)
}

// RegisterValues returns the register value role names for every
// instance. After a read this is one value per pipe instance; otherwise it
// is the single value staged on the attachment for h.
func (s *Spec) RegisterValues(r catalog.Role, h pipe.ResourceHandle, width uint32) ([]uint64, error) {
	cells := s.registers
	if cells == nil {
		a, _ := s.Attachment(h)
		cells = []RegisterCell{a.Register}
	}
	out := make([]uint64, 0, len(cells))
	for _, c := range cells {
		v, err := c.Get(width, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
