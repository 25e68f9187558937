package dataplane

import (
	"math"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

func pack32(hi, lo uint32) uint64 { return uint64(hi)<<32 | uint64(lo) }

func unpack32(w uint64) (uint32, uint32) { return uint32(w >> 32), uint32(w) }

func encodeResource(a actionspec.Attachment) ResourceValue {
	rv := ResourceValue{
		Handle: uint32(a.Handle),
		Index:  a.Index,
		Kind:   uint8(a.Kind),
		Tag:    uint8(a.Tag),
	}
	if a.Direct {
		rv.Direct = 1
	}
	switch a.Kind {
	case catalog.ResourceCounter:
		rv.Words[0], rv.Words[1] = a.Counter.Bytes, a.Counter.Packets
	case catalog.ResourceMeter:
		m := a.Meter
		rv.Words = [4]uint64{m.CIR.Value, m.PIR.Value, m.CBS, m.PBS}
		if m.CIR.Unit == actionspec.RatePps {
			rv.Flags |= ResFlagCIRPps
		}
		if m.PIR.Unit == actionspec.RatePps {
			rv.Flags |= ResFlagPIRPps
		}
	case catalog.ResourceLPF:
		l := a.LPF
		rv.Words[0] = pack32(math.Float32bits(l.GainTimeConstant), math.Float32bits(l.DecayTimeConstant))
		rv.Words[1] = pack32(math.Float32bits(l.TimeConstant), l.OutputScaleDown)
		if l.Type == actionspec.LPFSample {
			rv.Flags |= ResFlagLPFSample
		}
		if l.Separate {
			rv.Flags |= ResFlagLPFSeparate
		}
	case catalog.ResourceWRED:
		w := a.WRED
		rv.Words[0] = pack32(math.Float32bits(w.TimeConstant), math.Float32bits(w.MaxProbability))
		rv.Words[1] = pack32(w.MinThreshold, w.MaxThreshold)
	case catalog.ResourceRegister:
		rv.Words[0] = pack32(a.Register.Hi, a.Register.Lo)
	}
	return rv
}

func decodeResource(rv ResourceValue) actionspec.Attachment {
	a := actionspec.Attachment{
		Handle: pipe.ResourceHandle(rv.Handle),
		Kind:   catalog.ResourceKind(rv.Kind),
		Tag:    actionspec.Tag(rv.Tag),
		Index:  rv.Index,
		Direct: rv.Direct != 0,
	}
	switch a.Kind {
	case catalog.ResourceCounter:
		a.Counter = actionspec.CounterSpec{Bytes: rv.Words[0], Packets: rv.Words[1]}
	case catalog.ResourceMeter:
		a.Meter = actionspec.MeterSpec{
			CIR: actionspec.Rate{Value: rv.Words[0], Unit: unitOf(rv.Flags, ResFlagCIRPps)},
			PIR: actionspec.Rate{Value: rv.Words[1], Unit: unitOf(rv.Flags, ResFlagPIRPps)},
			CBS: rv.Words[2],
			PBS: rv.Words[3],
		}
	case catalog.ResourceLPF:
		gain, decay := unpack32(rv.Words[0])
		tc, scale := unpack32(rv.Words[1])
		a.LPF = actionspec.LPFSpec{
			GainTimeConstant:  math.Float32frombits(gain),
			DecayTimeConstant: math.Float32frombits(decay),
			TimeConstant:      math.Float32frombits(tc),
			OutputScaleDown:   scale,
			Separate:          rv.Flags&ResFlagLPFSeparate != 0,
		}
		if rv.Flags&ResFlagLPFSample != 0 {
			a.LPF.Type = actionspec.LPFSample
		}
	case catalog.ResourceWRED:
		tc, prob := unpack32(rv.Words[0])
		minT, maxT := unpack32(rv.Words[1])
		a.WRED = actionspec.WREDSpec{
			TimeConstant:   math.Float32frombits(tc),
			MaxProbability: math.Float32frombits(prob),
			MinThreshold:   minT,
			MaxThreshold:   maxT,
		}
	case catalog.ResourceRegister:
		hi, lo := unpack32(rv.Words[0])
		a.Register = actionspec.RegisterCell{Hi: hi, Lo: lo}
	}
	return a
}

func unitOf(flags, bit uint8) actionspec.RateUnit {
	if flags&bit != 0 {
		return actionspec.RatePps
	}
	return actionspec.RateKbps
}

// encodeEntry lays spec out as a map value.
func encodeEntry(p pipe.PipeID, fn pipe.ActFnHandle, spec *actionspec.Spec, ttl uint32) (EntryValue, error) {
	var v EntryValue
	data := spec.Data()
	if len(data) > MaxActionData {
		return v, status.Errorf(status.NotSupported, "%d bytes of action data exceed the %d-byte map slot",
			len(data), MaxActionData)
	}
	v.ActFn = uint32(fn)
	v.Pipe = uint32(p)
	v.TTL = ttl
	v.DataLen = uint16(len(data))
	v.DataBits = uint16(spec.DataBits())
	copy(v.Data[:], data)

	switch spec.Kind() {
	case actionspec.KindMemberHandle:
		v.Kind, v.Ref = EntryKindMember, uint32(spec.MemberHandle())
	case actionspec.KindGroupHandle:
		v.Kind, v.Ref = EntryKindGroup, uint32(spec.GroupHandle())
	}
	v.NumRes = uint8(spec.Len())
	for i := range spec.Len() {
		v.Res[i] = encodeResource(spec.At(i))
	}
	return v, nil
}

// setResources replaces the attachment list of v.
func (v *EntryValue) setResources(res []actionspec.Attachment) error {
	if len(res) > MaxAttachments {
		return status.Invalidf("%d attachments exceed %d", len(res), MaxAttachments)
	}
	v.Res = [MaxAttachments]ResourceValue{}
	v.NumRes = uint8(len(res))
	for i, a := range res {
		v.Res[i] = encodeResource(a)
	}
	return nil
}

func (v *EntryValue) spec() (*actionspec.Spec, error) {
	if int(v.DataLen) > MaxActionData || int(v.NumRes) > MaxAttachments {
		return nil, status.Unexpectedf("corrupt map entry: %d data bytes, %d attachments", v.DataLen, v.NumRes)
	}
	s := actionspec.New(int(v.DataLen), int(v.DataBits))
	if err := s.SetData(v.Data[:v.DataLen]); err != nil {
		return nil, err
	}
	switch v.Kind {
	case EntryKindMember:
		s.SetMemberHandle(pipe.EntryHandle(v.Ref))
	case EntryKindGroup:
		s.SetGroupHandle(pipe.GroupHandle(v.Ref))
	}
	for i := range int(v.NumRes) {
		if err := s.Append(decodeResource(v.Res[i])); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (v *EntryValue) entry(h pipe.EntryHandle) (backend.Entry, error) {
	s, err := v.spec()
	if err != nil {
		return backend.Entry{}, err
	}
	return backend.Entry{
		Handle: h,
		Pipe:   pipe.PipeID(v.Pipe),
		ActFn:  pipe.ActFnHandle(v.ActFn),
		Spec:   s,
		TTL:    v.TTL,
		Hit:    idle.HitState(v.Hit),
	}, nil
}

func encodeMatch(tbl pipe.TableHandle, m backend.MatchSpec) (MatchKey, error) {
	if len(m.Key) > MatchKeyLen || len(m.Mask) > MatchKeyLen {
		return MatchKey{}, status.Errorf(status.NotSupported, "match key of %d bytes exceeds %d", len(m.Key), MatchKeyLen)
	}
	k := MatchKey{Table: uint32(tbl), Len: uint16(len(m.Key)), Priority: m.Priority}
	copy(k.Key[:], m.Key)
	copy(k.Mask[:], m.Mask)
	return k, nil
}
