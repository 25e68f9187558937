package dataplane

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/status"
)

func TestEntryCodec(t *testing.T) {
	spec := actionspec.New(3, 20)
	if err := spec.SetData([]byte{0xaa, 0xbb, 0x0c}); err != nil {
		t.Fatal(err)
	}
	spec.SetMemberHandle(0x42)
	res := []actionspec.Attachment{
		{Handle: 1, Kind: catalog.ResourceCounter, Tag: actionspec.TagAttached, Direct: true,
			Counter: actionspec.CounterSpec{Bytes: 1500, Packets: 1}},
		{Handle: 2, Kind: catalog.ResourceMeter, Tag: actionspec.TagAttached, Direct: true,
			Meter: actionspec.MeterSpec{
				CIR: actionspec.Rate{Value: 100, Unit: actionspec.RatePps},
				PIR: actionspec.Rate{Value: 2000, Unit: actionspec.RateKbps},
				CBS: 10, PBS: 20,
			}},
		{Handle: 3, Kind: catalog.ResourceLPF, Tag: actionspec.TagAttached, Direct: true,
			LPF: actionspec.LPFSpec{Type: actionspec.LPFSample, GainTimeConstant: 1.5,
				DecayTimeConstant: 2.5, Separate: true, OutputScaleDown: 3}},
		{Handle: 4, Kind: catalog.ResourceWRED, Tag: actionspec.TagAttached, Direct: true,
			WRED: actionspec.WREDSpec{TimeConstant: 0.5, MinThreshold: 10, MaxThreshold: 90, MaxProbability: 0.25}},
		{Handle: 5, Kind: catalog.ResourceRegister, Tag: actionspec.TagAttached, Direct: true,
			Register: actionspec.RegisterCell{Hi: 7, Lo: 9}},
		{Handle: 6, Kind: catalog.ResourceCounter, Tag: actionspec.TagDetached},
		{Handle: 7, Kind: catalog.ResourceMeter, Tag: actionspec.TagAttached, Index: 12},
	}
	for _, a := range res {
		if err := spec.Append(a); err != nil {
			t.Fatal(err)
		}
	}

	v, err := encodeEntry(1, 0x300, spec, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != EntryKindMember || v.Ref != 0x42 || v.TTL != 5000 {
		t.Errorf("header = kind %d ref %#x ttl %d", v.Kind, v.Ref, v.TTL)
	}

	got, err := v.spec()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(spec.Data(), got.Data()); diff != "" {
		t.Errorf("data (-want +got):\n%s", diff)
	}
	if got.MemberHandle() != 0x42 || got.DataBits() != 20 {
		t.Errorf("member %#x, bits %d", got.MemberHandle(), got.DataBits())
	}
	if got.Direct() != 5 || got.Indirect() != 2 {
		t.Errorf("direct/indirect = %d/%d, want 5/2", got.Direct(), got.Indirect())
	}
	if diff := cmp.Diff(res, got.Attachments()); diff != "" {
		t.Errorf("attachments (-want +got):\n%s", diff)
	}
}

func TestEncodeLimits(t *testing.T) {
	if _, err := encodeEntry(0, 1, actionspec.New(MaxActionData+1, 0), 0); !errors.Is(err, status.ErrNotSupported) {
		t.Errorf("oversized action data: %v", err)
	}
	long := backend.MatchSpec{Key: make([]byte, MatchKeyLen+1)}
	if _, err := encodeMatch(1, long); !errors.Is(err, status.ErrNotSupported) {
		t.Errorf("oversized match key: %v", err)
	}
	k, err := encodeMatch(1, backend.MatchSpec{Key: []byte{10, 0, 0, 1}, Mask: []byte{255, 255, 255, 0}, Priority: 7})
	if err != nil {
		t.Fatal(err)
	}
	if k.Len != 4 || k.Key[0] != 10 || k.Mask[3] != 0 || k.Priority != 7 {
		t.Errorf("match key = %+v", k)
	}
}

func TestMapValueSizes(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want uint32
	}{
		{"EntryKey", EntryKey{}, 8},
		{"ResourceValue", ResourceValue{}, 48},
		{"EntryValue", EntryValue{}, 32 + MaxActionData + MaxAttachments*48},
		{"MatchKey", MatchKey{}, 8 + 2*MatchKeyLen + 4},
		{"GroupValue", GroupValue{}, 16 + MaxGroupMembers*5},
	}
	for _, tt := range tests {
		if got := size(tt.v); got != tt.want {
			t.Errorf("%s size = %d, want %d", tt.name, got, tt.want)
		}
	}
}
