package actionspec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/status"
)

func TestMeterRateUnit(t *testing.T) {
	s := New(0, 0)
	if err := s.SetResourceValue(catalog.RoleMeterCIRPps, 7, 1000); err != nil {
		t.Fatal(err)
	}
	if err := s.SetResourceValue(catalog.RoleMeterPIRKbps, 7, 2000); err != nil {
		t.Fatal(err)
	}
	if err := s.SetResourceValue(catalog.RoleMeterCBSPkts, 7, 10); err != nil {
		t.Fatal(err)
	}
	a, ok := s.Attachment(7)
	if !ok {
		t.Fatal("meter not attached")
	}
	want := MeterSpec{CIR: Rate{1000, RatePps}, PIR: Rate{2000, RateKbps}, CBS: 10}
	if diff := cmp.Diff(want, a.Meter); diff != "" {
		t.Errorf("meter (-want +got):\n%s", diff)
	}
	if !a.Direct || a.Tag != TagAttached || s.Direct() != 1 {
		t.Errorf("attachment = %+v", a)
	}
	if v, _ := s.ResourceValue(catalog.RoleMeterPIRPps, 7); v != 2000 {
		t.Errorf("PIR = %d", v)
	}
}

func TestLPFTimeConstants(t *testing.T) {
	var l LPFSpec
	if err := l.SetFloat(catalog.RoleLPFGainTimeConstant, 5); err != nil {
		t.Fatal(err)
	}
	if !l.Separate {
		t.Error("gain 5 decay 0 should be separate")
	}
	if err := l.SetFloat(catalog.RoleLPFDecayTimeConstant, 5); err != nil {
		t.Fatal(err)
	}
	if l.Separate || l.TimeConstant != 5 {
		t.Errorf("equal constants: %+v", l)
	}
	if v, _ := l.Float(catalog.RoleLPFDecayTimeConstant); v != 5 {
		t.Errorf("decay = %v", v)
	}
	_ = l.SetFloat(catalog.RoleLPFDecayTimeConstant, 9)
	if !l.Separate {
		t.Error("differing constants should be separate")
	}
	if v, _ := l.Float(catalog.RoleLPFDecayTimeConstant); v != 9 {
		t.Errorf("decay = %v", v)
	}
}

func TestLPFType(t *testing.T) {
	tests := []struct {
		in   string
		want LPFType
		ok   bool
	}{
		{"RATE", LPFRate, true},
		{"SAMPLE", LPFSample, true},
		{"rate", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseLPFType(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseLPFType(%q) = %v, %v", tt.in, got, err)
		}
		if !tt.ok && !errors.Is(err, status.ErrInvalidArgument) {
			t.Errorf("ParseLPFType(%q) err kind = %v", tt.in, err)
		}
	}
	s := New(0, 0)
	if err := s.SetResourceValue(catalog.RoleLPFType, 3, 2); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("LPF type 2: %v", err)
	}
	if s.Len() != 0 {
		t.Error("rejected LPF type still attached the resource")
	}
	if err := s.SetLPFType(3, LPFSample); err != nil {
		t.Fatal(err)
	}
	if s.LPFType(3) != LPFSample {
		t.Error("LPF type not stored")
	}
}

func TestWRED(t *testing.T) {
	s := New(0, 0)
	if err := s.SetResourceFloat(catalog.RoleWREDMaxProbability, 4, 0.25); err != nil {
		t.Fatal(err)
	}
	if err := s.SetResourceValue(catalog.RoleWREDMinThreshold, 4, 100); err != nil {
		t.Fatal(err)
	}
	if err := s.SetResourceValue(catalog.RoleWREDMaxThreshold, 4, 400); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Attachment(4)
	want := WREDSpec{MinThreshold: 100, MaxThreshold: 400, MaxProbability: 0.25}
	if diff := cmp.Diff(want, a.WRED); diff != "" {
		t.Errorf("wred (-want +got):\n%s", diff)
	}
	if err := s.SetResourceFloat(catalog.RoleCounterBytes, 4, 1); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("float on counter: %v", err)
	}
}

func TestRegisterWidths(t *testing.T) {
	tests := []struct {
		name  string
		width uint32
		role  catalog.Role
		in    uint64
		cell  RegisterCell
		out   uint64
	}{
		{"bit", 1, catalog.RoleRegister, 3, RegisterCell{Lo: 1}, 1},
		{"byte", 8, catalog.RoleRegister, 0x1ff, RegisterCell{Lo: 0xff}, 0xff},
		{"half hi", 16, catalog.RoleRegisterHi, 0xabcd, RegisterCell{Hi: 0xabcd}, 0xabcd},
		{"word lo", 32, catalog.RoleRegisterLo, 0x12345678, RegisterCell{Lo: 0x12345678}, 0x12345678},
		{"dword", 64, catalog.RoleRegister, 0x1122334455667788, RegisterCell{Hi: 0x11223344, Lo: 0x55667788}, 0x1122334455667788},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c RegisterCell
			if err := c.Set(tt.width, tt.role, tt.in); err != nil {
				t.Fatal(err)
			}
			if c != tt.cell {
				t.Errorf("cell = %+v, want %+v", c, tt.cell)
			}
			got, err := c.Get(tt.width, tt.role)
			if err != nil || got != tt.out {
				t.Errorf("Get = %#x, %v; want %#x", got, err, tt.out)
			}
		})
	}
}

func TestRegisterInvalid(t *testing.T) {
	var c RegisterCell
	if err := c.Set(12, catalog.RoleRegister, 1); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("width 12: %v", err)
	}
	if err := c.Set(64, catalog.RoleRegisterHi, 1); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("64-bit hi: %v", err)
	}
	if err := c.Set(1, catalog.RoleRegisterLo, 1); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("1-bit lo: %v", err)
	}
}

func TestRegisterValuesFromRead(t *testing.T) {
	s := New(0, 0)
	if err := s.SetRegister(catalog.RoleRegister, 9, 32, 77); err != nil {
		t.Fatal(err)
	}
	got, err := s.RegisterValues(catalog.RoleRegister, 9, 32)
	if err != nil || !cmp.Equal(got, []uint64{77}) {
		t.Errorf("staged = %v, %v", got, err)
	}
	s.SetRegisterCells([]RegisterCell{{Hi: 1, Lo: 2}, {Hi: 3, Lo: 4}})
	got, err = s.RegisterValues(catalog.RoleRegisterHi, 9, 16)
	if err != nil || !cmp.Equal(got, []uint64{1, 3}) {
		t.Errorf("read hi = %v, %v", got, err)
	}
}

func TestCounterRoles(t *testing.T) {
	var c CounterSpec
	if err := c.Set(catalog.RoleMeterCBSKbits, 1); err == nil {
		t.Error("meter role accepted by counter")
	}
	_ = c.Set(catalog.RoleCounterBytes, 10)
	_ = c.Set(catalog.RoleCounterPackets, 2)
	if c != (CounterSpec{Bytes: 10, Packets: 2}) {
		t.Errorf("counter = %+v", c)
	}
}
