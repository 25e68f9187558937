package memory

import (
	"errors"
	"testing"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

var tgt = pipe.Target{Dev: 0, Pipe: pipe.AllPipes}

func TestEntryLifecycle(t *testing.T) {
	b := New()
	spec := actionspec.New(2, 16)
	spec.Data()[1] = 7
	_ = spec.SetResourceValue(catalog.RoleCounterBytes, 0x10, 0)
	match := backend.MatchSpec{Key: []byte{10, 0, 0, 1}}

	h, err := b.ProgramEntry(tgt, 1, match, 0x20, spec, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.ProgramEntry(tgt, 1, match, 0x20, spec, 0); !errors.Is(err, status.ErrAlreadyExists) {
		t.Errorf("duplicate key: %v", err)
	}
	spec.Data()[1] = 9
	e, err := b.ReadEntry(tgt, 1, h)
	if err != nil {
		t.Fatal(err)
	}
	if e.Spec.Data()[1] != 7 || e.ActFn != 0x20 {
		t.Errorf("read back %x fn %#x", e.Spec.Data(), e.ActFn)
	}

	if err := b.SetDirectStat(tgt, 1, h, 0x10, actionspec.CounterSpec{Bytes: 64, Packets: 1}); err != nil {
		t.Fatal(err)
	}
	e, _ = b.ReadEntry(tgt, 1, h)
	if a, _ := e.Spec.Attachment(0x10); a.Counter.Packets != 1 {
		t.Errorf("counter = %+v", a.Counter)
	}

	if err := b.MarkHit(tgt, 1, h); err != nil {
		t.Fatal(err)
	}
	if hit, _ := b.EntryHitState(tgt, 1, h); hit != idle.HitActive {
		t.Error("hit not recorded")
	}
	if err := b.SetEntryTTL(tgt, 1, h, 1000, true); err != nil {
		t.Fatal(err)
	}
	if hit, _ := b.EntryHitState(tgt, 1, h); hit != idle.HitIdle {
		t.Error("TTL reset did not clear the hit state")
	}

	got, err := b.EntryByMatch(tgt, 1, match)
	if err != nil || got != h {
		t.Errorf("EntryByMatch = %#x, %v", got, err)
	}
	if n, _ := b.Usage(tgt, 1); n != 1 {
		t.Errorf("usage = %d", n)
	}
	if err := b.DeleteEntry(tgt, 1, h); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ReadEntry(tgt, 1, h); !status.IsNotFound(err) {
		t.Errorf("read deleted: %v", err)
	}
}

func TestGroupMembership(t *testing.T) {
	b := New()
	m1, _ := b.AddMember(tgt, 2, 0x20, actionspec.New(0, 0))
	m2, _ := b.AddMember(tgt, 2, 0x20, actionspec.New(0, 0))
	g, err := b.AddGroup(tgt, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.FirstGroupMember(tgt, 3, g); !status.IsNotFound(err) {
		t.Errorf("empty group: %v", err)
	}
	if err := b.SetGroupMembers(tgt, 3, g, []pipe.EntryHandle{m1, m2, m1}, []bool{true, true, true}); err == nil {
		t.Error("group over capacity accepted")
	}
	if err := b.SetGroupMembers(tgt, 3, g, []pipe.EntryHandle{m2, m1}, []bool{true, false}); err != nil {
		t.Fatal(err)
	}
	first, err := b.FirstGroupMember(tgt, 3, g)
	if err != nil || first != m2 {
		t.Errorf("first = %#x, %v", first, err)
	}
	if err := b.DeleteMember(tgt, 2, m1); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("delete in-use member: %v", err)
	}
	_ = b.SetGroupMembers(tgt, 3, g, nil, nil)
	if err := b.DeleteMember(tgt, 2, m1); err != nil {
		t.Error(err)
	}
	if err := b.DeleteGroup(tgt, 3, g); err != nil {
		t.Error(err)
	}
}

func TestDefaultEntry(t *testing.T) {
	b := New()
	if _, err := b.ReadDefaultEntry(tgt, 4); !status.IsNotFound(err) {
		t.Errorf("unset default: %v", err)
	}
	if err := b.SetDefaultEntry(tgt, 4, 0x30, actionspec.New(0, 0)); err != nil {
		t.Fatal(err)
	}
	e, err := b.ReadDefaultEntry(tgt, 4)
	if err != nil || e.ActFn != 0x30 {
		t.Errorf("default = %+v, %v", e, err)
	}
	_ = b.ResetDefaultEntry(tgt, 4)
	if _, err := b.ReadDefaultEntry(tgt, 4); !status.IsNotFound(err) {
		t.Error("reset left the default entry")
	}
}
