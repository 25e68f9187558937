package table

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/indirect"
	"github.com/psaab/tblmgr/pkg/metrics"
	"github.com/psaab/tblmgr/pkg/status"
)

func key(b ...byte) backend.MatchSpec { return backend.MatchSpec{Key: b} }

func TestEntryLifecycle(t *testing.T) {
	m, be := testManager(t, nil)
	fwd := mustTable(t, m, "fwd")

	d := mustData(t, fwd, actSetPort)
	if err := d.SetValue(fieldPort, 5); err != nil {
		t.Fatal(err)
	}
	if err := d.SetValue(catalog.FieldTTL, 2000); err != nil {
		t.Fatal(err)
	}
	h, err := fwd.EntryAdd(all, key(10, 0, 0, 1), d)
	if err != nil {
		t.Fatalf("EntryAdd: %v", err)
	}
	if _, err := fwd.EntryAdd(all, key(10, 0, 0, 1), d); !errors.Is(err, status.ErrAlreadyExists) {
		t.Errorf("duplicate add: %v", err)
	}
	if d.Spec().Direct() != 0 {
		t.Error("EntryAdd modified the caller's data")
	}

	got := mustData(t, fwd, 0)
	if err := fwd.EntryGet(all, h, got); err != nil {
		t.Fatalf("EntryGet: %v", err)
	}
	if got.ActionID() != actSetPort {
		t.Errorf("action = %d, want %d", got.ActionID(), actSetPort)
	}
	if v, _ := got.Value(fieldPort); v != 5 {
		t.Errorf("port = %d, want 5", v)
	}
	if v, _ := got.Value(catalog.FieldTTL); v != 2000 {
		t.Errorf("TTL = %d, want 2000", v)
	}
	if got.IsActive(catalog.FieldEntryHitState) {
		t.Error("hit state visible on a notify-mode table")
	}
	if n := got.Spec().Direct(); n != 2 {
		t.Errorf("direct attachments = %d, want 2", n)
	}

	// Counter-only modify leaves the action alone.
	ctr := mustData(t, fwd, 0, catalog.FieldCounterBytes, catalog.FieldCounterPackets)
	if err := ctr.SetValue(catalog.FieldCounterPackets, 10); err != nil {
		t.Fatal(err)
	}
	if err := ctr.SetValue(catalog.FieldCounterBytes, 640); err != nil {
		t.Fatal(err)
	}
	if err := fwd.EntryMod(all, h, ctr, 0); err != nil {
		t.Fatalf("EntryMod(counter): %v", err)
	}
	if err := fwd.EntryGet(all, h, got); err != nil {
		t.Fatal(err)
	}
	if v, _ := got.Value(catalog.FieldCounterPackets); v != 10 {
		t.Errorf("packets = %d, want 10", v)
	}
	if v, _ := got.Value(fieldPort); v != 5 {
		t.Errorf("port after counter modify = %d", v)
	}

	// Action change.
	drop := mustData(t, fwd, actDrop)
	if err := fwd.EntryMod(all, h, drop, 0); err != nil {
		t.Fatalf("EntryMod(action): %v", err)
	}
	byMatch := mustData(t, fwd, 0)
	if h2, err := fwd.EntryGetByMatch(all, key(10, 0, 0, 1), byMatch); err != nil || h2 != h {
		t.Fatalf("EntryGetByMatch = %d, %v", h2, err)
	}
	if byMatch.ActionID() != actDrop {
		t.Errorf("action after modify = %d", byMatch.ActionID())
	}

	// TTL-only modify.
	ttl := mustData(t, fwd, 0, catalog.FieldTTL)
	if err := ttl.SetValue(catalog.FieldTTL, 500); err != nil {
		t.Fatal(err)
	}
	if err := be.MarkHit(fwdTarget(fwd), fwd.Info().Handle, h); err != nil {
		t.Fatal(err)
	}
	if err := fwd.EntryMod(all, h, ttl, SkipTTLReset); err != nil {
		t.Fatalf("EntryMod(ttl): %v", err)
	}
	if hit, _ := be.EntryHitState(fwdTarget(fwd), fwd.Info().Handle, h); hit != idle.HitActive {
		t.Error("SkipTTLReset restarted the idle timer")
	}

	if n, err := fwd.Usage(all); err != nil || n != 1 {
		t.Errorf("Usage = %d, %v", n, err)
	}
	if err := fwd.EntryDel(all, h); err != nil {
		t.Fatalf("EntryDel: %v", err)
	}
	if err := fwd.EntryGet(all, h, got); !status.IsNotFound(err) {
		t.Errorf("get after delete: %v", err)
	}
}

func TestActionScope(t *testing.T) {
	m, _ := testManager(t, nil)
	fwd := mustTable(t, m, "fwd")

	if _, err := fwd.EntryAdd(all, key(1), mustData(t, fwd, actMiss)); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("default-only action as entry: %v", err)
	}
	if _, err := fwd.EntryAdd(all, key(1), mustData(t, fwd, 0)); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("entry without action: %v", err)
	}
	if err := fwd.DefaultEntrySet(all, mustData(t, fwd, actMiss)); err != nil {
		t.Fatalf("DefaultEntrySet(miss): %v", err)
	}
	got := mustData(t, fwd, 0)
	if err := fwd.DefaultEntryGet(all, got); err != nil {
		t.Fatal(err)
	}
	if got.ActionID() != actMiss {
		t.Errorf("default action = %d", got.ActionID())
	}
	if err := fwd.DefaultEntryReset(all); err != nil {
		t.Fatal(err)
	}
	if err := fwd.DefaultEntryGet(all, got); !status.IsNotFound(err) {
		t.Errorf("default after reset: %v", err)
	}
}

func TestDefaultEntryPrunesUnusedResources(t *testing.T) {
	m, _ := testManager(t, nil)
	fwd := mustTable(t, m, "fwd")

	d := mustData(t, fwd, actDrop)
	if err := d.SetValue(catalog.FieldCounterBytes, 1); err != nil {
		t.Fatal(err)
	}
	if err := d.SetValue(catalog.FieldMeterCIRKbps, 100); err != nil {
		t.Fatal(err)
	}
	if err := fwd.DefaultEntrySet(all, d); err != nil {
		t.Fatalf("DefaultEntrySet: %v", err)
	}
	got := mustData(t, fwd, 0)
	if err := fwd.DefaultEntryGet(all, got); err != nil {
		t.Fatal(err)
	}
	if _, ok := got.Spec().Attachment(0x600); ok {
		t.Error("meter kept on a default action that does not use it")
	}
	if _, ok := got.Spec().Attachment(0x500); !ok {
		t.Error("counter dropped from the default entry")
	}
}

func TestModifyKeepsUnsetResources(t *testing.T) {
	m, _ := testManager(t, nil)
	fwd := mustTable(t, m, "fwd")

	d := mustData(t, fwd, actSetPort)
	if err := d.SetValue(catalog.FieldCounterBytes, 640); err != nil {
		t.Fatal(err)
	}
	h, err := fwd.EntryAdd(all, key(1), d)
	if err != nil {
		t.Fatalf("EntryAdd: %v", err)
	}

	meter := mustData(t, fwd, 0, catalog.FieldMeterCIRKbps)
	if err := meter.SetValue(catalog.FieldMeterCIRKbps, 1000); err != nil {
		t.Fatal(err)
	}
	if err := fwd.EntryMod(all, h, meter, 0); err != nil {
		t.Fatalf("EntryMod(meter): %v", err)
	}
	got := mustData(t, fwd, 0)
	if err := fwd.EntryGet(all, h, got); err != nil {
		t.Fatal(err)
	}
	if v, _ := got.Value(catalog.FieldCounterBytes); v != 640 {
		t.Errorf("bytes after meter modify = %d, want 640", v)
	}
	if v, _ := got.Value(catalog.FieldMeterCIRKbps); v != 1000 {
		t.Errorf("CIR = %d, want 1000", v)
	}

	// An action change carries no counter value either.
	if err := fwd.EntryMod(all, h, mustData(t, fwd, actDrop), 0); err != nil {
		t.Fatalf("EntryMod(action): %v", err)
	}
	if err := fwd.EntryGet(all, h, got); err != nil {
		t.Fatal(err)
	}
	if v, _ := got.Value(catalog.FieldCounterBytes); v != 640 {
		t.Errorf("bytes after action modify = %d, want 640", v)
	}
}

func addMember(t *testing.T, prof *Table, id indirect.MemberID, nhop, ctr uint64) {
	t.Helper()
	d := mustData(t, prof, actNhop)
	if err := d.SetValue(fieldNhop, nhop); err != nil {
		t.Fatal(err)
	}
	if err := d.SetValue(fieldCtrIdx, ctr); err != nil {
		t.Fatal(err)
	}
	if err := prof.MemberAdd(all, id, d); err != nil {
		t.Fatalf("MemberAdd(%d): %v", id, err)
	}
}

func TestIndirectMember(t *testing.T) {
	m, _ := testManager(t, nil)
	prof, ecmp := mustTable(t, m, "prof"), mustTable(t, m, "ecmp")
	addMember(t, prof, 1, 7, 3)

	d := mustData(t, ecmp, 0)
	if err := d.SetValue(catalog.FieldActionMemberID, 1); err != nil {
		t.Fatal(err)
	}
	h, err := ecmp.EntryAdd(all, key(1), d)
	if err != nil {
		t.Fatalf("EntryAdd: %v", err)
	}

	got := mustData(t, ecmp, 0)
	if err := ecmp.EntryGet(all, h, got); err != nil {
		t.Fatalf("EntryGet: %v", err)
	}
	if id, ok := got.MemberID(); !ok || id != 1 {
		t.Errorf("MemberID = %d, %v", id, ok)
	}
	if got.IsActive(catalog.FieldSelectorGroupID) {
		t.Error("group id active on a member entry")
	}
	a, ok := got.Spec().Attachment(0x700)
	if !ok {
		t.Fatal("member counter index not merged")
	}
	if a.Tag != actionspec.TagAttached || a.Index != 3 {
		t.Errorf("indirect counter = %+v, want attached index 3", a)
	}

	miss := mustData(t, ecmp, 0)
	if err := miss.SetValue(catalog.FieldActionMemberID, 42); err != nil {
		t.Fatal(err)
	}
	_, err = ecmp.EntryAdd(all, key(2), miss)
	if !status.IsNotFound(err) || status.ReasonOf(err) != status.ReasonMember {
		t.Errorf("unknown member: %v", err)
	}

	if err := prof.MemberDel(all, 1); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("delete of referenced member: %v", err)
	}
	if err := ecmp.EntryDel(all, h); err != nil {
		t.Fatal(err)
	}
	if err := prof.MemberDel(all, 1); err != nil {
		t.Errorf("MemberDel: %v", err)
	}
}

func TestDefaultEntryHoldsReference(t *testing.T) {
	m, _ := testManager(t, nil)
	prof, sel, ecmp := mustTable(t, m, "prof"), mustTable(t, m, "sel"), mustTable(t, m, "ecmp")
	addMember(t, prof, 5, 7, 3)

	d := mustData(t, ecmp, 0)
	if err := d.SetValue(catalog.FieldActionMemberID, 5); err != nil {
		t.Fatal(err)
	}
	if err := ecmp.DefaultEntrySet(all, d); err != nil {
		t.Fatalf("DefaultEntrySet(member): %v", err)
	}
	if err := prof.MemberDel(all, 5); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("delete of member behind the default entry: %v", err)
	}

	gd := mustData(t, sel, 0)
	if err := gd.SetMembers(catalog.FieldSelectorMembers, []indirect.MemberID{5}); err != nil {
		t.Fatal(err)
	}
	if err := sel.GroupAdd(all, 1, gd); err != nil {
		t.Fatal(err)
	}
	gref := mustData(t, ecmp, 0)
	if err := gref.SetValue(catalog.FieldSelectorGroupID, 1); err != nil {
		t.Fatal(err)
	}
	if err := ecmp.DefaultEntrySet(all, gref); err != nil {
		t.Fatalf("DefaultEntrySet(group): %v", err)
	}
	if err := sel.GroupDel(all, 1); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("delete of group behind the default entry: %v", err)
	}

	if err := ecmp.DefaultEntryReset(all); err != nil {
		t.Fatal(err)
	}
	if err := sel.GroupDel(all, 1); err != nil {
		t.Errorf("GroupDel after reset: %v", err)
	}
	if err := prof.MemberDel(all, 5); err != nil {
		t.Errorf("MemberDel after reset: %v", err)
	}
}

func TestIndirectGroup(t *testing.T) {
	m, _ := testManager(t, nil)
	prof, sel, ecmp := mustTable(t, m, "prof"), mustTable(t, m, "sel"), mustTable(t, m, "ecmp")
	addMember(t, prof, 1, 7, 3)
	addMember(t, prof, 2, 8, 4)

	if err := sel.GroupAdd(all, 10, mustData(t, sel, 0)); err != nil {
		t.Fatalf("GroupAdd: %v", err)
	}
	ref := mustData(t, ecmp, 0)
	if err := ref.SetValue(catalog.FieldSelectorGroupID, 10); err != nil {
		t.Fatal(err)
	}
	_, err := ecmp.EntryAdd(all, key(1), ref)
	if status.ReasonOf(err) != status.ReasonGroupEmpty {
		t.Errorf("empty group: %v", err)
	}

	missing := mustData(t, ecmp, 0)
	if err := missing.SetValue(catalog.FieldSelectorGroupID, 11); err != nil {
		t.Fatal(err)
	}
	_, err = ecmp.EntryAdd(all, key(1), missing)
	if status.ReasonOf(err) != status.ReasonGroupMissing {
		t.Errorf("missing group: %v", err)
	}

	gd := mustData(t, sel, 0)
	if err := gd.SetMembers(catalog.FieldSelectorMembers, []indirect.MemberID{2, 1}); err != nil {
		t.Fatal(err)
	}
	if err := gd.SetMemberStatus(catalog.FieldMemberStatus, []bool{true, false}); err != nil {
		t.Fatal(err)
	}
	if err := sel.GroupMod(all, 10, gd); err != nil {
		t.Fatalf("GroupMod: %v", err)
	}
	h, err := ecmp.EntryAdd(all, key(1), ref)
	if err != nil {
		t.Fatalf("EntryAdd(group): %v", err)
	}
	got := mustData(t, ecmp, 0)
	if err := ecmp.EntryGet(all, h, got); err != nil {
		t.Fatal(err)
	}
	if id, ok := got.GroupID(); !ok || id != 10 {
		t.Errorf("GroupID = %d, %v", id, ok)
	}

	read := mustData(t, sel, 0)
	if err := sel.GroupGet(all, 10, read); err != nil {
		t.Fatal(err)
	}
	members, _ := read.Members(catalog.FieldSelectorMembers)
	enabled, _ := read.MemberStatus(catalog.FieldMemberStatus)
	if diff := cmp.Diff([]indirect.MemberID{2, 1}, members); diff != "" {
		t.Errorf("members (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false}, enabled); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
	if v, _ := read.Value(catalog.FieldMaxGroupSize); v != 4 {
		t.Errorf("max group size = %d, want 4", v)
	}

	if err := sel.GroupDel(all, 10); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("delete of referenced group: %v", err)
	}
}

func TestGroupLimits(t *testing.T) {
	m, _ := testManager(t, nil)
	prof, sel := mustTable(t, m, "prof"), mustTable(t, m, "sel")
	addMember(t, prof, 1, 7, 3)

	tooMany := mustData(t, sel, 0)
	_ = tooMany.SetMembers(catalog.FieldSelectorMembers, []indirect.MemberID{1, 1, 1, 1, 1})
	if err := sel.GroupAdd(all, 1, tooMany); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("oversized group: %v", err)
	}

	unknown := mustData(t, sel, 0)
	_ = unknown.SetMembers(catalog.FieldSelectorMembers, []indirect.MemberID{99})
	if err := sel.GroupAdd(all, 1, unknown); !status.IsNotFound(err) {
		t.Errorf("unknown member: %v", err)
	}

	if err := sel.GroupAdd(all, 1, mustData(t, sel, 0)); err != nil {
		t.Fatal(err)
	}
	if err := sel.GroupAdd(all, 1, mustData(t, sel, 0)); !errors.Is(err, status.ErrAlreadyExists) {
		t.Errorf("duplicate group: %v", err)
	}

	resize := mustData(t, sel, 0)
	if err := resize.SetValue(catalog.FieldMaxGroupSize, 8); err != nil {
		t.Fatal(err)
	}
	if err := sel.GroupMod(all, 1, resize); !errors.Is(err, status.ErrNotSupported) {
		t.Errorf("group resize: %v", err)
	}
}

func TestMemberEnumeration(t *testing.T) {
	m, _ := testManager(t, nil)
	prof := mustTable(t, m, "prof")
	for _, id := range []indirect.MemberID{5, 2, 9} {
		addMember(t, prof, id, uint64(id), 0)
	}

	d := mustData(t, prof, 0)
	var got []indirect.MemberID
	id, err := prof.MemberFirst(all, d)
	for err == nil {
		got = append(got, id)
		if v, _ := d.Value(fieldNhop); v != uint64(id) {
			t.Errorf("member %d nhop = %d", id, v)
		}
		id, err = prof.MemberNext(all, id, d)
	}
	if !status.IsNotFound(err) {
		t.Fatalf("enumeration ended with %v", err)
	}
	if diff := cmp.Diff([]indirect.MemberID{2, 5, 9}, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	want := []metrics.TableState{{Table: "prof", Members: 3}}
	if diff := cmp.Diff(want, m.TableStates()); diff != "" {
		t.Errorf("TableStates (-want +got):\n%s", diff)
	}
}

func TestMemberGetFieldSubset(t *testing.T) {
	m, _ := testManager(t, nil)
	prof := mustTable(t, m, "prof")
	addMember(t, prof, 1, 7, 3)

	d := mustData(t, prof, actNhop, fieldNhop)
	if err := prof.MemberGet(all, 1, d); err != nil {
		t.Fatalf("MemberGet: %v", err)
	}
	if !d.IsActive(fieldNhop) || d.IsActive(fieldCtrIdx) {
		t.Errorf("active fields after get = nhop %v, ctr_idx %v, want only nhop",
			d.IsActive(fieldNhop), d.IsActive(fieldCtrIdx))
	}
	if v, _ := d.Value(fieldNhop); v != 7 {
		t.Errorf("nhop = %d, want 7", v)
	}
}

func TestConcurrentMemberMod(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := testManager(t, nil)
	prof := mustTable(t, m, "prof")
	const n = 8
	for id := indirect.MemberID(1); id <= n; id++ {
		addMember(t, prof, id, 0, 0)
	}

	var g errgroup.Group
	for id := indirect.MemberID(1); id <= n; id++ {
		g.Go(func() error {
			for round := range 10 {
				d, err := prof.NewData(actNhop)
				if err != nil {
					return err
				}
				if err := d.SetValue(fieldNhop, uint64(id)*100+uint64(round)); err != nil {
					return err
				}
				if err := prof.MemberMod(all, id, d); err != nil {
					return fmt.Errorf("member %d round %d: %w", id, round, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	for id := indirect.MemberID(1); id <= n; id++ {
		d := mustData(t, prof, 0)
		if err := prof.MemberGet(all, id, d); err != nil {
			t.Fatal(err)
		}
		if v, _ := d.Value(fieldNhop); v != uint64(id)*100+9 {
			t.Errorf("member %d nhop = %d, want %d", id, v, uint64(id)*100+9)
		}
	}
}

func TestPollMode(t *testing.T) {
	m, be := testManager(t, map[string]idle.Config{"fwd": {Mode: idle.ModePoll}})
	fwd := mustTable(t, m, "fwd")

	d := mustData(t, fwd, actSetPort)
	if err := d.SetString(catalog.FieldEntryHitState, "ENTRY_ACTIVE"); err != nil {
		t.Fatal(err)
	}
	h, err := fwd.EntryAdd(all, key(1), d)
	if err != nil {
		t.Fatal(err)
	}
	e, err := be.ReadEntry(fwdTarget(fwd), fwd.Info().Handle, h)
	if err != nil {
		t.Fatal(err)
	}
	if e.TTL != 1 {
		t.Errorf("programmed TTL = %d, want 1 for an active entry", e.TTL)
	}
	if hit, err := fwd.EntryHitState(all, h); err != nil || hit != idle.HitActive {
		t.Errorf("EntryHitState = %v, %v", hit, err)
	}

	got := mustData(t, fwd, 0)
	if err := fwd.EntryGet(all, h, got); err != nil {
		t.Fatal(err)
	}
	if got.IsActive(catalog.FieldTTL) {
		t.Error("TTL visible on a poll-mode table")
	}

	idleData := mustData(t, fwd, 0, catalog.FieldEntryHitState)
	if err := idleData.SetString(catalog.FieldEntryHitState, "ENTRY_IDLE"); err != nil {
		t.Fatal(err)
	}
	if err := fwd.EntryMod(all, h, idleData, 0); err != nil {
		t.Fatal(err)
	}
	if hit, _ := fwd.EntryHitState(all, h); hit != idle.HitIdle {
		t.Error("hit state not cleared")
	}
}

func TestEntryHitStateNotify(t *testing.T) {
	m, _ := testManager(t, nil)
	fwd := mustTable(t, m, "fwd")
	if _, err := fwd.EntryHitState(all, 1); !errors.Is(err, status.ErrNotSupported) {
		t.Errorf("hit state on notify table: %v", err)
	}
}

func TestWrongTableKind(t *testing.T) {
	m, _ := testManager(t, nil)
	prof, fwd := mustTable(t, m, "prof"), mustTable(t, m, "fwd")
	if _, err := prof.EntryAdd(all, key(1), mustData(t, prof, actNhop)); !errors.Is(err, status.ErrNotSupported) {
		t.Errorf("entry add on profile: %v", err)
	}
	if err := fwd.MemberAdd(all, 1, mustData(t, fwd, actSetPort)); !errors.Is(err, status.ErrNotSupported) {
		t.Errorf("member add on match table: %v", err)
	}
	if _, err := fwd.EntryAdd(all, key(1), mustData(t, prof, actNhop)); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("foreign data: %v", err)
	}
	if _, err := m.TableByName("nope"); !status.IsNotFound(err) {
		t.Errorf("unknown table: %v", err)
	}
}

// Entries resolving a member race with modifications of that member.
func TestConcurrentResolveAndModify(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := testManager(t, nil)
	prof, ecmp := mustTable(t, m, "prof"), mustTable(t, m, "ecmp")
	addMember(t, prof, 1, 7, 3)

	var g errgroup.Group
	for i := range 16 {
		g.Go(func() error {
			d, err := ecmp.NewData(0)
			if err != nil {
				return err
			}
			if err := d.SetValue(catalog.FieldActionMemberID, 1); err != nil {
				return err
			}
			_, err = ecmp.EntryAdd(all, key(byte(i)), d)
			return err
		})
	}
	g.Go(func() error {
		for n := range 16 {
			d, err := prof.NewData(actNhop)
			if err != nil {
				return err
			}
			if err := d.SetValue(fieldNhop, uint64(n)); err != nil {
				return err
			}
			if err := prof.MemberMod(all, 1, d); err != nil {
				return fmt.Errorf("modify %d: %w", n, err)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if n, _ := ecmp.Usage(all); n != 16 {
		t.Errorf("Usage = %d, want 16", n)
	}
}
