package table

import (
	"fmt"
	"slices"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// ModFlags alter EntryMod.
type ModFlags uint32

const (
	// SkipTTLReset keeps the running idle timer when a notify-mode TTL is
	// modified.
	SkipTTLReset ModFlags = 1 << iota
)

var matchKinds = []catalog.TableKind{catalog.KindMatchDirect, catalog.KindMatchIndirect}

// prepare resolves d into the action spec and function to program and
// the resource usage the action declares. The caller holds opMu for
// reading.
func (t *Table) prepare(tgt pipe.Target, d *Data, isDefault bool) (*actionspec.Spec, pipe.ActFnHandle, catalog.ResourceUsage, error) {
	spec := d.spec.Clone()

	if t.info.Kind == catalog.KindMatchIndirect {
		res, err := t.resolve(tgt, d, spec)
		if err != nil {
			return nil, 0, catalog.ResourceUsage{}, err
		}
		usage := t.info.Usage(0)
		if isDefault {
			a, err := t.profile.info.ActionByFn(res.ActFn)
			if err != nil {
				return nil, 0, catalog.ResourceUsage{}, status.Wrap(status.Unexpected, err, "table %s: member action", t.info.Name)
			}
			usage = a.Uses
		}
		return spec, res.ActFn, usage, nil
	}

	if d.action == 0 {
		return nil, 0, catalog.ResourceUsage{}, status.Invalidf("table %s: no action set", t.info.Name)
	}
	a, err := t.info.Action(d.action)
	if err != nil {
		return nil, 0, catalog.ResourceUsage{}, err
	}
	switch {
	case isDefault && a.Scope == catalog.ScopeTableOnly:
		return nil, 0, catalog.ResourceUsage{}, status.Invalidf("table %s: action %s cannot be the default action", t.info.Name, a.Name)
	case !isDefault && a.Scope == catalog.ScopeDefaultOnly:
		return nil, 0, catalog.ResourceUsage{}, status.Invalidf("table %s: action %s is only valid as the default action", t.info.Name, a.Name)
	}
	return spec, a.Fn, a.Uses, nil
}

// stage is prepare followed by resource reconciliation, for operations
// that program a complete entry.
func (t *Table) stage(tgt pipe.Target, d *Data, isDefault bool) (*actionspec.Spec, pipe.ActFnHandle, error) {
	spec, fn, usage, err := t.prepare(tgt, d, isDefault)
	if err != nil {
		return nil, 0, err
	}
	if err := t.reconcile(spec, usage, isDefault); err != nil {
		return nil, 0, err
	}
	return spec, fn, nil
}

func (t *Table) rlockProfile() func() {
	if t.opMu == nil {
		return func() {}
	}
	t.opMu.RLock()
	return t.opMu.RUnlock
}

// EntryAdd programs a new entry for match and returns its handle.
func (t *Table) EntryAdd(p pipe.PipeID, match backend.MatchSpec, d *Data) (h pipe.EntryHandle, err error) {
	defer func() { t.done("entry add", err, "pipe", p, "handle", h) }()
	if err := t.checkKind("entry add", matchKinds...); err != nil {
		return 0, err
	}
	if err := t.checkData(d); err != nil {
		return 0, err
	}
	tgt := t.target(p)

	unlock := t.rlockProfile()
	defer unlock()
	spec, fn, err := t.stage(tgt, d, false)
	if err != nil {
		return 0, err
	}
	h, err = t.be.ProgramEntry(tgt, t.info.Handle, match, fn, spec, idle.AddTTL(t.idle, d.idleState))
	if err != nil {
		return 0, fmt.Errorf("table %s: program entry: %w", t.info.Name, err)
	}
	return h, nil
}

type modScope struct {
	action    bool
	resources bool
	counter   bool
	idle      bool
}

func (d *Data) modScope() modScope {
	s := modScope{action: d.action != 0}
	for _, id := range d.active {
		f, err := d.tbl.Field(id, d.action)
		if err != nil {
			continue
		}
		for _, r := range f.Roles {
			switch {
			case r == catalog.RoleActionParam, r == catalog.RoleActionParamOptimizedOut, r.IsIndex(),
				r == catalog.RoleActionMemberID, r == catalog.RoleSelectorGroupID:
				s.action = true
			case r == catalog.RoleCounterBytes, r == catalog.RoleCounterPackets:
				s.counter = true
			case r == catalog.RoleTTL, r == catalog.RoleEntryHitState:
				s.idle = true
			case r.ResourceKind() != catalog.ResourceNone:
				s.resources = true
			}
		}
	}
	return s
}

// EntryMod updates entry h with the active fields of d. Only the parts of
// the entry the active fields cover are reprogrammed.
func (t *Table) EntryMod(p pipe.PipeID, h pipe.EntryHandle, d *Data, flags ModFlags) (err error) {
	defer func() { t.done("entry mod", err, "pipe", p, "handle", h) }()
	if err := t.checkKind("entry mod", matchKinds...); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}
	tgt := t.target(p)
	scope := d.modScope()

	unlock := t.rlockProfile()
	defer unlock()

	var spec *actionspec.Spec
	if scope.action {
		var fn pipe.ActFnHandle
		// Only the attachments set on d are sent; the backend keeps
		// the programmed state of the rest.
		spec, fn, _, err = t.prepare(tgt, d, false)
		if err != nil {
			return err
		}
		if err := t.be.SetEntryAction(tgt, t.info.Handle, h, fn, spec); err != nil {
			return fmt.Errorf("table %s: set entry action: %w", t.info.Name, err)
		}
	} else if scope.resources || scope.counter {
		spec = d.spec.Clone()
		if scope.resources {
			if err := t.be.SetEntryResources(tgt, t.info.Handle, h, spec.Attachments()); err != nil {
				return fmt.Errorf("table %s: set entry resources: %w", t.info.Name, err)
			}
		}
	}

	if scope.counter {
		rh, ok := t.info.ResourceHandle(catalog.RoleCounterBytes)
		if !ok {
			return status.Invalidf("table %s: no direct counter", t.info.Name)
		}
		a, _ := spec.Attachment(rh)
		if err := t.be.SetDirectStat(tgt, t.info.Handle, h, rh, a.Counter); err != nil {
			return fmt.Errorf("table %s: set direct counter: %w", t.info.Name, err)
		}
	}

	if scope.idle {
		if t.idle.IsPollMode() {
			err = t.be.SetEntryHitState(tgt, t.info.Handle, h, d.idleState.Hit)
		} else {
			err = t.be.SetEntryTTL(tgt, t.info.Handle, h, d.idleState.TTL, flags&SkipTTLReset == 0)
		}
		if err != nil {
			return fmt.Errorf("table %s: set entry idle state: %w", t.info.Name, err)
		}
	}
	return nil
}

// EntryDel removes entry h.
func (t *Table) EntryDel(p pipe.PipeID, h pipe.EntryHandle) (err error) {
	defer func() { t.done("entry del", err, "pipe", p, "handle", h) }()
	if err := t.checkKind("entry del", matchKinds...); err != nil {
		return err
	}
	if err := t.be.DeleteEntry(t.target(p), t.info.Handle, h); err != nil {
		return fmt.Errorf("table %s: delete entry: %w", t.info.Name, err)
	}
	return nil
}

// EntryGet reads entry h into d.
func (t *Table) EntryGet(p pipe.PipeID, h pipe.EntryHandle, d *Data) (err error) {
	defer func() { t.done("entry get", err, "pipe", p, "handle", h) }()
	if err := t.checkKind("entry get", matchKinds...); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}
	e, err := t.be.ReadEntry(t.target(p), t.info.Handle, h)
	if err != nil {
		return fmt.Errorf("table %s: read entry: %w", t.info.Name, err)
	}
	return t.fill(d, e, true)
}

// EntryGetByMatch looks an entry up by match key and reads it into d.
func (t *Table) EntryGetByMatch(p pipe.PipeID, match backend.MatchSpec, d *Data) (pipe.EntryHandle, error) {
	if err := t.checkKind("entry get", matchKinds...); err != nil {
		return 0, err
	}
	h, err := t.be.EntryByMatch(t.target(p), t.info.Handle, match)
	if err != nil {
		return 0, fmt.Errorf("table %s: find entry: %w", t.info.Name, err)
	}
	return h, t.EntryGet(p, h, d)
}

// EntryHitState reads the hit state of entry h. Only poll-mode tables
// track it.
func (t *Table) EntryHitState(p pipe.PipeID, h pipe.EntryHandle) (idle.HitState, error) {
	if !t.info.Idle || !t.idle.IsPollMode() {
		return 0, status.Errorf(status.NotSupported, "table %s: hit state needs a poll-mode table", t.info.Name)
	}
	return t.be.EntryHitState(t.target(p), t.info.Handle, h)
}

// Usage returns the number of entries programmed on pipe p.
func (t *Table) Usage(p pipe.PipeID) (uint32, error) {
	if err := t.checkKind("usage", matchKinds...); err != nil {
		return 0, err
	}
	return t.be.Usage(t.target(p), t.info.Handle)
}

// DefaultEntrySet programs the default entry.
func (t *Table) DefaultEntrySet(p pipe.PipeID, d *Data) (err error) {
	defer func() { t.done("default set", err, "pipe", p) }()
	if err := t.checkKind("default entry set", matchKinds...); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}
	tgt := t.target(p)

	unlock := t.rlockProfile()
	defer unlock()
	spec, fn, err := t.stage(tgt, d, true)
	if err != nil {
		return err
	}
	if err := t.be.SetDefaultEntry(tgt, t.info.Handle, fn, spec); err != nil {
		return fmt.Errorf("table %s: set default entry: %w", t.info.Name, err)
	}
	return nil
}

// DefaultEntryReset restores the default entry the program declares.
func (t *Table) DefaultEntryReset(p pipe.PipeID) (err error) {
	defer func() { t.done("default reset", err, "pipe", p) }()
	if err := t.checkKind("default entry reset", matchKinds...); err != nil {
		return err
	}
	return t.be.ResetDefaultEntry(t.target(p), t.info.Handle)
}

// DefaultEntryGet reads the default entry into d.
func (t *Table) DefaultEntryGet(p pipe.PipeID, d *Data) (err error) {
	if err := t.checkKind("default entry get", matchKinds...); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}
	e, err := t.be.ReadDefaultEntry(t.target(p), t.info.Handle)
	if err != nil {
		return fmt.Errorf("table %s: read default entry: %w", t.info.Name, err)
	}
	return t.fill(d, e, false)
}

// fill rebuilds d from a backend entry.
func (t *Table) fill(d *Data, e backend.Entry, withIdle bool) error {
	var requested []catalog.FieldID
	if !d.all {
		requested = d.active
	}

	switch t.info.Kind {
	case catalog.KindMatchIndirect:
		if err := d.Reset(0, requested...); err != nil {
			return err
		}
		switch e.Spec.Kind() {
		case actionspec.KindMemberHandle:
			id, _, err := t.store.MemberByEntry(e.Spec.MemberHandle())
			if err != nil {
				return status.Wrap(status.Unexpected, err, "table %s: entry %#x", t.info.Name, e.Handle)
			}
			d.ref, d.member = refMember, id
			d.removeRole(catalog.RoleSelectorGroupID)
		case actionspec.KindGroupHandle:
			id, _, err := t.store.GroupByHandle(e.Spec.GroupHandle())
			if err != nil {
				return status.Wrap(status.Unexpected, err, "table %s: entry %#x", t.info.Name, e.Handle)
			}
			d.ref, d.group = refGroup, id
			d.removeRole(catalog.RoleActionMemberID)
		}
	default:
		a, err := t.info.ActionByFn(e.ActFn)
		if err != nil {
			return status.Wrap(status.Unexpected, err, "table %s: entry %#x", t.info.Name, e.Handle)
		}
		requested = slices.DeleteFunc(requested, func(id catalog.FieldID) bool {
			_, err := t.info.Field(id, a.ID)
			return err != nil
		})
		if err := d.Reset(a.ID, requested...); err != nil {
			return err
		}
		if len(e.Spec.Data()) != len(d.spec.Data()) {
			return status.Unexpectedf("table %s: entry %#x carries %d bytes of action data, action %s takes %d",
				t.info.Name, e.Handle, len(e.Spec.Data()), a.Name, len(d.spec.Data()))
		}
	}
	d.spec = e.Spec

	if withIdle {
		d.idleState = idle.State{TTL: e.TTL, Hit: e.Hit}
	}
	if t.info.Idle {
		d.active = idle.Strip(t.idle, d.active, d.roleOf)
	}
	return nil
}
