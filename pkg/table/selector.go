package table

import (
	"fmt"

	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/indirect"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// memberHandles translates the member list of d into entry handles and
// enable flags. Members default to enabled. The caller holds opMu.
func (t *Table) memberHandles(p pipe.PipeID, d *Data, maxSize uint32) ([]pipe.EntryHandle, []bool, error) {
	if maxSize != 0 && uint32(len(d.members)) > maxSize {
		return nil, nil, status.Invalidf("table %s: %d members exceed the group size of %d",
			t.info.Name, len(d.members), maxSize)
	}
	enabled := d.enabled
	switch {
	case enabled == nil:
		enabled = make([]bool, len(d.members))
		for i := range enabled {
			enabled[i] = true
		}
	case len(enabled) != len(d.members):
		return nil, nil, status.Invalidf("table %s: %d members but %d status flags",
			t.info.Name, len(d.members), len(enabled))
	}
	handles := make([]pipe.EntryHandle, 0, len(d.members))
	for _, id := range d.members {
		m, err := t.store.Member(id, p)
		if err != nil {
			return nil, nil, err
		}
		handles = append(handles, m.Entry)
	}
	return handles, enabled, nil
}

// GroupAdd creates group id with the members in d.
func (t *Table) GroupAdd(p pipe.PipeID, id indirect.GroupID, d *Data) (err error) {
	defer func() { t.done("group add", err, "pipe", p, "group", id) }()
	if err := t.checkKind("group add", catalog.KindSelector); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}
	maxSize := t.info.MaxGroupSize
	if d.sizeIsSet && d.maxSize != 0 {
		maxSize = d.maxSize
	}
	tgt := t.target(p)

	t.opMu.Lock()
	defer t.opMu.Unlock()
	if _, err := t.store.Group(id, p); err == nil {
		return status.Errorf(status.AlreadyExists, "table %s: group %d exists on pipe %#x", t.info.Name, id, p)
	}
	handles, enabled, err := t.memberHandles(p, d, maxSize)
	if err != nil {
		return err
	}
	gh, err := t.be.AddGroup(tgt, t.info.Handle, maxSize)
	if err != nil {
		return fmt.Errorf("table %s: add group: %w", t.info.Name, err)
	}
	if len(handles) > 0 {
		if err := t.be.SetGroupMembers(tgt, t.info.Handle, gh, handles, enabled); err != nil {
			t.rollbackGroup(tgt, gh, id)
			return fmt.Errorf("table %s: set group members: %w", t.info.Name, err)
		}
	}
	if err := t.store.AddGroup(indirect.Group{ID: id, Pipe: p, Handle: gh, MaxSize: maxSize}); err != nil {
		t.rollbackGroup(tgt, gh, id)
		return err
	}
	return nil
}

func (t *Table) rollbackGroup(tgt pipe.Target, gh pipe.GroupHandle, id indirect.GroupID) {
	if err := t.be.DeleteGroup(tgt, t.info.Handle, gh); err != nil {
		t.log.Warn("failed to roll back group", "group", id, "err", err)
	}
}

// GroupMod replaces the member list of group id. The maximum group size
// is fixed when the group is created.
func (t *Table) GroupMod(p pipe.PipeID, id indirect.GroupID, d *Data) (err error) {
	defer func() { t.done("group mod", err, "pipe", p, "group", id) }()
	if err := t.checkKind("group mod", catalog.KindSelector); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}

	t.opMu.Lock()
	defer t.opMu.Unlock()
	g, err := t.store.Group(id, p)
	if err != nil {
		return err
	}
	if d.sizeIsSet && d.maxSize != 0 && d.maxSize != g.MaxSize {
		return status.Errorf(status.NotSupported, "table %s: group %d size cannot change from %d to %d",
			t.info.Name, id, g.MaxSize, d.maxSize)
	}
	handles, enabled, err := t.memberHandles(p, d, g.MaxSize)
	if err != nil {
		return err
	}
	if err := t.be.SetGroupMembers(t.target(p), t.info.Handle, g.Handle, handles, enabled); err != nil {
		return fmt.Errorf("table %s: set group members: %w", t.info.Name, err)
	}
	return nil
}

// GroupDel removes group id. Groups referenced by an entry cannot be
// removed.
func (t *Table) GroupDel(p pipe.PipeID, id indirect.GroupID) (err error) {
	defer func() { t.done("group del", err, "pipe", p, "group", id) }()
	if err := t.checkKind("group del", catalog.KindSelector); err != nil {
		return err
	}

	t.opMu.Lock()
	defer t.opMu.Unlock()
	g, err := t.store.Group(id, p)
	if err != nil {
		return err
	}
	if err := t.be.DeleteGroup(t.target(p), t.info.Handle, g.Handle); err != nil {
		return fmt.Errorf("table %s: delete group: %w", t.info.Name, err)
	}
	_, err = t.store.RemoveGroup(id, p)
	return err
}

// GroupGet reads group id into d.
func (t *Table) GroupGet(p pipe.PipeID, id indirect.GroupID, d *Data) error {
	if err := t.checkKind("group get", catalog.KindSelector); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}
	g, err := t.store.Group(id, p)
	if err != nil {
		return err
	}
	handles, enabled, err := t.be.GroupMembers(t.target(p), t.info.Handle, g.Handle)
	if err != nil {
		return fmt.Errorf("table %s: read group members: %w", t.info.Name, err)
	}
	members := make([]indirect.MemberID, 0, len(handles))
	for _, h := range handles {
		mid, _, err := t.store.MemberByEntry(h)
		if err != nil {
			return status.Wrap(status.Unexpected, err, "table %s: group %d", t.info.Name, id)
		}
		members = append(members, mid)
	}
	if err := d.Reset(0); err != nil {
		return err
	}
	d.members, d.enabled = members, enabled
	d.maxSize, d.sizeIsSet = g.MaxSize, true
	return nil
}

// GroupFirst reads the lowest group on pipe p into d.
func (t *Table) GroupFirst(p pipe.PipeID, d *Data) (indirect.GroupID, error) {
	if err := t.checkKind("group get", catalog.KindSelector); err != nil {
		return 0, err
	}
	g, err := t.store.FirstGroup(p)
	if err != nil {
		return 0, err
	}
	return g.ID, t.GroupGet(g.Pipe, g.ID, d)
}

// GroupNext reads the group after id on pipe p into d.
func (t *Table) GroupNext(p pipe.PipeID, id indirect.GroupID, d *Data) (indirect.GroupID, error) {
	if err := t.checkKind("group get", catalog.KindSelector); err != nil {
		return 0, err
	}
	g, err := t.store.NextGroup(id, p)
	if err != nil {
		return 0, err
	}
	return g.ID, t.GroupGet(g.Pipe, g.ID, d)
}
