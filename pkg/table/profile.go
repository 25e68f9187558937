package table

import (
	"fmt"
	"slices"

	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/indirect"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

func (t *Table) memberAction(d *Data) (*catalog.Action, error) {
	if d.action == 0 {
		return nil, status.Invalidf("table %s: no action set", t.info.Name)
	}
	return t.info.Action(d.action)
}

// MemberAdd adds member id with the action in d.
func (t *Table) MemberAdd(p pipe.PipeID, id indirect.MemberID, d *Data) (err error) {
	defer func() { t.done("member add", err, "pipe", p, "member", id) }()
	if err := t.checkKind("member add", catalog.KindActionProfile); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}
	a, err := t.memberAction(d)
	if err != nil {
		return err
	}
	tgt := t.target(p)

	t.opMu.Lock()
	defer t.opMu.Unlock()
	if _, err := t.store.Member(id, p); err == nil {
		return status.Errorf(status.AlreadyExists, "table %s: member %d exists on pipe %#x", t.info.Name, id, p)
	}
	h, err := t.be.AddMember(tgt, t.info.Handle, a.Fn, d.spec)
	if err != nil {
		return fmt.Errorf("table %s: add member: %w", t.info.Name, err)
	}
	m := indirect.Member{ID: id, Pipe: p, ActFn: a.Fn, Entry: h, Resources: d.resources()}
	if err := t.store.AddMember(m); err != nil {
		if derr := t.be.DeleteMember(tgt, t.info.Handle, h); derr != nil {
			t.log.Warn("failed to roll back member", "member", id, "err", derr)
		}
		return err
	}
	return nil
}

// MemberMod replaces the action of member id.
func (t *Table) MemberMod(p pipe.PipeID, id indirect.MemberID, d *Data) (err error) {
	defer func() { t.done("member mod", err, "pipe", p, "member", id) }()
	if err := t.checkKind("member mod", catalog.KindActionProfile); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}
	a, err := t.memberAction(d)
	if err != nil {
		return err
	}

	t.opMu.Lock()
	defer t.opMu.Unlock()
	m, err := t.store.Member(id, p)
	if err != nil {
		return err
	}
	if err := t.be.ModifyMember(t.target(p), t.info.Handle, m.Entry, a.Fn, d.spec); err != nil {
		return fmt.Errorf("table %s: modify member: %w", t.info.Name, err)
	}
	return t.store.ModifyMember(id, p, a.Fn, d.resources())
}

// MemberDel removes member id. Members still in a group or referenced by
// an entry cannot be removed.
func (t *Table) MemberDel(p pipe.PipeID, id indirect.MemberID) (err error) {
	defer func() { t.done("member del", err, "pipe", p, "member", id) }()
	if err := t.checkKind("member del", catalog.KindActionProfile); err != nil {
		return err
	}

	t.opMu.Lock()
	defer t.opMu.Unlock()
	m, err := t.store.Member(id, p)
	if err != nil {
		return err
	}
	if err := t.be.DeleteMember(t.target(p), t.info.Handle, m.Entry); err != nil {
		return fmt.Errorf("table %s: delete member: %w", t.info.Name, err)
	}
	_, err = t.store.RemoveMember(id, p)
	return err
}

// MemberGet reads member id into d.
func (t *Table) MemberGet(p pipe.PipeID, id indirect.MemberID, d *Data) error {
	if err := t.checkKind("member get", catalog.KindActionProfile); err != nil {
		return err
	}
	if err := t.checkData(d); err != nil {
		return err
	}
	m, err := t.store.Member(id, p)
	if err != nil {
		return err
	}
	e, err := t.be.ReadMember(t.target(p), t.info.Handle, m.Entry)
	if err != nil {
		return fmt.Errorf("table %s: read member: %w", t.info.Name, err)
	}
	return t.fillMember(d, m, e)
}

func (t *Table) fillMember(d *Data, m indirect.Member, e backend.Entry) error {
	a, err := t.info.ActionByFn(e.ActFn)
	if err != nil {
		return status.Wrap(status.Unexpected, err, "table %s: member %d", t.info.Name, m.ID)
	}
	var requested []catalog.FieldID
	if !d.all {
		requested = slices.DeleteFunc(slices.Clone(d.active), func(id catalog.FieldID) bool {
			_, err := t.info.Field(id, a.ID)
			return err != nil
		})
	}
	if err := d.Reset(a.ID, requested...); err != nil {
		return err
	}
	d.spec = e.Spec
	d.resIdx = m.Resources
	return nil
}

// MemberFirst reads the lowest member on pipe p into d.
func (t *Table) MemberFirst(p pipe.PipeID, d *Data) (indirect.MemberID, error) {
	if err := t.checkKind("member get", catalog.KindActionProfile); err != nil {
		return 0, err
	}
	m, err := t.store.FirstMember(p)
	if err != nil {
		return 0, err
	}
	return m.ID, t.MemberGet(m.Pipe, m.ID, d)
}

// MemberNext reads the member after id on pipe p into d.
func (t *Table) MemberNext(p pipe.PipeID, id indirect.MemberID, d *Data) (indirect.MemberID, error) {
	if err := t.checkKind("member get", catalog.KindActionProfile); err != nil {
		return 0, err
	}
	m, err := t.store.NextMember(id, p)
	if err != nil {
		return 0, err
	}
	return m.ID, t.MemberGet(m.Pipe, m.ID, d)
}
