// Package table implements the table operations of the runtime: match
// entries, default entries, action profile members and selector groups.
// Each Table validates and stages data, reconciles resource attachments,
// resolves indirect references and programs a backend.Backend.
package table

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/indirect"
	"github.com/psaab/tblmgr/pkg/metrics"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/reconcile"
	"github.com/psaab/tblmgr/pkg/status"
)

// Table is one runtime table on a device.
type Table struct {
	info *catalog.Table
	dev  pipe.DevID
	be   backend.Backend
	idle idle.Config
	log  *slog.Logger
	rec  *metrics.Recorder

	// Set on action profiles and shared with their selector and the
	// indirect match tables that reference them.
	store *indirect.Store
	// opMu serializes member and group changes against resolve+program
	// on the indirect tables of the same profile.
	opMu *sync.RWMutex

	profile  *Table
	selector *Table
	resolver *indirect.Resolver
}

// Info returns the catalog description of t.
func (t *Table) Info() *catalog.Table { return t.info }

// Name returns the table name.
func (t *Table) Name() string { return t.info.Name }

// IdleConfig returns the idle-time configuration of t.
func (t *Table) IdleConfig() idle.Config { return t.idle }

// NewData returns empty data for action. With no fields every field of
// the action is active.
func (t *Table) NewData(action catalog.ActionID, fields ...catalog.FieldID) (*Data, error) {
	return newData(t.info, t.idle, action, fields)
}

func (t *Table) checkKind(op string, kinds ...catalog.TableKind) error {
	for _, k := range kinds {
		if t.info.Kind == k {
			return nil
		}
	}
	return status.Errorf(status.NotSupported, "table %s: %s not supported on %s tables", t.info.Name, op, t.info.Kind)
}

func (t *Table) checkData(d *Data) error {
	if d == nil {
		return status.Invalidf("table %s: nil data", t.info.Name)
	}
	if d.tbl != t.info {
		return status.Invalidf("table %s: data belongs to table %s", t.info.Name, d.tbl.Name)
	}
	return nil
}

func (t *Table) target(p pipe.PipeID) pipe.Target {
	return pipe.Target{Dev: t.dev, Pipe: p}
}

// reconcile attaches the direct resources the entry must carry.
func (t *Table) reconcile(spec *actionspec.Spec, usage catalog.ResourceUsage, isDefault bool) error {
	res, err := reconcile.Reconcile(spec, t.info.BoundResources(), usage, isDefault)
	t.rec.Reconciled(t.info.Name, res, err)
	if err != nil {
		return fmt.Errorf("table %s: reconcile resources: %w", t.info.Name, err)
	}
	if len(res.Pruned) > 0 {
		t.log.Warn("pruned resources the default action does not use", "pruned", res.Pruned)
	}
	return nil
}

// resolve applies the member or group d references to spec. The caller
// holds opMu for reading.
func (t *Table) resolve(tgt pipe.Target, d *Data, spec *actionspec.Spec) (indirect.Resolution, error) {
	var ref indirect.Reference
	switch d.ref {
	case refMember:
		ref = indirect.Reference{Member: d.member}
	case refGroup:
		ref = indirect.Reference{IsGroup: true, Group: d.group}
	default:
		return indirect.Resolution{}, status.Invalidf("table %s: entry references neither a member nor a group", t.info.Name)
	}
	res, err := t.resolver.Resolve(tgt, ref)
	if err != nil {
		t.rec.ResolveFailure(t.info.Name, err)
		t.log.Debug("resolve failed", "ref", ref, "pipe", tgt.Pipe, "err", err)
		return res, err
	}
	if err := res.Apply(spec, t.info.IndirectHandles()); err != nil {
		return res, err
	}
	return res, nil
}

func (t *Table) done(op string, err error, args ...any) {
	t.rec.Op(t.info.Name, op, err)
	if err != nil {
		t.log.Debug(op+" failed", append(args, "err", err)...)
		return
	}
	t.log.Debug(op, args...)
}
