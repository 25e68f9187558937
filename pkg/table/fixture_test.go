package table

import (
	"testing"

	"github.com/psaab/tblmgr/pkg/backend/memory"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/pipe"
)

const (
	actSetPort catalog.ActionID = 10
	actDrop    catalog.ActionID = 11
	actMiss    catalog.ActionID = 12
	actNhop    catalog.ActionID = 20

	fieldPort   catalog.FieldID = 1
	fieldSMAC   catalog.FieldID = 2
	fieldNhop   catalog.FieldID = 21
	fieldCtrIdx catalog.FieldID = 22
)

const all = pipe.AllPipes

func testCatalog(t *testing.T) *catalog.Static {
	t.Helper()
	fwd := catalog.NewTable(1, "fwd", catalog.KindMatchDirect).
		AddAction(catalog.NewAction(actSetPort, "set_port", 0x100).
			Param(fieldPort, "port", 9).
			Param(fieldSMAC, "smac", 48)).
		AddAction(catalog.NewAction(actDrop, "drop", 0x101).
			WithUsage(catalog.ResourceUsage{Counter: true})).
		AddAction(catalog.NewAction(actMiss, "miss", 0x102).
			WithScope(catalog.ScopeDefaultOnly)).
		WithDirectCounter(0x500).
		WithDirectMeter(0x600, catalog.MeterBytes).
		WithIdleTimeout()

	prof := catalog.NewTable(2, "prof", catalog.KindActionProfile).
		AddAction(catalog.NewAction(actNhop, "set_nhop", 0x200).
			Param(fieldNhop, "nhop", 16).
			IndexField(fieldCtrIdx, "ctr_idx", 32, catalog.ResourceCounter)).
		WithIndirect(catalog.ResourceCounter, 0x700)

	sel := catalog.NewSelectorTable(3, "sel", 2, 4)

	ecmp := catalog.NewIndirectTable(4, "ecmp", 2, 3).
		WithIndirect(catalog.ResourceCounter, 0x700).
		WithDirectCounter(0x501)

	cat, err := catalog.NewStatic(fwd, prof, sel, ecmp)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	return cat
}

func testManager(t *testing.T, cfg map[string]idle.Config) (*Manager, *memory.Backend) {
	t.Helper()
	be := memory.New()
	m, err := NewManager(testCatalog(t), Options{Backend: be, Idle: cfg})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, be
}

func mustTable(t *testing.T, m *Manager, name string) *Table {
	t.Helper()
	tbl, err := m.TableByName(name)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func mustData(t *testing.T, tbl *Table, action catalog.ActionID, fields ...catalog.FieldID) *Data {
	t.Helper()
	d, err := tbl.NewData(action, fields...)
	if err != nil {
		t.Fatalf("NewData(%d): %v", action, err)
	}
	return d
}

func fwdTarget(tbl *Table) pipe.Target { return tbl.target(all) }
