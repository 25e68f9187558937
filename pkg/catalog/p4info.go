package catalog

import (
	"fmt"
	"os"

	p4_config_v1 "github.com/p4lang/p4runtime/go/p4/config/v1"
	"google.golang.org/protobuf/encoding/prototext"

	"github.com/psaab/tblmgr/pkg/pipe"
)

// selectorPrefix replaces the p4info type prefix (top byte) of an action
// profile id to form the id of its selector table.
const selectorPrefix = 0x7f

// SelectorTableID returns the id of the selector table derived from an
// action profile with with_selector set.
func SelectorTableID(profile TableID) TableID {
	return profile&0x00ffffff | selectorPrefix<<24
}

// LoadP4InfoText reads a text-format p4info file and builds a catalog.
func LoadP4InfoText(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read p4info: %w", err)
	}
	return ParseP4InfoText(b)
}

// ParseP4InfoText parses a text-format p4info and builds a catalog.
func ParseP4InfoText(b []byte) (*Static, error) {
	info := &p4_config_v1.P4Info{}
	if err := prototext.Unmarshal(b, info); err != nil {
		return nil, fmt.Errorf("parse p4info: %w", err)
	}
	return FromP4Info(info)
}

// FromP4Info builds a catalog from a P4Runtime p4info.
//
// Tables with an implementation id become match-indirect tables pointing
// at the action profile; every other table is match-direct. Action
// parameters are packed in declaration order, each rounded up to whole
// bytes. Direct counters and meters become bound direct resources.
func FromP4Info(info *p4_config_v1.P4Info) (*Static, error) {
	actions := make(map[uint32]*p4_config_v1.Action, len(info.GetActions()))
	for _, a := range info.GetActions() {
		actions[a.GetPreamble().GetId()] = a
	}
	profiles := make(map[uint32]*p4_config_v1.ActionProfile, len(info.GetActionProfiles()))
	for _, ap := range info.GetActionProfiles() {
		profiles[ap.GetPreamble().GetId()] = ap
	}

	var tables []*Table
	byID := make(map[uint32]*Table)
	profileActions := make(map[uint32][]*p4_config_v1.ActionRef)

	for _, pt := range info.GetTables() {
		id := pt.GetPreamble().GetId()
		var t *Table
		if impl := pt.GetImplementationId(); impl != 0 {
			ap, ok := profiles[impl]
			if !ok {
				return nil, fmt.Errorf("table %s: implementation %#x is not an action profile",
					pt.GetPreamble().GetName(), impl)
			}
			var sel TableID
			if ap.GetWithSelector() {
				sel = SelectorTableID(TableID(impl))
			}
			t = NewIndirectTable(TableID(id), pt.GetPreamble().GetName(), TableID(impl), sel)
			profileActions[impl] = append(profileActions[impl], pt.GetActionRefs()...)
		} else {
			t = NewTable(TableID(id), pt.GetPreamble().GetName(), KindMatchDirect)
			for _, ref := range pt.GetActionRefs() {
				a, err := actionFromP4Info(actions, ref)
				if err != nil {
					return nil, fmt.Errorf("table %s: %w", t.Name, err)
				}
				t.AddAction(a)
			}
		}
		t.Size = uint32(pt.GetSize())
		t.Const = pt.GetIsConstTable()
		if pt.GetIdleTimeoutBehavior() == p4_config_v1.Table_NOTIFY_CONTROL {
			t.WithIdleTimeout()
		}
		tables = append(tables, t)
		byID[id] = t
	}

	for _, dc := range info.GetDirectCounters() {
		t, ok := byID[dc.GetDirectTableId()]
		if !ok {
			return nil, fmt.Errorf("direct counter %s: table %#x not found",
				dc.GetPreamble().GetName(), dc.GetDirectTableId())
		}
		t.WithDirectCounter(pipe.ResourceHandle(dc.GetPreamble().GetId()))
	}
	for _, dm := range info.GetDirectMeters() {
		t, ok := byID[dm.GetDirectTableId()]
		if !ok {
			return nil, fmt.Errorf("direct meter %s: table %#x not found",
				dm.GetPreamble().GetName(), dm.GetDirectTableId())
		}
		unit := MeterBytes
		if dm.GetSpec().GetUnit() == p4_config_v1.MeterSpec_PACKETS {
			unit = MeterPackets
		}
		t.WithDirectMeter(pipe.ResourceHandle(dm.GetPreamble().GetId()), unit)
	}

	for _, ap := range info.GetActionProfiles() {
		id := ap.GetPreamble().GetId()
		p := NewTable(TableID(id), ap.GetPreamble().GetName(), KindActionProfile)
		p.Size = uint32(ap.GetSize())
		for _, ref := range profileActions[id] {
			if _, seen := p.actions[ActionID(ref.GetId())]; seen {
				continue
			}
			a, err := actionFromP4Info(actions, ref)
			if err != nil {
				return nil, fmt.Errorf("action profile %s: %w", p.Name, err)
			}
			p.AddAction(a)
		}
		tables = append(tables, p)
		if ap.GetWithSelector() {
			sel := NewSelectorTable(SelectorTableID(TableID(id)), p.Name+"_sel", TableID(id), uint32(ap.GetMaxGroupSize()))
			sel.Size = uint32(ap.GetSize())
			tables = append(tables, sel)
		}
	}

	return NewStatic(tables...)
}

func actionFromP4Info(actions map[uint32]*p4_config_v1.Action, ref *p4_config_v1.ActionRef) (*Action, error) {
	pa, ok := actions[ref.GetId()]
	if !ok {
		return nil, fmt.Errorf("action %#x not found", ref.GetId())
	}
	a := NewAction(ActionID(ref.GetId()), pa.GetPreamble().GetName(), pipe.ActFnHandle(ref.GetId()))
	switch ref.GetScope() {
	case p4_config_v1.ActionRef_TABLE_ONLY:
		a.WithScope(ScopeTableOnly)
	case p4_config_v1.ActionRef_DEFAULT_ONLY:
		a.WithScope(ScopeDefaultOnly)
	}
	for _, param := range pa.GetParams() {
		a.Param(FieldID(param.GetId()), param.GetName(), uint32(param.GetBitwidth()))
	}
	return a, nil
}
