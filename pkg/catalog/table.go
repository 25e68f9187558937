package catalog

import (
	"slices"

	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// DefaultMaxResources bounds the attachment list of an entry.
const DefaultMaxResources = 8

// TableKind selects the data layout and the operations a table supports.
type TableKind int

const (
	KindMatchDirect TableKind = iota
	KindMatchIndirect
	KindActionProfile
	KindSelector
)

func (k TableKind) String() string {
	switch k {
	case KindMatchDirect:
		return "match-direct"
	case KindMatchIndirect:
		return "match-indirect"
	case KindActionProfile:
		return "action-profile"
	case KindSelector:
		return "selector"
	}
	return "unknown"
}

// ActionScope restricts where an action may be used.
type ActionScope int

const (
	ScopeTableAndDefault ActionScope = iota
	ScopeTableOnly
	ScopeDefaultOnly
)

// ResourceUsage records which direct resource families an action's body
// touches. Meter covers LPF and WRED as well.
type ResourceUsage struct {
	Counter  bool
	Meter    bool
	Register bool
}

// BoundResource is a resource table attached to a match table.
type BoundResource struct {
	Handle   pipe.ResourceHandle
	Kind     ResourceKind
	Indirect bool
}

// Action describes an action and its parameter layout.
type Action struct {
	ID    ActionID
	Name  string
	Fn    pipe.ActFnHandle
	Scope ActionScope
	Uses  ResourceUsage

	fields    map[FieldID]*Field
	order     []FieldID
	dataBytes int
	dataBits  int
}

// NewAction returns an action with no parameters. It is assumed to use
// every direct resource until WithUsage says otherwise.
func NewAction(id ActionID, name string, fn pipe.ActFnHandle) *Action {
	return &Action{
		ID:     id,
		Name:   name,
		Fn:     fn,
		Uses:   ResourceUsage{Counter: true, Meter: true, Register: true},
		fields: make(map[FieldID]*Field),
	}
}

// Param appends a parameter packed after the previous ones.
func (a *Action) Param(id FieldID, name string, bits uint32) *Action {
	return a.param(id, name, bits, RoleActionParam)
}

// OptimizedOut appends a parameter the compiler removed from the pipeline.
// It still occupies space in the buffer but is always written as zeros.
func (a *Action) OptimizedOut(id FieldID, name string, bits uint32) *Action {
	return a.param(id, name, bits, RoleActionParamOptimizedOut)
}

// IndexParam appends a parameter that is also the index into an indirect
// resource of the given family.
func (a *Action) IndexParam(id FieldID, name string, bits uint32, kind ResourceKind) *Action {
	return a.param(id, name, bits, RoleActionParam, IndexRole(kind))
}

func (a *Action) param(id FieldID, name string, bits uint32, roles ...Role) *Action {
	typ := TypeUint64
	if bits > 64 {
		typ = TypeBytes
	}
	f := &Field{
		ID:        id,
		Name:      name,
		Bits:      bits,
		Offset:    uint32(a.dataBytes),
		Type:      typ,
		Roles:     roles,
		Mandatory: true,
	}
	a.addField(f)
	a.dataBytes += f.Bytes()
	a.dataBits += int(bits)
	return a
}

// IndexField appends a resource index that is not part of the action
// buffer, as action profile members carry them.
func (a *Action) IndexField(id FieldID, name string, bits uint32, kind ResourceKind) *Action {
	a.addField(uintField(id, name, bits, IndexRole(kind)))
	return a
}

// WithScope sets the action scope.
func (a *Action) WithScope(s ActionScope) *Action {
	a.Scope = s
	return a
}

// WithUsage sets the direct resources the action body uses.
func (a *Action) WithUsage(u ResourceUsage) *Action {
	a.Uses = u
	return a
}

func (a *Action) addField(f *Field) {
	if _, ok := a.fields[f.ID]; !ok {
		a.order = append(a.order, f.ID)
	}
	a.fields[f.ID] = f
}

// DataSize returns the packed buffer size in bytes and bits.
func (a *Action) DataSize() (int, int) { return a.dataBytes, a.dataBits }

// Fields returns the action's fields in declaration order.
func (a *Action) Fields() []*Field {
	out := make([]*Field, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.fields[id])
	}
	return out
}

// Table describes a match, action profile or selector table.
type Table struct {
	ID     TableID
	Name   string
	Kind   TableKind
	Handle pipe.TableHandle
	Size   uint32
	Const  bool

	// ProfileID and SelectorID link a match-indirect table to the tables
	// holding its members and groups. A selector links to its profile via
	// ProfileID.
	ProfileID  TableID
	SelectorID TableID

	MaxGroupSize uint32
	MaxResources int
	// Idle is set on tables with entry idle-time tracking.
	Idle bool

	actions     map[ActionID]*Action
	actionOrder []ActionID
	fields      map[FieldID]*Field
	fieldOrder  []FieldID
	resources   []BoundResource
}

// NewTable returns an empty table.
func NewTable(id TableID, name string, kind TableKind) *Table {
	return &Table{
		ID:           id,
		Name:         name,
		Kind:         kind,
		Handle:       pipe.TableHandle(id),
		MaxResources: DefaultMaxResources,
		actions:      make(map[ActionID]*Action),
		fields:       make(map[FieldID]*Field),
	}
}

// NewIndirectTable returns a match table whose entries point at members of
// profile, or at groups of selector when selector is non-zero.
func NewIndirectTable(id TableID, name string, profile, selector TableID) *Table {
	t := NewTable(id, name, KindMatchIndirect)
	t.ProfileID = profile
	t.AddField(uintField(FieldActionMemberID, "$ACTION_MEMBER_ID", 32, RoleActionMemberID))
	if selector != 0 {
		t.SelectorID = selector
		t.AddField(uintField(FieldSelectorGroupID, "$SELECTOR_GROUP_ID", 32, RoleSelectorGroupID))
	}
	return t
}

// NewSelectorTable returns a selector table whose groups hold members of
// profile.
func NewSelectorTable(id TableID, name string, profile TableID, maxGroupSize uint32) *Table {
	t := NewTable(id, name, KindSelector)
	t.ProfileID = profile
	t.MaxGroupSize = maxGroupSize
	t.AddField(&Field{ID: FieldSelectorMembers, Name: "$ACTION_MEMBER_ID", Bits: 32, Type: TypeUintArray, Roles: []Role{RoleSelectorMembers}})
	t.AddField(&Field{ID: FieldMemberStatus, Name: "$ACTION_MEMBER_STATUS", Bits: 1, Type: TypeBoolArray, Roles: []Role{RoleMemberStatus}})
	t.AddField(uintField(FieldMaxGroupSize, "$MAX_GROUP_SIZE", 32, RoleMaxGroupSize))
	return t
}

// AddAction registers an action.
func (t *Table) AddAction(a *Action) *Table {
	if _, ok := t.actions[a.ID]; !ok {
		t.actionOrder = append(t.actionOrder, a.ID)
	}
	t.actions[a.ID] = a
	return t
}

// AddField registers a field common to every action of the table.
func (t *Table) AddField(f *Field) *Table {
	if _, ok := t.fields[f.ID]; !ok {
		t.fieldOrder = append(t.fieldOrder, f.ID)
	}
	t.fields[f.ID] = f
	return t
}

// AddResource binds a resource table.
func (t *Table) AddResource(r BoundResource) *Table {
	t.resources = append(t.resources, r)
	return t
}

// WithDirectCounter binds a direct counter and its value fields.
func (t *Table) WithDirectCounter(h pipe.ResourceHandle) *Table {
	t.AddResource(BoundResource{Handle: h, Kind: ResourceCounter})
	t.AddField(uintField(FieldCounterBytes, "$COUNTER_SPEC_BYTES", 64, RoleCounterBytes))
	t.AddField(uintField(FieldCounterPackets, "$COUNTER_SPEC_PKTS", 64, RoleCounterPackets))
	return t
}

// MeterUnit picks the meter field family.
type MeterUnit int

const (
	MeterBytes MeterUnit = iota
	MeterPackets
)

// WithDirectMeter binds a direct meter and its rate and burst fields.
func (t *Table) WithDirectMeter(h pipe.ResourceHandle, unit MeterUnit) *Table {
	t.AddResource(BoundResource{Handle: h, Kind: ResourceMeter})
	if unit == MeterPackets {
		t.AddField(uintField(FieldMeterCIRPps, "$METER_SPEC_CIR_PPS", 64, RoleMeterCIRPps))
		t.AddField(uintField(FieldMeterPIRPps, "$METER_SPEC_PIR_PPS", 64, RoleMeterPIRPps))
		t.AddField(uintField(FieldMeterCBSPkts, "$METER_SPEC_CBS_PKTS", 64, RoleMeterCBSPkts))
		t.AddField(uintField(FieldMeterPBSPkts, "$METER_SPEC_PBS_PKTS", 64, RoleMeterPBSPkts))
		return t
	}
	t.AddField(uintField(FieldMeterCIRKbps, "$METER_SPEC_CIR_KBPS", 64, RoleMeterCIRKbps))
	t.AddField(uintField(FieldMeterPIRKbps, "$METER_SPEC_PIR_KBPS", 64, RoleMeterPIRKbps))
	t.AddField(uintField(FieldMeterCBSKbits, "$METER_SPEC_CBS_KBITS", 64, RoleMeterCBSKbits))
	t.AddField(uintField(FieldMeterPBSKbits, "$METER_SPEC_PBS_KBITS", 64, RoleMeterPBSKbits))
	return t
}

// LPF type strings.
const (
	LPFTypeRate   = "RATE"
	LPFTypeSample = "SAMPLE"
)

// WithDirectLPF binds a direct LPF and its fields.
func (t *Table) WithDirectLPF(h pipe.ResourceHandle) *Table {
	t.AddResource(BoundResource{Handle: h, Kind: ResourceLPF})
	t.AddField(&Field{ID: FieldLPFType, Name: "$LPF_SPEC_TYPE", Type: TypeString,
		Roles: []Role{RoleLPFType}, Choices: []string{LPFTypeRate, LPFTypeSample}})
	t.AddField(floatField(FieldLPFGainTimeConstant, "$LPF_SPEC_GAIN_TIME_CONSTANT_NS", RoleLPFGainTimeConstant))
	t.AddField(floatField(FieldLPFDecayTimeConstant, "$LPF_SPEC_DECAY_TIME_CONSTANT_NS", RoleLPFDecayTimeConstant))
	t.AddField(uintField(FieldLPFOutputScaleDown, "$LPF_SPEC_OUT_SCALE_DOWN_FACTOR", 32, RoleLPFOutputScaleDown))
	return t
}

// WithDirectWRED binds a direct WRED and its fields.
func (t *Table) WithDirectWRED(h pipe.ResourceHandle) *Table {
	t.AddResource(BoundResource{Handle: h, Kind: ResourceWRED})
	t.AddField(floatField(FieldWREDTimeConstant, "$WRED_SPEC_TIME_CONSTANT_NS", RoleWREDTimeConstant))
	t.AddField(uintField(FieldWREDMinThreshold, "$WRED_SPEC_MIN_THRESH_CELLS", 32, RoleWREDMinThreshold))
	t.AddField(uintField(FieldWREDMaxThreshold, "$WRED_SPEC_MAX_THRESH_CELLS", 32, RoleWREDMaxThreshold))
	t.AddField(floatField(FieldWREDMaxProbability, "$WRED_SPEC_MAX_PROBABILITY", RoleWREDMaxProbability))
	return t
}

// WithDirectRegister binds a direct register of the given cell width. A
// dual register exposes separate hi and lo fields.
func (t *Table) WithDirectRegister(h pipe.ResourceHandle, name string, width uint32, dual bool) *Table {
	t.AddResource(BoundResource{Handle: h, Kind: ResourceRegister})
	if dual {
		t.AddField(uintField(FieldRegisterHi, name+".hi", width, RoleRegisterHi))
		t.AddField(uintField(FieldRegisterLo, name+".lo", width, RoleRegisterLo))
		return t
	}
	t.AddField(uintField(FieldRegister, name, width, RoleRegister))
	return t
}

// WithIndirect binds an indirect resource addressed by index fields.
func (t *Table) WithIndirect(kind ResourceKind, h pipe.ResourceHandle) *Table {
	return t.AddResource(BoundResource{Handle: h, Kind: kind, Indirect: true})
}

// WithIdleTimeout enables idle-time tracking and its fields.
func (t *Table) WithIdleTimeout() *Table {
	t.Idle = true
	t.AddField(uintField(FieldTTL, "$ENTRY_TTL", 32, RoleTTL))
	t.AddField(&Field{ID: FieldEntryHitState, Name: "$ENTRY_HIT_STATE", Type: TypeString,
		Roles: []Role{RoleEntryHitState}, Choices: []string{"ENTRY_IDLE", "ENTRY_ACTIVE"}})
	return t
}

// Field looks a field up, first among the action's own fields and then
// among the table's common fields.
func (t *Table) Field(id FieldID, action ActionID) (*Field, error) {
	if action != 0 {
		if a, ok := t.actions[action]; ok {
			if f, ok := a.fields[id]; ok {
				return f, nil
			}
		}
	}
	if f, ok := t.fields[id]; ok {
		return f, nil
	}
	return nil, status.Invalidf("table %s: field %d not found for action %d", t.Name, id, action)
}

// FieldByName looks a field up by name, the same way Field does.
func (t *Table) FieldByName(name string, action ActionID) (*Field, error) {
	if a, ok := t.actions[action]; ok {
		for _, id := range a.order {
			if a.fields[id].Name == name {
				return a.fields[id], nil
			}
		}
	}
	for _, id := range t.fieldOrder {
		if t.fields[id].Name == name {
			return t.fields[id], nil
		}
	}
	return nil, status.Invalidf("table %s: field %q not found for action %d", t.Name, name, action)
}

// Action returns the action with the given id.
func (t *Table) Action(id ActionID) (*Action, error) {
	a, ok := t.actions[id]
	if !ok {
		return nil, status.Invalidf("table %s: action %d not found", t.Name, id)
	}
	return a, nil
}

// ActionByFn returns the action whose function handle is fn.
func (t *Table) ActionByFn(fn pipe.ActFnHandle) (*Action, error) {
	for _, id := range t.actionOrder {
		if t.actions[id].Fn == fn {
			return t.actions[id], nil
		}
	}
	return nil, status.NotFoundf(status.ReasonField, "table %s: no action for function handle %#x", t.Name, fn)
}

// Actions returns the actions in registration order.
func (t *Table) Actions() []*Action {
	out := make([]*Action, 0, len(t.actionOrder))
	for _, id := range t.actionOrder {
		out = append(out, t.actions[id])
	}
	return out
}

// HasActions reports whether the table carries action data itself.
func (t *Table) HasActions() bool { return len(t.actions) > 0 }

// CommonFields returns the fields shared by every action.
func (t *Table) CommonFields() []*Field {
	out := make([]*Field, 0, len(t.fieldOrder))
	for _, id := range t.fieldOrder {
		out = append(out, t.fields[id])
	}
	return out
}

// FieldIDs returns the ids of every field valid for action: the action's
// own fields followed by the common ones.
func (t *Table) FieldIDs(action ActionID) []FieldID {
	var ids []FieldID
	if a, ok := t.actions[action]; ok {
		ids = append(ids, a.order...)
	}
	return append(ids, t.fieldOrder...)
}

// BoundResources returns the resource tables bound to t.
func (t *Table) BoundResources() []BoundResource {
	return slices.Clone(t.resources)
}

// ResourceHandle returns the handle of the resource a role addresses:
// the indirect resource of its family for index roles, the direct one
// otherwise.
func (t *Table) ResourceHandle(r Role) (pipe.ResourceHandle, bool) {
	kind := r.ResourceKind()
	if kind == ResourceNone {
		return 0, false
	}
	indirect := r.IsIndex()
	for _, res := range t.resources {
		if res.Kind == kind && res.Indirect == indirect {
			return res.Handle, true
		}
	}
	return 0, false
}

// IndirectHandles maps each indirect index role the table declares to
// its resource handle.
func (t *Table) IndirectHandles() map[Role]pipe.ResourceHandle {
	out := make(map[Role]pipe.ResourceHandle)
	for _, res := range t.resources {
		if !res.Indirect {
			continue
		}
		r := IndexRole(res.Kind)
		if _, ok := out[r]; !ok {
			out[r] = res.Handle
		}
	}
	return out
}

// MaxDataSize returns the largest action buffer of the table.
func (t *Table) MaxDataSize() (int, int) {
	var maxBytes, maxBits int
	for _, a := range t.actions {
		maxBytes = max(maxBytes, a.dataBytes)
		maxBits = max(maxBits, a.dataBits)
	}
	return maxBytes, maxBits
}

// Usage returns the direct resources action uses. Action 0 uses all.
func (t *Table) Usage(action ActionID) ResourceUsage {
	if a, ok := t.actions[action]; ok {
		return a.Uses
	}
	return ResourceUsage{Counter: true, Meter: true, Register: true}
}
