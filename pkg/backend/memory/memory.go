// Package memory is a software pipeline backend. It keeps every table in
// process memory and is used by tests and by tblmgrd's memory mode.
package memory

import (
	"fmt"
	"sync"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/dataplane"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// Compile-time assertion that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

func init() {
	dataplane.RegisterBackend(dataplane.TypeMemory, func() backend.Backend { return New() })
}

type tableKey struct {
	dev pipe.DevID
	tbl pipe.TableHandle
}

type entry struct {
	pipe  pipe.PipeID
	match string
	fn    pipe.ActFnHandle
	spec  *actionspec.Spec
	ttl   uint32
	hit   idle.HitState
}

func (e *entry) read(h pipe.EntryHandle) backend.Entry {
	return backend.Entry{Handle: h, Pipe: e.pipe, ActFn: e.fn, Spec: e.spec.Clone(), TTL: e.ttl, Hit: e.hit}
}

type group struct {
	pipe    pipe.PipeID
	maxSize uint32
	members []pipe.EntryHandle
	enabled []bool
}

type table struct {
	entries map[pipe.EntryHandle]*entry
	byMatch map[string]pipe.EntryHandle
	def     *entry
	members map[pipe.EntryHandle]*entry
	groups  map[pipe.GroupHandle]*group
}

// references reports whether match holds for the action spec of any
// match entry or the default entry of t.
func (t *table) references(match func(*actionspec.Spec) bool) bool {
	if t.def != nil && match(t.def.spec) {
		return true
	}
	for _, e := range t.entries {
		if match(e.spec) {
			return true
		}
	}
	return false
}

// Backend is an in-memory pipeline.
type Backend struct {
	mu        sync.Mutex
	tables    map[tableKey]*table
	nextEntry pipe.EntryHandle
	nextGroup pipe.GroupHandle
}

// New returns an empty pipeline.
func New() *Backend {
	return &Backend{tables: make(map[tableKey]*table)}
}

func (b *Backend) table(tgt pipe.Target, tbl pipe.TableHandle) *table {
	k := tableKey{tgt.Dev, tbl}
	t, ok := b.tables[k]
	if !ok {
		t = &table{
			entries: make(map[pipe.EntryHandle]*entry),
			byMatch: make(map[string]pipe.EntryHandle),
			members: make(map[pipe.EntryHandle]*entry),
			groups:  make(map[pipe.GroupHandle]*group),
		}
		b.tables[k] = t
	}
	return t
}

func matchKey(m backend.MatchSpec) string {
	return fmt.Sprintf("%x/%x/%d", m.Key, m.Mask, m.Priority)
}

func (b *Backend) entry(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (*entry, error) {
	e, ok := b.table(tgt, tbl).entries[h]
	if !ok {
		return nil, status.NotFoundf(status.ReasonEntry, "table %#x: entry %#x not found", tbl, h)
	}
	return e, nil
}

func (b *Backend) ProgramEntry(tgt pipe.Target, tbl pipe.TableHandle, match backend.MatchSpec, fn pipe.ActFnHandle, spec *actionspec.Spec, ttl uint32) (pipe.EntryHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.table(tgt, tbl)
	mk := matchKey(match)
	if _, dup := t.byMatch[mk]; dup {
		return 0, status.Errorf(status.AlreadyExists, "table %#x: match key already programmed", tbl)
	}
	b.nextEntry++
	h := b.nextEntry
	e := &entry{pipe: tgt.Pipe, match: mk, fn: fn, spec: spec.Clone(), ttl: ttl}
	// A poll-mode table programs TTL 1 for an entry that starts active.
	if ttl != 0 {
		e.hit = idle.HitActive
	}
	t.entries[h] = e
	t.byMatch[mk] = h
	return h, nil
}

func (b *Backend) SetEntryAction(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.entry(tgt, tbl, h)
	if err != nil {
		return err
	}
	next, err := e.spec.Overlay(spec)
	if err != nil {
		return err
	}
	e.fn, e.spec = fn, next
	return nil
}

func (b *Backend) SetEntryResources(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, res []actionspec.Attachment) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.entry(tgt, tbl, h)
	if err != nil {
		return err
	}
	spec := e.spec.Clone()
	if err := spec.Apply(res); err != nil {
		return err
	}
	e.spec = spec
	return nil
}

func (b *Backend) SetDirectStat(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, res pipe.ResourceHandle, c actionspec.CounterSpec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.entry(tgt, tbl, h)
	if err != nil {
		return err
	}
	a, ok := e.spec.Attachment(res)
	if !ok {
		return status.Invalidf("table %#x: entry %#x has no counter %#x", tbl, h, res)
	}
	a.Counter = c
	return e.spec.Put(a)
}

func (b *Backend) SetEntryTTL(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, ttl uint32, reset bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.entry(tgt, tbl, h)
	if err != nil {
		return err
	}
	e.ttl = ttl
	if reset {
		e.hit = idle.HitIdle
	}
	return nil
}

func (b *Backend) SetEntryHitState(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, hit idle.HitState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.entry(tgt, tbl, h)
	if err != nil {
		return err
	}
	e.hit = hit
	return nil
}

func (b *Backend) EntryHitState(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (idle.HitState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.entry(tgt, tbl, h)
	if err != nil {
		return 0, err
	}
	return e.hit, nil
}

// MarkHit records traffic on an entry, as the pipeline would on a lookup.
func (b *Backend) MarkHit(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) error {
	return b.SetEntryHitState(tgt, tbl, h, idle.HitActive)
}

func (b *Backend) DeleteEntry(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.table(tgt, tbl)
	e, ok := t.entries[h]
	if !ok {
		return status.NotFoundf(status.ReasonEntry, "table %#x: entry %#x not found", tbl, h)
	}
	delete(t.byMatch, e.match)
	delete(t.entries, h)
	return nil
}

func (b *Backend) ReadEntry(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (backend.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.entry(tgt, tbl, h)
	if err != nil {
		return backend.Entry{}, err
	}
	return e.read(h), nil
}

func (b *Backend) EntryByMatch(tgt pipe.Target, tbl pipe.TableHandle, match backend.MatchSpec) (pipe.EntryHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.table(tgt, tbl).byMatch[matchKey(match)]
	if !ok {
		return 0, status.NotFoundf(status.ReasonEntry, "table %#x: no entry for match key", tbl)
	}
	return h, nil
}

func (b *Backend) Usage(tgt pipe.Target, tbl pipe.TableHandle) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n uint32
	for _, e := range b.table(tgt, tbl).entries {
		if tgt.Pipe == pipe.AllPipes || e.pipe == tgt.Pipe {
			n++
		}
	}
	return n, nil
}

func (b *Backend) SetDefaultEntry(tgt pipe.Target, tbl pipe.TableHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.table(tgt, tbl).def = &entry{pipe: tgt.Pipe, fn: fn, spec: spec.Clone()}
	return nil
}

func (b *Backend) ResetDefaultEntry(tgt pipe.Target, tbl pipe.TableHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.table(tgt, tbl).def = nil
	return nil
}

func (b *Backend) ReadDefaultEntry(tgt pipe.Target, tbl pipe.TableHandle) (backend.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.table(tgt, tbl).def
	if d == nil {
		return backend.Entry{}, status.NotFoundf(status.ReasonEntry, "table %#x: no default entry", tbl)
	}
	return d.read(0), nil
}

func (b *Backend) AddMember(tgt pipe.Target, tbl pipe.TableHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) (pipe.EntryHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextEntry++
	h := b.nextEntry
	b.table(tgt, tbl).members[h] = &entry{pipe: tgt.Pipe, fn: fn, spec: spec.Clone()}
	return h, nil
}

func (b *Backend) member(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (*entry, error) {
	m, ok := b.table(tgt, tbl).members[h]
	if !ok {
		return nil, status.NotFoundf(status.ReasonMember, "profile %#x: member entry %#x not found", tbl, h)
	}
	return m, nil
}

func (b *Backend) ModifyMember(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.member(tgt, tbl, h)
	if err != nil {
		return err
	}
	m.fn = fn
	m.spec = spec.Clone()
	return nil
}

func (b *Backend) DeleteMember(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.member(tgt, tbl, h); err != nil {
		return err
	}
	for k, t := range b.tables {
		if k.dev != tgt.Dev {
			continue
		}
		for _, g := range t.groups {
			for _, m := range g.members {
				if m == h {
					return status.Invalidf("member entry %#x is in use by a group", h)
				}
			}
		}
		if t.references(func(s *actionspec.Spec) bool {
			return s.Kind() == actionspec.KindMemberHandle && s.MemberHandle() == h
		}) {
			return status.Invalidf("member entry %#x is in use by a match or default entry", h)
		}
	}
	delete(b.table(tgt, tbl).members, h)
	return nil
}

func (b *Backend) ReadMember(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (backend.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, err := b.member(tgt, tbl, h)
	if err != nil {
		return backend.Entry{}, err
	}
	return m.read(h), nil
}

func (b *Backend) AddGroup(tgt pipe.Target, sel pipe.TableHandle, maxSize uint32) (pipe.GroupHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextGroup++
	g := b.nextGroup
	b.table(tgt, sel).groups[g] = &group{pipe: tgt.Pipe, maxSize: maxSize}
	return g, nil
}

func (b *Backend) group(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) (*group, error) {
	grp, ok := b.table(tgt, sel).groups[g]
	if !ok {
		return nil, status.NotFoundf(status.ReasonGroupMissing, "selector %#x: group %#x not found", sel, g)
	}
	return grp, nil
}

func (b *Backend) DeleteGroup(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.group(tgt, sel, g); err != nil {
		return err
	}
	for k, t := range b.tables {
		if k.dev != tgt.Dev {
			continue
		}
		if t.references(func(s *actionspec.Spec) bool {
			return s.Kind() == actionspec.KindGroupHandle && s.GroupHandle() == g
		}) {
			return status.Invalidf("group %#x is in use by a match or default entry", g)
		}
	}
	delete(b.table(tgt, sel).groups, g)
	return nil
}

func (b *Backend) SetGroupMembers(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle, members []pipe.EntryHandle, enabled []bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	grp, err := b.group(tgt, sel, g)
	if err != nil {
		return err
	}
	if len(enabled) != len(members) {
		return status.Invalidf("%d members but %d status flags", len(members), len(enabled))
	}
	if grp.maxSize != 0 && uint32(len(members)) > grp.maxSize {
		return status.Invalidf("group %#x holds at most %d members", g, grp.maxSize)
	}
	grp.members = append([]pipe.EntryHandle(nil), members...)
	grp.enabled = append([]bool(nil), enabled...)
	return nil
}

func (b *Backend) GroupMembers(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) ([]pipe.EntryHandle, []bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	grp, err := b.group(tgt, sel, g)
	if err != nil {
		return nil, nil, err
	}
	return append([]pipe.EntryHandle(nil), grp.members...), append([]bool(nil), grp.enabled...), nil
}

func (b *Backend) FirstGroupMember(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) (pipe.EntryHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	grp, err := b.group(tgt, sel, g)
	if err != nil {
		return 0, err
	}
	if len(grp.members) == 0 {
		return 0, status.NotFoundf(status.ReasonGroupEmpty, "selector %#x: group %#x is empty", sel, g)
	}
	return grp.members[0], nil
}
