package dataplane

import (
	"errors"
	"fmt"

	"github.com/cilium/ebpf"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

func (m *Manager) tableMap(name string) (*ebpf.Map, error) {
	mp, ok := m.maps[name]
	if !ok {
		return nil, fmt.Errorf("%s map not found", name)
	}
	return mp, nil
}

func notFound(err error) bool { return errors.Is(err, ebpf.ErrKeyNotExist) }

func (m *Manager) readEntry(tbl pipe.TableHandle, h pipe.EntryHandle) (*ebpf.Map, EntryKey, EntryValue, error) {
	var v EntryValue
	k := EntryKey{Table: uint32(tbl), Handle: uint32(h)}
	em, err := m.tableMap("entries")
	if err != nil {
		return nil, k, v, err
	}
	if err := em.Lookup(k, &v); err != nil {
		if notFound(err) {
			return nil, k, v, status.NotFoundf(status.ReasonEntry, "table %#x: entry %#x not found", tbl, h)
		}
		return nil, k, v, fmt.Errorf("lookup entry %#x: %w", h, err)
	}
	return em, k, v, nil
}

// updateEntry applies fn to entry h and writes it back.
func (m *Manager) updateEntry(tbl pipe.TableHandle, h pipe.EntryHandle, fn func(*EntryValue) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	em, k, v, err := m.readEntry(tbl, h)
	if err != nil {
		return err
	}
	if err := fn(&v); err != nil {
		return err
	}
	return em.Update(k, v, ebpf.UpdateExist)
}

func (m *Manager) ProgramEntry(tgt pipe.Target, tbl pipe.TableHandle, match backend.MatchSpec, fn pipe.ActFnHandle, spec *actionspec.Spec, ttl uint32) (pipe.EntryHandle, error) {
	mk, err := encodeMatch(tbl, match)
	if err != nil {
		return 0, err
	}
	v, err := encodeEntry(tgt.Pipe, fn, spec, ttl)
	if err != nil {
		return 0, err
	}
	v.LastHit = monotonicMillis()
	if ttl != 0 {
		v.Hit = uint8(idle.HitActive)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.tableMap("match_index")
	if err != nil {
		return 0, err
	}
	em, err := m.tableMap("entries")
	if err != nil {
		return 0, err
	}
	emm, err := m.tableMap("entry_match")
	if err != nil {
		return 0, err
	}

	var existing uint32
	switch err := idx.Lookup(mk, &existing); {
	case err == nil:
		return 0, status.Errorf(status.AlreadyExists, "table %#x: match key already programmed as %#x", tbl, existing)
	case !notFound(err):
		return 0, fmt.Errorf("lookup match key: %w", err)
	}

	m.nextEntry++
	h := m.nextEntry
	k := EntryKey{Table: uint32(tbl), Handle: h}
	if err := em.Update(k, v, ebpf.UpdateNoExist); err != nil {
		return 0, fmt.Errorf("write entry %#x: %w", h, err)
	}
	if err := emm.Update(k, mk, ebpf.UpdateAny); err != nil {
		_ = em.Delete(k)
		return 0, fmt.Errorf("write entry %#x match: %w", h, err)
	}
	if err := idx.Update(mk, h, ebpf.UpdateNoExist); err != nil {
		_ = emm.Delete(k)
		_ = em.Delete(k)
		return 0, fmt.Errorf("index entry %#x: %w", h, err)
	}
	return pipe.EntryHandle(h), nil
}

func (m *Manager) SetEntryAction(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) error {
	return m.updateEntry(tbl, h, func(v *EntryValue) error {
		cur, err := v.spec()
		if err != nil {
			return err
		}
		next, err := cur.Overlay(spec)
		if err != nil {
			return err
		}
		nv, err := encodeEntry(pipe.PipeID(v.Pipe), fn, next, v.TTL)
		if err != nil {
			return err
		}
		nv.LastHit, nv.Hit, nv.Expired = v.LastHit, v.Hit, v.Expired
		*v = nv
		return nil
	})
}

func (m *Manager) SetEntryResources(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, res []actionspec.Attachment) error {
	return m.updateEntry(tbl, h, func(v *EntryValue) error {
		s, err := v.spec()
		if err != nil {
			return err
		}
		if err := s.Apply(res); err != nil {
			return err
		}
		return v.setResources(s.Attachments())
	})
}

func (m *Manager) SetDirectStat(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, res pipe.ResourceHandle, c actionspec.CounterSpec) error {
	return m.updateEntry(tbl, h, func(v *EntryValue) error {
		s, err := v.spec()
		if err != nil {
			return err
		}
		a, ok := s.Attachment(res)
		if !ok {
			a = actionspec.Attachment{Handle: res, Kind: catalog.ResourceCounter, Tag: actionspec.TagAttached, Direct: true}
		}
		a.Counter = c
		if err := s.Put(a); err != nil {
			return err
		}
		return v.setResources(s.Attachments())
	})
}

func (m *Manager) SetEntryTTL(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, ttl uint32, reset bool) error {
	return m.updateEntry(tbl, h, func(v *EntryValue) error {
		v.TTL = ttl
		if reset {
			v.Hit, v.Expired = uint8(idle.HitIdle), 0
			v.LastHit = monotonicMillis()
		}
		return nil
	})
}

func (m *Manager) SetEntryHitState(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, hit idle.HitState) error {
	return m.updateEntry(tbl, h, func(v *EntryValue) error {
		v.Hit = uint8(hit)
		if hit == idle.HitActive {
			v.LastHit = monotonicMillis()
		}
		return nil
	})
}

// EntryHitState reads and clears the hit bit, as the pipeline's hit-state
// dump does.
func (m *Manager) EntryHitState(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (idle.HitState, error) {
	var hit idle.HitState
	err := m.updateEntry(tbl, h, func(v *EntryValue) error {
		hit = idle.HitState(v.Hit)
		v.Hit = uint8(idle.HitIdle)
		return nil
	})
	return hit, err
}

func (m *Manager) DeleteEntry(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	em, k, _, err := m.readEntry(tbl, h)
	if err != nil {
		return err
	}
	emm, err := m.tableMap("entry_match")
	if err != nil {
		return err
	}
	idx, err := m.tableMap("match_index")
	if err != nil {
		return err
	}
	var mk MatchKey
	if err := emm.Lookup(k, &mk); err == nil {
		if err := idx.Delete(mk); err != nil && !notFound(err) {
			return fmt.Errorf("unindex entry %#x: %w", h, err)
		}
		_ = emm.Delete(k)
	}
	return em.Delete(k)
}

func (m *Manager) ReadEntry(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (backend.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, v, err := m.readEntry(tbl, h)
	if err != nil {
		return backend.Entry{}, err
	}
	return v.entry(h)
}

func (m *Manager) EntryByMatch(tgt pipe.Target, tbl pipe.TableHandle, match backend.MatchSpec) (pipe.EntryHandle, error) {
	mk, err := encodeMatch(tbl, match)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.tableMap("match_index")
	if err != nil {
		return 0, err
	}
	var h uint32
	if err := idx.Lookup(mk, &h); err != nil {
		if notFound(err) {
			return 0, status.NotFoundf(status.ReasonEntry, "table %#x: no entry for match key", tbl)
		}
		return 0, fmt.Errorf("lookup match key: %w", err)
	}
	return pipe.EntryHandle(h), nil
}

// IterateEntries calls fn for every match entry until fn returns false.
func (m *Manager) IterateEntries(fn func(EntryKey, EntryValue) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.iterateEntries(fn)
}

func (m *Manager) iterateEntries(fn func(EntryKey, EntryValue) bool) error {
	em, err := m.tableMap("entries")
	if err != nil {
		return err
	}
	var key EntryKey
	var val EntryValue
	iter := em.Iterate()
	for iter.Next(&key, &val) {
		if !fn(key, val) {
			break
		}
	}
	return iter.Err()
}

// referenced reports whether a match entry or a default entry points at
// the member or group ref.
func (m *Manager) referenced(kind uint8, ref uint32) (bool, error) {
	found := false
	if err := m.iterateEntries(func(_ EntryKey, v EntryValue) bool {
		found = v.Kind == kind && v.Ref == ref
		return !found
	}); err != nil || found {
		return found, err
	}
	dm, err := m.tableMap("defaults")
	if err != nil {
		return false, err
	}
	var tbl uint32
	var v EntryValue
	iter := dm.Iterate()
	for iter.Next(&tbl, &v) {
		if v.Kind == kind && v.Ref == ref {
			return true, nil
		}
	}
	return false, iter.Err()
}

// MarkExpired flags an entry as expired unless it was hit after lastHit.
// It reports whether the flag was set.
func (m *Manager) MarkExpired(k EntryKey, lastHit uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	em, _, v, err := m.readEntry(pipe.TableHandle(k.Table), pipe.EntryHandle(k.Handle))
	if err != nil {
		return false, err
	}
	if v.LastHit != lastHit || v.Expired != 0 {
		return false, nil
	}
	v.Expired = 1
	v.Hit = uint8(idle.HitIdle)
	return true, em.Update(k, v, ebpf.UpdateExist)
}

func (m *Manager) Usage(tgt pipe.Target, tbl pipe.TableHandle) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n uint32
	err := m.iterateEntries(func(k EntryKey, v EntryValue) bool {
		if k.Table == uint32(tbl) && (tgt.Pipe == pipe.AllPipes || v.Pipe == uint32(tgt.Pipe)) {
			n++
		}
		return true
	})
	return n, err
}

func (m *Manager) SetDefaultEntry(tgt pipe.Target, tbl pipe.TableHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) error {
	v, err := encodeEntry(tgt.Pipe, fn, spec, 0)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	dm, err := m.tableMap("defaults")
	if err != nil {
		return err
	}
	return dm.Update(uint32(tbl), v, ebpf.UpdateAny)
}

func (m *Manager) ResetDefaultEntry(tgt pipe.Target, tbl pipe.TableHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dm, err := m.tableMap("defaults")
	if err != nil {
		return err
	}
	if err := dm.Delete(uint32(tbl)); err != nil && !notFound(err) {
		return err
	}
	return nil
}

func (m *Manager) ReadDefaultEntry(tgt pipe.Target, tbl pipe.TableHandle) (backend.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dm, err := m.tableMap("defaults")
	if err != nil {
		return backend.Entry{}, err
	}
	var v EntryValue
	if err := dm.Lookup(uint32(tbl), &v); err != nil {
		if notFound(err) {
			return backend.Entry{}, status.NotFoundf(status.ReasonEntry, "table %#x: no default entry", tbl)
		}
		return backend.Entry{}, err
	}
	return v.entry(0)
}

func (m *Manager) readMember(tbl pipe.TableHandle, h pipe.EntryHandle) (*ebpf.Map, EntryKey, EntryValue, error) {
	var v EntryValue
	k := EntryKey{Table: uint32(tbl), Handle: uint32(h)}
	mm, err := m.tableMap("members")
	if err != nil {
		return nil, k, v, err
	}
	if err := mm.Lookup(k, &v); err != nil {
		if notFound(err) {
			return nil, k, v, status.NotFoundf(status.ReasonMember, "profile %#x: member entry %#x not found", tbl, h)
		}
		return nil, k, v, fmt.Errorf("lookup member %#x: %w", h, err)
	}
	return mm, k, v, nil
}

func (m *Manager) AddMember(tgt pipe.Target, tbl pipe.TableHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) (pipe.EntryHandle, error) {
	v, err := encodeEntry(tgt.Pipe, fn, spec, 0)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, err := m.tableMap("members")
	if err != nil {
		return 0, err
	}
	m.nextEntry++
	h := m.nextEntry
	if err := mm.Update(EntryKey{Table: uint32(tbl), Handle: h}, v, ebpf.UpdateNoExist); err != nil {
		return 0, fmt.Errorf("write member %#x: %w", h, err)
	}
	return pipe.EntryHandle(h), nil
}

func (m *Manager) ModifyMember(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, k, old, err := m.readMember(tbl, h)
	if err != nil {
		return err
	}
	v, err := encodeEntry(pipe.PipeID(old.Pipe), fn, spec, 0)
	if err != nil {
		return err
	}
	return mm.Update(k, v, ebpf.UpdateExist)
}

func (m *Manager) DeleteMember(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, k, _, err := m.readMember(tbl, h)
	if err != nil {
		return err
	}

	inUse, err := m.referenced(EntryKindMember, uint32(h))
	if err != nil {
		return err
	}
	if inUse {
		return status.Invalidf("member entry %#x is in use by a match or default entry", h)
	}
	if err := m.iterateGroups(func(_ GroupKey, g GroupValue) bool {
		for _, mh := range g.Members[:min(g.Count, MaxGroupMembers)] {
			if mh == uint32(h) {
				inUse = true
			}
		}
		return !inUse
	}); err != nil {
		return err
	}
	if inUse {
		return status.Invalidf("member entry %#x is in use by a group", h)
	}
	return mm.Delete(k)
}

func (m *Manager) ReadMember(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (backend.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, v, err := m.readMember(tbl, h)
	if err != nil {
		return backend.Entry{}, err
	}
	return v.entry(h)
}

func (m *Manager) iterateGroups(fn func(GroupKey, GroupValue) bool) error {
	gm, err := m.tableMap("groups")
	if err != nil {
		return err
	}
	var key GroupKey
	var val GroupValue
	iter := gm.Iterate()
	for iter.Next(&key, &val) {
		if !fn(key, val) {
			break
		}
	}
	return iter.Err()
}

func (m *Manager) readGroup(sel pipe.TableHandle, g pipe.GroupHandle) (*ebpf.Map, GroupKey, GroupValue, error) {
	var v GroupValue
	k := GroupKey{Table: uint32(sel), Group: uint32(g)}
	gm, err := m.tableMap("groups")
	if err != nil {
		return nil, k, v, err
	}
	if err := gm.Lookup(k, &v); err != nil {
		if notFound(err) {
			return nil, k, v, status.NotFoundf(status.ReasonGroupMissing, "selector %#x: group %#x not found", sel, g)
		}
		return nil, k, v, fmt.Errorf("lookup group %#x: %w", g, err)
	}
	return gm, k, v, nil
}

func (m *Manager) AddGroup(tgt pipe.Target, sel pipe.TableHandle, maxSize uint32) (pipe.GroupHandle, error) {
	if maxSize > MaxGroupMembers {
		return 0, status.Errorf(status.NotSupported, "group size %d exceeds the %d-member map slot", maxSize, MaxGroupMembers)
	}
	if maxSize == 0 {
		maxSize = MaxGroupMembers
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	gm, err := m.tableMap("groups")
	if err != nil {
		return 0, err
	}
	m.nextGroup++
	g := m.nextGroup
	v := GroupValue{MaxSize: maxSize, Pipe: uint32(tgt.Pipe)}
	if err := gm.Update(GroupKey{Table: uint32(sel), Group: g}, v, ebpf.UpdateNoExist); err != nil {
		return 0, fmt.Errorf("write group %#x: %w", g, err)
	}
	return pipe.GroupHandle(g), nil
}

func (m *Manager) DeleteGroup(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gm, k, _, err := m.readGroup(sel, g)
	if err != nil {
		return err
	}
	inUse, err := m.referenced(EntryKindGroup, uint32(g))
	if err != nil {
		return err
	}
	if inUse {
		return status.Invalidf("group %#x is in use by a match or default entry", g)
	}
	return gm.Delete(k)
}

func (m *Manager) SetGroupMembers(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle, members []pipe.EntryHandle, enabled []bool) error {
	if len(enabled) != len(members) {
		return status.Invalidf("%d members but %d status flags", len(members), len(enabled))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	gm, k, v, err := m.readGroup(sel, g)
	if err != nil {
		return err
	}
	if uint32(len(members)) > v.MaxSize {
		return status.Invalidf("group %#x holds at most %d members", g, v.MaxSize)
	}
	v.Members = [MaxGroupMembers]uint32{}
	v.Enabled = [MaxGroupMembers]uint8{}
	v.Count = uint32(len(members))
	for i, h := range members {
		v.Members[i] = uint32(h)
		if enabled[i] {
			v.Enabled[i] = 1
		}
	}
	return gm.Update(k, v, ebpf.UpdateExist)
}

func (m *Manager) GroupMembers(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) ([]pipe.EntryHandle, []bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, v, err := m.readGroup(sel, g)
	if err != nil {
		return nil, nil, err
	}
	n := min(v.Count, MaxGroupMembers)
	members := make([]pipe.EntryHandle, n)
	enabled := make([]bool, n)
	for i := range n {
		members[i] = pipe.EntryHandle(v.Members[i])
		enabled[i] = v.Enabled[i] != 0
	}
	return members, enabled, nil
}

func (m *Manager) FirstGroupMember(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) (pipe.EntryHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, v, err := m.readGroup(sel, g)
	if err != nil {
		return 0, err
	}
	if v.Count == 0 {
		return 0, status.NotFoundf(status.ReasonGroupEmpty, "selector %#x: group %#x is empty", sel, g)
	}
	return pipe.EntryHandle(v.Members[0]), nil
}
