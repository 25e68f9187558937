// Package indirect tracks action profile members and selector groups of
// one device and resolves match entries that reference them.
package indirect

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// MemberID is the caller-chosen id of an action profile member.
type MemberID uint32

// GroupID is the caller-chosen id of a selector group.
type GroupID uint32

// ResourceMap maps an indirect index role to the index a member uses.
type ResourceMap map[catalog.Role]uint32

// Member is the recorded state of an action profile member.
type Member struct {
	ID        MemberID
	Pipe      pipe.PipeID
	ActFn     pipe.ActFnHandle
	Entry     pipe.EntryHandle
	Resources ResourceMap
}

func (m Member) clone() Member {
	m.Resources = maps.Clone(m.Resources)
	return m
}

// Group is the recorded state of a selector group.
type Group struct {
	ID      GroupID
	Pipe    pipe.PipeID
	Handle  pipe.GroupHandle
	MaxSize uint32
}

type key[T ~uint32] struct {
	id   T
	pipe pipe.PipeID
}

func compareKeys[T ~uint32](a, b key[T]) int {
	if c := cmp.Compare(a.id, b.id); c != 0 {
		return c
	}
	return cmp.Compare(a.pipe, b.pipe)
}

// ordered is a map with keys kept sorted by (id, pipe).
type ordered[T ~uint32, V any] struct {
	m    map[key[T]]V
	keys []key[T]
}

func newOrdered[T ~uint32, V any]() ordered[T, V] {
	return ordered[T, V]{m: make(map[key[T]]V)}
}

func (o *ordered[T, V]) insert(k key[T], v V) {
	i, found := slices.BinarySearchFunc(o.keys, k, compareKeys[T])
	if !found {
		o.keys = slices.Insert(o.keys, i, k)
	}
	o.m[k] = v
}

func (o *ordered[T, V]) remove(k key[T]) {
	if i, found := slices.BinarySearchFunc(o.keys, k, compareKeys[T]); found {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
	delete(o.m, k)
}

// after returns the first key strictly after k whose pipe is p.
func (o *ordered[T, V]) after(k key[T], p pipe.PipeID, inclusive bool) (key[T], bool) {
	i, found := slices.BinarySearchFunc(o.keys, k, compareKeys[T])
	if found && !inclusive {
		i++
	}
	for ; i < len(o.keys); i++ {
		if o.keys[i].pipe == p {
			return o.keys[i], true
		}
	}
	return key[T]{}, false
}

// Store holds the members and groups of one action profile (and its
// selector) on one device. All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	members ordered[MemberID, Member]
	byEntry map[pipe.EntryHandle]key[MemberID]

	groups  ordered[GroupID, Group]
	byGroup map[pipe.GroupHandle]key[GroupID]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		members: newOrdered[MemberID, Member](),
		byEntry: make(map[pipe.EntryHandle]key[MemberID]),
		groups:  newOrdered[GroupID, Group](),
		byGroup: make(map[pipe.GroupHandle]key[GroupID]),
	}
}

// AddMember records a new member.
func (s *Store) AddMember(m Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key[MemberID]{m.ID, m.Pipe}
	if _, ok := s.members.m[k]; ok {
		return status.Errorf(status.AlreadyExists, "member %d on pipe %#x already exists", m.ID, m.Pipe)
	}
	s.members.insert(k, m.clone())
	s.byEntry[m.Entry] = k
	return nil
}

// ModifyMember updates the action and resources of a member. Its entry
// handle does not change.
func (s *Store) ModifyMember(id MemberID, p pipe.PipeID, fn pipe.ActFnHandle, res ResourceMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key[MemberID]{id, p}
	m, ok := s.members.m[k]
	if !ok {
		return status.NotFoundf(status.ReasonMember, "member %d on pipe %#x not found", id, p)
	}
	m.ActFn = fn
	m.Resources = maps.Clone(res)
	s.members.m[k] = m
	return nil
}

// RemoveMember forgets a member and returns its last state.
func (s *Store) RemoveMember(id MemberID, p pipe.PipeID) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key[MemberID]{id, p}
	m, ok := s.members.m[k]
	if !ok {
		return Member{}, status.NotFoundf(status.ReasonMember, "member %d on pipe %#x not found", id, p)
	}
	s.members.remove(k)
	delete(s.byEntry, m.Entry)
	return m, nil
}

// Member returns a copy of a member's state.
func (s *Store) Member(id MemberID, p pipe.PipeID) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.member(id, p)
}

func (s *Store) member(id MemberID, p pipe.PipeID) (Member, error) {
	m, ok := s.members.m[key[MemberID]{id, p}]
	if !ok {
		return Member{}, status.NotFoundf(status.ReasonMember, "member %d on pipe %#x not found", id, p)
	}
	return m.clone(), nil
}

// MemberByEntry maps a member entry handle back to its id and pipe.
func (s *Store) MemberByEntry(h pipe.EntryHandle) (MemberID, pipe.PipeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.byEntry[h]
	if !ok {
		return 0, 0, status.NotFoundf(status.ReasonMember, "no member for entry handle %#x", h)
	}
	return k.id, k.pipe, nil
}

// FirstMember returns the lowest-numbered member on pipe p.
func (s *Store) FirstMember(p pipe.PipeID) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.members.after(key[MemberID]{0, 0}, p, true)
	if !ok {
		return Member{}, status.NotFoundf(status.ReasonMember, "no members on pipe %#x", p)
	}
	return s.members.m[k].clone(), nil
}

// NextMember returns the member on pipe p following id.
func (s *Store) NextMember(id MemberID, p pipe.PipeID) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.members.after(key[MemberID]{id, p}, p, false)
	if !ok {
		return Member{}, status.NotFoundf(status.ReasonMember, "no member after %d on pipe %#x", id, p)
	}
	return s.members.m[k].clone(), nil
}

// Members returns every member in (id, pipe) order.
func (s *Store) Members() []Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Member, 0, len(s.members.keys))
	for _, k := range s.members.keys {
		out = append(out, s.members.m[k].clone())
	}
	return out
}

// AddGroup records a new group.
func (s *Store) AddGroup(g Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key[GroupID]{g.ID, g.Pipe}
	if _, ok := s.groups.m[k]; ok {
		return status.Errorf(status.AlreadyExists, "group %d on pipe %#x already exists", g.ID, g.Pipe)
	}
	s.groups.insert(k, g)
	s.byGroup[g.Handle] = k
	return nil
}

// RemoveGroup forgets a group and returns its last state.
func (s *Store) RemoveGroup(id GroupID, p pipe.PipeID) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key[GroupID]{id, p}
	g, ok := s.groups.m[k]
	if !ok {
		return Group{}, status.NotFoundf(status.ReasonGroupMissing, "group %d on pipe %#x not found", id, p)
	}
	s.groups.remove(k)
	delete(s.byGroup, g.Handle)
	return g, nil
}

// Group returns a group's state.
func (s *Store) Group(id GroupID, p pipe.PipeID) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.group(id, p)
}

func (s *Store) group(id GroupID, p pipe.PipeID) (Group, error) {
	g, ok := s.groups.m[key[GroupID]{id, p}]
	if !ok {
		return Group{}, status.NotFoundf(status.ReasonGroupMissing, "group %d on pipe %#x not found", id, p)
	}
	return g, nil
}

// GroupByHandle maps a group handle back to its id and pipe.
func (s *Store) GroupByHandle(h pipe.GroupHandle) (GroupID, pipe.PipeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.byGroup[h]
	if !ok {
		return 0, 0, status.NotFoundf(status.ReasonGroupMissing, "no group for handle %#x", h)
	}
	return k.id, k.pipe, nil
}

// FirstGroup returns the lowest-numbered group on pipe p.
func (s *Store) FirstGroup(p pipe.PipeID) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.groups.after(key[GroupID]{0, 0}, p, true)
	if !ok {
		return Group{}, status.NotFoundf(status.ReasonGroupMissing, "no groups on pipe %#x", p)
	}
	return s.groups.m[k], nil
}

// NextGroup returns the group on pipe p following id.
func (s *Store) NextGroup(id GroupID, p pipe.PipeID) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.groups.after(key[GroupID]{id, p}, p, false)
	if !ok {
		return Group{}, status.NotFoundf(status.ReasonGroupMissing, "no group after %d on pipe %#x", id, p)
	}
	return s.groups.m[k], nil
}

// Groups returns every group in (id, pipe) order.
func (s *Store) Groups() []Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Group, 0, len(s.groups.keys))
	for _, k := range s.groups.keys {
		out = append(out, s.groups.m[k])
	}
	return out
}

// Counts returns the number of members and groups.
func (s *Store) Counts() (members, groups int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members.keys), len(s.groups.keys)
}
