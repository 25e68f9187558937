package indirect

import (
	"fmt"

	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// GroupMemberSource returns one member entry of a selector group. An empty
// group is reported as ObjectNotFound with reason ReasonGroupEmpty.
type GroupMemberSource interface {
	FirstGroupMember(tgt pipe.Target, sel pipe.TableHandle, grp pipe.GroupHandle) (pipe.EntryHandle, error)
}

// Reference is what a match-indirect entry points at.
type Reference struct {
	IsGroup bool
	Member  MemberID
	Group   GroupID
}

func (r Reference) String() string {
	if r.IsGroup {
		return fmt.Sprintf("group %d", r.Group)
	}
	return fmt.Sprintf("member %d", r.Member)
}

// Resolution is the backend view of a reference.
type Resolution struct {
	IsGroup   bool
	Entry     pipe.EntryHandle
	Group     pipe.GroupHandle
	ActFn     pipe.ActFnHandle
	Resources ResourceMap
}

// Resolver turns member and group references into handles.
type Resolver struct {
	store    *Store
	src      GroupMemberSource
	selector pipe.TableHandle
}

// NewResolver returns a resolver over store. src and selector may be zero
// for profiles without a selector.
func NewResolver(store *Store, src GroupMemberSource, selector pipe.TableHandle) *Resolver {
	return &Resolver{store: store, src: src, selector: selector}
}

// Resolve looks ref up on tgt's pipe. The whole lookup runs under the
// store lock so a concurrent removal is seen either entirely or not at all.
//
// Failures are ObjectNotFound with reason ReasonMember for an unknown
// member, ReasonGroupMissing for an unknown group and ReasonGroupEmpty
// for a group with no members.
func (r *Resolver) Resolve(tgt pipe.Target, ref Reference) (Resolution, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ref.IsGroup {
		m, err := s.member(ref.Member, tgt.Pipe)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Entry: m.Entry, ActFn: m.ActFn, Resources: m.Resources}, nil
	}

	g, err := s.group(ref.Group, tgt.Pipe)
	if err != nil {
		return Resolution{}, err
	}
	if r.src == nil {
		return Resolution{}, status.Unexpectedf("group %d referenced on a profile without a selector", ref.Group)
	}
	h, err := r.src.FirstGroupMember(tgt, r.selector, g.Handle)
	if status.ReasonOf(err) == status.ReasonGroupEmpty {
		return Resolution{}, status.NotFoundf(status.ReasonGroupEmpty, "group %d on pipe %#x has no members", ref.Group, tgt.Pipe)
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("read members of group %d: %w", ref.Group, err)
	}
	k, ok := s.byEntry[h]
	if !ok {
		return Resolution{}, status.NotFoundf(status.ReasonMember, "group %d member entry %#x is not a known member", ref.Group, h)
	}
	m, err := s.member(k.id, k.pipe)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{IsGroup: true, Group: g.Handle, ActFn: m.ActFn, Resources: m.Resources}, nil
}

// Apply points spec at the resolved member or group and merges the
// member's indirect resources. Every indirect role in declared gets an
// attachment: Attached with the member's index when the member has one,
// Detached otherwise. spec is unchanged when an error is returned.
func (res Resolution) Apply(spec *actionspec.Spec, declared map[catalog.Role]pipe.ResourceHandle) error {
	need := 0
	for _, role := range catalog.IndexRoles {
		h, ok := declared[role]
		if !ok {
			continue
		}
		if _, attached := spec.Attachment(h); !attached {
			need++
		}
	}
	if need > spec.Room() {
		return status.Invalidf("merging %d indirect resources exceeds the %d-entry attachment list",
			need, actionspec.MaxResources)
	}

	if res.IsGroup {
		spec.SetGroupHandle(res.Group)
	} else {
		spec.SetMemberHandle(res.Entry)
	}
	for _, role := range catalog.IndexRoles {
		h, ok := declared[role]
		if !ok {
			continue
		}
		a := actionspec.Attachment{Handle: h, Kind: role.ResourceKind(), Tag: actionspec.TagDetached}
		if idx, ok := res.Resources[role]; ok {
			a.Tag = actionspec.TagAttached
			a.Index = idx
		}
		if err := spec.Put(a); err != nil {
			return err
		}
	}
	return nil
}
