// Package backend defines the pipeline programming interface the table
// layer drives. Implementations live in backend/memory (a software
// pipeline) and dataplane (eBPF maps).
package backend

import (
	"github.com/psaab/tblmgr/pkg/actionspec"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/pipe"
)

// MatchSpec is an encoded match key. The table layer treats it as opaque.
type MatchSpec struct {
	Key      []byte
	Mask     []byte
	Priority uint32
}

// Entry is what a backend returns for a read.
type Entry struct {
	Handle pipe.EntryHandle
	Pipe   pipe.PipeID
	ActFn  pipe.ActFnHandle
	Spec   *actionspec.Spec
	TTL    uint32
	Hit    idle.HitState
}

// Backend programs match, action profile and selector tables. Errors are
// *status.Error values: ObjectNotFound for unknown handles, AlreadyExists
// for duplicate match keys.
type Backend interface {
	// Match entries
	ProgramEntry(tgt pipe.Target, tbl pipe.TableHandle, match MatchSpec, fn pipe.ActFnHandle, spec *actionspec.Spec, ttl uint32) (pipe.EntryHandle, error)
	// SetEntryAction and SetEntryResources merge attachments into the
	// programmed entry: attachments not listed, or tagged Unchanged, keep
	// their current state.
	SetEntryAction(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) error
	SetEntryResources(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, res []actionspec.Attachment) error
	SetDirectStat(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, res pipe.ResourceHandle, c actionspec.CounterSpec) error
	SetEntryTTL(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, ttl uint32, reset bool) error
	SetEntryHitState(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, hit idle.HitState) error
	EntryHitState(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (idle.HitState, error)
	DeleteEntry(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) error
	ReadEntry(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (Entry, error)
	EntryByMatch(tgt pipe.Target, tbl pipe.TableHandle, match MatchSpec) (pipe.EntryHandle, error)
	Usage(tgt pipe.Target, tbl pipe.TableHandle) (uint32, error)

	// Default entries
	SetDefaultEntry(tgt pipe.Target, tbl pipe.TableHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) error
	ResetDefaultEntry(tgt pipe.Target, tbl pipe.TableHandle) error
	ReadDefaultEntry(tgt pipe.Target, tbl pipe.TableHandle) (Entry, error)

	// Action profile members
	AddMember(tgt pipe.Target, tbl pipe.TableHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) (pipe.EntryHandle, error)
	ModifyMember(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle, fn pipe.ActFnHandle, spec *actionspec.Spec) error
	DeleteMember(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) error
	ReadMember(tgt pipe.Target, tbl pipe.TableHandle, h pipe.EntryHandle) (Entry, error)

	// Selector groups
	AddGroup(tgt pipe.Target, sel pipe.TableHandle, maxSize uint32) (pipe.GroupHandle, error)
	DeleteGroup(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) error
	SetGroupMembers(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle, members []pipe.EntryHandle, enabled []bool) error
	GroupMembers(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) ([]pipe.EntryHandle, []bool, error)
	FirstGroupMember(tgt pipe.Target, sel pipe.TableHandle, g pipe.GroupHandle) (pipe.EntryHandle, error)
}
