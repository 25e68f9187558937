// Package pipe defines the handle and target types shared between the
// table layer and the pipeline backends.
package pipe

import "fmt"

// DevID identifies a device.
type DevID uint16

// PipeID identifies a pipe on a device.
type PipeID uint32

// AllPipes addresses every pipe of a device at once.
const AllPipes PipeID = 0xffff

// Target addresses a device and a pipe.
type Target struct {
	Dev  DevID
	Pipe PipeID
}

func (t Target) String() string {
	if t.Pipe == AllPipes {
		return fmt.Sprintf("dev%d/all", t.Dev)
	}
	return fmt.Sprintf("dev%d/pipe%d", t.Dev, t.Pipe)
}

// TableHandle is the backend handle of a match, profile or selector table.
type TableHandle uint32

// ResourceHandle is the backend handle of a resource table (counter, meter,
// LPF, WRED or register) attached to a match table.
type ResourceHandle uint32

// EntryHandle identifies a match entry or an action profile member entry.
type EntryHandle uint32

// GroupHandle identifies a selector group.
type GroupHandle uint32

// ActFnHandle identifies an action function.
type ActFnHandle uint32
