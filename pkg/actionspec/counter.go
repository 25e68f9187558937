package actionspec

import (
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/status"
)

// CounterSpec holds counter values.
type CounterSpec struct {
	Bytes   uint64
	Packets uint64
}

// Set stores v in the field role names.
func (c *CounterSpec) Set(r catalog.Role, v uint64) error {
	switch r {
	case catalog.RoleCounterBytes:
		c.Bytes = v
	case catalog.RoleCounterPackets:
		c.Packets = v
	default:
		return status.Invalidf("role %v is not a counter value", r)
	}
	return nil
}

// Get returns the value of the field role names.
func (c CounterSpec) Get(r catalog.Role) (uint64, error) {
	switch r {
	case catalog.RoleCounterBytes:
		return c.Bytes, nil
	case catalog.RoleCounterPackets:
		return c.Packets, nil
	}
	return 0, status.Invalidf("role %v is not a counter value", r)
}
