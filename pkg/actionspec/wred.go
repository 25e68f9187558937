package actionspec

import (
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/status"
)

// WREDSpec holds a weighted random early detection configuration.
type WREDSpec struct {
	TimeConstant   float32
	MinThreshold   uint32
	MaxThreshold   uint32
	MaxProbability float32
}

// SetFloat stores the time constant or the max probability.
func (w *WREDSpec) SetFloat(r catalog.Role, v float32) error {
	switch r {
	case catalog.RoleWREDTimeConstant:
		w.TimeConstant = v
	case catalog.RoleWREDMaxProbability:
		w.MaxProbability = v
	default:
		return status.Invalidf("role %v is not a WRED float value", r)
	}
	return nil
}

// SetUint stores a threshold.
func (w *WREDSpec) SetUint(r catalog.Role, v uint64) error {
	switch r {
	case catalog.RoleWREDMinThreshold:
		w.MinThreshold = uint32(v)
	case catalog.RoleWREDMaxThreshold:
		w.MaxThreshold = uint32(v)
	case catalog.RoleWREDTimeConstant, catalog.RoleWREDMaxProbability:
		return w.SetFloat(r, float32(v))
	default:
		return status.Invalidf("role %v is not a WRED value", r)
	}
	return nil
}

// Float returns the time constant or the max probability.
func (w WREDSpec) Float(r catalog.Role) (float32, error) {
	switch r {
	case catalog.RoleWREDTimeConstant:
		return w.TimeConstant, nil
	case catalog.RoleWREDMaxProbability:
		return w.MaxProbability, nil
	}
	return 0, status.Invalidf("role %v is not a WRED float value", r)
}

// Uint returns a threshold.
func (w WREDSpec) Uint(r catalog.Role) (uint64, error) {
	switch r {
	case catalog.RoleWREDMinThreshold:
		return uint64(w.MinThreshold), nil
	case catalog.RoleWREDMaxThreshold:
		return uint64(w.MaxThreshold), nil
	}
	return 0, status.Invalidf("role %v is not a WRED integer value", r)
}
