package actionspec

import (
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/status"
)

// RateUnit is the unit of a meter rate.
type RateUnit uint8

const (
	RateKbps RateUnit = iota
	RatePps
)

func (u RateUnit) String() string {
	if u == RatePps {
		return "pps"
	}
	return "kbps"
}

// Rate is a meter information rate.
type Rate struct {
	Value uint64
	Unit  RateUnit
}

// MeterSpec holds a two-rate meter configuration. Burst sizes are in
// packets or kilobits, matching the rate unit.
type MeterSpec struct {
	CIR Rate
	PIR Rate
	CBS uint64
	PBS uint64
}

// Set stores v in the field role names. Setting a rate also sets its unit.
func (m *MeterSpec) Set(r catalog.Role, v uint64) error {
	switch r {
	case catalog.RoleMeterCIRPps:
		m.CIR = Rate{Value: v, Unit: RatePps}
	case catalog.RoleMeterCIRKbps:
		m.CIR = Rate{Value: v, Unit: RateKbps}
	case catalog.RoleMeterPIRPps:
		m.PIR = Rate{Value: v, Unit: RatePps}
	case catalog.RoleMeterPIRKbps:
		m.PIR = Rate{Value: v, Unit: RateKbps}
	case catalog.RoleMeterCBSPkts, catalog.RoleMeterCBSKbits:
		m.CBS = v
	case catalog.RoleMeterPBSPkts, catalog.RoleMeterPBSKbits:
		m.PBS = v
	default:
		return status.Invalidf("role %v is not a meter value", r)
	}
	return nil
}

// Get returns the value of the field role names.
func (m MeterSpec) Get(r catalog.Role) (uint64, error) {
	switch r {
	case catalog.RoleMeterCIRPps, catalog.RoleMeterCIRKbps:
		return m.CIR.Value, nil
	case catalog.RoleMeterPIRPps, catalog.RoleMeterPIRKbps:
		return m.PIR.Value, nil
	case catalog.RoleMeterCBSPkts, catalog.RoleMeterCBSKbits:
		return m.CBS, nil
	case catalog.RoleMeterPBSPkts, catalog.RoleMeterPBSKbits:
		return m.PBS, nil
	}
	return 0, status.Invalidf("role %v is not a meter value", r)
}
