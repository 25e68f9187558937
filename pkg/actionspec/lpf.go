package actionspec

import (
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/status"
)

// LPFType selects what a low-pass filter averages.
type LPFType uint8

const (
	LPFRate LPFType = iota
	LPFSample
)

func (t LPFType) String() string {
	if t == LPFSample {
		return catalog.LPFTypeSample
	}
	return catalog.LPFTypeRate
}

// ParseLPFType parses "RATE" or "SAMPLE".
func ParseLPFType(s string) (LPFType, error) {
	switch s {
	case catalog.LPFTypeRate:
		return LPFRate, nil
	case catalog.LPFTypeSample:
		return LPFSample, nil
	}
	return 0, status.Invalidf("invalid LPF type %q", s)
}

// LPFSpec holds a low-pass filter configuration. When the gain and decay
// time constants differ Separate is set; otherwise TimeConstant carries
// the shared value.
type LPFSpec struct {
	Type              LPFType
	GainTimeConstant  float32
	DecayTimeConstant float32
	TimeConstant      float32
	Separate          bool
	OutputScaleDown   uint32
}

// SetFloat stores a time constant.
func (l *LPFSpec) SetFloat(r catalog.Role, v float32) error {
	switch r {
	case catalog.RoleLPFGainTimeConstant:
		l.GainTimeConstant = v
	case catalog.RoleLPFDecayTimeConstant:
		l.DecayTimeConstant = v
	default:
		return status.Invalidf("role %v is not an LPF float value", r)
	}
	l.Separate = l.GainTimeConstant != l.DecayTimeConstant
	if !l.Separate {
		l.TimeConstant = l.GainTimeConstant
	}
	return nil
}

// SetUint stores an integer LPF value.
func (l *LPFSpec) SetUint(r catalog.Role, v uint64) error {
	switch r {
	case catalog.RoleLPFType:
		if v > uint64(LPFSample) {
			return status.Invalidf("invalid LPF type %d", v)
		}
		l.Type = LPFType(v)
		return nil
	case catalog.RoleLPFOutputScaleDown:
		l.OutputScaleDown = uint32(v)
		return nil
	case catalog.RoleLPFGainTimeConstant, catalog.RoleLPFDecayTimeConstant:
		return l.SetFloat(r, float32(v))
	}
	return status.Invalidf("role %v is not an LPF value", r)
}

// Float returns a time constant.
func (l LPFSpec) Float(r catalog.Role) (float32, error) {
	switch r {
	case catalog.RoleLPFGainTimeConstant:
		if !l.Separate {
			return l.TimeConstant, nil
		}
		return l.GainTimeConstant, nil
	case catalog.RoleLPFDecayTimeConstant:
		if !l.Separate {
			return l.TimeConstant, nil
		}
		return l.DecayTimeConstant, nil
	}
	return 0, status.Invalidf("role %v is not an LPF float value", r)
}

// Uint returns an integer LPF value.
func (l LPFSpec) Uint(r catalog.Role) (uint64, error) {
	switch r {
	case catalog.RoleLPFType:
		return uint64(l.Type), nil
	case catalog.RoleLPFOutputScaleDown:
		return uint64(l.OutputScaleDown), nil
	}
	return 0, status.Invalidf("role %v is not an LPF integer value", r)
}
