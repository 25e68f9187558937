package catalog

import "fmt"

// Role says how a data field is interpreted. A field may carry more than
// one role; setters apply every role in order.
type Role int

const (
	RoleNone Role = iota
	RoleActionParam
	RoleActionParamOptimizedOut

	RoleCounterIndex
	RoleMeterIndex
	RoleRegisterIndex
	RoleLPFIndex
	RoleWREDIndex

	RoleCounterBytes
	RoleCounterPackets

	RoleMeterCIRPps
	RoleMeterPIRPps
	RoleMeterCBSPkts
	RoleMeterPBSPkts
	RoleMeterCIRKbps
	RoleMeterPIRKbps
	RoleMeterCBSKbits
	RoleMeterPBSKbits

	RoleLPFType
	RoleLPFGainTimeConstant
	RoleLPFDecayTimeConstant
	RoleLPFOutputScaleDown

	RoleWREDMinThreshold
	RoleWREDMaxThreshold
	RoleWREDTimeConstant
	RoleWREDMaxProbability

	RoleRegister
	RoleRegisterHi
	RoleRegisterLo

	RoleActionMemberID
	RoleSelectorGroupID
	RoleTTL
	RoleEntryHitState

	RoleSelectorMembers
	RoleMemberStatus
	RoleMaxGroupSize

	RoleHashSliceStartBit
	RoleHashSliceLength
	RoleHashSliceOrder
)

var roleNames = map[Role]string{
	RoleNone:                    "none",
	RoleActionParam:             "action-param",
	RoleActionParamOptimizedOut: "action-param-optimized-out",
	RoleCounterIndex:            "counter-index",
	RoleMeterIndex:              "meter-index",
	RoleRegisterIndex:           "register-index",
	RoleLPFIndex:                "lpf-index",
	RoleWREDIndex:               "wred-index",
	RoleCounterBytes:            "counter-bytes",
	RoleCounterPackets:          "counter-packets",
	RoleMeterCIRPps:             "meter-cir-pps",
	RoleMeterPIRPps:             "meter-pir-pps",
	RoleMeterCBSPkts:            "meter-cbs-pkts",
	RoleMeterPBSPkts:            "meter-pbs-pkts",
	RoleMeterCIRKbps:            "meter-cir-kbps",
	RoleMeterPIRKbps:            "meter-pir-kbps",
	RoleMeterCBSKbits:           "meter-cbs-kbits",
	RoleMeterPBSKbits:           "meter-pbs-kbits",
	RoleLPFType:                 "lpf-type",
	RoleLPFGainTimeConstant:     "lpf-gain-time-constant",
	RoleLPFDecayTimeConstant:    "lpf-decay-time-constant",
	RoleLPFOutputScaleDown:      "lpf-output-scale-down",
	RoleWREDMinThreshold:        "wred-min-threshold",
	RoleWREDMaxThreshold:        "wred-max-threshold",
	RoleWREDTimeConstant:        "wred-time-constant",
	RoleWREDMaxProbability:      "wred-max-probability",
	RoleRegister:                "register",
	RoleRegisterHi:              "register-hi",
	RoleRegisterLo:              "register-lo",
	RoleActionMemberID:          "action-member-id",
	RoleSelectorGroupID:         "selector-group-id",
	RoleTTL:                     "ttl",
	RoleEntryHitState:           "entry-hit-state",
	RoleSelectorMembers:         "selector-members",
	RoleMemberStatus:            "member-status",
	RoleMaxGroupSize:            "max-group-size",
	RoleHashSliceStartBit:       "hash-slice-start-bit",
	RoleHashSliceLength:         "hash-slice-length",
	RoleHashSliceOrder:          "hash-slice-order",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ResourceKind identifies the family of a resource table.
type ResourceKind int

const (
	ResourceNone ResourceKind = iota
	ResourceCounter
	ResourceMeter
	ResourceLPF
	ResourceWRED
	ResourceRegister
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceCounter:
		return "counter"
	case ResourceMeter:
		return "meter"
	case ResourceLPF:
		return "lpf"
	case ResourceWRED:
		return "wred"
	case ResourceRegister:
		return "register"
	default:
		return "none"
	}
}

// ResourceKind returns the resource family a role addresses, or
// ResourceNone for roles that are not about resources.
func (r Role) ResourceKind() ResourceKind {
	switch r {
	case RoleCounterIndex, RoleCounterBytes, RoleCounterPackets:
		return ResourceCounter
	case RoleMeterIndex,
		RoleMeterCIRPps, RoleMeterPIRPps, RoleMeterCBSPkts, RoleMeterPBSPkts,
		RoleMeterCIRKbps, RoleMeterPIRKbps, RoleMeterCBSKbits, RoleMeterPBSKbits:
		return ResourceMeter
	case RoleLPFIndex, RoleLPFType, RoleLPFGainTimeConstant,
		RoleLPFDecayTimeConstant, RoleLPFOutputScaleDown:
		return ResourceLPF
	case RoleWREDIndex, RoleWREDMinThreshold, RoleWREDMaxThreshold,
		RoleWREDTimeConstant, RoleWREDMaxProbability:
		return ResourceWRED
	case RoleRegisterIndex, RoleRegister, RoleRegisterHi, RoleRegisterLo:
		return ResourceRegister
	}
	return ResourceNone
}

// IsIndex reports whether the role is an index into an indirect resource.
func (r Role) IsIndex() bool {
	switch r {
	case RoleCounterIndex, RoleMeterIndex, RoleRegisterIndex, RoleLPFIndex, RoleWREDIndex:
		return true
	}
	return false
}

// IndexRoles lists the indirect index roles in the order they are merged
// into an entry's attachment list.
var IndexRoles = []Role{
	RoleCounterIndex,
	RoleMeterIndex,
	RoleRegisterIndex,
	RoleLPFIndex,
	RoleWREDIndex,
}

// IndexRole returns the index role for a resource family.
func IndexRole(k ResourceKind) Role {
	switch k {
	case ResourceCounter:
		return RoleCounterIndex
	case ResourceMeter:
		return RoleMeterIndex
	case ResourceRegister:
		return RoleRegisterIndex
	case ResourceLPF:
		return RoleLPFIndex
	case ResourceWRED:
		return RoleWREDIndex
	}
	return RoleNone
}
