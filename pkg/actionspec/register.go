package actionspec

import (
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/status"
)

// RegisterCell is one register instance. Single cells of width 1 to 32
// live in Lo. Dual cells use Hi and Lo. A 64-bit cell is split with the
// upper word in Hi.
type RegisterCell struct {
	Hi uint32
	Lo uint32
}

func validWidth(width uint32) bool {
	switch width {
	case 1, 8, 16, 32, 64:
		return true
	}
	return false
}

func widthMask(width uint32) uint32 {
	if width >= 32 {
		return 0xffffffff
	}
	return uint32(1)<<width - 1
}

// Set stores v in the half of the cell role names.
func (c *RegisterCell) Set(width uint32, r catalog.Role, v uint64) error {
	if !validWidth(width) {
		return status.Invalidf("invalid register width %d", width)
	}
	switch {
	case width == 64 && r == catalog.RoleRegister:
		c.Hi = uint32(v >> 32)
		c.Lo = uint32(v & 0xffffffff)
	case width == 64 || width == 1:
		if r != catalog.RoleRegister {
			return status.Invalidf("%d-bit register has no %v half", width, r)
		}
		c.Lo = uint32(v) & widthMask(width)
	case r == catalog.RoleRegister || r == catalog.RoleRegisterLo:
		c.Lo = uint32(v) & widthMask(width)
	case r == catalog.RoleRegisterHi:
		c.Hi = uint32(v) & widthMask(width)
	default:
		return status.Invalidf("role %v is not a register value", r)
	}
	return nil
}

// Get returns the half of the cell role names.
func (c RegisterCell) Get(width uint32, r catalog.Role) (uint64, error) {
	if !validWidth(width) {
		return 0, status.Invalidf("invalid register width %d", width)
	}
	switch {
	case width == 64 && r == catalog.RoleRegister:
		return uint64(c.Hi)<<32 | uint64(c.Lo), nil
	case width == 64 || width == 1:
		if r != catalog.RoleRegister {
			return 0, status.Invalidf("%d-bit register has no %v half", width, r)
		}
		return uint64(c.Lo & widthMask(width)), nil
	case r == catalog.RoleRegister || r == catalog.RoleRegisterLo:
		return uint64(c.Lo & widthMask(width)), nil
	case r == catalog.RoleRegisterHi:
		return uint64(c.Hi & widthMask(width)), nil
	}
	return 0, status.Invalidf("role %v is not a register value", r)
}
