// Package idle translates entry idle-time fields between the two ways a
// table can track idleness: poll mode, where software reads a per-entry
// hit bit, and notify mode, where each entry carries a TTL and expiry is
// reported asynchronously.
package idle

import (
	"fmt"
	"slices"
	"time"

	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/status"
)

// Mode selects how idleness is tracked.
type Mode int

const (
	ModeNotify Mode = iota
	ModePoll
)

func (m Mode) String() string {
	if m == ModePoll {
		return "poll"
	}
	return "notify"
}

// ParseMode parses "poll" or "notify".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "poll":
		return ModePoll, nil
	case "notify", "":
		return ModeNotify, nil
	}
	return 0, fmt.Errorf("unknown idle mode %q", s)
}

// Config is the per-table idle-time configuration. It is fixed once the
// table is created.
type Config struct {
	Mode          Mode
	QueryInterval time.Duration
	MinTTL        uint32
	MaxTTL        uint32
}

// IsPollMode reports whether the table runs in poll mode.
func (c Config) IsPollMode() bool { return c.Mode == ModePoll }

// HitState is the poll-mode view of an entry.
type HitState uint8

const (
	HitIdle HitState = iota
	HitActive
)

const (
	hitIdleName   = "ENTRY_IDLE"
	hitActiveName = "ENTRY_ACTIVE"
)

func (h HitState) String() string {
	if h == HitActive {
		return hitActiveName
	}
	return hitIdleName
}

// ParseHitState parses "ENTRY_ACTIVE" or "ENTRY_IDLE".
func ParseHitState(s string) (HitState, error) {
	switch s {
	case hitActiveName:
		return HitActive, nil
	case hitIdleName:
		return HitIdle, nil
	}
	return 0, status.Invalidf("invalid entry hit state %q", s)
}

// State is the idle part of an entry's data.
type State struct {
	TTL uint32
	Hit HitState
}

// AddTTL returns the TTL to program when an entry is added. Poll-mode
// tables take their TTL from the hit state: 1 for active, 0 for idle.
func AddTTL(c Config, st State) uint32 {
	if c.IsPollMode() {
		if st.Hit == HitActive {
			return 1
		}
		return 0
	}
	return st.TTL
}

// CheckSet rejects setting an idle field the table's mode does not use.
func CheckSet(c Config, r catalog.Role) error {
	switch {
	case r == catalog.RoleTTL && c.IsPollMode():
		return status.Errorf(status.NotSupported, "TTL cannot be set on a poll-mode table")
	case r == catalog.RoleEntryHitState && !c.IsPollMode():
		return status.Errorf(status.NotSupported, "hit state cannot be set on a notify-mode table")
	}
	return nil
}

// CheckTTL validates a notify-mode TTL against the configured bounds. A
// zero TTL disables aging for the entry and is always accepted.
func CheckTTL(c Config, ttl uint32) error {
	if ttl == 0 {
		return nil
	}
	if c.MinTTL != 0 && ttl < c.MinTTL {
		return status.Invalidf("TTL %d below minimum %d", ttl, c.MinTTL)
	}
	if c.MaxTTL != 0 && ttl > c.MaxTTL {
		return status.Invalidf("TTL %d above maximum %d", ttl, c.MaxTTL)
	}
	return nil
}

// Applicable reports whether a field with role r is visible on the table.
func Applicable(c Config, r catalog.Role) bool {
	switch r {
	case catalog.RoleTTL:
		return !c.IsPollMode()
	case catalog.RoleEntryHitState:
		return c.IsPollMode()
	}
	return true
}

// Strip removes the idle field the table's mode does not use from an
// active-field list.
func Strip(c Config, fields []catalog.FieldID, roleOf func(catalog.FieldID) catalog.Role) []catalog.FieldID {
	return slices.DeleteFunc(fields, func(id catalog.FieldID) bool {
		return !Applicable(c, roleOf(id))
	})
}
