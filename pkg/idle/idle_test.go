package idle

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/status"
)

func TestAddTTL(t *testing.T) {
	poll := Config{Mode: ModePoll}
	notify := Config{Mode: ModeNotify}
	tests := []struct {
		cfg  Config
		st   State
		want uint32
	}{
		{poll, State{Hit: HitActive}, 1},
		{poll, State{Hit: HitIdle, TTL: 500}, 0},
		{notify, State{TTL: 500, Hit: HitActive}, 500},
		{notify, State{}, 0},
	}
	for _, tt := range tests {
		if got := AddTTL(tt.cfg, tt.st); got != tt.want {
			t.Errorf("AddTTL(%v, %+v) = %d, want %d", tt.cfg.Mode, tt.st, got, tt.want)
		}
	}
}

func TestCheckSet(t *testing.T) {
	poll := Config{Mode: ModePoll}
	notify := Config{Mode: ModeNotify}
	if err := CheckSet(poll, catalog.RoleTTL); !errors.Is(err, status.ErrNotSupported) {
		t.Errorf("TTL in poll mode: %v", err)
	}
	if err := CheckSet(notify, catalog.RoleEntryHitState); !errors.Is(err, status.ErrNotSupported) {
		t.Errorf("hit state in notify mode: %v", err)
	}
	if err := CheckSet(poll, catalog.RoleEntryHitState); err != nil {
		t.Error(err)
	}
	if err := CheckSet(notify, catalog.RoleTTL); err != nil {
		t.Error(err)
	}
	if err := CheckSet(poll, catalog.RoleCounterBytes); err != nil {
		t.Error(err)
	}
}

func TestHitStateStrings(t *testing.T) {
	for _, h := range []HitState{HitIdle, HitActive} {
		got, err := ParseHitState(h.String())
		if err != nil || got != h {
			t.Errorf("round trip of %v = %v, %v", h, got, err)
		}
	}
	if HitActive.String() != "ENTRY_ACTIVE" || HitIdle.String() != "ENTRY_IDLE" {
		t.Error("unexpected hit state names")
	}
	if _, err := ParseHitState("ACTIVE"); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("bad name: %v", err)
	}
}

func TestStrip(t *testing.T) {
	roles := map[catalog.FieldID]catalog.Role{
		1: catalog.RoleActionParam,
		2: catalog.RoleTTL,
		3: catalog.RoleEntryHitState,
		4: catalog.RoleCounterBytes,
	}
	roleOf := func(id catalog.FieldID) catalog.Role { return roles[id] }

	got := Strip(Config{Mode: ModePoll}, []catalog.FieldID{1, 2, 3, 4}, roleOf)
	if diff := cmp.Diff([]catalog.FieldID{1, 3, 4}, got); diff != "" {
		t.Errorf("poll (-want +got):\n%s", diff)
	}
	got = Strip(Config{Mode: ModeNotify}, []catalog.FieldID{1, 2, 3, 4}, roleOf)
	if diff := cmp.Diff([]catalog.FieldID{1, 2, 4}, got); diff != "" {
		t.Errorf("notify (-want +got):\n%s", diff)
	}
}

func TestCheckTTL(t *testing.T) {
	c := Config{MinTTL: 100, MaxTTL: 1000}
	for ttl, ok := range map[uint32]bool{0: true, 50: false, 100: true, 1000: true, 1001: false} {
		if err := CheckTTL(c, ttl); (err == nil) != ok {
			t.Errorf("CheckTTL(%d) = %v", ttl, err)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("poll"); err != nil || m != ModePoll {
		t.Errorf("poll: %v %v", m, err)
	}
	if m, err := ParseMode(""); err != nil || m != ModeNotify {
		t.Errorf("default: %v %v", m, err)
	}
	if _, err := ParseMode("push"); err == nil {
		t.Error("unknown mode accepted")
	}
}
