package metrics

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/reconcile"
	"github.com/psaab/tblmgr/pkg/status"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{status.Invalidf("bad"), "invalid_argument"},
		{fmt.Errorf("wrapped: %w", status.NotFoundf(status.ReasonMember, "gone")), "object_not_found"},
		{fmt.Errorf("plain"), "unexpected"},
	}
	for _, tt := range tests {
		if got := Result(tt.err); got != tt.want {
			t.Errorf("Result(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestOutcome(t *testing.T) {
	if got := Outcome(reconcile.Result{}, nil); got != "noop" {
		t.Errorf("empty result = %q", got)
	}
	if got := Outcome(reconcile.Result{Added: []pipe.ResourceHandle{1}}, nil); got != "added" {
		t.Errorf("added result = %q", got)
	}
	if got := Outcome(reconcile.Result{Pruned: []pipe.ResourceHandle{1}}, nil); got != "pruned" {
		t.Errorf("pruned result = %q", got)
	}
	if got := Outcome(reconcile.Result{}, status.Unexpectedf("x")); got != "error" {
		t.Errorf("error result = %q", got)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	reg := prometheus.NewRegistry()
	if err := r.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r.Op("fwd", "add", nil)
	r.Op("fwd", "add", nil)
	r.Op("fwd", "add", status.Invalidf("bad"))
	r.ResolveFailure("fwd", status.NotFoundf(status.ReasonGroupEmpty, "empty"))
	r.Reconciled("fwd", reconcile.Result{}, nil)

	if got := testutil.ToFloat64(r.ops.WithLabelValues("fwd", "add", "ok")); got != 2 {
		t.Errorf("ok adds = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ops.WithLabelValues("fwd", "add", "invalid_argument")); got != 1 {
		t.Errorf("failed adds = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.resolve.WithLabelValues("fwd", status.ReasonGroupEmpty)); got != 1 {
		t.Errorf("group-empty failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.reconcile.WithLabelValues("fwd", "noop")); got != 1 {
		t.Errorf("noop reconciles = %v, want 1", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Op("fwd", "add", nil)
	r.ResolveFailure("fwd", nil)
	r.Reconciled("fwd", reconcile.Result{}, nil)
}

type fakeState []TableState

func (f fakeState) TableStates() []TableState { return f }

type fakeAging time.Duration

func (f fakeAging) LastSweepDuration() time.Duration { return time.Duration(f) }

func TestCollector(t *testing.T) {
	c := NewCollector(fakeState{{Table: "prof", Members: 3, Groups: 1}}, fakeAging(250*time.Millisecond))

	want := `
# HELP tblmgr_profile_members Action profile members currently installed.
# TYPE tblmgr_profile_members gauge
tblmgr_profile_members{table="prof"} 3
# HELP tblmgr_selector_groups Selector groups currently installed.
# TYPE tblmgr_selector_groups gauge
tblmgr_selector_groups{table="prof"} 1
# HELP tblmgr_aging_sweep_duration_seconds Duration of the last idle aging sweep.
# TYPE tblmgr_aging_sweep_duration_seconds gauge
tblmgr_aging_sweep_duration_seconds 0.25
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want)); err != nil {
		t.Errorf("collector output: %v", err)
	}
}
