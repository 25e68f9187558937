package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psaab/tblmgr/pkg/reconcile"
	"github.com/psaab/tblmgr/pkg/status"
)

// Recorder counts table operations as they happen. A nil *Recorder
// records nothing.
type Recorder struct {
	ops       *prometheus.CounterVec
	resolve   *prometheus.CounterVec
	reconcile *prometheus.CounterVec
}

// NewRecorder creates the operation counters. They are not registered
// until Register is called.
func NewRecorder() *Recorder {
	return &Recorder{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tblmgr_table_ops_total",
			Help: "Table operations by table, operation and result.",
		}, []string{"table", "op", "result"}),
		resolve: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tblmgr_resolve_failures_total",
			Help: "Member and group references that failed to resolve.",
		}, []string{"table", "reason"}),
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tblmgr_reconcile_total",
			Help: "Resource attachment reconciliations by outcome.",
		}, []string{"table", "outcome"}),
	}
}

// Register adds the recorder's counters to reg.
func (r *Recorder) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{r.ops, r.resolve, r.reconcile} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Op counts one operation on table.
func (r *Recorder) Op(table, op string, err error) {
	if r == nil {
		return
	}
	r.ops.WithLabelValues(table, op, Result(err)).Inc()
}

// ResolveFailure counts a failed member or group resolution.
func (r *Recorder) ResolveFailure(table string, err error) {
	if r == nil {
		return
	}
	reason := status.ReasonOf(err)
	if reason == "" {
		reason = Result(err)
	}
	r.resolve.WithLabelValues(table, reason).Inc()
}

// Reconciled counts a reconcile outcome: noop, added, pruned or error.
func (r *Recorder) Reconciled(table string, res reconcile.Result, err error) {
	if r == nil {
		return
	}
	r.reconcile.WithLabelValues(table, Outcome(res, err)).Inc()
}

// Result is the label value for err: "ok" or the status code.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ReplaceAll(status.CodeOf(err).String(), " ", "_")
}

// Outcome is the label value for a reconcile result.
func Outcome(res reconcile.Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case len(res.Pruned) > 0:
		return "pruned"
	case len(res.Added) > 0:
		return "added"
	}
	return "noop"
}
