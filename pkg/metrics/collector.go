package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TableState is the per-table state read at scrape time.
type TableState struct {
	Table   string
	Members int
	Groups  int
}

// StateSource reports the member and group counts of every action profile.
type StateSource interface {
	TableStates() []TableState
}

// AgingSource reports how long the last aging sweep took.
type AgingSource interface {
	LastSweepDuration() time.Duration
}

// tblmgrCollector implements prometheus.Collector, reading the state
// stores on each scrape.
type tblmgrCollector struct {
	state StateSource
	aging AgingSource

	membersActive *prometheus.Desc
	groupsActive  *prometheus.Desc
	agingSweepDur *prometheus.Desc
}

// NewCollector returns a collector over state and aging. aging may be nil
// when no sweeper runs.
func NewCollector(state StateSource, aging AgingSource) prometheus.Collector {
	return &tblmgrCollector{
		state: state,
		aging: aging,

		membersActive: prometheus.NewDesc(
			"tblmgr_profile_members",
			"Action profile members currently installed.",
			[]string{"table"}, nil,
		),
		groupsActive: prometheus.NewDesc(
			"tblmgr_selector_groups",
			"Selector groups currently installed.",
			[]string{"table"}, nil,
		),
		agingSweepDur: prometheus.NewDesc(
			"tblmgr_aging_sweep_duration_seconds",
			"Duration of the last idle aging sweep.",
			nil, nil,
		),
	}
}

func (c *tblmgrCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.membersActive
	ch <- c.groupsActive
	ch <- c.agingSweepDur
}

func (c *tblmgrCollector) Collect(ch chan<- prometheus.Metric) {
	if c.state != nil {
		for _, st := range c.state.TableStates() {
			ch <- prometheus.MustNewConstMetric(c.membersActive, prometheus.GaugeValue,
				float64(st.Members), st.Table)
			ch <- prometheus.MustNewConstMetric(c.groupsActive, prometheus.GaugeValue,
				float64(st.Groups), st.Table)
		}
	}
	if c.aging != nil {
		ch <- prometheus.MustNewConstMetric(c.agingSweepDur, prometheus.GaugeValue,
			c.aging.LastSweepDuration().Seconds())
	}
}
