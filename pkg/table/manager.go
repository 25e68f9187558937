package table

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/psaab/tblmgr/pkg/backend"
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/idle"
	"github.com/psaab/tblmgr/pkg/indirect"
	"github.com/psaab/tblmgr/pkg/metrics"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/status"
)

// Options configure a Manager.
type Options struct {
	Dev     pipe.DevID
	Backend backend.Backend
	// Idle holds per-table idle settings by table name. Tables with idle
	// tracking and no entry run in notify mode without TTL bounds.
	Idle map[string]idle.Config
	// MaxResources, when non-zero, rejects tables binding more resources.
	MaxResources int
	Logger       *slog.Logger
	Recorder     *metrics.Recorder
}

// Manager owns the tables of one device.
type Manager struct {
	dev    pipe.DevID
	byID   map[catalog.TableID]*Table
	byName map[string]*Table
	order  []*Table
}

// NewManager builds a Table for every table in cat and links indirect
// match tables and selectors to their action profile.
func NewManager(cat catalog.Catalog, opts Options) (*Manager, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("no backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		dev:    opts.Dev,
		byID:   make(map[catalog.TableID]*Table),
		byName: make(map[string]*Table),
	}
	for _, info := range cat.Tables() {
		if opts.MaxResources != 0 && len(info.BoundResources()) > opts.MaxResources {
			return nil, status.Invalidf("table %s: %d bound resources exceed the configured maximum %d",
				info.Name, len(info.BoundResources()), opts.MaxResources)
		}
		cfg := opts.Idle[info.Name]
		if cfg.MinTTL != 0 && cfg.MaxTTL != 0 && cfg.MinTTL > cfg.MaxTTL {
			return nil, status.Invalidf("table %s: min TTL %d above max TTL %d", info.Name, cfg.MinTTL, cfg.MaxTTL)
		}
		t := &Table{
			info: info,
			dev:  opts.Dev,
			be:   opts.Backend,
			idle: cfg,
			log:  logger.With("table", info.Name),
			rec:  opts.Recorder,
		}
		if info.Kind == catalog.KindActionProfile {
			t.store = indirect.NewStore()
			t.opMu = new(sync.RWMutex)
		}
		m.byID[info.ID] = t
		m.byName[info.Name] = t
		m.order = append(m.order, t)
	}

	for _, t := range m.order {
		switch t.info.Kind {
		case catalog.KindSelector:
			p, err := m.profileOf(t)
			if err != nil {
				return nil, err
			}
			t.profile, t.store, t.opMu = p, p.store, p.opMu
		case catalog.KindMatchIndirect:
			p, err := m.profileOf(t)
			if err != nil {
				return nil, err
			}
			t.profile, t.store, t.opMu = p, p.store, p.opMu
			var selHandle pipe.TableHandle
			var src indirect.GroupMemberSource
			if t.info.SelectorID != 0 {
				sel, ok := m.byID[t.info.SelectorID]
				if !ok || sel.info.Kind != catalog.KindSelector {
					return nil, fmt.Errorf("table %s: selector %#x not found", t.info.Name, t.info.SelectorID)
				}
				t.selector = sel
				selHandle, src = sel.info.Handle, opts.Backend
			}
			t.resolver = indirect.NewResolver(t.store, src, selHandle)
		}
	}
	logger.Info("tables ready", "device", opts.Dev, "tables", len(m.order))
	return m, nil
}

func (m *Manager) profileOf(t *Table) (*Table, error) {
	p, ok := m.byID[t.info.ProfileID]
	if !ok || p.info.Kind != catalog.KindActionProfile {
		return nil, fmt.Errorf("table %s: action profile %#x not found", t.info.Name, t.info.ProfileID)
	}
	return p, nil
}

// Device returns the device the manager programs.
func (m *Manager) Device() pipe.DevID { return m.dev }

// Table returns the table with the given id.
func (m *Manager) Table(id catalog.TableID) (*Table, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, status.NotFoundf(status.ReasonEntry, "table %#x not found", id)
	}
	return t, nil
}

// TableByName returns the table with the given name.
func (m *Manager) TableByName(name string) (*Table, error) {
	t, ok := m.byName[name]
	if !ok {
		return nil, status.NotFoundf(status.ReasonEntry, "table %q not found", name)
	}
	return t, nil
}

// Tables returns every table in catalog order.
func (m *Manager) Tables() []*Table {
	out := make([]*Table, len(m.order))
	copy(out, m.order)
	return out
}

// TableStates reports member and group counts per action profile.
func (m *Manager) TableStates() []metrics.TableState {
	var out []metrics.TableState
	for _, t := range m.order {
		if t.info.Kind != catalog.KindActionProfile {
			continue
		}
		members, groups := t.store.Counts()
		out = append(out, metrics.TableState{Table: t.info.Name, Members: members, Groups: groups})
	}
	return out
}
