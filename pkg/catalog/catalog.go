// Package catalog describes tables, actions, fields and the resources bound
// to them. It is the schema side of the table layer: everything the data
// objects need to know about widths, offsets and roles comes from here.
package catalog

import (
	"fmt"

	"github.com/psaab/tblmgr/pkg/status"
)

// Catalog resolves table descriptions.
type Catalog interface {
	Table(id TableID) (*Table, error)
	TableByName(name string) (*Table, error)
	Tables() []*Table
}

// Compile-time assertion that Static implements Catalog.
var _ Catalog = (*Static)(nil)

// Static is an immutable in-memory catalog.
type Static struct {
	byID   map[TableID]*Table
	byName map[string]*Table
	order  []*Table
}

// NewStatic validates the tables and returns a catalog over them.
func NewStatic(tables ...*Table) (*Static, error) {
	s := &Static{
		byID:   make(map[TableID]*Table, len(tables)),
		byName: make(map[string]*Table, len(tables)),
	}
	for _, t := range tables {
		if _, dup := s.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate table id %#x (%s)", t.ID, t.Name)
		}
		if _, dup := s.byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table name %q", t.Name)
		}
		s.byID[t.ID] = t
		s.byName[t.Name] = t
		s.order = append(s.order, t)
	}
	for _, t := range s.order {
		if err := s.validate(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Static) validate(t *Table) error {
	if t.MaxResources <= 0 || t.MaxResources > DefaultMaxResources {
		return fmt.Errorf("table %s: max resources %d out of range", t.Name, t.MaxResources)
	}
	if len(t.resources) > t.MaxResources {
		return fmt.Errorf("table %s: %d bound resources exceed max %d", t.Name, len(t.resources), t.MaxResources)
	}
	switch t.Kind {
	case KindMatchIndirect:
		p, ok := s.byID[t.ProfileID]
		if !ok || p.Kind != KindActionProfile {
			return fmt.Errorf("table %s: action profile %#x not found", t.Name, t.ProfileID)
		}
		if t.SelectorID != 0 {
			sel, ok := s.byID[t.SelectorID]
			if !ok || sel.Kind != KindSelector {
				return fmt.Errorf("table %s: selector %#x not found", t.Name, t.SelectorID)
			}
		}
	case KindSelector:
		p, ok := s.byID[t.ProfileID]
		if !ok || p.Kind != KindActionProfile {
			return fmt.Errorf("selector %s: action profile %#x not found", t.Name, t.ProfileID)
		}
	}
	return nil
}

// Table returns the table with the given id.
func (s *Static) Table(id TableID) (*Table, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, status.NotFoundf(status.ReasonEntry, "table %#x not found", id)
	}
	return t, nil
}

// TableByName returns the table with the given name.
func (s *Static) TableByName(name string) (*Table, error) {
	t, ok := s.byName[name]
	if !ok {
		return nil, status.NotFoundf(status.ReasonEntry, "table %q not found", name)
	}
	return t, nil
}

// Tables returns every table in registration order.
func (s *Static) Tables() []*Table {
	out := make([]*Table, len(s.order))
	copy(out, s.order)
	return out
}
