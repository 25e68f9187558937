package dataplane

import (
	"fmt"

	"github.com/psaab/tblmgr/pkg/backend"
)

// Compile-time assertion that Manager implements backend.Backend.
var _ backend.Backend = (*Manager)(nil)

// Backend type constants used in the backend config key.
const (
	TypeEBPF   = "ebpf" // default
	TypeMemory = "memory"
)

// backendRegistry holds constructors for non-eBPF backends. Sub-packages
// register themselves via RegisterBackend in their init().
var backendRegistry = map[string]func() backend.Backend{}

// RegisterBackend registers a backend constructor for the given type.
func RegisterBackend(typ string, ctor func() backend.Backend) {
	backendRegistry[typ] = ctor
}

// NewBackend creates a backend of the given type. An empty string
// defaults to eBPF, whose maps are created before NewBackend returns.
func NewBackend(typ string, opts Options) (backend.Backend, error) {
	switch typ {
	case "", TypeEBPF:
		m := New(opts)
		if err := m.Load(); err != nil {
			return nil, err
		}
		return m, nil
	default:
		if ctor, ok := backendRegistry[typ]; ok {
			return ctor(), nil
		}
		return nil, fmt.Errorf("unknown backend type %q (valid: ebpf, memory)", typ)
	}
}
