package dataplane

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cilium/ebpf"
)

// DefaultMaxEntries sizes every map when Options.MaxEntries is zero.
const DefaultMaxEntries = 65536

// Options configure the eBPF backend.
type Options struct {
	// PinPath, when set, pins the maps under a bpffs directory where a
	// BPF program can open them. Load clears pinned contents.
	PinPath    string
	MaxEntries uint32
}

// Manager manages the table maps.
type Manager struct {
	mu     sync.Mutex
	opts   Options
	loaded bool
	maps   map[string]*ebpf.Map

	nextEntry uint32
	nextGroup uint32
}

// New creates a new dataplane Manager. Call Load before use.
func New(opts Options) *Manager {
	if opts.MaxEntries == 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	return &Manager{
		opts: opts,
		maps: make(map[string]*ebpf.Map),
	}
}

func size(v any) uint32 { return uint32(binary.Size(v)) }

func (m *Manager) mapSpecs() []*ebpf.MapSpec {
	pinning := ebpf.PinNone
	if m.opts.PinPath != "" {
		pinning = ebpf.PinByName
	}
	hash := func(name string, key, val any) *ebpf.MapSpec {
		return &ebpf.MapSpec{
			Name:       name,
			Type:       ebpf.Hash,
			KeySize:    size(key),
			ValueSize:  size(val),
			MaxEntries: m.opts.MaxEntries,
			Pinning:    pinning,
		}
	}
	return []*ebpf.MapSpec{
		hash("entries", EntryKey{}, EntryValue{}),
		hash("entry_match", EntryKey{}, MatchKey{}),
		hash("match_index", MatchKey{}, uint32(0)),
		hash("members", EntryKey{}, EntryValue{}),
		hash("groups", GroupKey{}, GroupValue{}),
		hash("defaults", uint32(0), EntryValue{}),
	}
}

// Load creates the table maps, or opens the pinned ones.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return nil
	}
	slog.Info("creating table maps", "pin_path", m.opts.PinPath, "max_entries", m.opts.MaxEntries)

	for _, spec := range m.mapSpecs() {
		mp, err := ebpf.NewMapWithOptions(spec, ebpf.MapOptions{PinPath: m.opts.PinPath})
		if err != nil {
			m.closeMaps()
			return fmt.Errorf("create %s map: %w", spec.Name, err)
		}
		m.maps[spec.Name] = mp
	}
	if m.opts.PinPath != "" {
		if err := m.clearMaps(); err != nil {
			m.closeMaps()
			return err
		}
	}
	m.loaded = true
	slog.Info("table maps ready")
	return nil
}

// clearMaps drops whatever a previous run left in pinned maps. Handle
// allocation starts over, so stale entries would collide.
func (m *Manager) clearMaps() error {
	drains := map[string]func(*ebpf.Map) (int, error){
		"entries":     drain[EntryKey],
		"entry_match": drain[EntryKey],
		"members":     drain[EntryKey],
		"match_index": drain[MatchKey],
		"groups":      drain[GroupKey],
		"defaults":    drain[uint32],
	}
	for name, mp := range m.maps {
		n, err := drains[name](mp)
		if err != nil {
			return fmt.Errorf("clear %s map: %w", name, err)
		}
		if n > 0 {
			slog.Info("cleared stale pinned map", "map", name, "entries", n)
		}
	}
	return nil
}

// drain deletes every key of mp.
func drain[K any](mp *ebpf.Map) (int, error) {
	var k K
	n := 0
	for {
		if err := mp.NextKey(nil, &k); err != nil {
			if notFound(err) {
				return n, nil
			}
			return n, err
		}
		if err := mp.Delete(&k); err != nil && !notFound(err) {
			return n, err
		}
		n++
	}
}

// Cleanup removes the pinned table maps under pinPath.
func Cleanup(pinPath string) error {
	var errs []error
	for _, spec := range New(Options{}).mapSpecs() {
		err := os.Remove(filepath.Join(pinPath, spec.Name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsLoaded returns true if the maps are ready.
func (m *Manager) IsLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *Manager) closeMaps() error {
	var errs []error
	for name, mp := range m.maps {
		if err := mp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s map: %w", name, err))
		}
		delete(m.maps, name)
	}
	return errors.Join(errs...)
}

// Close releases the map file descriptors. Pinned maps stay in bpffs.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = false
	return m.closeMaps()
}
