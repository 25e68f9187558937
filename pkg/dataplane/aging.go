package dataplane

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/psaab/tblmgr/pkg/pipe"
)

// EntrySource is the part of the Manager the aging sweep needs.
type EntrySource interface {
	IterateEntries(fn func(EntryKey, EntryValue) bool) error
	MarkExpired(k EntryKey, lastHit uint64) (bool, error)
}

// ExpiryFunc is called once for every entry whose TTL ran out.
type ExpiryFunc func(tbl pipe.TableHandle, h pipe.EntryHandle)

// Aging expires notify-mode entries whose TTL elapsed since their last
// hit.
type Aging struct {
	src      EntrySource
	interval time.Duration
	notify   ExpiryFunc

	mu     sync.Mutex
	tables map[uint32]bool

	lastSweep atomic.Int64
}

// NewAging creates a sweeper over src. Only tables passed to Watch are
// aged.
func NewAging(src EntrySource, interval time.Duration, notify ExpiryFunc) *Aging {
	return &Aging{src: src, interval: interval, notify: notify, tables: make(map[uint32]bool)}
}

// Watch adds a notify-mode table to the sweep.
func (a *Aging) Watch(tbl pipe.TableHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tables[uint32(tbl)] = true
}

func (a *Aging) watched(tbl uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tables[tbl]
}

// LastSweepDuration returns how long the most recent sweep took.
func (a *Aging) LastSweepDuration() time.Duration {
	return time.Duration(a.lastSweep.Load())
}

// Run starts the aging loop. It blocks until ctx is cancelled.
func (a *Aging) Run(ctx context.Context) {
	slog.Info("entry aging started", "interval", a.interval)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("entry aging stopped")
			return
		case <-ticker.C:
			start := time.Now()
			a.sweep(monotonicMillis())
			a.lastSweep.Store(int64(time.Since(start)))
		}
	}
}

type agedEntry struct {
	key     EntryKey
	lastHit uint64
}

func (a *Aging) sweep(now uint64) {
	var total int
	var aged []agedEntry

	err := a.src.IterateEntries(func(k EntryKey, v EntryValue) bool {
		total++
		if v.TTL == 0 || v.Expired != 0 || !a.watched(k.Table) {
			return true
		}
		if now >= v.LastHit && now-v.LastHit >= uint64(v.TTL) {
			aged = append(aged, agedEntry{key: k, lastHit: v.LastHit})
		}
		return true
	})
	if err != nil {
		slog.Error("entry aging iteration failed", "err", err)
		return
	}

	var expired int
	for _, e := range aged {
		ok, err := a.src.MarkExpired(e.key, e.lastHit)
		if err != nil {
			slog.Debug("entry aging mark failed", "table", e.key.Table, "handle", e.key.Handle, "err", err)
			continue
		}
		if !ok {
			continue
		}
		expired++
		if a.notify != nil {
			a.notify(pipe.TableHandle(e.key.Table), pipe.EntryHandle(e.key.Handle))
		}
	}

	if expired > 0 {
		slog.Info("entry aging sweep", "total_entries", total, "expired", expired)
	}
}

// monotonicMillis returns the current monotonic clock in milliseconds,
// matching BPF's bpf_ktime_get_ns() / 1e6.
func monotonicMillis() uint64 {
	var ts unix.Timespec
	_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	return uint64(ts.Sec)*1000 + uint64(ts.Nsec)/1_000_000
}
