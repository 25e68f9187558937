package dataplane

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/psaab/tblmgr/pkg/pipe"
)

type fakeEntries struct {
	m map[EntryKey]EntryValue
}

func (f *fakeEntries) IterateEntries(fn func(EntryKey, EntryValue) bool) error {
	for k, v := range f.m {
		if !fn(k, v) {
			break
		}
	}
	return nil
}

func (f *fakeEntries) MarkExpired(k EntryKey, lastHit uint64) (bool, error) {
	v := f.m[k]
	if v.LastHit != lastHit || v.Expired != 0 {
		return false, nil
	}
	v.Expired = 1
	f.m[k] = v
	return true, nil
}

func TestAgingSweep(t *testing.T) {
	src := &fakeEntries{m: map[EntryKey]EntryValue{
		{Table: 1, Handle: 1}: {TTL: 1000, LastHit: 0},    // expired
		{Table: 1, Handle: 2}: {TTL: 1000, LastHit: 500},  // still live
		{Table: 1, Handle: 3}: {TTL: 0, LastHit: 0},       // aging off
		{Table: 2, Handle: 4}: {TTL: 1000, LastHit: 0},    // table not watched
		{Table: 1, Handle: 5}: {TTL: 1000, LastHit: 2000}, // hit after now
	}}
	var got []pipe.EntryHandle
	a := NewAging(src, time.Second, func(tbl pipe.TableHandle, h pipe.EntryHandle) {
		if tbl != 1 {
			t.Errorf("expiry on table %d", tbl)
		}
		got = append(got, h)
	})
	a.Watch(1)

	a.sweep(1200)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expired = %v, want [1]", got)
	}

	// An expired entry is reported once.
	a.sweep(1600)
	if len(got) != 2 || got[1] != 2 {
		t.Fatalf("expired = %v, want [1 2]", got)
	}
}

func TestAgingRunStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeEntries{m: map[EntryKey]EntryValue{}}
	a := NewAging(src, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done
}

func TestMonotonicMillis(t *testing.T) {
	a := monotonicMillis()
	time.Sleep(5 * time.Millisecond)
	if b := monotonicMillis(); b < a+4 {
		t.Errorf("clock advanced %d ms over a 5 ms sleep", b-a)
	}
}
