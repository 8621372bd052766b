package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maintrack/maintrack/pkg/types"
	"github.com/maintrack/maintrack/server/internal/snapshot"
)

const ttl = 280 * time.Second

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// counter returns a BuildFunc that counts its calls and snapshots that are
// told apart by their single employee id.
func counter() (BuildFunc, *atomic.Int64) {
	var n atomic.Int64
	return func(context.Context) (*snapshot.Snapshot, error) {
		id := int(n.Add(1))
		return snapshot.New(time.Now(), types.EmployeeRows{{EmployeeID: id}}), nil
	}, &n
}

func employeeID(t *testing.T, snap *snapshot.Snapshot) int {
	t.Helper()
	rows, ok := snap.Rows(types.Employees)
	if !ok || rows.Len() != 1 {
		t.Fatalf("snapshot rows: got %v, want one employee", rows)
	}
	return rows.(types.EmployeeRows)[0].EmployeeID
}

// --- GetOrPopulate ---

func TestGetOrPopulate_HitWithinTTL(t *testing.T) {
	base := time.Now()
	st := New()
	st.now = fixedClock(base)
	build, calls := counter()

	first, err := st.GetOrPopulate(context.Background(), "cachedData", ttl, build)
	if err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	st.now = fixedClock(base.Add(ttl - time.Second))
	second, err := st.GetOrPopulate(context.Background(), "cachedData", ttl, build)
	if err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}

	if first != second {
		t.Error("second call returned a different snapshot, want the cached one")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("build calls: got %d, want 1", n)
	}
	if e := st.Current(); !e.ExpiresAt.Equal(base.Add(ttl)) {
		t.Errorf("ExpiresAt: got %v, want %v", e.ExpiresAt, base.Add(ttl))
	}
}

func TestGetOrPopulate_RebuildsAfterExpiry(t *testing.T) {
	base := time.Now()
	st := New()
	st.now = fixedClock(base)
	build, calls := counter()

	if _, err := st.GetOrPopulate(context.Background(), "k", ttl, build); err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}

	// Expiry is exclusive: now == expiresAt is already stale.
	st.now = fixedClock(base.Add(ttl))
	snap, err := st.GetOrPopulate(context.Background(), "k", ttl, build)
	if err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if got := employeeID(t, snap); got != 2 {
		t.Errorf("snapshot generation: got %d, want 2", got)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("build calls: got %d, want 2", n)
	}
}

func TestGetOrPopulate_FailureKeepsPreviousEntry(t *testing.T) {
	base := time.Now()
	st := New()
	st.now = fixedClock(base)
	build, _ := counter()

	if _, err := st.GetOrPopulate(context.Background(), "k", ttl, build); err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	prev := st.Current()

	st.now = fixedClock(base.Add(2 * ttl))
	boom := errors.New("db down")
	var failures atomic.Int64
	failing := func(context.Context) (*snapshot.Snapshot, error) {
		failures.Add(1)
		return nil, boom
	}

	for i := 0; i < 2; i++ {
		if _, err := st.GetOrPopulate(context.Background(), "k", ttl, failing); !errors.Is(err, boom) {
			t.Fatalf("GetOrPopulate err: got %v, want %v", err, boom)
		}
	}
	if st.Current() != prev {
		t.Error("failed build replaced the previous entry")
	}
	// Failures are not cached: each call retries.
	if n := failures.Load(); n != 2 {
		t.Errorf("failing build calls: got %d, want 2", n)
	}

	snap, err := st.GetOrPopulate(context.Background(), "k", ttl, build)
	if err != nil {
		t.Fatalf("GetOrPopulate after recovery: %v", err)
	}
	if got := employeeID(t, snap); got != 2 {
		t.Errorf("snapshot generation: got %d, want 2", got)
	}
}

func TestGetOrPopulate_NilSnapshotIsFailure(t *testing.T) {
	st := New()
	_, err := st.GetOrPopulate(context.Background(), "k", ttl, func(context.Context) (*snapshot.Snapshot, error) {
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected error for nil snapshot, got nil")
	}
	if st.Current() != nil {
		t.Error("nil snapshot was cached")
	}
}

func TestGetOrPopulate_KeyChangeIsMiss(t *testing.T) {
	st := New()
	build, calls := counter()

	if _, err := st.GetOrPopulate(context.Background(), "a", ttl, build); err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if _, err := st.GetOrPopulate(context.Background(), "b", ttl, build); err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("build calls: got %d, want 2", n)
	}
	if k := st.Current().Key; k != "b" {
		t.Errorf("current key: got %q, want b", k)
	}
}

func TestGetOrPopulate_RejectsNonPositiveTTL(t *testing.T) {
	st := New()
	build, calls := counter()
	if _, err := st.GetOrPopulate(context.Background(), "k", 0, build); err == nil {
		t.Fatal("expected error for zero ttl, got nil")
	}
	if calls.Load() != 0 {
		t.Error("build ran despite invalid ttl")
	}
}

func TestGetOrPopulate_ConcurrentMissesBuildOnce(t *testing.T) {
	st := New()
	release := make(chan struct{})
	var calls atomic.Int64
	build := func(context.Context) (*snapshot.Snapshot, error) {
		calls.Add(1)
		<-release
		return snapshot.New(time.Now(), types.EmployeeRows{}), nil
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([]*snapshot.Snapshot, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := st.GetOrPopulate(context.Background(), "k", ttl, build)
			if err != nil {
				t.Errorf("GetOrPopulate: %v", err)
			}
			results[i] = snap
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if c := calls.Load(); c != 1 {
		t.Errorf("build calls: got %d, want 1", c)
	}
	for i, r := range results {
		if r != results[0] {
			t.Errorf("result %d: got a different snapshot than result 0", i)
		}
	}
}

func TestGetOrPopulate_NoPartialVisibility(t *testing.T) {
	base := time.Now()
	st := New()
	st.now = fixedClock(base)
	build, _ := counter()
	if _, err := st.GetOrPopulate(context.Background(), "k", ttl, build); err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	prev := st.Current()

	st.now = fixedClock(base.Add(ttl))
	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(context.Context) (*snapshot.Snapshot, error) {
		close(started)
		<-release
		return snapshot.New(time.Now(), types.EmployeeRows{{EmployeeID: 99}}), nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		st.GetOrPopulate(context.Background(), "k", ttl, slow) //nolint:errcheck
	}()

	<-started
	if st.Current() != prev {
		t.Error("entry changed while the build was still running")
	}
	close(release)
	<-done

	if got := employeeID(t, st.Current().Snapshot); got != 99 {
		t.Errorf("current snapshot: got employee %d, want 99", got)
	}
}

func TestGetOrPopulate_CancelledWaitBuildCompletes(t *testing.T) {
	st := New()
	release := make(chan struct{})
	finished := make(chan struct{})
	build := func(ctx context.Context) (*snapshot.Snapshot, error) {
		defer close(finished)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return snapshot.New(time.Now(), types.EmployeeRows{}), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := st.GetOrPopulate(ctx, "k", ttl, build)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("GetOrPopulate err: got %v, want context.Canceled", err)
	}

	close(release)
	<-finished
	// The build ran on a detached context and was stored.
	deadline := time.Now().Add(time.Second)
	for st.Current() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if st.Current() == nil {
		t.Error("build finished after cancel but nothing was cached")
	}
}

// --- Build hook ---

func TestSetBuildHook(t *testing.T) {
	st := New()
	var got []error
	st.SetBuildHook(func(err error) { got = append(got, err) })

	boom := errors.New("boom")
	st.GetOrPopulate(context.Background(), "k", ttl, func(context.Context) (*snapshot.Snapshot, error) { //nolint:errcheck
		return nil, boom
	})
	build, _ := counter()
	st.GetOrPopulate(context.Background(), "k", ttl, build) //nolint:errcheck

	if len(got) != 2 {
		t.Fatalf("hook calls: got %d, want 2", len(got))
	}
	if !errors.Is(got[0], boom) || got[1] != nil {
		t.Errorf("hook outcomes: got %v, want [boom <nil>]", got)
	}
}

// --- Invalidate / Evict ---

func TestInvalidate(t *testing.T) {
	st := New()
	build, calls := counter()
	st.GetOrPopulate(context.Background(), "k", ttl, build) //nolint:errcheck

	st.Invalidate()
	if st.Current() != nil {
		t.Fatal("Current after Invalidate: got entry, want nil")
	}
	st.GetOrPopulate(context.Background(), "k", ttl, build) //nolint:errcheck
	if n := calls.Load(); n != 2 {
		t.Errorf("build calls: got %d, want 2", n)
	}
}

func TestInvalidate_DuringBuild(t *testing.T) {
	st := New()
	started := make(chan struct{})
	release := make(chan struct{})
	old := func(context.Context) (*snapshot.Snapshot, error) {
		close(started)
		<-release
		return snapshot.New(time.Now(), types.EmployeeRows{{EmployeeID: 100}}), nil
	}

	type result struct {
		snap *snapshot.Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := st.GetOrPopulate(context.Background(), "k", ttl, old)
		done <- result{snap, err}
	}()

	<-started
	st.Invalidate()

	// A caller after Invalidate starts its own build instead of waiting
	// for the one in flight.
	fresh, calls := counter()
	snap, err := st.GetOrPopulate(context.Background(), "k", ttl, fresh)
	if err != nil {
		t.Fatalf("GetOrPopulate after Invalidate: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fresh build calls: got %d, want 1", n)
	}
	if id := employeeID(t, snap); id != 1 {
		t.Errorf("snapshot after Invalidate: got employee %d, want 1", id)
	}

	close(release)
	r := <-done
	if r.err != nil {
		t.Fatalf("in-flight caller: %v", r.err)
	}
	if id := employeeID(t, r.snap); id != 100 {
		t.Errorf("in-flight caller: got employee %d, want its own build (100)", id)
	}
	if id := employeeID(t, st.Current().Snapshot); id != 1 {
		t.Errorf("cached after both builds: got employee %d, want 1", id)
	}
}

func TestInvalidate_BeforePublishDiscards(t *testing.T) {
	st := New()
	release := make(chan struct{})
	started := make(chan struct{})
	build := func(context.Context) (*snapshot.Snapshot, error) {
		close(started)
		<-release
		return snapshot.New(time.Now(), types.EmployeeRows{{EmployeeID: 7}}), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := st.GetOrPopulate(context.Background(), "k", ttl, build)
		done <- err
	}()
	<-started
	st.Invalidate()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if st.Current() != nil {
		t.Error("snapshot built before Invalidate was cached, want nil")
	}
}

func TestEvict(t *testing.T) {
	base := time.Now()
	st := New()
	st.now = fixedClock(base)
	build, _ := counter()
	st.GetOrPopulate(context.Background(), "k", ttl, build) //nolint:errcheck

	if st.Evict(base.Add(ttl - time.Second)) {
		t.Error("Evict removed a live entry")
	}
	if !st.Evict(base.Add(ttl)) {
		t.Error("Evict kept an expired entry")
	}
	if st.Current() != nil {
		t.Error("Current after Evict: got entry, want nil")
	}
	if st.Evict(base.Add(ttl)) {
		t.Error("Evict on empty store reported a removal")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Second)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
