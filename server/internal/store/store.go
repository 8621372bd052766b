package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/maintrack/maintrack/server/internal/snapshot"
)

// BuildFunc produces a fresh snapshot on a cache miss.
type BuildFunc func(ctx context.Context) (*snapshot.Snapshot, error)

// Entry is a cached snapshot together with its key and expiry.
// Entries are immutable once published.
type Entry struct {
	Key       string
	Snapshot  *snapshot.Snapshot
	ExpiresAt time.Time
}

// Valid reports whether e holds key and has not expired at now.
func (e *Entry) Valid(key string, now time.Time) bool {
	return e != nil && e.Key == key && now.Before(e.ExpiresAt)
}

// Store is the process-wide snapshot cache. It is safe for concurrent use;
// reads of a valid entry take no lock.
type Store struct {
	cur    atomic.Pointer[Entry]
	gen    atomic.Uint64 // bumped by Invalidate
	flight singleflight.Group
	now    func() time.Time // injectable for deterministic tests

	hookMu sync.RWMutex
	hook   func(error)
}

// New creates an empty Store.
func New() *Store {
	return &Store{now: time.Now}
}

// SetBuildHook registers fn to be called with the outcome of every build
// (nil on success). It replaces any previous hook.
func (s *Store) SetBuildHook(fn func(error)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hook = fn
}

// Current returns the cached entry, or nil when the cache is empty.
// The entry may be expired if Run has not evicted it yet.
func (s *Store) Current() *Entry {
	return s.cur.Load()
}

// GetOrPopulate returns the snapshot cached under key while it is valid.
// Otherwise it calls build once, caches the result for ttl and returns it.
// Concurrent callers that miss on the same key share a single build.
//
// The build itself runs to completion even if ctx is cancelled; only the
// wait is abandoned, with ctx.Err().
func (s *Store) GetOrPopulate(ctx context.Context, key string, ttl time.Duration, build BuildFunc) (*snapshot.Snapshot, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("store: ttl must be positive, got %v", ttl)
	}
	if e := s.cur.Load(); e.Valid(key, s.now()) {
		cacheHits.Inc()
		return e.Snapshot, nil
	}
	cacheMisses.Inc()

	// Flights are per generation: a caller arriving after Invalidate never
	// joins a build started under the previous one.
	gen := s.gen.Load()
	bctx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		// A flight that finished just before this one may already have
		// stored a fresh entry.
		if e := s.cur.Load(); e.Valid(key, s.now()) {
			return e.Snapshot, nil
		}
		return s.populate(bctx, key, gen, ttl, build)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot.Snapshot), nil
	}
}

// populate runs build and publishes the result unless the store was
// invalidated after gen was read. A stale result still goes back to the
// callers of this flight.
func (s *Store) populate(ctx context.Context, key string, gen uint64, ttl time.Duration, build BuildFunc) (*snapshot.Snapshot, error) {
	start := time.Now()
	snap, err := build(ctx)
	buildDuration.Observe(time.Since(start).Seconds())
	if err == nil && snap == nil {
		err = errors.New("store: build returned no snapshot")
	}
	s.notify(err)

	if err != nil {
		buildFailures.Inc()
		slog.Error("store: snapshot build failed", "key", key, "err", err)
		return nil, err
	}

	builds.Inc()
	e := &Entry{Key: key, Snapshot: snap, ExpiresAt: s.now().Add(ttl)}
	if !s.publish(e, gen) {
		slog.Info("store: discarded snapshot built before invalidation", "key", key)
		return snap, nil
	}
	slog.Info("store: snapshot rebuilt",
		"key", key,
		"tables", len(snap.Tables()),
		"expires_at", e.ExpiresAt.UTC().Format(time.RFC3339),
		"elapsed", time.Since(start),
	)
	return snap, nil
}

// publish stores e if gen is still current. The generation is checked again
// after the store so an Invalidate racing with it cannot leave e behind.
func (s *Store) publish(e *Entry, gen uint64) bool {
	if s.gen.Load() != gen {
		return false
	}
	s.cur.Store(e)
	if s.gen.Load() != gen {
		s.cur.CompareAndSwap(e, nil)
		return false
	}
	return true
}

func (s *Store) notify(err error) {
	s.hookMu.RLock()
	fn := s.hook
	s.hookMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// Invalidate drops the current entry so the next GetOrPopulate rebuilds.
// Builds already in flight still answer their own callers but are not cached.
func (s *Store) Invalidate() {
	s.gen.Add(1)
	if s.cur.Swap(nil) != nil {
		slog.Info("store: snapshot invalidated")
	}
}

// Evict drops the current entry if it has expired at now. It reports whether
// an entry was removed.
func (s *Store) Evict(now time.Time) bool {
	e := s.cur.Load()
	if e == nil || now.Before(e.ExpiresAt) {
		return false
	}
	// A rebuild may have replaced e since the load; keep the newer entry.
	return s.cur.CompareAndSwap(e, nil)
}

// Run starts the background eviction loop, ticking every interval (minimum
// 1 second). Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if s.Evict(now) {
				slog.Debug("store: evicted expired snapshot")
			}
		}
	}
}
