package api

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/maintrack/maintrack/pkg/types"
	"github.com/maintrack/maintrack/server/internal/config"
	"github.com/maintrack/maintrack/server/internal/snapshot"
	"github.com/maintrack/maintrack/server/internal/store"
)

// Settings controls how the pipeline populates the snapshot cache.
type Settings struct {
	Key     string
	TTL     time.Duration
	MaxRows int
	Tables  []types.Table
}

// SettingsFrom derives pipeline settings from the snapshot config section.
func SettingsFrom(c config.SnapshotConfig) Settings {
	return Settings{
		Key:     c.CacheKey,
		TTL:     c.TTL(),
		MaxRows: c.MaxRowsPerTable,
		Tables:  c.TableList(),
	}
}

// Pipeline ensures a snapshot is cached before table data is served.
type Pipeline struct {
	store    *store.Store
	src      snapshot.Source
	settings atomic.Pointer[Settings]
}

// NewPipeline creates a Pipeline reading records from src through st.
func NewPipeline(st *store.Store, src snapshot.Source, s Settings) *Pipeline {
	p := &Pipeline{store: st, src: src}
	p.settings.Store(&s)
	return p
}

// Settings returns the settings currently in effect.
func (p *Pipeline) Settings() Settings {
	return *p.settings.Load()
}

// Apply replaces the settings and drops the cached snapshot so the next
// request rebuilds with them.
func (p *Pipeline) Apply(s Settings) {
	p.settings.Store(&s)
	p.store.Invalidate()
}

// Snapshot returns the cached snapshot, building it on a miss.
func (p *Pipeline) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	s := p.settings.Load()
	return p.store.GetOrPopulate(ctx, s.Key, s.TTL, func(ctx context.Context) (*snapshot.Snapshot, error) {
		return snapshot.Build(ctx, p.src, s.Tables, s.MaxRows)
	})
}

// Summarize describes a cache entry without triggering a build. A nil entry
// yields Cached == false and no tables.
func Summarize(e *store.Entry) types.TablesResponse {
	if e == nil || e.Snapshot == nil {
		return types.TablesResponse{Tables: []types.TableInfo{}}
	}
	return types.TablesResponse{
		Cached:    true,
		BuiltAt:   e.Snapshot.BuiltAt().UTC().Format(time.RFC3339),
		ExpiresAt: e.ExpiresAt.UTC().Format(time.RFC3339),
		Tables:    e.Snapshot.Counts(),
	}
}
