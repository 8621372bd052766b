package snapshot

import (
	"time"

	"github.com/maintrack/maintrack/pkg/types"
)

// Snapshot is an immutable set of per-table record samples.
type Snapshot struct {
	builtAt time.Time
	order   []types.Table
	tables  map[types.Table]types.Rows
}

// New assembles a Snapshot from rows, keeping the table order of rows.
func New(builtAt time.Time, rows ...types.Rows) *Snapshot {
	s := &Snapshot{
		builtAt: builtAt,
		order:   make([]types.Table, 0, len(rows)),
		tables:  make(map[types.Table]types.Rows, len(rows)),
	}
	for _, r := range rows {
		t := r.Table()
		if _, dup := s.tables[t]; !dup {
			s.order = append(s.order, t)
		}
		s.tables[t] = r
	}
	return s
}

// BuiltAt returns when the snapshot was assembled.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Tables returns the cached table names in build order.
func (s *Snapshot) Tables() []types.Table {
	out := make([]types.Table, len(s.order))
	copy(out, s.order)
	return out
}

// Rows returns the records cached for t.
func (s *Snapshot) Rows(t types.Table) (types.Rows, bool) {
	r, ok := s.tables[t]
	return r, ok
}

// Known reports whether name is a table held by this snapshot, empty or not.
func (s *Snapshot) Known(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.tables[types.Table(name)]
	return ok
}

// Counts returns the row count of every cached table in build order.
func (s *Snapshot) Counts() []types.TableInfo {
	out := make([]types.TableInfo, 0, len(s.order))
	for _, t := range s.order {
		out = append(out, types.TableInfo{Table: string(t), Rows: s.tables[t].Len()})
	}
	return out
}

// Resolve looks up the records cached under name. The match is exact and
// case-sensitive. It returns false when snap is nil, when name is not a
// cached table, or when the table has no rows.
func Resolve(snap *Snapshot, name string) (types.Rows, bool) {
	if snap == nil {
		return nil, false
	}
	r, ok := snap.tables[types.Table(name)]
	if !ok || r == nil || r.Len() == 0 {
		return nil, false
	}
	return r, true
}
