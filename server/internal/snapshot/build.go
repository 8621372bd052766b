package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maintrack/maintrack/pkg/types"
)

// ErrSourceUnavailable wraps every record source failure seen during Build.
var ErrSourceUnavailable = errors.New("snapshot: record source unavailable")

// Source produces up to limit records of one table in a stable order.
type Source interface {
	Rows(ctx context.Context, table types.Table, limit int) (types.Rows, error)
}

// Build queries src for every table in tables and returns the assembled
// snapshot. Each table contributes at most maxRows records in source order.
// The first failing table aborts the build.
func Build(ctx context.Context, src Source, tables []types.Table, maxRows int) (*Snapshot, error) {
	if maxRows <= 0 {
		return nil, fmt.Errorf("snapshot: max rows must be positive, got %d", maxRows)
	}
	if len(tables) == 0 {
		return nil, errors.New("snapshot: no tables to build")
	}

	start := time.Now()
	collected := make([]types.Rows, 0, len(tables))
	for _, t := range tables {
		rows, err := src.Rows(ctx, t, maxRows)
		if err != nil {
			return nil, fmt.Errorf("%w: table %s: %v", ErrSourceUnavailable, t, err)
		}
		if rows == nil {
			return nil, fmt.Errorf("%w: table %s: source returned no result", ErrSourceUnavailable, t)
		}
		if rows.Table() != t {
			return nil, fmt.Errorf("%w: table %s: source returned %s rows", ErrSourceUnavailable, t, rows.Table())
		}
		if rows.Len() > maxRows {
			rows = rows.Head(maxRows)
		}
		collected = append(collected, rows)
	}

	snap := New(time.Now().UTC(), collected...)
	slog.Debug("snapshot: built",
		"tables", len(collected),
		"max_rows", maxRows,
		"elapsed", time.Since(start),
	)
	return snap, nil
}
