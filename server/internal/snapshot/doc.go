// Package snapshot builds and reads the cached table snapshot.
//
// A Snapshot maps each configured table to an ordered, capped sample of its
// records. It is built in one pass by Build and never mutated afterwards;
// the next cache cycle replaces it wholesale.
//
// Build(ctx, src, tables, maxRows) queries src once per table, in order, and
// fails the whole build on the first source error (ErrSourceUnavailable):
// a partially populated snapshot is never returned.
//
// Resolve(snap, name) is the lookup used by the HTTP layer. It reports false
// both for names outside the snapshot and for tables with zero rows; callers
// that need to tell those apart use Snapshot.Known.
package snapshot
