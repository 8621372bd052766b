// Package store holds the snapshot cache: a single current entry of
// {key, snapshot, expiresAt} that request handlers read on every call.
//
// GetOrPopulate is the only way a snapshot enters the cache. A valid entry
// under the requested key is returned without building; otherwise one build
// runs, however many callers miss at the same time, and its result replaces
// the entry. A failed build is not cached and leaves the previous entry in
// place, so later callers retry on their own.
//
// A background goroutine (Run) drops the entry once it has expired. The
// cache is memory only; nothing survives a restart.
package store
