// Package types defines Go types shared by maintrack-server and maintrackctl:
// the fixed table enumeration, the flat record structs cached in a snapshot,
// and View, the tabular wire format both binaries render.
//
// Records carry foreign keys as plain ids. There are no navigation
// collections, so a record never references its owning rows.
package types
