// Package render turns cached rows into a types.View and writes views as
// HTML or plain text tables.
//
// Columns are declared per table as Column values: a header name plus a
// cell function. A cell that has no value renders as Placeholder. Of selects
// the projection for a types.Rows value by its concrete type.
package render
