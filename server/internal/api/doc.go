// Package api implements the HTTP surface of maintrack-server.
//
// New(pipeline) returns an http.Handler that serves:
//
//	GET /data/{tableName}         HTML table of the cached rows (?format=text|json)
//	GET /api/v1/data/{tableName}  the same view as JSON (types.View)
//	GET /api/v1/tables            cached tables with row counts (types.TablesResponse)
//	GET /info                     caller IP and User-Agent
//
// Every table-data request first asks the Pipeline for the current snapshot,
// which builds it through the store on a miss. The snapshot is then passed
// explicitly to the resolver and renderer.
//
// Status codes for table data:
//   - 200 with the view when the table has rows
//   - 200 "No data found for table X" when the table is cached but empty
//   - 404 "Table X data not found or not cached." for any other name
//   - 400 when the name is missing, 500 when the snapshot cannot be built
//   - 405 for non-GET methods
//
// WithRequestLog wraps any handler with uuid request ids and slog access logs.
package api
