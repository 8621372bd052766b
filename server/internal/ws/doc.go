// Package ws implements the WebSocket live feed for maintrack-server.
//
// Hub manages a set of connected clients and broadcasts a summary of the
// snapshot cache (types.TablesResponse) to all of them on a configurable
// interval, and right after each rebuild when the store's build hook calls
// Notify. The hub reads store.Current only; it never triggers a build.
//
// Message format sent to clients:
//
//	{
//	  "event":   "snapshot" | "rebuilt",
//	  "data":    { /* same schema as GET /api/v1/tables */ },
//	  "sent_at": "2024-03-15T10:00:00Z"
//	}
//
// The upgrader accepts all origins. The endpoint is mounted at /ws/stream.
package ws
