package types

// View is a rendered table: ordered column names and ordered rows of cell
// text. Every row has exactly len(Columns) cells.
type View struct {
	Table   string     `json:"table"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// TableInfo describes one cached table in a snapshot summary.
type TableInfo struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// TablesResponse is the payload of GET /api/v1/tables and of the websocket
// snapshot event.
type TablesResponse struct {
	Cached    bool        `json:"cached"`
	BuiltAt   string      `json:"built_at,omitempty"`   // RFC3339
	ExpiresAt string      `json:"expires_at,omitempty"` // RFC3339
	Tables    []TableInfo `json:"tables"`
}
