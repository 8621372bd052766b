// Package command builds the maintrackctl command tree.
//
//	maintrackctl [global flags] tables          cached table summary
//	maintrackctl [global flags] show <table>    one table as rendered by the server
//	maintrackctl [global flags] stats           snapshot cache counters from /metrics
//
// Global flags can also be set through MAINTRACK_SERVER, MAINTRACK_API_KEY,
// MAINTRACK_API_HEADER and MAINTRACK_INSECURE.
package command
