// Package client talks to a running maintrack-server over HTTP.
//
// New(opts) builds a Client whose transport injects the API key header on
// every request. Tables and View read the JSON API; Metrics scrapes the
// Prometheus exposition at /metrics and StatsFrom reduces it to the snapshot
// cache counters.
package client
