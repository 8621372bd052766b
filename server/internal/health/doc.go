// Package health reports maintrack-server health over the standard gRPC
// health protocol (grpc.health.v1) and as JSON at /healthz.
//
// Services:
//
//	""                       SERVING while the process runs
//	maintrack.Snapshot       follows the outcome of the last snapshot build
//	maintrack.RecordSource   follows a periodic Ping of the record source
//
// Reporter.BuildOutcome is meant to be installed as the store's build hook.
package health
