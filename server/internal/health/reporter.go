package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service names reported by the Reporter.
const (
	ServiceSnapshot     = "maintrack.Snapshot"
	ServiceRecordSource = "maintrack.RecordSource"
)

// pingTimeout bounds a single record source ping.
const pingTimeout = 5 * time.Second

// Pinger checks that the record source is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reporter owns a grpc health server and keeps its statuses current.
type Reporter struct {
	srv      *health.Server
	pinger   Pinger
	interval time.Duration
}

// New creates a Reporter that pings p every interval. The snapshot service
// starts SERVING; the record source service starts NOT_SERVING until the
// first successful ping.
func New(p Pinger, interval time.Duration) *Reporter {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	srv.SetServingStatus(ServiceSnapshot, healthpb.HealthCheckResponse_SERVING)
	srv.SetServingStatus(ServiceRecordSource, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Reporter{srv: srv, pinger: p, interval: interval}
}

// Server returns the grpc health server for registration with
// healthpb.RegisterHealthServer.
func (r *Reporter) Server() *health.Server { return r.srv }

// BuildOutcome records the result of a snapshot build.
func (r *Reporter) BuildOutcome(err error) {
	if err != nil {
		r.srv.SetServingStatus(ServiceSnapshot, healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	r.srv.SetServingStatus(ServiceSnapshot, healthpb.HealthCheckResponse_SERVING)
}

// CheckSource pings the record source once and updates its status.
func (r *Reporter) CheckSource(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := r.pinger.Ping(ctx); err != nil {
		r.srv.SetServingStatus(ServiceRecordSource, healthpb.HealthCheckResponse_NOT_SERVING)
		return err
	}
	r.srv.SetServingStatus(ServiceRecordSource, healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Run pings the record source immediately and then every interval. It blocks
// until ctx is cancelled, then marks every service NOT_SERVING.
func (r *Reporter) Run(ctx context.Context) {
	r.ping(ctx)

	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.srv.Shutdown()
			return
		case <-t.C:
			r.ping(ctx)
		}
	}
}

func (r *Reporter) ping(ctx context.Context) {
	if err := r.CheckSource(ctx); err != nil {
		slog.Warn("health: record source unreachable", "err", err)
	}
}

// Status returns the current status name of every service.
func (r *Reporter) Status() map[string]string {
	out := make(map[string]string, 3)
	for _, svc := range []string{"", ServiceSnapshot, ServiceRecordSource} {
		resp, err := r.srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			out[svc] = healthpb.HealthCheckResponse_SERVICE_UNKNOWN.String()
			continue
		}
		out[svc] = resp.GetStatus().String()
	}
	return out
}

// ServeHTTP serves GET /healthz: 200 when every service is SERVING,
// otherwise 503. The body lists each service status; the overall service
// is reported under "server".
func (r *Reporter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st := r.Status()
	code := http.StatusOK
	body := make(map[string]string, len(st))
	for svc, s := range st {
		if s != healthpb.HealthCheckResponse_SERVING.String() {
			code = http.StatusServiceUnavailable
		}
		if svc == "" {
			svc = "server"
		}
		body[svc] = s
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}
