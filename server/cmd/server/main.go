package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/maintrack/maintrack/server/internal/alerts"
	"github.com/maintrack/maintrack/server/internal/api"
	"github.com/maintrack/maintrack/server/internal/auth"
	"github.com/maintrack/maintrack/server/internal/config"
	"github.com/maintrack/maintrack/server/internal/forms"
	"github.com/maintrack/maintrack/server/internal/health"
	"github.com/maintrack/maintrack/server/internal/records"
	"github.com/maintrack/maintrack/server/internal/store"
	"github.com/maintrack/maintrack/server/internal/ws"
)

// sourcePingInterval is how often the record source health is checked.
const sourcePingInterval = 30 * time.Second

// alertCheckInterval is how often alert rules are evaluated between builds.
const alertCheckInterval = time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	watch := flag.Bool("watch", true, "reload snapshot, auth, session and alert settings when the config file changes")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("maintrack-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	snapCfg := cfg.Server.Snapshot
	slog.Info("config loaded",
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"driver", cfg.Server.Database.Driver,
		"max_rows_per_table", snapCfg.MaxRowsPerTable,
		"snapshot_ttl", snapCfg.TTL(),
		"tables", snapCfg.Tables,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Record source.
	src, err := records.Open(cfg.Server.Database)
	if err != nil {
		slog.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer src.Close()

	if cfg.Server.Database.AutoMigrate {
		if err := src.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create schema", "err", err)
			os.Exit(1)
		}
	}

	// Snapshot cache with background eviction of expired entries.
	st := store.New()
	go st.Run(ctx, snapCfg.TTL()/2)

	pipeline := api.NewPipeline(st, src, api.SettingsFrom(snapCfg))

	reporter := health.New(src, sourcePingInterval)
	go reporter.Run(ctx)

	// WebSocket hub: periodic summaries plus one push after every rebuild.
	hub := ws.New(st, cfg.Server.WS.Interval)
	go hub.Run(ctx)

	alertEngine := alerts.New(cfg.Server.Alerts)
	go alertEngine.Run(ctx, alertCheckInterval)
	slog.Info("alert engine ready",
		"rules", len(cfg.Server.Alerts.Rules),
		"webhooks", len(cfg.Server.Alerts.Webhooks),
	)

	st.SetBuildHook(func(err error) {
		reporter.BuildOutcome(err)
		alertEngine.Observe(err)
		if err == nil {
			hub.Notify()
		}
	})

	guard := auth.NewGuard(cfg.Server.Auth)

	sessions := forms.NewSessions(cfg.Server.Sessions.IdleTimeout)
	defer sessions.Close()

	if *watch {
		go func() {
			err := config.Watch(ctx, *configPath, func(c *config.Config) {
				pipeline.Apply(api.SettingsFrom(c.Server.Snapshot))
				guard.Apply(c.Server.Auth)
				sessions.SetIdleTimeout(c.Server.Sessions.IdleTimeout)
				alertEngine.Apply(c.Server.Alerts)
				slog.Info("settings applied; ports, database and ws interval need a restart",
					"snapshot_ttl", c.Server.Snapshot.TTL(),
					"auth_mode", c.Server.Auth.Mode,
				)
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	// gRPC listener serving the standard health protocol.
	grpcSrv := grpc.NewServer(
		grpc.UnaryInterceptor(auth.APIKeyInterceptor(guard)),
		grpc.StreamInterceptor(auth.APIKeyStreamInterceptor(guard)),
	)
	healthpb.RegisterHealthServer(grpcSrv, reporter.Server())

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port",
			"port", cfg.Server.GRPCPort, "err", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("gRPC health listening", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	// Combined HTTP server: table viewer, JSON API, forms, live feed, metrics.
	apiHandler := api.New(pipeline)
	formsHandler := forms.New(sessions)

	requireKey := auth.APIKeyMiddleware(guard)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", requireKey(apiHandler))
	httpMux.Handle("/api/v1/alerts", requireKey(alertEngine))
	httpMux.Handle("/data/", apiHandler)
	httpMux.Handle("/info", apiHandler)
	httpMux.Handle("/searchform1", formsHandler)
	httpMux.Handle("/searchform2", formsHandler)
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/healthz", reporter)
	httpMux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           api.WithRequestLog(httpMux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("maintrack-server shutting down")
	grpcSrv.GracefulStop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	alertEngine.Wait()
}
