package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"google.golang.org/grpc"

	"combisales/internal/audit"
	"combisales/internal/auth"
	"combisales/internal/config"
	"combisales/internal/httpapi"
	"combisales/internal/obs"
	"combisales/internal/provider/zoho"
	"combisales/internal/stream"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("COMBISALES_COMMIT"))

	cfg := config.MustLoad()

	var db *sql.DB
	if cfg.StorageDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.StorageDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var (
		store      auth.Store
		auditStore audit.Store
	)
	if db != nil {
		store = auth.NewPGStore(db)
		auditStore = audit.NewPGStore(db)
	} else {
		// Local development without Postgres.
		store = auth.NewMemory()
		auditStore = audit.NewMemory()
	}

	events := stream.New()
	recorder := audit.NewRecorder(auditStore).WithSink(events.Publish)

	refresher := zoho.NewClient(cfg.Zoho.TokenURL, cfg.Zoho.ClientID, cfg.Zoho.ClientSecret,
		zoho.WithHTTPClient(&http.Client{Timeout: cfg.Zoho.Timeout}),
	)

	svc, err := auth.NewService(store, recorder, cfg.SessionSecret,
		auth.WithRefresher(refresher),
		auth.WithSessionTTL(cfg.SessionTTL),
		auth.WithRefreshWindows(cfg.Refresh.InteractiveWindow, cfg.Refresh.BatchWindow),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Auth:       svc,
		Reporter:   audit.NewReporter(auditStore),
		AuditStore: auditStore,
		Stream:     events,
		Ready:      httpapi.ReadyProbe{DB: db},
		Version:    version,
		CronSecret: cfg.CronSecret,
		Retention:  time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting combisales-api %s on %s (env %s)", version, srv.Addr, cfg.Env)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// gRPC health server for orchestration probes.
	grpcSrv := grpc.NewServer()
	httpapi.NewGRPCServer(httpapi.ReadyProbe{DB: db}).Register(grpcSrv)
	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	obs.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
