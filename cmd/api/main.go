package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"daftari.app/internal/audit"
	"daftari.app/internal/auth"
	"daftari.app/internal/httpapi"
	"daftari.app/internal/obs"
	"daftari.app/internal/store/pg"
)

var version = "0.3.1"

func main() {
	obs.Init()

	dsn := os.Getenv("DAFTARI_PG_DSN")
	if dsn == "" {
		log.Fatal("DAFTARI_PG_DSN is required")
	}
	// The signing secret has no fallback on purpose: a guessable default
	// would let anyone mint valid tokens.
	secret := strings.TrimSpace(os.Getenv("DAFTARI_AUTH_SECRET"))
	if secret == "" {
		log.Fatal("DAFTARI_AUTH_SECRET is required")
	}
	addr := os.Getenv("DAFTARI_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	var origins []string
	for _, o := range strings.Split(os.Getenv("DAFTARI_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	authSvc, err := auth.NewService(auth.NewPostgresRepository(db), secret)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Auth:           authSvc,
		Audit:          audit.NewRecorder(audit.NewPostgresSink(db)),
		Partners:       pg.NewPartnerStore(db),
		Settings:       pg.NewSettingsStore(db),
		ReadyProbe:     httpapi.ReadyProbe{DB: db},
		Version:        version,
		AllowedOrigins: origins,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Expired denylist rows are dead weight; sweep them hourly.
	purgeCtx, stopPurge := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				if n, err := authSvc.PurgeRevoked(purgeCtx); err != nil {
					log.Printf("purge revoked tokens: %v", err)
				} else if n > 0 {
					log.Printf("purged %d expired revoked tokens", n)
				}
			}
		}
	}()

	log.Printf("Starting daftari-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopPurge()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
