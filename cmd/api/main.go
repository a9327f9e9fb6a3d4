package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskflow.io/internal/auth"
	"deskflow.io/internal/httpapi"
	"deskflow.io/internal/obs"
	"deskflow.io/internal/store/pg"
	"deskflow.io/internal/stream"
	"deskflow.io/internal/ticket"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	// With a DSN both stores run on Postgres; without one the service runs
	// fully in memory, which is enough for local development and demos.
	var (
		db      *sql.DB
		users   auth.UserStore
		tickets ticket.Service
		userSvc *auth.Service
	)
	if dsn := os.Getenv("DESKFLOW_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = store.DB()
		users = auth.NewPGUsers(db)
		tickets = store
		userSvc = auth.NewService(users)
	} else {
		log.Println("DESKFLOW_PG_DSN not set, using in-memory stores")
		users = auth.NewInMemoryUsers()
		userSvc = auth.NewService(users)
		tickets = ticket.NewInMemory(ticket.DirectoryFunc(func(ctx context.Context, userID string) (string, error) {
			u, err := userSvc.Find(ctx, userID)
			if err != nil {
				return "", err
			}
			return u.FullName, nil
		}))
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, userSvc, tickets, stream.New())

	addr := os.Getenv("DESKFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting deskflow-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
