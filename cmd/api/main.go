package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"skyline/api/internal/app"
	"skyline/api/internal/authpw"
	"skyline/api/internal/config"
	"skyline/api/internal/email"
	"skyline/api/internal/geoip"
	"skyline/api/internal/session"
	"skyline/api/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	client, err := store.Open(ctx, cfg.MongoURI)
	cancel()
	if err != nil {
		log.Fatalf("connecting to mongodb: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := client.Disconnect(shutdownCtx); err != nil {
			log.Printf("disconnecting mongodb: %v", err)
		}
	}()

	mongoStore := store.NewMongoStore(client, cfg.MongoDB)
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoStore.EnsureIndexes(setupCtx); err != nil {
		setupCancel()
		log.Fatalf("ensuring indexes: %v", err)
	}
	if err := mongoStore.CleanupExpiredSessions(setupCtx); err != nil {
		log.Printf("cleaning up expired sessions: %v", err)
	}
	setupCancel()

	// Manager sessions live in memory plus a durable tier: Redis when
	// configured, otherwise the sessions collection.
	var durable session.DurableStore = mongoStore
	if cfg.RedisURL != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("connecting to redis: %v", err)
		}
		defer redisStore.Close()
		durable = redisStore
		log.Printf("session store: redis")
	} else {
		log.Printf("session store: mongodb")
	}
	sessions := session.NewAuthority(durable, cfg.SessionTTL, cfg.RefreshWindow)

	admin, err := authpw.NewAdmin(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("admin credentials: %v", err)
	}

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		NotifyTo: cfg.NotifyTo,
	})
	if !mailer.IsConfigured() {
		log.Printf("smtp not configured, email notifications disabled")
	}

	svc := app.New(mongoStore, sessions, admin, mailer, geoip.New(cfg.GeoBaseURL))
	httpServer := app.NewHTTPServer(svc, cfg.CORSOrigin, cfg.WebhookSecret)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (db %s)", cfg.Addr, cfg.MongoDB)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case sig := <-stop:
		log.Printf("received %s, shutting down", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
