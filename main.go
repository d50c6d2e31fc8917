package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"postfeed/auth"
	"postfeed/config"
	"postfeed/db"
	"postfeed/feed"
	"postfeed/filemgr"
	"postfeed/middleware"
	"postfeed/mq"
	"postfeed/ratelim"
	"postfeed/rdx"
	"postfeed/routes"
	"postfeed/socket"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// notifier picks the Redis bus when REDIS_ADDR is configured, the in-process
// hub otherwise. The returned cleanup closes whatever was opened.
func notifier(ctx context.Context, cfg config.Config, hub *socket.Hub) (feed.Notifier, func(), error) {
	if cfg.RedisAddr == "" {
		log.Println("[Emit] REDIS_ADDR not set; notifications stay in process")
		return mq.NewLocalBus(hub), func() {}, nil
	}

	client, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	relay, err := mq.Subscribe(ctx, client)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	relayCtx, stopRelay := context.WithCancel(context.Background())
	go relay.Run(relayCtx, hub)

	cleanup := func() {
		stopRelay()
		_ = relay.Close()
		closeRedis(client)
	}
	return mq.NewRedisBus(client), cleanup, nil
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	store, err := db.Connect(startCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("❌ mongo: %v", err)
	}
	if err := store.EnsureIndexes(startCtx); err != nil {
		log.Fatalf("❌ mongo indexes: %v", err)
	}

	images := filemgr.NewStore(cfg.UploadRoot, cfg.UploadDir)
	if err := images.EnsureDir(); err != nil {
		log.Fatalf("❌ image directory: %v", err)
	}

	hub := socket.NewHub()
	go hub.Run()

	bus, closeBus, err := notifier(startCtx, cfg, hub)
	if err != nil {
		log.Fatalf("❌ redis: %v", err)
	}

	tokens := middleware.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	rateLimiter := ratelim.NewRateLimiter(cfg.AuthRatePerMin)
	janitorDone := make(chan struct{})
	go rateLimiter.Janitor(janitorDone)

	feedSvc := feed.NewService(store.Posts, store.Users, images, bus, cfg.PageSize)
	authSvc := auth.NewService(store.Users, tokens)

	router := httprouter.New()
	routes.RoutesWrapper(router, routes.Deps{
		Feed:      feed.NewHandler(feedSvc, images),
		Auth:      auth.NewHandler(authSvc),
		Hub:       hub,
		Tokens:    tokens,
		ImageDir:  images.Dir(),
		RateLimit: rateLimiter,
	})

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("🛑 Shutting down socket hub...")
		hub.Stop()
	})

	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Graceful shutdown failed: %v", err)
	}
	close(janitorDone)
	closeBus()
	if err := store.Close(ctx); err != nil {
		log.Printf("❌ mongo disconnect: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}
