package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arjun/nft-marketplace/backend/internal/auth"
	"github.com/arjun/nft-marketplace/backend/internal/config"
	"github.com/arjun/nft-marketplace/backend/internal/httpx"
	"github.com/arjun/nft-marketplace/backend/internal/items"
	"github.com/arjun/nft-marketplace/backend/internal/logging"
	"github.com/arjun/nft-marketplace/backend/internal/middleware"
	"github.com/arjun/nft-marketplace/backend/internal/profiles"
	"github.com/arjun/nft-marketplace/backend/internal/ratelimit"
	"github.com/arjun/nft-marketplace/backend/internal/search"
	"github.com/arjun/nft-marketplace/backend/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg)
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	listingStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb, cfg.SessionTTL)
	kv := store.NewKVStore(rdb)

	// ── MinIO ────────────────────────────────────────────────
	mediaStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("minio connect: %v", err)
	}

	// ── Services ─────────────────────────────────────────────
	limiter := ratelimit.New(cfg.RateLimitMaxAttempts, cfg.RateLimitWindow)
	authSvc := auth.NewService(pgStore, sessions, limiter, logger)
	resolver := auth.NewAdminResolver(sessions, pgStore, cfg.AdminEmails, logger)

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(authSvc, resolver, cfg.SessionTTL, httpx.WriteJSON, httpx.WriteError)
	profileHandler := profiles.NewHandler(authSvc, kv, logger)
	searchHandler := search.NewHandler(listingStore, kv, cfg.SearchPageSize,
		cfg.SearchDebounce, int64(cfg.RecentSearchMax), logger)
	itemHandler := items.NewHandler(listingStore, mediaStore, logger)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// Profile and preference routes (protected)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))
		r.Put("/api/profile", profileHandler.Update)
		r.Post("/api/wallet", profileHandler.ConnectWallet)
		r.Delete("/api/wallet", profileHandler.DisconnectWallet)
		r.Get("/api/prefs", profileHandler.Prefs)
		r.Put("/api/prefs/dark-mode", profileHandler.SetDarkMode)
	})

	// Search routes (protected)
	r.Route("/api/search", func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))
		r.Get("/", searchHandler.State)
		r.Post("/", searchHandler.Run)
		r.Patch("/filters", searchHandler.PatchFilters)
		r.Post("/clear", searchHandler.Clear)
		r.Put("/page", searchHandler.Page)
		r.Get("/stream", searchHandler.Stream)
		r.Get("/suggestions", searchHandler.Suggestions)
		r.Get("/recent", searchHandler.Recent)
	})

	// Listing routes
	r.Route("/api/items", func(r chi.Router) {
		r.Get("/{id}", itemHandler.Get)
		r.Get("/{id}/media", itemHandler.Media)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessions))
			r.Post("/", itemHandler.Create)
			r.Get("/mine", itemHandler.Mine)
			r.Delete("/{id}", itemHandler.Delete)
		})
	})

	// Admin routes
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))
		r.Use(middleware.RequireAdmin(resolver))
		r.Get("/items/{id}", itemHandler.Get)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		logger.Info("backend listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
