package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/go-chi/chi/v5"
	"github.com/nikahsufiyana/nikah-backend/internal/config"
	"github.com/nikahsufiyana/nikah-backend/internal/database"
	"github.com/nikahsufiyana/nikah-backend/internal/handlers"
	"github.com/nikahsufiyana/nikah-backend/internal/middleware"
	"github.com/nikahsufiyana/nikah-backend/internal/mq"
	"github.com/nikahsufiyana/nikah-backend/internal/routes"
	"github.com/nikahsufiyana/nikah-backend/internal/services"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		if err := handlers.InitCloudinaryService(cfg); err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Photo uploads will not be available")
		} else {
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Photo uploads will not be available")
	}

	// Notification history is optional; the core keeps working without it.
	log.Printf("Connecting to MongoDB at %s", maskURI(cfg.MongoURI))
	var notifications *mongo.Collection
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Printf("⚠️  WARNING: MongoDB unavailable, notification history disabled: %v", err)
	} else {
		defer database.Disconnect()
		notifications = database.DB.Collection(services.NotificationsCollection)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := services.EnsureNotificationIndexes(ctx, notifications); err != nil {
			log.Printf("⚠️  WARNING: failed to ensure notification indexes: %v", err)
		} else {
			log.Println("✅ MongoDB notification indexes ensured")
		}
		cancel()
	}

	var producer *mq.Producer
	if cfg.NSQDAddr != "" {
		p, err := mq.NewProducer(cfg.NSQDAddr, cfg.NSQTopic)
		if err != nil {
			log.Printf("⚠️  WARNING: NSQ producer unavailable: %v", err)
		} else {
			producer = p
			defer producer.Stop()
			log.Printf("✅ Publishing notifications to NSQ topic %s", cfg.NSQTopic)
		}
	}

	notifier := services.NewNotificationService(database.RedisClient, notifications, producer)
	core := services.NewCore(database.RedisClient, notifier, services.Options{
		Timeout:                 cfg.StoreTimeout,
		DeclineCooldown:         cfg.DeclineCooldown,
		AllowUnknownProfileTier: cfg.AllowUnknownProfileTier,
	})
	handlers.InitCore(core)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := services.NewNotificationHub()
	hub.Start(ctx, database.RedisClient)
	handlers.InitNotifications(notifier, hub)

	middleware.TrustForwardedFor = cfg.TrustProxy

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, host check, per-IP + login rate limiting)")
	}
	r.Use(middleware.AccessRateLimit)
	r.Use(middleware.RedisRateLimit(middleware.InterestSendLimit, middleware.BlockLimit))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	routes.SetupRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🚀 Nikah backend running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// maskURI hides the password in a connection string for logging.
func maskURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	scheme := strings.Index(uri, "://")
	if at == -1 || scheme == -1 {
		return uri
	}
	creds := uri[scheme+3 : at]
	if i := strings.Index(creds, ":"); i != -1 {
		return uri[:scheme+3] + creds[:i] + ":***" + uri[at:]
	}
	return uri
}
