package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Mjnllee/kidfromanila/internal/address"
	"github.com/Mjnllee/kidfromanila/internal/appointment"
	"github.com/Mjnllee/kidfromanila/internal/cache"
	"github.com/Mjnllee/kidfromanila/internal/cart"
	"github.com/Mjnllee/kidfromanila/internal/catalog"
	"github.com/Mjnllee/kidfromanila/internal/checkout"
	"github.com/Mjnllee/kidfromanila/internal/config"
	"github.com/Mjnllee/kidfromanila/internal/events"
	h "github.com/Mjnllee/kidfromanila/internal/http"
	"github.com/Mjnllee/kidfromanila/internal/logger"
	"github.com/Mjnllee/kidfromanila/internal/orders"
	"github.com/Mjnllee/kidfromanila/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	ctx := context.Background()

	gw, closeStore, err := openGateway(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// reads fall through to the store while redis is down
			zl.Warn("redis ping failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			zl.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		}
		gw = cache.NewCachedGateway(gw, cache.NewRedisCache(redisClient, cfg.CacheTTL), zl)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer kp.Close()
		publisher = kp
		zl.Info("publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	carts := cart.NewService(gw, zl.Named("cart"))
	book := address.NewBook(gw, zl.Named("address"))
	validator := appointment.NewValidator()
	cat := catalog.New(gw, zl.Named("catalog"))
	workflow := orders.NewWorkflow(gw, publisher, zl.Named("orders"))
	checkoutSvc := checkout.NewService(gw, carts, book, validator, publisher, zl.Named("checkout"))

	router := h.NewRouter(h.Handlers{
		Cart:         h.NewCartHandler(carts, cat, cfg.RequestTimeout),
		Addresses:    h.NewAddressHandler(book, cfg.RequestTimeout),
		Appointments: h.NewAppointmentHandler(validator),
		Checkout:     h.NewCheckoutHandler(checkoutSvc, cfg.RequestTimeout),
		Orders:       h.NewOrdersHandler(workflow, cfg.RequestTimeout),
		Catalog:      h.NewCatalogHandler(cat, cfg.RequestTimeout),
	}, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := newServer(cfg, otelhttp.NewHandler(router, "storefront"))

	go func() {
		zl.Info("storefront starting", zap.String("port", cfg.HTTPPort), zap.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	zl.Info("server exited")
}

// openGateway connects the configured document store. The returned func
// releases its connections.
func openGateway(ctx context.Context, cfg *config.Config, zl *zap.Logger) (store.Gateway, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		zl.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil

	case config.BackendMongo:
		db, err := store.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		ms := store.NewMongoStore(db)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		zl.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))
		return ms, func() { _ = db.Client().Disconnect(context.Background()) }, nil

	case config.BackendFirestore:
		client, err := store.ConnectFirestore(ctx, cfg.FirestoreProjectID, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		zl.Info("connected to Firestore", zap.String("project", cfg.FirestoreProjectID))
		return store.NewFirestoreStore(client), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		db, err := store.OpenPostgres(&store.Credentials{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
		})
		if err != nil {
			return nil, nil, err
		}
		ss := store.NewPostgresStore(db)
		if err := ss.RunMigrations(); err != nil {
			_ = ss.Close()
			return nil, nil, err
		}
		zl.Info("connected to Postgres", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))
		return ss, func() { _ = ss.Close() }, nil

	case config.BackendSQLite:
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		ss := store.NewSQLiteStore(db)
		if err := ss.RunMigrations(); err != nil {
			_ = ss.Close()
			return nil, nil, err
		}
		zl.Info("opened SQLite database", zap.String("path", cfg.SQLitePath))
		return ss, func() { _ = ss.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
