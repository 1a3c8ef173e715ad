package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jsonstash/jsonstash/handlers"
	"github.com/jsonstash/jsonstash/internal/config"
	"github.com/jsonstash/jsonstash/internal/database"
	"github.com/jsonstash/jsonstash/internal/document/handler"
	"github.com/jsonstash/jsonstash/internal/document/keygen"
	"github.com/jsonstash/jsonstash/internal/document/repository"
	"github.com/jsonstash/jsonstash/internal/document/service"
	"github.com/jsonstash/jsonstash/internal/storage"
	"github.com/jsonstash/jsonstash/pkg/logger"
	"github.com/jsonstash/jsonstash/pkg/metrics"
	"github.com/jsonstash/jsonstash/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: backend=%s dir=%s mongo=%v redis=%v minio=%v",
		cfg.Store.Backend, cfg.Store.Dir, cfg.MongoDB.URI != "", cfg.RedisAddr() != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	repo, storeCheck, err := openStore(cfg)
	if err != nil {
		logger.Fatalf("failed to open store: %v", err)
	}

	checks := map[string]handlers.Check{"store": storeCheck}
	var mirrors []service.Mirror

	// Redis serves both the shared rate limiter and the optional mirror
	var rdb *redis.Client
	if addr := cfg.RedisAddr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		} else {
			logger.Infof("connected to Redis: %s", addr)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		if cfg.Redis.Mirror {
			mirrors = append(mirrors, repository.NewRedisMirror(rdb, cfg.Redis.MirrorPrefix))
		}
	}

	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second)
		if err != nil {
			logger.Warnf("MongoDB mirror disabled: %v", err)
		} else {
			defer func() { _ = client.Disconnect(context.Background()) }()
			col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
			mirrors = append(mirrors, repository.NewMongoMirror(col))
			checks["mongo"] = mongoCheck(client)
			logger.Infof("mirroring documents to MongoDB %s.%s", cfg.MongoDB.Database, cfg.MongoDB.Collection)
		}
	}

	if cfg.MinIO.Endpoint != "" {
		mc, err := storage.NewMinIOStorage(ctx, &storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
		})
		if err != nil {
			logger.Warnf("MinIO mirror disabled: %v", err)
		} else {
			mirrors = append(mirrors, mc)
			logger.Infof("mirroring documents to MinIO bucket %s", cfg.MinIO.Bucket)
		}
	}

	collision, err := service.ParseCollision(cfg.Store.Collision)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	svc := service.New(repo, service.Options{
		Keys:          keygen.New(cfg.Store.KeyUTC),
		Collision:     collision,
		Mirrors:       mirrors,
		MirrorTimeout: cfg.Mirror.Timeout,
	})

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// permissive CORS so the JSON API can be called from other origins
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Location")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
			logger.Infof("rate limiter: redis fixed window (%.2f rps, burst %d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
			logger.Infof("rate limiter: in-memory token bucket (%.2f rps, burst %d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	handlers.RegisterHealth(r, startTime, checks)
	handlers.RegisterSwagger(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.RegisterDocumentRoutes(r, svc, cfg.Server.MaxBodyBytes)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("jsonstash listening on %s (%d mirrors)", srv.Addr, len(mirrors))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Errorf("server failed: %v", err)
	case <-ctx.Done():
		logger.Infof("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}

// openStore builds the configured repository and loads it. The returned
// check backs the /ready probe.
func openStore(cfg *config.Config) (service.Repository, handlers.Check, error) {
	if cfg.Store.Backend == "memory" {
		logger.Warnf("STORE_BACKEND=memory: documents are lost on restart")
		return repository.NewMemoryRepo(), func(context.Context) error { return nil }, nil
	}

	fr := repository.NewFileRepo(cfg.Store.Dir, cfg.Store.Extension, repository.LoadPolicy(cfg.Store.LoadPolicy))
	report, err := fr.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("loaded %d documents from %s (skipped %d, cleaned %d temp files)",
		report.Loaded, fr.Dir(), len(report.Skipped), report.Cleaned)

	check := func(context.Context) error {
		info, err := os.Stat(fr.Dir())
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", fr.Dir())
		}
		return nil
	}
	return fr, check, nil
}

func mongoCheck(client *mongo.Client) handlers.Check {
	return func(ctx context.Context) error { return client.Ping(ctx, nil) }
}
