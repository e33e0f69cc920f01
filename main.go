package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shortreels-web/clients"
	"shortreels-web/config"
	"shortreels-web/controllers"
	"shortreels-web/logger"
	"shortreels-web/middleware"
	"shortreels-web/repository"
	"shortreels-web/routes"
	"shortreels-web/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("[ShortReels] Failed to load config: ", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	// Custom binding validators (prompt word count)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := services.RegisterValidators(v); err != nil {
			logger.Log.Fatal("failed to register validators", zap.Error(err))
		}
	}

	// Session store: redis when configured, in-process otherwise
	var sessions repository.SessionRepository
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Log.Info("connected to Redis")
		sessions = repository.NewRedisSessionRepository(client, cfg.SessionTTL)
	} else {
		logger.Log.Warn("REDIS_URL not set, using in-memory sessions")
		sessions = repository.NewMemorySessionRepository()
	}

	backend := clients.NewBackendClient(cfg.BackendURL, cfg.RequestTimeout)

	generationSvc := services.NewGenerationService(backend, backend.BaseURL(), sessions, logger.Log)
	paymentSvc := services.NewPaymentService(backend, backend.BaseURL(), sessions, cfg.PriceAmount, cfg.PriceCurrency, cfg.CheckoutCallbackURL, logger.Log)

	appCtl := controllers.NewAppController(sessions, generationSvc, paymentSvc, cfg.SessionTTL, logger.Log)
	payCtl := controllers.NewPaymentController(appCtl, paymentSvc, logger.Log)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(logger.Log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimitMiddleware())

	routes.RegisterRoutes(r, appCtl, payCtl)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("server starting", zap.String("port", cfg.Port), zap.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("forced shutdown", zap.Error(err))
	}
}
