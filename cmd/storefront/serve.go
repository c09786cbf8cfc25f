package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/assets"
	"github.com/Mohaabaprint/Teetot-Print/internal/auth"
	"github.com/Mohaabaprint/Teetot-Print/internal/cache"
	"github.com/Mohaabaprint/Teetot-Print/internal/cart"
	"github.com/Mohaabaprint/Teetot-Print/internal/checkout"
	h "github.com/Mohaabaprint/Teetot-Print/internal/http"
	"github.com/Mohaabaprint/Teetot-Print/internal/imaging"
	"github.com/Mohaabaprint/Teetot-Print/internal/publisher"
	"github.com/Mohaabaprint/Teetot-Print/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const slotIdleTTL = 30 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	log.Info("storefront starting", zap.String("port", cfg.HTTPPort))
	var wg sync.WaitGroup

	// Database setup
	repo, err := repository.NewRepository(cfg.DatabasePath, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		return err
	}
	log.Info("database migrations completed", zap.String("path", cfg.DatabasePath))

	// Cart cache
	var cartCache cache.CartCache = cache.Nop{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return err
		}
		log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		cartCache = cache.NewRedisCache(redisClient)
	}

	// Images
	var mirror assets.Mirror = assets.Nop{}
	if cfg.CloudinaryURL != "" {
		cld, err := assets.NewCloudinary(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			return err
		}
		mirror = cld
		log.Info("catalog images mirrored to cloudinary", zap.String("folder", cfg.CloudinaryFolder))
	}
	slots := imaging.NewSlots(imaging.NewNormalizer(), slotIdleTTL)
	defer slots.Close()
	images := assets.NewLibrary(slots, repo, mirror, log)

	carts := cart.NewCartService(repo, cartCache, repo, repo, log)
	checkouts := checkout.NewCheckoutService(carts, repo, repo, log)

	// Admin sessions
	if cfg.AdminPasswordHash == "" {
		log.Warn("ADMIN_PASSWORD_HASH is not set, admin login is disabled")
	}
	sessions := auth.NewSessionStore(cfg.AdminSessionTTL)
	defer sessions.Close()
	authn := auth.NewAuthenticator(cfg.AdminPasswordHash, sessions)

	// Order events
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()
	var poller *publisher.OutboxPoller
	if len(cfg.KafkaBrokers) > 0 {
		poller = publisher.NewOutboxPoller(repo, log, cfg.KafkaTopic, cfg.KafkaBrokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(pollerCtx)
		}()
		log.Info("outbox poller started", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	router := h.NewRouter(h.Deps{
		Store:               repo,
		Carts:               carts,
		Checkout:            checkouts,
		Images:              images,
		Admin:               authn,
		Tokens:              authn,
		Log:                 log,
		RequestTimeout:      cfg.RequestTimeout,
		MaxRequestBodySize:  cfg.MaxRequestBodySize,
		MaxUploadSize:       cfg.MaxUploadSize,
		UploadRatePerMinute: cfg.UploadRatePerMinute,
		UploadBurst:         cfg.UploadBurst,
		WhatsAppNumber:      cfg.WhatsAppNumber,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return run(srv, quit, cfg.ShutdownTimeout, func(ctx context.Context) {
		pollerCancel()
		doneChan := make(chan struct{})
		go func() {
			wg.Wait()
			close(doneChan)
		}()

		select {
		case <-doneChan:
			log.Info("outbox poller stopped cleanly")
		case <-ctx.Done():
			log.Warn("outbox poller didn't stop in time")
		}

		if poller != nil {
			if err := poller.Close(); err != nil {
				log.Warn("failed to close kafka writer", zap.Error(err))
			}
		}
	})
}

// run serves until a signal arrives or the listener fails. Either way the
// server is shut down and drain runs under the shutdown deadline before run
// returns the listener error, if any.
func run(srv *http.Server, quit <-chan os.Signal, shutdownTimeout time.Duration, drain func(context.Context)) error {
	serverErr := make(chan error, 1)
	log.Info("http server listening", zap.String("addr", srv.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-quit:
	case runErr = <-serverErr:
		log.Error("http server failed", zap.Error(runErr))
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	drain(ctx)

	log.Info("server exited")
	return runErr
}
