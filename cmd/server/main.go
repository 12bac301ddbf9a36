package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"updown_backend/internal/app/di"
	"updown_backend/internal/app/router"
	authadapters "updown_backend/internal/feature/auth/adapters"
	authhandler "updown_backend/internal/feature/auth/transport/handler"
	authusecase "updown_backend/internal/feature/auth/usecase"
	guessadapters "updown_backend/internal/feature/guess/adapters"
	guesshandler "updown_backend/internal/feature/guess/transport/handler"
	guessusecase "updown_backend/internal/feature/guess/usecase"
	"updown_backend/internal/feature/market/adapters/binance"
	markethandler "updown_backend/internal/feature/market/transport/handler"
	marketusecase "updown_backend/internal/feature/market/usecase"
	streamhandler "updown_backend/internal/feature/stream/transport/handler"
	streamusecase "updown_backend/internal/feature/stream/usecase"
	infradb "updown_backend/internal/platform/db"
	platformhandler "updown_backend/internal/platform/http/handler"
	jwtpkg "updown_backend/internal/platform/jwt"
	"updown_backend/internal/platform/pricecache"
	infraredis "updown_backend/internal/platform/redis"
	"updown_backend/internal/shared/ratelimiter"
)

const (
	heartbeatInterval = 30 * time.Second
	tokenLifetime     = 24 * time.Hour
	shutdownTimeout   = 10 * time.Second

	// Budget for POST /guess per user. Generous next to the one-active-guess
	// rule; this only blocks hammering.
	guessRateLimit = 30
	guessRateBurst = 5
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if os.Getenv(jwtpkg.EnvKeyJWTSecret) == "" {
		slog.Warn("JWT_SECRET is not set, set a strong secret in production")
	}

	// Postgres holds users and scores; retried internally until reachable.
	db := infradb.OpenDB()

	// Redis carries the price cache and the pending-guess queue, so unlike
	// the feed it is load-bearing: refuse to start without it.
	rdb, err := infraredis.NewRedisClient()
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}()

	cache := pricecache.New(rdb, 0, "")
	hub := streamusecase.NewHub(logger)

	userRepo := authadapters.NewUserPostgres(db)
	queue := guessadapters.NewQueueRedis(rdb, "")
	jwtGen := jwtpkg.NewGenerator(os.Getenv(jwtpkg.EnvKeyJWTSecret), tokenLifetime)

	authUC := authusecase.NewAuthUsecase(userRepo, jwtGen)
	marketUC := marketusecase.NewMarketUsecase(cache, hub, logger)
	guessUC := guessusecase.NewGuessUsecase(userRepo, queue, cache, guessusecase.DefaultHorizon, logger)
	resolver := guessusecase.NewResolver(guessusecase.ResolverConfig{}, queue, cache, userRepo, hub, logger)

	feed := di.NewPriceFeed(binance.TickHandlerFunc(marketUC.HandleTick), logger)

	healthH := platformhandler.NewHealthHandler(
		func(context.Context) bool { return feed.Connected() },
		func(ctx context.Context) bool {
			sqlDB, err := db.DB()
			return err == nil && sqlDB.PingContext(ctx) == nil
		},
		func(ctx context.Context) bool { return rdb.Ping(ctx).Err() == nil },
	)
	authH := authhandler.NewAuthHandler(authUC)
	priceH := markethandler.NewPriceHandler(marketUC)
	guessH := guesshandler.NewGuessHandler(guessUC)
	streamH := streamhandler.NewStreamHandler(hub)

	guessLimiter := ratelimiter.NewUserRateLimiter(guessRateLimit, time.Minute, guessRateBurst)

	r := router.NewRouter(healthH, authH, priceH, guessH, streamH, guessLimiter)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// A dead feed degrades the service but must not kill it: guesses
		// already queued still need resolving against the cached price while
		// it lives, and /healthz reports the condition.
		if err := feed.Run(gctx); errors.Is(err, binance.ErrFeedDown) {
			slog.Error("price feed is down until restart", "error", err)
		}
		return nil
	})
	g.Go(func() error { return resolver.Run(gctx) })
	g.Go(func() error { return hub.RunHeartbeat(gctx, heartbeatInterval) })
	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
