package app

import (
	"context"
	"fmt"
	"net/http"
	"quizprogress/internal/cache"
	"quizprogress/internal/config"
	"quizprogress/internal/logger"
	"quizprogress/internal/repository"
	"quizprogress/internal/service"
	"quizprogress/internal/transport/rest"
	"quizprogress/internal/transport/ws"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const pingTimeout = 5 * time.Second

// App wires the progress store, services and transports together
type App struct {
	Store    cache.Store
	Attempts *service.AttemptService
	Auth     *service.AuthService
	Hub      *ws.Hub
	Handler  http.Handler

	closers []func(context.Context) error
}

// New builds the application from configuration
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	api := service.NewLMSClient(cfg.LMS)
	factory := service.NewReconcilerFactory(store, api, cfg.CheckConcurrency)

	a.Auth = service.NewAuthService(cfg.JWTSecret)
	a.Attempts = service.NewAttemptService(api, factory)

	a.Hub = ws.NewHub()
	a.closers = append(a.closers, func(context.Context) error {
		a.Hub.Close()
		return nil
	})

	// wsHub implements service.Broadcaster
	a.Attempts.SetBroadcaster(a.Hub)

	a.Handler = rest.NewRouter(&rest.Container{
		AuthService:    a.Auth,
		AttemptService: a.Attempts,
		WSHub:          a.Hub,
	}, cfg.CORSAllowedOrigins)

	return a, nil
}

// Close releases connections in reverse order of creation
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// OpenStore connects the configured progress store backend
func OpenStore(ctx context.Context, cfg *config.Config) (cache.Store, func(context.Context) error, error) {
	log := logger.With("app")

	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info("connected to redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL.String())

		return cache.NewRedisStore(rdb, cfg.Redis.TTL), func(context.Context) error {
			return rdb.Close()
		}, nil

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("ping mongo: %w", err)
		}

		repo := repository.NewProgressRepo(client.Database(cfg.Mongo.Database), cfg.Mongo.TTL)
		if err := repo.EnsureIndexes(pingCtx); err != nil {
			client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("ensure progress indexes: %w", err)
		}
		log.Info("connected to mongo", "database", cfg.Mongo.Database, "ttl", cfg.Mongo.TTL.String())

		return repo, client.Disconnect, nil

	case config.BackendMemory:
		log.Warn("using in-memory progress store, records are lost on restart")
		return cache.NewMemoryStore(), func(context.Context) error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
