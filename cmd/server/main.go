package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	rt "github.com/storekit/storekit/modules/realtime"
	"github.com/storekit/storekit/pkg/config"
	"github.com/storekit/storekit/pkg/httpserver"
	"github.com/storekit/storekit/pkg/kv"
	"github.com/storekit/storekit/pkg/logger"
	"github.com/storekit/storekit/pkg/metrics"
	"github.com/storekit/storekit/pkg/mongo"
	"github.com/storekit/storekit/pkg/notifications"
	"github.com/storekit/storekit/pkg/queue"
	gw "github.com/storekit/storekit/pkg/realtime"
	"github.com/storekit/storekit/pkg/redis"
)

type appConfig struct {
	Logger   logger.Config
	Server   httpserver.Config
	Mongo    mongo.Config
	Redis    redis.Config
	Queue    queue.Config
	Realtime rt.Config
}

// taskStorage is what both ends of the queue need from one backend.
type taskStorage interface {
	queue.EnqueuerRepository
	queue.WorkerRepository
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Logger, logger.WithService("storekit"))
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped cleanly")
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	// MongoDB is required: orders, products, users, and notifications
	// all live there.
	db, err := mongo.NewWithDatabase(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Client().Disconnect(disconnectCtx)
	}()

	// Redis is optional: without it the process runs single-instance with
	// in-memory fan-out, cache, and queue.
	var redisClient *goredis.Client
	switch client, err := redis.Connect(ctx, cfg.Redis); {
	case err == nil:
		redisClient = client
		defer redisClient.Close()
	case errors.Is(err, redis.ErrEmptyConnectionURL):
		// single-instance mode
	default:
		return err
	}

	var (
		kvStore      kv.Store
		queueStorage taskStorage
		subsystems   []string
	)
	if redisClient != nil {
		kvStore = kv.NewRedisStore(redisClient)
		queueStorage = queue.NewRedisStorage(redisClient)
		subsystems = append(subsystems, "redis cache", "redis queue", "pubsub relay")
	} else {
		kvStore = kv.NewMemoryStore()
		memStorage := queue.NewMemoryStorage()
		defer memStorage.Close()
		queueStorage = memStorage
		subsystems = append(subsystems, "memory cache", "memory queue")
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	resolver := rt.NewJWTResolver(cfg.Realtime.JWTSecret, rt.NewMongoUserStore(db), log)
	hub := gw.NewHub(resolver,
		gw.WithLogger(log),
		gw.WithBroadcastObserver(m.BroadcastObserver()),
		gw.WithConnectHook(func(*gw.Conn) { m.ConnectionsActive.Inc() }),
		gw.WithDisconnectHook(func(*gw.Conn) { m.ConnectionsActive.Dec() }))
	hub.Rooms().SetObserver(m.RoomObserver())
	defer hub.Close()

	// With Redis present every emit also crosses instances; the relay is
	// the emitter everything else publishes through.
	var emitter gw.Emitter = hub
	var relay *gw.Relay
	if redisClient != nil {
		relay = gw.NewRelay(hub, redisClient, gw.WithRelayLogger(log))
		emitter = relay
	}

	enqueuer, err := queue.NewEnqueuer(queueStorage)
	if err != nil {
		return err
	}
	svc, err := notifications.NewService(
		notifications.NewMongoStorage(db),
		notifications.NewEmitterDeliverer(emitter),
		notifications.WithEnqueuer(enqueuer),
		notifications.WithServiceLogger(log),
	)
	if err != nil {
		return err
	}

	taskObserver := m.TaskObserver()
	worker, err := queue.NewWorker(queueStorage,
		queue.WithWorkerLogger(log),
		queue.WithPollInterval(cfg.Queue.PollInterval),
		queue.WithLockTimeout(cfg.Queue.LockTimeout),
		queue.WithMaxConcurrentTasks(cfg.Queue.MaxConcurrentTasks),
		queue.WithTaskObserver(func(status queue.TaskStatus) {
			taskObserver(string(status))
		}))
	if err != nil {
		return err
	}
	worker.RegisterHandler(svc.SendHandler())

	rt.Register(hub, rt.Deps{
		Emitter:       emitter,
		Orders:        rt.NewMongoOrderStore(db),
		Products:      rt.NewMongoProductStore(db),
		Notifications: svc,
		LastSeen:      rt.NewLastSeen(kvStore, 0, log),
		Logger:        log,
	})

	healthchecks := []func(context.Context) error{mongo.Healthcheck(db.Client())}
	if redisClient != nil {
		healthchecks = append(healthchecks, redis.Healthcheck(redisClient))
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/ws", hub.Accept)
	router.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	router.Get("/readyz", httpserver.HealthCheckHandler(ctx, log, healthchecks...))
	router.Method("GET", "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.Info("starting server",
		slog.String("addr", cfg.Server.Addr),
		slog.String("subsystems", strings.Join(subsystems, ", ")))

	srv := httpserver.New(cfg.Server, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, router) })
	g.Go(worker.Run(gctx))
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return hub.Close()
	})

	return g.Wait()
}
