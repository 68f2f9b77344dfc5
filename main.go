package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/xpulse-cards/internal/auth"
	"github.com/Billy-Davies-2/xpulse-cards/internal/catalog"
	"github.com/Billy-Davies-2/xpulse-cards/internal/clickhouse"
	"github.com/Billy-Davies-2/xpulse-cards/internal/command"
	"github.com/Billy-Davies-2/xpulse-cards/internal/config"
	"github.com/Billy-Davies-2/xpulse-cards/internal/dal"
	"github.com/Billy-Davies-2/xpulse-cards/internal/discord"
	grpcserver "github.com/Billy-Davies-2/xpulse-cards/internal/grpc"
	"github.com/Billy-Davies-2/xpulse-cards/internal/handlers"
	"github.com/Billy-Davies-2/xpulse-cards/internal/lock"
	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
	"github.com/Billy-Davies-2/xpulse-cards/internal/mocks"
	"github.com/Billy-Davies-2/xpulse-cards/internal/progression"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
)

// analyticsConsumer is the durable JetStream consumer feeding ClickHouse
const analyticsConsumer = "card-analytics"

// eventBus is implemented by the NATS, embedded NATS and mock buses
type eventBus interface {
	pubsub.Upstream
	SubscribeJetStream(consumerName string, handler func(pubsub.Event)) error
	Close()
}

// analyticsStore is implemented by the ClickHouse client and its mock
type analyticsStore interface {
	clickhouse.Sink
	command.Leaderboard
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger first
	logger.Init(cfg.LogLevel)
	logger.Info("Starting xpulse card bot", "environment", cfg.Environment)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg)
	defer store.Close()

	locker := openLocker(cfg)

	bus := openEventBus(cfg)
	defer bus.Close()
	ps := pubsub.NewWithUpstream(bus)

	analytics := openAnalytics(cfg)
	defer analytics.Close()
	recorderDone := startRecorder(ctx, bus, analytics)

	engine := progression.New(store, catalog.DefaultCards(), catalog.DefaultWorks(),
		progression.WithLocker(locker),
		progression.WithPublisher(ps),
		progression.WithTimeout(cfg.StorageTimeout),
	)
	dispatcher := command.NewDispatcher(engine, cfg.CommandPrefix, cfg.AdminUserIDs, analytics)
	authProvider := openAuth(cfg)

	// Start gRPC server in a goroutine
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcserver.UnaryAuthInterceptor(authProvider)),
		grpc.StreamInterceptor(grpcserver.StreamAuthInterceptor(authProvider)),
	)
	grpcserver.RegisterCardServiceServer(grpcServer, grpcserver.NewServer(dispatcher, engine, ps))
	go func() {
		lis, err := net.Listen("tcp", "0.0.0.0:"+cfg.GRPCPort)
		if err != nil {
			logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
			log.Fatalf("Failed to listen for gRPC: %v", err)
		}

		logger.Info("gRPC server starting", "address", "0.0.0.0:"+cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	// Set up HTTP routes
	mux := http.NewServeMux()
	auth.Register(mux, authProvider)
	handlers.NewAPIHandlers(dispatcher, engine, analytics, ps, authProvider).Register(mux)

	health := handlers.NewHealthHandlers()
	health.AddCheck("database", true, engine.Ping)
	health.AddCheck("clickhouse", false, analytics.Ping)
	health.Register(mux)

	var bot *discord.Bot
	if cfg.DiscordToken != "" {
		bot, err = discord.New(cfg.DiscordToken, dispatcher, discord.NewRenderer(engine.Cards()), cfg.StorageTimeout)
		if err != nil {
			logger.Error("Failed to create Discord bot", "error", err)
			log.Fatalf("Failed to create Discord bot: %v", err)
		}
		if err := bot.Open(); err != nil {
			logger.Error("Failed to connect Discord bot", "error", err)
			log.Fatalf("Failed to connect Discord bot: %v", err)
		}
	} else {
		logger.Info("DISCORD_TOKEN not set, chat bot disabled")
	}

	addr := "0.0.0.0:" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end on shutdown so SSE streams return
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		logger.Info("Server starting", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	if bot != nil {
		if err := bot.Close(); err != nil {
			logger.Warn("Failed to close Discord session", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	grpcServer.Stop()

	select {
	case <-recorderDone:
	case <-shutdownCtx.Done():
		logger.Warn("Analytics recorder did not flush before shutdown deadline")
	}
}

func openStore(cfg *config.Config) dal.ProfileDAL {
	switch cfg.DBDriver {
	case "memory":
		logger.Info("Using in-memory profile store")
		return dal.NewMemoryDAL()
	case "sqlite":
		store, err := dal.NewSQLiteDAL(cfg.SQLiteFile)
		if err != nil {
			logger.Error("Failed to initialize SQLite", "error", err)
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		logger.Info("Connected to SQLite database", "file", cfg.SQLiteFile)
		return store
	case "postgres":
		if cfg.DatabaseURL == "" {
			// Validate only lets this through in development
			store, err := mocks.NewMockPostgresDAL(cfg.SQLiteFile)
			if err != nil {
				logger.Error("Failed to initialize mock Postgres", "error", err)
				log.Fatalf("Failed to initialize mock Postgres: %v", err)
			}
			return store
		}
		store, err := dal.NewPostgresDAL(cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to initialize Postgres", "error", err)
			log.Fatalf("Failed to initialize Postgres: %v", err)
		}
		logger.Info("Connected to Postgres database")
		return store
	default:
		log.Fatalf("Unknown DB_DRIVER: %s (valid: memory, sqlite, postgres)", cfg.DBDriver)
		return nil
	}
}

// openAuth uses mock logins in development and Discord OAuth2 otherwise
func openAuth(cfg *config.Config) auth.Provider {
	if cfg.IsDevelopment() && cfg.DiscordClientID == "" {
		logger.Warn("Using mock authentication for local development, /auth/login?user=<id> signs in as anyone")
		return auth.NewMockAuth(cfg.SessionTTL)
	}

	logger.Info("Using Discord OAuth2 authentication", "redirect_url", cfg.DiscordRedirectURL)
	return auth.NewDiscordAuth(&auth.DiscordConfig{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordRedirectURL,
		SessionTTL:   cfg.SessionTTL,
		Secure:       !cfg.IsDevelopment(),
	})
}

func openLocker(cfg *config.Config) lock.Manager {
	if cfg.LockBackend != "redis" {
		return lock.NewLocalLock()
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err, "address", cfg.RedisAddr)
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	logger.Info("Using Redis profile locks", "address", cfg.RedisAddr, "ttl", cfg.LockTTL)
	return lock.NewRedisLock(client, cfg.LockTTL, cfg.LockRetries, cfg.LockBackoff)
}

// openEventBus picks embedded NATS in development and real NATS JetStream in
// production. EVENT_BUS=memory skips NATS entirely.
func openEventBus(cfg *config.Config) eventBus {
	switch cfg.EventBus {
	case "memory":
		return mocks.NewMockNATSPubSub()
	case "embedded":
		logger.Info("Starting embedded NATS server for local development")
		opts := pubsub.DefaultEmbeddedNATSOptions()
		opts.Subject = cfg.NATSSubject
		embedded, err := pubsub.NewEmbeddedNATSPubSub(opts)
		if err != nil {
			logger.Error("Failed to initialize embedded NATS", "error", err)
			log.Fatalf("Failed to initialize embedded NATS: %v", err)
		}
		logger.Info("Embedded NATS server ready", "url", embedded.GetServerURL())
		return embedded
	default:
		logger.Info("Using real NATS JetStream for production")
		bus, err := pubsub.NewNATSPubSub(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Error("Failed to initialize NATS", "error", err)
			log.Fatalf("Failed to initialize NATS: %v", err)
		}
		logger.Info("Connected to NATS", "url", cfg.NATSURL)
		return bus
	}
}

func openAnalytics(cfg *config.Config) analyticsStore {
	if cfg.ClickHouseAddr == "" {
		logger.Info("Using mock ClickHouse for local development (no ClickHouse server required)")
		return mocks.NewMockClickHouseClient()
	}

	client, err := clickhouse.NewClient(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePassword)
	if err != nil {
		logger.Error("Failed to initialize ClickHouse", "error", err, "address", cfg.ClickHouseAddr)
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	logger.Info("Connected to ClickHouse", "address", cfg.ClickHouseAddr, "database", cfg.ClickHouseDB)
	return client
}

// startRecorder feeds the durable analytics consumer into a batching
// recorder. The returned channel closes once the last batch is flushed.
func startRecorder(ctx context.Context, bus eventBus, sink clickhouse.Sink) <-chan struct{} {
	events := make(chan pubsub.Event, 256)
	done := make(chan struct{})

	err := bus.SubscribeJetStream(analyticsConsumer, func(e pubsub.Event) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	})
	if err != nil {
		logger.Error("Failed to attach analytics consumer", "error", err)
		log.Fatalf("Failed to attach analytics consumer: %v", err)
	}

	go func() {
		defer close(done)
		clickhouse.NewRecorder(sink, 0, 0).Run(ctx, events)
	}()
	return done
}
