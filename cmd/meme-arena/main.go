package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"memebid-service/internal/adapters/auth"
	"memebid-service/internal/adapters/broadcaster"
	"memebid-service/internal/adapters/db"
	"memebid-service/internal/adapters/memory"
	"memebid-service/internal/adapters/redis"
	"memebid-service/internal/adapters/rest"
	"memebid-service/internal/adapters/scheduler"
	"memebid-service/internal/adapters/ws"
	"memebid-service/internal/app"
	"memebid-service/internal/config"
	"memebid-service/internal/ports/outbound"
)

// fanout is what the transports need from a broadcaster backend
type fanout interface {
	outbound.Broadcaster
	outbound.ConnectionRegistry
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Meme Arena service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	var repos outbound.Repositories
	if cfg.Database.IsMemory() {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		if cfg.Database.SeedFile != "" {
			if err := store.LoadSeedFile(cfg.Database.SeedFile); err != nil {
				log.Fatal().Err(err).Str("seed_file", cfg.Database.SeedFile).Msg("Failed to seed in-memory storage")
			}
			log.Info().Str("seed_file", cfg.Database.SeedFile).Msg("In-memory storage seeded")
		}
		repos = store.Repositories()
	} else {
		dbConn, err := db.NewConnection(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbConn.Close()

		if cfg.Database.AutoMigrate {
			if err := dbConn.Migrate(ctx); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply database schema")
			}
		}
		repos = db.NewRepositoryFactory(dbConn).GetAllRepositories()
		log.Info().Msg("Database connection established")
	}

	// Fan-out
	hub := broadcaster.NewHub(broadcaster.HubParams{Logger: log.Logger})
	var (
		events      fanout = hub
		redisClient *goredis.Client
	)
	if cfg.UsesRedis() {
		redisClient = redis.NewClient(cfg)
		defer redisClient.Close()
		if err := redis.PingRedis(ctx, redisClient); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis connection established")

		redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
			RedisClient: redisClient,
			Hub:         hub,
			Logger:      log.Logger,
		})
		if err := redisBroadcaster.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start Redis broadcaster")
		}
		defer redisBroadcaster.Close()
		events = redisBroadcaster
		log.Info().Msg("Redis broadcaster initialized")
	}

	// Create business services
	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo: repos.Auctions,
		MemeRepo:    repos.Memes,
		UserRepo:    repos.Users,
		Broadcaster: events,
		Logger:      log.Logger,
	})
	bidService := app.NewBidService(app.BidServiceParams{
		BidRepo:     repos.Bids,
		AuctionRepo: repos.Auctions,
		UserRepo:    repos.Users,
		Broadcaster: events,
		Logger:      log.Logger,
	})
	voteService := app.NewVoteService(app.VoteServiceParams{
		VoteRepo:    repos.Votes,
		Broadcaster: events,
		Logger:      log.Logger,
	})
	competitionService := app.NewCompetitionService(app.CompetitionServiceParams{
		MemeRepo:         repos.Memes,
		CompetitionRepo:  repos.Competitions,
		Broadcaster:      events,
		VotingWindow:     cfg.Competition.VotingWindow,
		SubmissionWindow: cfg.Competition.SubmissionWindow,
		Logger:           log.Logger,
	})
	defer competitionService.Close()
	memeService := app.NewMemeService(app.MemeServiceParams{
		MemeRepo: repos.Memes,
		UserRepo: repos.Users,
		Logger:   log.Logger,
	})

	log.Info().Msg("Business services initialized")

	// Create auction scheduler
	auctionScheduler := scheduler.NewAuctionScheduler(scheduler.AuctionSchedulerParams{
		RedisClient:    redisClient,
		AuctionService: auctionService,
		SweepInterval:  cfg.Auction.SweepInterval,
		Logger:         log.Logger,
	})
	auctionService.SetScheduler(auctionScheduler)
	auctionScheduler.Start()
	log.Info().Msg("Auction scheduler started")

	authenticator := auth.NewAuthenticator(auth.AuthenticatorParams{
		Secret:   cfg.Auth.JWTSecret,
		UserRepo: repos.Users,
		Logger:   log.Logger,
	})

	wsHandler := ws.NewHandler(ws.WsHandlerParams{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin:     originChecker(cfg.Server.CORSAllowedOrigins),
		},
		Authenticator:      authenticator,
		Registry:           events,
		Broadcaster:        events,
		AuctionService:     auctionService,
		BidService:         bidService,
		VoteService:        voteService,
		CompetitionService: competitionService,
		Logger:             log.Logger,
	})

	router := rest.NewRouter(rest.RouterParams{
		Handler: rest.NewHandler(rest.HandlerParams{
			AuctionService:     auctionService,
			BidService:         bidService,
			VoteService:        voteService,
			CompetitionService: competitionService,
			MemeService:        memeService,
			UserService:        memeService,
			Logger:             log.Logger,
		}),
		Authenticator:  authenticator,
		WebSocket:      wsHandler,
		AdminKey:       cfg.Auth.AdminAPIKey,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Logger:         log.Logger,
	})

	server := rest.NewServer(rest.ServerParams{
		Config:  cfg,
		Handler: router,
		Logger:  log.Logger,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start HTTP server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	auctionScheduler.Stop()
	log.Info().Msg("Auction scheduler stopped")

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	}
	log.Info().Int("clients", wsHandler.GetConnectedClients()).Msg("Closing WebSocket connections")
	wsHandler.CloseAll()

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}

// originChecker accepts WebSocket upgrades from the configured CORS origins
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
