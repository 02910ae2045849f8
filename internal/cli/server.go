package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-portal/internal/app"
	"quiz-portal/internal/auth"
	"quiz-portal/internal/config"
	"quiz-portal/internal/events"
	"quiz-portal/internal/images"
	"quiz-portal/internal/infra/amqp"
	"quiz-portal/internal/infra/memory"
	redisstore "quiz-portal/internal/infra/redis"
	"quiz-portal/internal/infra/supabase"
	"quiz-portal/internal/logging"
	"quiz-portal/internal/metrics"
	"quiz-portal/internal/movies"
	"quiz-portal/internal/session"
	transport "quiz-portal/internal/transport/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(serviceName, cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	quizTTL, sessionTTL := durations(cfg)
	loader := app.NewQuizLoader(store)
	var quizCache app.QuizCache
	var sessions session.Store
	if redisClient != nil {
		quizCache = redisstore.NewQuizCache(redisClient, loader, quizTTL)
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
	} else {
		quizCache = memory.NewQuizCache(loader, quizTTL)
		sessions = memory.NewSessionStore(sessionTTL)
	}
	if quizTTL <= 0 {
		log.Info("quiz cache disabled")
		quizCache = app.NewDirectQuizCache(loader)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQP.URL != "" {
		p, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	} else {
		log.Info("amqp not configured, domain events stay in process")
	}

	var provider auth.Provider
	switch cfg.Auth.Provider {
	case "supabase":
		provider = supabase.NewProvider(cfg.Auth.URL, cfg.Auth.Key, cfg.Auth.JWTSecret, log, m)
	default:
		secret := cfg.Auth.JWTSecret
		if secret == "" {
			secret = uuid.NewString()
			log.Warn("auth.jwt_secret not set, sessions end on restart")
		}
		provider = memory.NewAuthProvider(secret, cfg.Auth.AutoConfirm)
	}

	hub := events.NewHub()
	rankings := app.NewRankings(store, hub, log)
	quizzes := app.NewQuizService(store, quizCache,
		app.WithRankings(rankings),
		app.WithPublisher(publisher),
		app.WithMetrics(m),
		app.WithLogger(log),
	)

	deps := transport.Deps{
		Quizzes:        quizzes,
		Rankings:       rankings,
		Gateway:        auth.NewGateway(provider, store, hub, cfg.Auth.RedirectURL, log),
		Sessions:       sessions,
		Hub:            hub,
		Metrics:        m,
		Gatherer:       registry,
		Log:            log,
		CookieSecure:   cfg.Server.CookieSecure,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.OMDb.APIKey != "" {
		omdb := movies.NewClient(cfg.OMDb.BaseURL, cfg.OMDb.APIKey, log, m)
		deps.Movies = omdb
		deps.Questions = movies.NewGenerator(omdb)
	} else {
		log.Info("omdb api key not set, movie questions disabled")
	}
	if cfg.Unsplash.AccessKey != "" {
		deps.Images = images.NewClient(cfg.Unsplash.BaseURL, cfg.Unsplash.AccessKey, cfg.Unsplash.UTMSource, log, m)
	} else {
		log.Info("unsplash access key not set, image search disabled")
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewServer(deps).Router(),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz portal")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
