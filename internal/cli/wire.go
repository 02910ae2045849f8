package cli

import (
	"context"
	"fmt"
	"time"

	"quiz-portal/internal/app"
	"quiz-portal/internal/config"
	"quiz-portal/internal/infra/memory"
	"quiz-portal/internal/infra/postgres"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
)

const serviceName = "quiz-portal"

// openStore connects the Postgres row store, or falls back to an in-memory
// store when no database is configured. The returned func releases the pool.
func openStore(ctx context.Context, cfg config.Config, log *logrus.Entry) (app.Store, func(), error) {
	if cfg.Postgres.URL == "" {
		log.Warn("postgres not configured, data is kept in memory only")
		return memory.NewStore(), func() {}, nil
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return postgres.NewStore(pool), pool.Close, nil
}

// requireDatabase guards operator commands that are pointless against an
// in-memory store living only for one process.
func requireDatabase(cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	return nil
}

func durations(cfg config.Config) (quizTTL, sessionTTL time.Duration) {
	quizTTL = config.TTLDuration(cfg.Quiz.CacheTTL, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	sessionTTL = config.TTLDuration(cfg.Session.TTL, 30*24*time.Hour)
	return quizTTL, sessionTTL
}
