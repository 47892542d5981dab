package cli

import (
	"context"
	"fmt"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/bunkv"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/postgres"
	infraredis "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/infra/sqlite"
	"trivia-quiz-service/internal/localpool"
	"trivia-quiz-service/internal/opentdb"
	"trivia-quiz-service/internal/prefs"
	"trivia-quiz-service/internal/scores"
	"trivia-quiz-service/internal/stats"
	"trivia-quiz-service/internal/storage"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// deps holds every collaborator a command may need, built from config.
type deps struct {
	cfg    config.Config
	log    *logrus.Logger
	redis  *redis.Client
	store  storage.Store
	remote *opentdb.Client
	pool   *localpool.Pool
	ledger *scores.Ledger
	stats  *stats.Aggregator
	prefs  *prefs.Store

	closers []func()
}

func newDeps(ctx context.Context, configPath string) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	rt := &deps{cfg: cfg, log: config.NewLogger(cfg)}

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = rt.redis.Close() })
	}

	if err := rt.openStore(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.openBank(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	rt.remote = opentdb.NewClient(opentdb.Config{
		BaseURL:        cfg.Provider.BaseURL,
		MinInterval:    config.Duration(cfg.Provider.MinInterval, opentdb.DefaultMinInterval),
		Timeout:        config.Duration(cfg.Provider.Timeout, opentdb.DefaultTimeout),
		BaseDelay:      config.Duration(cfg.Provider.BaseDelay, opentdb.DefaultBaseDelay),
		RateLimitDelay: config.Duration(cfg.Provider.RateLimitDelay, opentdb.DefaultRateLimitDelay),
	}, rt.log)

	fallbackSource, err := domain.ParseSourceMode(cfg.Quiz.Source)
	if err != nil {
		fallbackSource = domain.SourceRemote
	}
	rt.ledger = scores.NewLedger(rt.store, rt.log)
	rt.stats = stats.NewAggregator(rt.store, rt.log)
	rt.prefs = prefs.NewStore(rt.store, fallbackSource, rt.log)
	return rt, nil
}

func (rt *deps) openStore(ctx context.Context) error {
	cfg := rt.cfg
	log := rt.log.WithField("backend", cfg.Store.Backend)

	switch cfg.Store.Backend {
	case "memory":
		rt.store = memory.NewKVStore()
	case "sqlite":
		kv, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		rt.store = kv
		rt.closers = append(rt.closers, func() { _ = kv.Close() })
	case "redis":
		if rt.redis == nil {
			return fmt.Errorf("store backend redis requires redis.addr")
		}
		rt.store = infraredis.NewKVStore(rt.redis)
	case "postgres":
		if cfg.Postgres.URL == "" {
			return fmt.Errorf("store backend postgres requires postgres.url")
		}
		db := postgres.OpenBun(cfg.Postgres.URL)
		rt.closers = append(rt.closers, func() { _ = db.Close() })
		if _, err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		rt.store = bunkv.NewKVStore(db)
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	log.Debug("store opened")
	return nil
}

func (rt *deps) openBank(ctx context.Context) error {
	cfg := rt.cfg
	ttl := config.Duration(cfg.Bank.TTL, 10*time.Minute)

	var loader memory.BankLoader
	switch cfg.Bank.Source {
	case "embedded":
		loader = localpool.NewEmbeddedBank()
	case "postgres":
		if cfg.Postgres.URL == "" {
			return fmt.Errorf("bank source postgres requires postgres.url")
		}
		pgPool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pgPool.Close)
		loader = postgres.NewQuestionLoader(pgPool)
	default:
		return fmt.Errorf("unknown bank source %q", cfg.Bank.Source)
	}

	if rt.redis != nil {
		rt.pool = localpool.NewPool(infraredis.NewBankCache(rt.redis, loader, ttl))
	} else {
		rt.pool = localpool.NewPool(memory.NewBankRepository(loader, ttl))
	}
	return nil
}

// sessionRepository picks where live sessions are registered.
func (rt *deps) sessionRepository() app.SessionRepository {
	if rt.redis != nil {
		return infraredis.NewSessionStore(rt.redis, config.Duration(rt.cfg.Redis.TTL, 10*time.Minute))
	}
	return memory.NewSessionStore()
}

func (rt *deps) recorder() *app.ResultRecorder {
	return app.NewResultRecorder(rt.ledger, rt.stats, rt.log)
}

// defaultOptions are the configured quiz defaults with the saved source preference applied.
func (rt *deps) defaultOptions(ctx context.Context) domain.SessionOptions {
	difficulty, err := domain.ParseDifficulty(rt.cfg.Quiz.Difficulty)
	if err != nil {
		rt.log.WithError(err).Warn("ignoring configured difficulty")
	}
	return domain.SessionOptions{
		Count:            rt.cfg.Quiz.Count,
		Difficulty:       difficulty,
		TimeLimitSeconds: rt.cfg.Quiz.TimeLimitSeconds,
		Source:           rt.prefs.Source(ctx),
	}
}

func (rt *deps) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
