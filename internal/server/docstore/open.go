package docstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/server/config"
	red "github.com/redis/go-redis/v9"
)

// Open builds the Store selected by cfg.StoreBackend, runs migrations for
// postgres, checks connectivity and applies cfg.StoreTimeout.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var s Store

	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		s = NewMemoryStore()

	case config.BackendRedis:
		client := red.NewClient(&red.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s = NewRedisStore(client)

	case config.BackendPostgres:
		db, err := OpenPostgres(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		pg := NewPostgresStore(db)
		if err := pg.RunMigrations(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
		s = pg

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	s = WithTimeout(s, cfg.StoreTimeout)

	if _, err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
