package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/blacklist"
	"github.com/GoUserAdmin/GoUserAdmin/internal/config"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db/dsn"
)

const redisPingTimeout = 5 * time.Second

// ErrBlacklistEngineMismatch is returned when a SQL blacklist backend differs from db.gormEngine.
var ErrBlacklistEngineMismatch = errors.New("blacklist backend must match the database engine")

// newBlacklist opens the configured token blacklist. The returned closer may be nil.
func newBlacklist(cfg config.Blacklist, dbCfg config.DB) (blacklist.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.BlacklistMemory, "":
		m := blacklist.NewMemory()

		log.Info().Msg("token blacklist: in-memory")

		return m, m, nil

	case config.BlacklistRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()

			return nil, nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.Redis.Addr, err)
		}

		log.Info().Str("addr", cfg.Redis.Addr).Msg("token blacklist: redis")

		return blacklist.NewRedis(rdb, cfg.Redis.Prefix), rdb, nil

	case config.BlacklistPostgres:
		if dbCfg.GormEngine != config.EnginePostgres {
			return nil, nil, fmt.Errorf("%w: %s != %s", ErrBlacklistEngineMismatch, cfg.Backend, dbCfg.GormEngine)
		}

		s := blacklist.NewStorage(postgres.New(postgres.Config{
			ConnectionURI: dsn.Create(dbCfg),
			Table:         cfg.Table,
		}))

		log.Info().Str("table", cfg.Table).Msg("token blacklist: postgres")

		return s, s, nil

	case config.BlacklistMySQL:
		if dbCfg.GormEngine != config.EngineMySQL {
			return nil, nil, fmt.Errorf("%w: %s != %s", ErrBlacklistEngineMismatch, cfg.Backend, dbCfg.GormEngine)
		}

		s := blacklist.NewStorage(mysql.New(mysql.Config{
			ConnectionURI: dsn.Create(dbCfg),
			Table:         cfg.Table,
		}))

		log.Info().Str("table", cfg.Table).Msg("token blacklist: mysql")

		return s, s, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBlacklistBackend, cfg.Backend)
}
