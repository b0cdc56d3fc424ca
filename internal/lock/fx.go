package lock

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLocker picks the lock backend: Redis when configured, otherwise the
// in-process locker.
func NewLocker(cfg config.Config, log *zap.Logger) TryLocker {
	if cfg.RedisAddr == "" {
		log.Warn("no redis configured, using in-process transaction lock (single instance only)")
		return NewMemoryLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return NewRedisLocker(client)
}

var Module = fx.Module("lock",
	fx.Provide(NewLocker),
)
