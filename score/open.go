package score

import (
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/lixenwraith/yaa/config"
)

// Open builds the store selected by cfg, the returned func releases its connection
func Open(cfg config.ScoreConfig) (Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.Path, cfg.Size), func() error { return nil }, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisStore(client, cfg.RedisKey, cfg.Size), client.Close, nil
	}
	return nil, nil, eris.Errorf("unknown score backend %q", cfg.Backend)
}
