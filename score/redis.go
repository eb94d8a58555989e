package score

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// memberSep splits the name from the unique suffix of a sorted set member
// NUL sorts below any printable byte, so equal scores order by name
const memberSep = "\x00"

// RedisStore keeps the list in a redis sorted set
// Members are name plus a unique suffix so the same name can hold several entries
type RedisStore struct {
	Client *redis.Client
	key    string
	size   int
}

func NewRedisStore(client *redis.Client, key string, size int) *RedisStore {
	if size <= 0 {
		size = DefaultSize
	}
	return &RedisStore{Client: client, key: key, size: size}
}

func (s *RedisStore) Key() string { return s.key }

func (s *RedisStore) Add(ctx context.Context, score int64, name string) error {
	name, err := validName(name)
	if err != nil {
		return err
	}
	member := name + memberSep + uuid.NewString()

	pipe := s.Client.TxPipeline()
	pipe.ZAdd(ctx, s.key, redis.Z{Score: float64(score), Member: member})
	// Keep the best size entries, ranks are ascending so trim from the bottom
	pipe.ZRemRangeByRank(ctx, s.key, 0, int64(-s.size-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrapf(err, "add score to %s", s.key)
	}
	return nil
}

func (s *RedisStore) Top(ctx context.Context, n int) ([]Entry, error) {
	stop := int64(n) - 1
	if n < 0 {
		stop = -1
	}
	if n == 0 {
		return []Entry{}, nil
	}
	zs, err := s.Client.ZRevRangeWithScores(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, eris.Wrapf(err, "read scores from %s", s.key)
	}
	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, eris.Errorf("unexpected member %v in %s", z.Member, s.key)
		}
		name, _, _ := strings.Cut(member, memberSep)
		entries = append(entries, Entry{Score: int64(z.Score), Name: name})
	}
	// Redis already orders ties by member, the stable sort only guards the name rule
	Sort(entries)
	return entries, nil
}
