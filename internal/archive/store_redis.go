package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyResults = "chessroom:results"
	keyResult  = "chessroom:result:"
	ttlResult  = 7 * 24 * time.Hour
)

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to the Redis instance named by redisURL
// (redis://[user:pass@]host:port[/db]) and pings it once.
func NewRedisStore(redisURL string) (Store, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisStore{rdb: rdb}, nil
}

func (s *redisStore) SaveResult(ctx context.Context, res *Result) error {
	if res == nil {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	key := keyResult + strings.TrimSpace(res.RoomCode)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, raw, ttlResult)
	pipe.LPush(ctx, keyResults, key)
	pipe.LTrim(ctx, keyResults, 0, 999)
	pipe.Expire(ctx, keyResults, ttlResult)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *redisStore) RecentResults(ctx context.Context, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 20
	}
	keys, err := s.rdb.LRange(ctx, keyResults, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Result, 0, len(keys))
	for _, key := range keys {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue // expired entry still indexed
		}
		if err != nil {
			return nil, err
		}
		var res Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
