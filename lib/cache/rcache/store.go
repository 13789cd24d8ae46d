package rcache

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
	"sort"
	"strings"
	"time"
)

var log = logger.GetLogger("cache")

// defaultPollInterval bounds a single server side BZPOPMAX call so that a cancelled context is
// noticed while the caller is otherwise blocked indefinitely.
const defaultPollInterval = 2 * time.Second

// Options configures the Redis backed store
type Options struct {
	URL          string        // redis://[:password@]host:port/db
	PollInterval time.Duration // Upper bound of a single blocking pop (0 = default)
}

type storeImpl struct {
	client       redis.UniversalClient
	pollInterval time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a PING.
func NewRedisStore(ctx context.Context, opts Options) (cache.ICacheStore, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", redisOpts.Addr, err)
	}
	log.Infof("connected to redis at %s (db %d)", redisOpts.Addr, redisOpts.DB)

	return NewRedisStoreFromClient(client, opts.PollInterval), nil
}

// NewRedisStoreFromClient wraps an existing client. The store takes ownership of the client.
func NewRedisStoreFromClient(client redis.UniversalClient, pollInterval time.Duration) cache.ICacheStore {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &storeImpl{
		client:       client,
		pollInterval: pollInterval,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// wrap converts driver errors into cache errors where a code applies
func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if strings.HasPrefix(err.Error(), "WRONGTYPE") {
		return cache.NewError(cache.RetCWrongType, fmt.Sprintf("%s %q: %v", op, key, err))
	}
	if errors.Is(err, redis.ErrClosed) {
		return cache.NewError(cache.RetCClosed, err.Error())
	}
	return fmt.Errorf("redis %s %q: %w", op, key, err)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache.ICacheStore)
// --------------------------------------------------------------------------

func (s *storeImpl) SetE(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return wrap("set", key, s.client.Set(ctx, key, value, ttl).Err())
}

func (s *storeImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", key, err)
	}
	return value, true, nil
}

func (s *storeImpl) Delete(ctx context.Context, key string) error {
	return wrap("del", key, s.client.Del(ctx, key).Err())
}

func (s *storeImpl) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, wrap("exists", key, err)
	}
	return n > 0, nil
}

func (s *storeImpl) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		n, err := s.client.Del(ctx, key).Result()
		return n > 0, wrap("del", key, err)
	}
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	return ok, wrap("expire", key, err)
}

func (s *storeImpl) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, wrap("pttl", key, err)
	}
	// -2: missing key, -1: no expiry
	switch {
	case ttl == -2 || ttl == -2*time.Millisecond:
		return 0, false, nil
	case ttl < 0:
		return 0, true, nil
	default:
		return ttl, true, nil
	}
}

func (s *storeImpl) ZAdd(ctx context.Context, key string, member string, score float64) error {
	return wrap("zadd", key, s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err())
}

func (s *storeImpl) BZPopMax(ctx context.Context, key string) (string, float64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		res, err := s.client.BZPopMax(ctx, s.pollInterval, key).Result()
		if errors.Is(err, redis.Nil) {
			// poll interval elapsed without a member, keep blocking
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", 0, ctxErr
			}
			return "", 0, wrap("bzpopmax", key, err)
		}
		return fmt.Sprint(res.Member), res.Score, nil
	}
}

func (s *storeImpl) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	return n, wrap("zcard", key, err)
}

func (s *storeImpl) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return wrap("hset", key, s.client.HSet(ctx, key, args...).Err())
}

func (s *storeImpl) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	set, err := s.client.HSetNX(ctx, key, field, value).Result()
	return set, wrap("hsetnx", key, err)
}

func (s *storeImpl) HGet(ctx context.Context, key, field string) (string, bool, error) {
	value, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("hget", key, err)
	}
	return value, true, nil
}

func (s *storeImpl) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrap("hgetall", key, err)
	}
	return fields, nil
}

// Keys uses SCAN instead of KEYS so a large keyspace does not block the server.
func (s *storeImpl) Keys(ctx context.Context, pattern string) ([]string, error) {
	// SCAN may return a key more than once
	seen := make(map[string]struct{})
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 256).Iterator()
	for iter.Next(ctx) {
		if _, dup := seen[iter.Val()]; dup {
			continue
		}
		seen[iter.Val()] = struct{}{}
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("scan", pattern, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *storeImpl) Close() error {
	return s.client.Close()
}
