package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisFieldData     = "data"
	redisFieldModified = "mtime"
	redisScanCount     = 1000
)

// Redis stores each session as a hash holding the blob and its last write
// time. A positive ttl makes every write refresh the key expiry.
//
//	Performance: Write is 1 MULTI/EXEC (HSET + EXPIRE); Read is 1 HGET.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedis creates a [Redis] store. prefix sets the key namespace; keys are
// "<prefix>:<id>".
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "sess"
	}
	return &Redis{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Redis) key(id string) string {
	return s.prefix + ":" + id
}

func (s *Redis) Has(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return n > 0, nil
}

func (s *Redis) Read(ctx context.Context, id string) ([]byte, error) {
	data, err := s.redis.HGet(ctx, s.key(id), redisFieldData).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return data, nil
}

func (s *Redis) Write(ctx context.Context, id string, blob []byte) error {
	key := s.key(id)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, redisFieldData, blob, redisFieldModified, s.now().Unix())
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		} else {
			pipe.Persist(ctx, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (s *Redis) LastModified(ctx context.Context, id string) (int64, error) {
	ts, err := s.redis.HGet(ctx, s.key(id), redisFieldModified).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return ts, nil
}

// List scans the key namespace. This is an admin-only O(n) operation and
// must not be used in request hot paths.
func (s *Redis) List(ctx context.Context) ([]string, error) {
	keys, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, s.prefix+":"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Flush deletes every key in the namespace. Deletes are pipelined one key
// per DEL in batches of the scan size, so keys may live on different Cluster
// slots.
func (s *Redis) Flush(ctx context.Context) error {
	keys, err := s.scan(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for start := 0; start < len(keys); start += redisScanCount {
		end := start + redisScanCount
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]
		// One DEL per key: a multi-key DEL fails with CROSSSLOT on Cluster.
		_, err := s.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
			for _, key := range batch {
				p.Del(ctx, key)
			}
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: delete batch %d-%d: %v", ErrBackend, start, end, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Redis) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return time.Since(start), nil
}

// scan returns every key in the namespace. SCAN may repeat keys, so the
// result is de-duplicated.
func (s *Redis) scan(ctx context.Context) ([]string, error) {
	pattern := s.prefix + ":*"
	seen := make(map[string]struct{})
	var (
		cursor uint64
		keys   []string
	)

	for {
		batch, next, err := s.redis.Scan(ctx, cursor, pattern, redisScanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackend, err)
		}
		for _, key := range batch {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
