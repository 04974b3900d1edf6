package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/models"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// saveMaxScript raises each hash field to the given value, never lowers it.
var saveMaxScript = redis.NewScript(`
for i = 1, #ARGV, 2 do
  local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[i]) or '0')
  local val = tonumber(ARGV[i + 1])
  if val > cur then
    redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
  end
end
return 1
`)

// RedisCounterStore keeps counters in one hash per namespace and can hold a
// redislock lock so two generator processes never allocate from the same state.
type RedisCounterStore struct {
	rdb       *redis.Client
	locker    *redislock.Client
	namespace string
	lockTTL   time.Duration
	lock      *redislock.Lock
}

const defaultLockTTL = 10 * time.Minute

// NewRedisCounterStore builds the store. A lockTTL of zero or less uses ten
// minutes; long runs keep the lock alive through Refresh.
func NewRedisCounterStore(rdb *redis.Client, locker *redislock.Client, namespace string, lockTTL time.Duration) *RedisCounterStore {
	if namespace == "" {
		namespace = "synth"
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &RedisCounterStore{
		rdb:       rdb,
		locker:    locker,
		namespace: namespace,
		lockTTL:   lockTTL,
	}
}

func (s *RedisCounterStore) hashKey() string {
	return s.namespace + ":id_counters"
}

func (s *RedisCounterStore) lockKey() string {
	return s.namespace + ":id_counters:lock"
}

func (s *RedisCounterStore) Load(ctx context.Context) (Counters, error) {
	if s.rdb == nil {
		return nil, errors.New("redis client is nil")
	}
	fields, err := s.rdb.HGetAll(ctx, s.hashKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make(Counters, len(fields))
	for key, raw := range fields {
		table, err := models.ParseTableKey(key)
		if err != nil {
			return nil, err
		}
		max, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", key, err)
		}
		out[table] = max
	}
	return out, nil
}

func (s *RedisCounterStore) Save(ctx context.Context, counters Counters) error {
	if s.rdb == nil {
		return errors.New("redis client is nil")
	}
	if len(counters) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(counters)*2)
	for _, table := range counters.Tables() {
		args = append(args, table.String(), strconv.FormatInt(counters[table], 10))
	}
	return saveMaxScript.Run(ctx, s.rdb, []string{s.hashKey()}, args...).Err()
}

// Lock obtains the namespace lock, retrying for up to a minute.
func (s *RedisCounterStore) Lock(ctx context.Context) error {
	if s.locker == nil {
		return errors.New("redis lock not initialized")
	}
	lock, err := s.locker.Obtain(ctx, s.lockKey(), s.lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(time.Second), 60),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("could not obtain counter lock %s: %w", s.lockKey(), err)
	}
	if err != nil {
		return err
	}
	s.lock = lock
	return nil
}

// Refresh extends the held lock by another TTL. A lock that already expired
// cannot be refreshed and the run must not publish.
func (s *RedisCounterStore) Refresh(ctx context.Context) error {
	if s.lock == nil {
		return fmt.Errorf("counter lock %s: %w", s.lockKey(), redislock.ErrLockNotHeld)
	}
	if err := s.lock.Refresh(ctx, s.lockTTL, nil); err != nil {
		return fmt.Errorf("refresh counter lock %s: %w", s.lockKey(), err)
	}
	return nil
}

func (s *RedisCounterStore) Unlock(ctx context.Context) error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Release(ctx)
	s.lock = nil
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
