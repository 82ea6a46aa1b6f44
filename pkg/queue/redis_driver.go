package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisQueueKey   = "pharmacare:queue:jobs"
	redisDelayedKey = "pharmacare:queue:delayed"
)

// RedisDriver keeps immediate jobs in a list (LPUSH/BRPOP) and delayed jobs
// in a sorted set scored by the Unix time they become due.
type RedisDriver struct {
	rdb    *redis.Client
	cancel context.CancelFunc
}

// NewRedisDriver starts the delayed-job promoter; call Close to stop it.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	ctx, cancel := context.WithCancel(context.Background())
	d := &RedisDriver{rdb: rdb, cancel: cancel}
	go d.promoteDelayedJobs(ctx)
	return d
}

func (d *RedisDriver) Push(payload []byte) error {
	if err := d.rdb.LPush(context.Background(), redisQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop blocks up to 5s for a job; (nil, nil) means nothing was ready.
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	result, err := d.rdb.BRPop(ctx, 5*time.Second, redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (d *RedisDriver) PushDelayed(payload []byte, delay time.Duration) error {
	runAt := float64(time.Now().Add(delay).Unix())
	if err := d.rdb.ZAdd(context.Background(), redisDelayedKey, redis.Z{
		Score:  runAt,
		Member: string(payload),
	}).Err(); err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

// PromoteDue moves every delayed job due at or before now to the main list.
func (d *RedisDriver) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	jobs, err := d.rdb.ZRangeByScore(ctx, redisDelayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil || len(jobs) == 0 {
		return 0, err
	}
	pipe := d.rdb.TxPipeline()
	for _, job := range jobs {
		pipe.ZRem(ctx, redisDelayedKey, job)
		pipe.LPush(ctx, redisQueueKey, job)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("queue/redis: promote: %w", err)
	}
	return len(jobs), nil
}

func (d *RedisDriver) promoteDelayedJobs(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			_, _ = d.PromoteDue(ctx, now)
		}
	}
}

// Close stops the promoter goroutine. The client is owned by the caller.
func (d *RedisDriver) Close() { d.cancel() }
