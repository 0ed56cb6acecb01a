package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyReady   = "notify:queue:ready"   // zset: readyScore(priority, seq)
	keyDelayed = "notify:queue:delayed" // zset: ready_at 毫秒时间戳
	keyActive  = "notify:queue:active"  // zset: 租约到期毫秒时间戳
	keySeq     = "notify:queue:seq"
	keyJob     = "notify:queue:job:" // hash per job
)

// Redis 生产队列实现。三个 zset 承载任务状态：
// delayed（未就绪）→ ready（按优先级+入队序）→ active（租约内不可见）。
// 任务本体存 hash，重试计数随 hash 持久化。
type Redis struct {
	client      *goredis.Client
	backoffBase time.Duration
	lease       time.Duration
	logger      *zap.Logger
}

func NewRedis(client *goredis.Client, backoffBase, lease time.Duration, logger *zap.Logger) *Redis {
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &Redis{
		client:      client,
		backoffBase: backoffBase,
		lease:       lease,
		logger:      logger,
	}
}

func (q *Redis) Enqueue(ctx context.Context, kind string, payload any, opts Options) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal payload: %w", err)
	}

	seq, err := q.client.Incr(ctx, keySeq).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: next seq: %w", err)
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	now := time.Now()
	job := &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		Priority:    opts.Priority,
		ReadyAt:     now.Add(opts.Delay),
		EnqueuedAt:  now,
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, keyJob+job.ID, map[string]any{
		"kind":         job.Kind,
		"payload":      string(raw),
		"attempts":     0,
		"max_attempts": maxAttempts,
		"priority":     opts.Priority,
		"seq":          seq,
		"ready_at":     job.ReadyAt.UnixMilli(),
		"enqueued_at":  now.UnixMilli(),
	})
	if opts.Delay > 0 {
		pipe.ZAdd(ctx, keyDelayed, goredis.Z{Score: float64(job.ReadyAt.UnixMilli()), Member: job.ID})
	} else {
		pipe.ZAdd(ctx, keyReady, goredis.Z{Score: readyScore(opts.Priority, seq), Member: job.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queue: enqueue: %w", err)
	}
	return job, nil
}

func (q *Redis) Dequeue(ctx context.Context, workerID string) (*Job, error) {
	now := time.Now()

	if err := q.promoteDelayed(ctx, now); err != nil {
		return nil, err
	}
	if err := q.reclaimExpired(ctx, now); err != nil {
		return nil, err
	}

	members, err := q.client.ZPopMin(ctx, keyReady, 1).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: dequeue zpopmin: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	jobID, ok := members[0].Member.(string)
	if !ok {
		return nil, fmt.Errorf("queue: unexpected member type %T", members[0].Member)
	}

	lease := now.Add(q.lease)
	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, keyActive, goredis.Z{Score: float64(lease.UnixMilli()), Member: jobID})
	pipe.HSet(ctx, keyJob+jobID, "worker_id", workerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queue: dequeue lease: %w", err)
	}

	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			// hash 已被并发删除（ack/耗尽），吞掉这次出队
			q.client.ZRem(ctx, keyActive, jobID)
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (q *Redis) Ack(ctx context.Context, jobID string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, keyActive, jobID)
	delCmd := pipe.Del(ctx, keyJob+jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue: ack: %w", err)
	}
	if delCmd.Val() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (q *Redis) Fail(ctx context.Context, jobID string, cause error) (bool, error) {
	attempts, err := q.client.HIncrBy(ctx, keyJob+jobID, "attempts", 1).Result()
	if err != nil {
		return false, fmt.Errorf("queue: fail incr attempts: %w", err)
	}

	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		return false, err
	}

	if int(attempts) >= job.MaxAttempts {
		// 重试预算耗尽：直接丢弃，不保留死信
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, keyActive, jobID)
		pipe.Del(ctx, keyJob+jobID)
		if _, err := pipe.Exec(ctx); err != nil {
			return false, fmt.Errorf("queue: drop exhausted: %w", err)
		}
		q.logger.Warn("Job exhausted retry budget, dropped",
			zap.String("job_id", jobID),
			zap.String("kind", job.Kind),
			zap.Int64("attempts", attempts),
			zap.NamedError("cause", cause),
		)
		return false, nil
	}

	readyAt := time.Now().Add(Backoff(q.backoffBase, int(attempts)))
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, keyActive, jobID)
	pipe.HSet(ctx, keyJob+jobID, "ready_at", readyAt.UnixMilli())
	pipe.ZAdd(ctx, keyDelayed, goredis.Z{Score: float64(readyAt.UnixMilli()), Member: jobID})
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("queue: reschedule: %w", err)
	}

	q.logger.Info("Job rescheduled after failure",
		zap.String("job_id", jobID),
		zap.String("kind", job.Kind),
		zap.Int64("attempt", attempts),
		zap.Time("ready_at", readyAt),
		zap.NamedError("cause", cause),
	)
	return true, nil
}

func (q *Redis) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.TxPipeline()
	ready := pipe.ZCard(ctx, keyReady)
	delayed := pipe.ZCard(ctx, keyDelayed)
	active := pipe.ZCard(ctx, keyActive)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue: stats: %w", err)
	}
	return Stats{
		Waiting: ready.Val() + delayed.Val(),
		Active:  active.Val(),
	}, nil
}

// promoteDelayed 把到点的延迟任务移入就绪集合
func (q *Redis) promoteDelayed(ctx context.Context, now time.Time) error {
	due, err := q.client.ZRangeByScore(ctx, keyDelayed, &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("queue: promote scan: %w", err)
	}

	for _, jobID := range due {
		fields, err := q.client.HMGet(ctx, keyJob+jobID, "priority", "seq").Result()
		if err != nil {
			return fmt.Errorf("queue: promote load: %w", err)
		}
		priority := hashInt(fields[0])
		seq := int64(hashInt(fields[1]))

		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, keyDelayed, jobID)
		pipe.ZAdd(ctx, keyReady, goredis.Z{Score: readyScore(priority, seq), Member: jobID})
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("queue: promote move: %w", err)
		}
	}
	return nil
}

// reclaimExpired 把租约过期的 active 任务放回就绪集合。
// attempt 不递增：worker 崩溃不消耗重试预算。
func (q *Redis) reclaimExpired(ctx context.Context, now time.Time) error {
	expired, err := q.client.ZRangeByScore(ctx, keyActive, &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("queue: reclaim scan: %w", err)
	}

	for _, jobID := range expired {
		fields, err := q.client.HMGet(ctx, keyJob+jobID, "priority", "seq").Result()
		if err != nil {
			return fmt.Errorf("queue: reclaim load: %w", err)
		}
		priority := hashInt(fields[0])
		seq := int64(hashInt(fields[1]))

		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, keyActive, jobID)
		pipe.ZAdd(ctx, keyReady, goredis.Z{Score: readyScore(priority, seq), Member: jobID})
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("queue: reclaim move: %w", err)
		}
		q.logger.Warn("Reclaimed job with expired lease",
			zap.String("job_id", jobID),
		)
	}
	return nil
}

func (q *Redis) loadJob(ctx context.Context, jobID string) (*Job, error) {
	fields, err := q.client.HGetAll(ctx, keyJob+jobID).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: load job: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}

	attempts, _ := strconv.Atoi(fields["attempts"])
	maxAttempts, _ := strconv.Atoi(fields["max_attempts"])
	priority, _ := strconv.Atoi(fields["priority"])
	readyAt, _ := strconv.ParseInt(fields["ready_at"], 10, 64)
	enqueuedAt, _ := strconv.ParseInt(fields["enqueued_at"], 10, 64)

	return &Job{
		ID:          jobID,
		Kind:        fields["kind"],
		Payload:     json.RawMessage(fields["payload"]),
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		Priority:    priority,
		ReadyAt:     time.UnixMilli(readyAt),
		EnqueuedAt:  time.UnixMilli(enqueuedAt),
	}, nil
}

func hashInt(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
