// Package queue 实现通知任务的持久化队列：支持优先级、延迟可见、
// 可见性租约和有限次指数退避重试。生产实现基于 Redis，内存实现
// 用于测试，两者语义一致。
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrJobNotFound = errors.New("queue: job not found")

	// ErrUnprocessable 标记确定性失败的任务（未知 kind、解不开的
	// payload）。重试不会有不同结果，worker 直接 ack 丢弃。
	ErrUnprocessable = errors.New("queue: job is unprocessable")
)

// Job 队列中的任务信封。Payload 的具体结构由 Kind 决定，
// 编解码在 internal/notify 完成。
type Job struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"` // 数值越大越先出队
	ReadyAt     time.Time       `json:"ready_at"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// Options 入队选项
type Options struct {
	Delay       time.Duration
	Priority    int
	MaxAttempts int
}

// Stats 队列深度快照
type Stats struct {
	Waiting int64 `json:"waiting"` // 含延迟未就绪的任务
	Active  int64 `json:"active"`
}

// Queue 任务队列契约。
//
// Dequeue 返回 (nil, nil) 表示当前没有就绪任务。出队的任务在租约
// 期内对其他 worker 不可见；租约到期未 Ack/Fail 的任务会重新就绪。
// Fail 在重试预算内按指数退避重新调度，预算耗尽后任务被丢弃。
type Queue interface {
	Enqueue(ctx context.Context, kind string, payload any, opts Options) (*Job, error)
	Dequeue(ctx context.Context, workerID string) (*Job, error)
	Ack(ctx context.Context, jobID string) error
	// Fail 返回任务是否被重新调度（false 表示重试预算耗尽，任务已丢弃）
	Fail(ctx context.Context, jobID string, cause error) (bool, error)
	Stats(ctx context.Context) (Stats, error)
}

// DefaultMaxAttempts 默认重试预算
const DefaultMaxAttempts = 3

// DefaultBackoffBase 默认退避基数
const DefaultBackoffBase = 2 * time.Second

// Backoff 第 attempt 次失败后的重试延迟：base * 2^(attempt-1)
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// readyScore 就绪集合的排序分值：优先级高的先出，优先级相同按入队顺序。
// seq 单调递增且远小于 1e12，不会跨优先级串位。
func readyScore(priority int, seq int64) float64 {
	return float64(-priority)*1e12 + float64(seq)
}
