// Package worker 通知任务的有界并发执行池。
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"buildboard/internal/queue"
	"buildboard/pkg/metrics"
)

// Handler 任务执行器，internal/notify.EmailHandler 实现它
type Handler interface {
	Handle(ctx context.Context, job *queue.Job) error
}

// Pool 固定并发数的 worker 池。每个 worker 轮询出队、执行、
// 按结果 ack/fail；单个任务的 panic 和错误都不会影响其他任务
// 或终止循环。
type Pool struct {
	queue        queue.Queue
	handler      Handler
	concurrency  int
	pollInterval time.Duration
	logger       *zap.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

type Option func(*Pool)

// WithConcurrency 设置并发 worker 数
func WithConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithPollInterval 设置队列为空时的轮询间隔
func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

func NewPool(q queue.Queue, h Handler, logger *zap.Logger, opts ...Option) *Pool {
	p := &Pool{
		queue:        q,
		handler:      h,
		concurrency:  5,
		pollInterval: 500 * time.Millisecond,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run 启动 worker 池，立即返回。
func (p *Pool) Run(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("worker: pool already running")
	}
	p.running = true

	p.logger.Info("Worker pool starting",
		zap.Int("concurrency", p.concurrency),
	)

	for i := 0; i < p.concurrency; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		p.wg.Add(1)
		go p.loop(ctx, workerID)
	}

	p.wg.Add(1)
	go p.reportDepth(ctx)

	return nil
}

// Shutdown 停止出队并等待在途任务结束，最多等 grace 时长。
func (p *Pool) Shutdown(grace time.Duration) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Worker pool drained")
	case <-time.After(grace):
		p.logger.Warn("Worker pool shutdown grace period elapsed, abandoning in-flight jobs")
	}
}

func (p *Pool) loop(ctx context.Context, workerID string) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, workerID)
		if err != nil {
			p.logger.Error("Dequeue failed",
				zap.String("worker_id", workerID),
				zap.Error(err),
			)
			p.sleep()
			continue
		}
		if job == nil {
			p.sleep()
			continue
		}

		p.execute(ctx, workerID, job)
	}
}

// execute 执行单个任务并上报结果。panic 按任务失败处理。
func (p *Pool) execute(ctx context.Context, workerID string, job *queue.Job) {
	start := time.Now()
	var handlerErr error

	func() {
		defer func() {
			if r := recover(); r != nil {
				handlerErr = fmt.Errorf("worker: handler panic: %v", r)
				p.logger.Error("Handler panic recovered",
					zap.String("worker_id", workerID),
					zap.String("job_id", job.ID),
					zap.Any("panic", r),
				)
			}
		}()
		handlerErr = p.handler.Handle(ctx, job)
	}()

	elapsed := time.Since(start)

	if handlerErr == nil {
		if err := p.queue.Ack(ctx, job.ID); err != nil {
			// ack 丢失：任务会在租约过期后重投，由 handler 去重兜底
			p.logger.Warn("Ack failed after successful handling",
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
		}
		metrics.RecordJobProcessed(job.Kind, "ok", elapsed)
		p.logger.Info("Job completed",
			zap.String("worker_id", workerID),
			zap.String("job_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Duration("elapsed", elapsed),
		)
		return
	}

	if errors.Is(handlerErr, queue.ErrUnprocessable) {
		// 确定性失败，重试没有意义，直接出队丢弃
		if err := p.queue.Ack(ctx, job.ID); err != nil {
			p.logger.Warn("Ack failed for unprocessable job",
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
		}
		metrics.RecordJobProcessed(job.Kind, "dropped", elapsed)
		p.logger.Warn("Unprocessable job dropped",
			zap.String("worker_id", workerID),
			zap.String("job_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Error(handlerErr),
		)
		return
	}

	requeued, err := p.queue.Fail(ctx, job.ID, handlerErr)
	if err != nil {
		p.logger.Error("Fail report error",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return
	}
	if requeued {
		metrics.RecordJobProcessed(job.Kind, "retry", elapsed)
	} else {
		metrics.RecordJobProcessed(job.Kind, "exhausted", elapsed)
	}
}

func (p *Pool) sleep() {
	select {
	case <-p.stopCh:
	case <-time.After(p.pollInterval):
	}
}

// reportDepth 周期性上报队列深度指标
func (p *Pool) reportDepth(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := p.queue.Stats(ctx)
			if err != nil {
				continue
			}
			metrics.SetQueueDepth(s.Waiting, s.Active)
		}
	}
}
