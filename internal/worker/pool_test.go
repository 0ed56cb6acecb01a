package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"buildboard/internal/queue"
)

type countingHandler struct {
	mu         sync.Mutex
	calls      int32
	inFlight   int32
	maxSeen    int32
	block      chan struct{}
	err        error
	perJobErrs map[string]error
}

func (h *countingHandler) Handle(_ context.Context, job *queue.Job) error {
	cur := atomic.AddInt32(&h.inFlight, 1)
	defer atomic.AddInt32(&h.inFlight, -1)
	atomic.AddInt32(&h.calls, 1)

	h.mu.Lock()
	if cur > h.maxSeen {
		h.maxSeen = cur
	}
	err := h.err
	if h.perJobErrs != nil {
		if e, ok := h.perJobErrs[job.ID]; ok {
			err = e
		}
	}
	h.mu.Unlock()

	if h.block != nil {
		<-h.block
	}
	return err
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPoolProcessesJobs(t *testing.T) {
	q := queue.NewMemory(time.Millisecond, time.Minute)
	h := &countingHandler{}
	p := NewPool(q, h, zap.NewNop(), WithConcurrency(3), WithPollInterval(5*time.Millisecond))

	for i := 0; i < 10; i++ {
		if _, err := q.Enqueue(context.Background(), "send-email", map[string]string{"to": "x@example.com"}, queue.Options{}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	defer p.Shutdown(time.Second)

	waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&h.calls) == 10 })

	s, err := q.Stats(context.Background())
	if err != nil || s.Waiting != 0 || s.Active != 0 {
		t.Fatalf("queue not drained: %+v %v", s, err)
	}
}

func TestPoolBoundedConcurrency(t *testing.T) {
	q := queue.NewMemory(time.Millisecond, time.Minute)
	h := &countingHandler{block: make(chan struct{})}
	p := NewPool(q, h, zap.NewNop(), WithConcurrency(2), WithPollInterval(time.Millisecond))

	for i := 0; i < 6; i++ {
		if _, err := q.Enqueue(context.Background(), "send-email", map[string]string{}, queue.Options{}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&h.inFlight) == 2 })
	// 两个 worker 都阻塞在执行里，不会有第三个任务被取走
	time.Sleep(50 * time.Millisecond)
	h.mu.Lock()
	maxSeen := h.maxSeen
	h.mu.Unlock()
	if maxSeen > 2 {
		t.Fatalf("max concurrent executions = %d, want <= 2", maxSeen)
	}

	close(h.block)
	p.Shutdown(time.Second)
}

func TestPoolShutdownWaitsForInFlight(t *testing.T) {
	q := queue.NewMemory(time.Millisecond, time.Minute)
	h := &countingHandler{block: make(chan struct{})}
	p := NewPool(q, h, zap.NewNop(), WithConcurrency(1), WithPollInterval(time.Millisecond))

	if _, err := q.Enqueue(context.Background(), "send-email", map[string]string{}, queue.Options{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&h.inFlight) == 1 })

	done := make(chan struct{})
	go func() {
		p.Shutdown(5 * time.Second)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("shutdown returned while a job was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(h.block)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not return after in-flight job finished")
	}

	// 在途任务执行完并 ack 了
	s, _ := q.Stats(context.Background())
	if s.Active != 0 {
		t.Fatalf("active jobs after shutdown = %d", s.Active)
	}
}

// 持续失败的任务恰好执行 maxAttempts 次，之后不再出现
func TestPoolExhaustsFailingJob(t *testing.T) {
	q := queue.NewMemory(time.Millisecond, time.Minute)
	h := &countingHandler{err: errors.New("mail transport down")}
	p := NewPool(q, h, zap.NewNop(), WithConcurrency(1), WithPollInterval(time.Millisecond))

	if _, err := q.Enqueue(context.Background(), "welcome-email", map[string]string{}, queue.Options{MaxAttempts: 3}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	defer p.Shutdown(time.Second)

	waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&h.calls) == 3 })

	// 预算耗尽后任务被丢弃，不会有第四次执行
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&h.calls); got != 3 {
		t.Fatalf("handler calls = %d, want exactly 3", got)
	}
	s, _ := q.Stats(context.Background())
	if s.Waiting != 0 || s.Active != 0 {
		t.Fatalf("exhausted job still tracked: %+v", s)
	}
}

// 不可重试的任务一次就被丢弃，不消耗退避预算
func TestPoolDropsUnprocessableJob(t *testing.T) {
	q := queue.NewMemory(time.Millisecond, time.Minute)
	h := &countingHandler{err: fmt.Errorf("%w: bad payload", queue.ErrUnprocessable)}
	p := NewPool(q, h, zap.NewNop(), WithConcurrency(1), WithPollInterval(time.Millisecond))

	if _, err := q.Enqueue(context.Background(), "welcome-email", map[string]string{}, queue.Options{MaxAttempts: 3}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	defer p.Shutdown(time.Second)

	waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&h.calls) == 1 })

	// 尽管预算是 3 次，任务不会再出现
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&h.calls); got != 1 {
		t.Fatalf("handler calls = %d, want exactly 1", got)
	}
	s, _ := q.Stats(context.Background())
	if s.Waiting != 0 || s.Active != 0 {
		t.Fatalf("dropped job still tracked: %+v", s)
	}
}

func TestPoolRecoversFromHandlerPanic(t *testing.T) {
	q := queue.NewMemory(time.Millisecond, time.Minute)
	h := &panicHandler{}
	p := NewPool(q, h, zap.NewNop(), WithConcurrency(1), WithPollInterval(time.Millisecond))

	if _, err := q.Enqueue(context.Background(), "send-email", map[string]string{}, queue.Options{MaxAttempts: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(context.Background(), "send-email", map[string]string{}, queue.Options{MaxAttempts: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	defer p.Shutdown(time.Second)

	// 第一个任务 panic 不能杀死循环，第二个任务仍被执行
	waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&h.calls) == 2 })
}

type panicHandler struct {
	calls int32
}

func (h *panicHandler) Handle(context.Context, *queue.Job) error {
	atomic.AddInt32(&h.calls, 1)
	panic("boom")
}

func TestPoolRunTwiceRejected(t *testing.T) {
	q := queue.NewMemory(time.Millisecond, time.Minute)
	p := NewPool(q, &countingHandler{}, zap.NewNop(), WithConcurrency(1))

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	defer p.Shutdown(time.Second)

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("second run should fail")
	}
}
