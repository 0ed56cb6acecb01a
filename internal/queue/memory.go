package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryState int

const (
	stateWaiting memoryState = iota
	stateActive
)

type memoryEntry struct {
	job        *Job
	state      memoryState
	seq        int64
	leaseUntil time.Time
	workerID   string
}

// Memory 内存队列，语义与 Redis 实现一致，用于测试。
type Memory struct {
	mu          sync.Mutex
	entries     map[string]*memoryEntry
	seq         int64
	backoffBase time.Duration
	lease       time.Duration
	now         func() time.Time
}

// NewMemory 创建内存队列。
func NewMemory(backoffBase, lease time.Duration) *Memory {
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &Memory{
		entries:     make(map[string]*memoryEntry),
		backoffBase: backoffBase,
		lease:       lease,
		now:         time.Now,
	}
}

// SetClock 替换时钟，仅测试使用。
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Enqueue(ctx context.Context, kind string, payload any, opts Options) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal payload: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	now := m.now()
	m.seq++
	job := &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		Priority:    opts.Priority,
		ReadyAt:     now.Add(opts.Delay),
		EnqueuedAt:  now,
	}
	m.entries[job.ID] = &memoryEntry{job: job, state: stateWaiting, seq: m.seq}
	return job, nil
}

func (m *Memory) Dequeue(ctx context.Context, workerID string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	// 租约到期的 active 任务回到 waiting，对其他 worker 重新可见
	for _, e := range m.entries {
		if e.state == stateActive && now.After(e.leaseUntil) {
			e.state = stateWaiting
			e.workerID = ""
		}
	}

	var ready []*memoryEntry
	for _, e := range m.entries {
		if e.state == stateWaiting && !e.job.ReadyAt.After(now) {
			ready = append(ready, e)
		}
	}
	if len(ready) == 0 {
		return nil, nil
	}

	sort.Slice(ready, func(i, j int) bool {
		return readyScore(ready[i].job.Priority, ready[i].seq) <
			readyScore(ready[j].job.Priority, ready[j].seq)
	})

	e := ready[0]
	e.state = stateActive
	e.leaseUntil = now.Add(m.lease)
	e.workerID = workerID

	cp := *e.job
	return &cp, nil
}

func (m *Memory) Ack(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[jobID]; !ok {
		return ErrJobNotFound
	}
	delete(m.entries, jobID)
	return nil
}

func (m *Memory) Fail(ctx context.Context, jobID string, cause error) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[jobID]
	if !ok {
		return false, ErrJobNotFound
	}

	e.job.Attempts++
	if e.job.Attempts >= e.job.MaxAttempts {
		// 预算耗尽：丢弃（无死信保留）
		delete(m.entries, jobID)
		return false, nil
	}

	e.state = stateWaiting
	e.workerID = ""
	e.job.ReadyAt = m.now().Add(Backoff(m.backoffBase, e.job.Attempts))
	return true, nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Stats
	for _, e := range m.entries {
		switch e.state {
		case stateWaiting:
			s.Waiting++
		case stateActive:
			s.Active++
		}
	}
	return s, nil
}

// Snapshot 返回任务当前信封（含重试后的 ReadyAt），仅测试使用。
func (m *Memory) Snapshot(jobID string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[jobID]
	if !ok {
		return nil, false
	}
	cp := *e.job
	return &cp, true
}
