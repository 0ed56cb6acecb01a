package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestQueue() (*Memory, *fakeClock) {
	q := NewMemory(2*time.Second, 30*time.Second)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	q.SetClock(clock.Now)
	return q, clock
}

type testPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q, _ := newTestQueue()
	ctx := context.Background()

	want := testPayload{To: "a@example.com", Subject: "hi", HTML: "<p>hi</p>"}
	enq, err := q.Enqueue(ctx, "send-email", want, Options{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, err := q.Dequeue(ctx, "w1")
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if job == nil {
		t.Fatal("expected a ready job")
	}
	if job.ID != enq.ID {
		t.Errorf("job ID = %s, want %s", job.ID, enq.ID)
	}
	if job.Kind != "send-email" {
		t.Errorf("kind = %s, want send-email", job.Kind)
	}

	var got testPayload
	if err := json.Unmarshal(job.Payload, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
	if job.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("max attempts = %d, want %d", job.MaxAttempts, DefaultMaxAttempts)
	}
}

func TestPriorityOrderWithFIFOTieBreak(t *testing.T) {
	q, _ := newTestQueue()
	ctx := context.Background()

	low, _ := q.Enqueue(ctx, "send-email", testPayload{To: "low"}, Options{Priority: 0})
	highA, _ := q.Enqueue(ctx, "seller-selection", testPayload{To: "highA"}, Options{Priority: 10})
	mid, _ := q.Enqueue(ctx, "bid-notification", testPayload{To: "mid"}, Options{Priority: 5})
	highB, _ := q.Enqueue(ctx, "seller-selection", testPayload{To: "highB"}, Options{Priority: 10})

	wantOrder := []string{highA.ID, highB.ID, mid.ID, low.ID}
	for i, want := range wantOrder {
		job, err := q.Dequeue(ctx, "w1")
		if err != nil {
			t.Fatalf("Dequeue %d: %v", i, err)
		}
		if job == nil {
			t.Fatalf("Dequeue %d: no job", i)
		}
		if job.ID != want {
			t.Errorf("position %d = %s, want %s", i, job.ID, want)
		}
	}
}

func TestDelayedJobNotVisibleUntilReady(t *testing.T) {
	q, clock := newTestQueue()
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, "welcome", testPayload{To: "u"}, Options{Delay: time.Second}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, err := q.Dequeue(ctx, "w1")
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if job != nil {
		t.Fatal("delayed job should not be visible yet")
	}

	clock.Advance(time.Second)
	job, err = q.Dequeue(ctx, "w1")
	if err != nil {
		t.Fatalf("Dequeue after delay: %v", err)
	}
	if job == nil {
		t.Fatal("job should be visible after its delay elapses")
	}
}

func TestFailReschedulesWithExponentialBackoff(t *testing.T) {
	q, clock := newTestQueue()
	ctx := context.Background()

	enq, _ := q.Enqueue(ctx, "welcome", testPayload{To: "u"}, Options{MaxAttempts: 5})

	var prevDelay time.Duration
	for attempt := 1; attempt <= 3; attempt++ {
		job, err := q.Dequeue(ctx, "w1")
		if err != nil || job == nil {
			t.Fatalf("attempt %d: Dequeue = %v, %v", attempt, job, err)
		}

		requeued, err := q.Fail(ctx, job.ID, errors.New("smtp down"))
		if err != nil {
			t.Fatalf("attempt %d: Fail: %v", attempt, err)
		}
		if !requeued {
			t.Fatalf("attempt %d: job dropped before budget exhausted", attempt)
		}

		snap, ok := q.Snapshot(enq.ID)
		if !ok {
			t.Fatalf("attempt %d: job gone", attempt)
		}
		delay := snap.ReadyAt.Sub(clock.Now())
		if delay < prevDelay {
			t.Errorf("attempt %d: delay %v decreased from %v", attempt, delay, prevDelay)
		}
		want := Backoff(2*time.Second, attempt)
		if delay != want {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, delay, want)
		}
		prevDelay = delay

		clock.Advance(delay)
	}
}

func TestExhaustionDropsJobAfterMaxAttempts(t *testing.T) {
	q, clock := newTestQueue()
	ctx := context.Background()

	enq, _ := q.Enqueue(ctx, "welcome", testPayload{To: "u"}, Options{MaxAttempts: 3})

	attempts := 0
	for {
		job, err := q.Dequeue(ctx, "w1")
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if job == nil {
			clock.Advance(time.Minute)
			job, err = q.Dequeue(ctx, "w1")
			if err != nil {
				t.Fatalf("Dequeue: %v", err)
			}
		}
		if job == nil {
			break
		}
		attempts++
		if _, err := q.Fail(ctx, job.ID, errors.New("smtp down")); err != nil {
			t.Fatalf("Fail: %v", err)
		}
	}

	if attempts != 3 {
		t.Errorf("job attempted %d times, want exactly 3", attempts)
	}
	if _, ok := q.Snapshot(enq.ID); ok {
		t.Error("exhausted job should be removed from the queue")
	}

	// 耗尽之后不会再被投递
	clock.Advance(time.Hour)
	job, err := q.Dequeue(ctx, "w1")
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if job != nil {
		t.Error("exhausted job must never be attempted again")
	}
}

func TestLeaseExpiryMakesJobVisibleAgain(t *testing.T) {
	q, clock := newTestQueue()
	ctx := context.Background()

	enq, _ := q.Enqueue(ctx, "send-email", testPayload{To: "u"}, Options{})

	job, _ := q.Dequeue(ctx, "w1")
	if job == nil {
		t.Fatal("expected a job")
	}

	// 租约内对其他 worker 不可见
	other, _ := q.Dequeue(ctx, "w2")
	if other != nil {
		t.Fatal("leased job must be invisible to other workers")
	}

	// w1 崩溃：租约过期后 w2 能拿到同一个任务，attempt 不变
	clock.Advance(31 * time.Second)
	other, err := q.Dequeue(ctx, "w2")
	if err != nil {
		t.Fatalf("Dequeue after lease expiry: %v", err)
	}
	if other == nil || other.ID != enq.ID {
		t.Fatalf("expired-lease job should be redelivered, got %+v", other)
	}
	if other.Attempts != 0 {
		t.Errorf("lease expiry must not consume retry budget, attempts = %d", other.Attempts)
	}
}

func TestAckRemovesJob(t *testing.T) {
	q, _ := newTestQueue()
	ctx := context.Background()

	_, _ = q.Enqueue(ctx, "send-email", testPayload{To: "u"}, Options{})
	job, _ := q.Dequeue(ctx, "w1")
	if job == nil {
		t.Fatal("expected a job")
	}

	if err := q.Ack(ctx, job.ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if err := q.Ack(ctx, job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("second Ack = %v, want ErrJobNotFound", err)
	}

	s, _ := q.Stats(ctx)
	if s.Waiting != 0 || s.Active != 0 {
		t.Errorf("stats after ack = %+v, want empty", s)
	}
}

func TestStatsCountsWaitingAndActive(t *testing.T) {
	q, _ := newTestQueue()
	ctx := context.Background()

	_, _ = q.Enqueue(ctx, "send-email", testPayload{}, Options{})
	_, _ = q.Enqueue(ctx, "welcome", testPayload{}, Options{Delay: time.Hour})
	if _, err := q.Dequeue(ctx, "w1"); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	s, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if s.Waiting != 1 || s.Active != 1 {
		t.Errorf("stats = %+v, want waiting=1 active=1", s)
	}
}

func TestBackoffDoubles(t *testing.T) {
	base := 2 * time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{0, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := Backoff(base, tc.attempt); got != tc.want {
			t.Errorf("Backoff(%v, %d) = %v, want %v", base, tc.attempt, got, tc.want)
		}
	}
}
