package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"buildboard/internal/queue"
)

type captureSink struct {
	published []Event
	err       error
}

func (s *captureSink) Publish(routingKey string, payload any) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, Event{RoutingKey: routingKey, Payload: payload})
	return nil
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, string, any, queue.Options) (*queue.Job, error) {
	return nil, errors.New("queue unreachable")
}
func (failingQueue) Dequeue(context.Context, string) (*queue.Job, error) { return nil, nil }
func (failingQueue) Ack(context.Context, string) error                   { return nil }
func (failingQueue) Fail(context.Context, string, error) (bool, error)   { return false, nil }
func (failingQueue) Stats(context.Context) (queue.Stats, error)          { return queue.Stats{}, nil }

func TestDispatchEnqueuesWithDefaults(t *testing.T) {
	q := queue.NewMemory(queue.DefaultBackoffBase, 30*time.Second)
	sink := &captureSink{}
	d := NewDispatcher(q, sink, zap.NewNop())

	fx := Effects{
		Mail: []Message{
			Welcome{UserEmail: "a@example.com", UserName: "A"},
			SellerSelection{SellerEmail: "s@example.com", SellerName: "S", ProjectTitle: "T"},
		},
		Events: []Event{{RoutingKey: "user.registered", Payload: map[string]string{"id": "u1"}}},
	}
	d.Dispatch(context.Background(), fx)

	// seller-selection 优先级高、无延迟，先出队
	job, err := q.Dequeue(context.Background(), "w1")
	if err != nil || job == nil {
		t.Fatalf("dequeue: %v %v", job, err)
	}
	if Kind(job.Kind) != KindSellerSelection {
		t.Fatalf("first job kind = %s, want seller-selection", job.Kind)
	}
	if job.Priority != 10 {
		t.Fatalf("seller-selection priority = %d, want 10", job.Priority)
	}
	var sel SellerSelection
	if err := json.Unmarshal(job.Payload, &sel); err != nil || sel.SellerEmail != "s@example.com" {
		t.Fatalf("payload round-trip: %+v %v", sel, err)
	}

	// welcome 带 1s 延迟，立即出队看不到
	job, err = q.Dequeue(context.Background(), "w1")
	if err != nil || job != nil {
		t.Fatalf("welcome should still be delayed, got %v %v", job, err)
	}

	if len(sink.published) != 1 || sink.published[0].RoutingKey != "user.registered" {
		t.Fatalf("events published = %+v", sink.published)
	}
}

// 入队和事件发布失败都只记日志，Dispatch 不能 panic 也没有返回值可失败
func TestDispatchIsolatesFailures(t *testing.T) {
	d := NewDispatcher(failingQueue{}, &captureSink{err: errors.New("broker down")}, zap.NewNop())
	d.Dispatch(context.Background(), Effects{
		Mail:   []Message{Welcome{UserEmail: "a@example.com"}},
		Events: []Event{{RoutingKey: "user.registered"}},
	})
}

func TestDispatchNilSinkSkipsEvents(t *testing.T) {
	q := queue.NewMemory(queue.DefaultBackoffBase, 30*time.Second)
	d := NewDispatcher(q, nil, zap.NewNop())
	d.Dispatch(context.Background(), Effects{
		Events: []Event{{RoutingKey: "user.registered"}},
	})
}

func TestEffectsAppend(t *testing.T) {
	var fx Effects
	fx.Append(Effects{Mail: []Message{Welcome{UserEmail: "a@example.com"}}})
	fx.Append(Effects{Events: []Event{{RoutingKey: "x"}}})
	if len(fx.Mail) != 1 || len(fx.Events) != 1 {
		t.Fatalf("append result: %d mails %d events", len(fx.Mail), len(fx.Events))
	}
}

func TestDefaultsTable(t *testing.T) {
	if o := Defaults(KindSellerSelection); o.Priority != 10 || o.Delay != 0 {
		t.Fatalf("seller-selection defaults = %+v", o)
	}
	if o := Defaults(KindProjectCompleted); o.Priority != 8 {
		t.Fatalf("project-completed defaults = %+v", o)
	}
	if o := Defaults(KindBidNotification); o.Priority != 5 {
		t.Fatalf("bid-notification defaults = %+v", o)
	}
	if o := Defaults(KindWelcome); o.Priority != 1 || o.Delay != time.Second {
		t.Fatalf("welcome defaults = %+v", o)
	}
	if o := Defaults(KindSendEmail); o.Priority != 0 || o.Delay != 0 {
		t.Fatalf("send-email defaults = %+v", o)
	}
}
