package notify

import (
	"context"

	"go.uber.org/zap"

	"buildboard/internal/queue"
	"buildboard/pkg/metrics"
)

// Event 转换成功后要广播的域事件
type Event struct {
	RoutingKey string
	Payload    any
}

// Effects 一次成功转换产生的副作用清单。生命周期服务只负责组装它，
// 由调用层交给 Dispatcher —— 服务层不依赖队列。
type Effects struct {
	Mail   []Message
	Events []Event
}

// Append 合并另一份副作用清单
func (e *Effects) Append(other Effects) {
	e.Mail = append(e.Mail, other.Mail...)
	e.Events = append(e.Events, other.Events...)
}

// EventSink 域事件出口，pkg/mq.Publisher 实现它
type EventSink interface {
	Publish(routingKey string, payload any) error
}

// Dispatcher 把副作用清单落到队列和事件总线上。
// 任何入队/发布失败只记日志：通知是转换的最佳努力副产物，
// 绝不反过来让转换失败。
type Dispatcher struct {
	queue       queue.Queue
	events      EventSink
	logger      *zap.Logger
	maxAttempts int
}

type DispatcherOption func(*Dispatcher)

// WithMaxAttempts 覆盖所有邮件任务的重试预算
func WithMaxAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// NewDispatcher 创建分发器。events 可以为 nil（不广播域事件）。
func NewDispatcher(q queue.Queue, events EventSink, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		queue:  q,
		events: events,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch 逐条处理副作用。永远返回成功 —— 错误只记日志。
func (d *Dispatcher) Dispatch(ctx context.Context, fx Effects) {
	for _, msg := range fx.Mail {
		kind := msg.Kind()
		opts := Defaults(kind)
		if d.maxAttempts > 0 {
			opts.MaxAttempts = d.maxAttempts
		}
		job, err := d.queue.Enqueue(ctx, string(kind), msg, opts)
		if err != nil {
			d.logger.Error("Failed to enqueue notification job",
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			continue
		}
		metrics.JobsEnqueued.WithLabelValues(string(kind)).Inc()
		d.logger.Info("Notification job enqueued",
			zap.String("kind", string(kind)),
			zap.String("job_id", job.ID),
		)
	}

	if d.events == nil {
		return
	}
	for _, ev := range fx.Events {
		if err := d.events.Publish(ev.RoutingKey, ev.Payload); err != nil {
			d.logger.Error("Failed to publish domain event",
				zap.String("routing_key", ev.RoutingKey),
				zap.Error(err),
			)
		}
	}
}
