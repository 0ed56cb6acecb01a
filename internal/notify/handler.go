package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"buildboard/internal/mailer"
	"buildboard/internal/model"
	"buildboard/internal/queue"
	"buildboard/pkg/metrics"
)

// Deduper 投递去重，pkg/util.Deduper 实现它。nil 表示不去重。
type Deduper interface {
	AcquireOnce(ctx context.Context, key string) bool
}

// DeliveryLog 投递流水，internal/repository.NotificationLogRepository
// 实现它。nil 表示不落库。
type DeliveryLog interface {
	Record(ctx context.Context, entry *model.NotificationLog) error
}

// EmailHandler worker 侧的任务执行器：解码 → 渲染 → 投递。
// 返回 error 表示本次执行失败，由 worker pool 上报队列做重试记账。
type EmailHandler struct {
	mailer mailer.Mailer
	dedup  Deduper
	log    DeliveryLog
	logger *zap.Logger
}

func NewEmailHandler(m mailer.Mailer, dedup Deduper, log DeliveryLog, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{
		mailer: m,
		dedup:  dedup,
		log:    log,
		logger: logger,
	}
}

// Handle 执行一个任务。队列是 at-least-once：ack 丢失或租约过期会
// 重复投递同一个 attempt，用 (jobID, attempt) 去重键抑制；正常重试
// attempt 已递增，不受影响。
func (h *EmailHandler) Handle(ctx context.Context, job *queue.Job) error {
	msg, err := Decode(Kind(job.Kind), job.Payload)
	if err != nil {
		// 未知类型或坏 payload 是确定性失败，标记为不可重试，
		// 池子直接 ack 丢弃而不是烧掉退避预算
		h.logger.Error("Undecodable notification job",
			zap.String("job_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", queue.ErrUnprocessable, err)
	}

	if h.dedup != nil {
		key := fmt.Sprintf("notify:%s:%d", job.ID, job.Attempts)
		if !h.dedup.AcquireOnce(ctx, key) {
			return nil
		}
	}

	to, subject, html := Render(msg)
	if err := h.deliver(ctx, to, subject, html); err != nil {
		h.record(ctx, job, to, "failed", err)
		return err
	}

	// 项目完成通知买卖双方：卖家第二封失败只记日志，
	// 不触发整个任务重试（避免买家重复收信）
	if pc, ok := msg.(ProjectCompleted); ok && pc.SellerEmail != "" {
		sellerSubject := fmt.Sprintf("Project Completed: %s", pc.ProjectTitle)
		sellerHTML := fmt.Sprintf("<p>Hi %s, the project %q you delivered has been marked as completed. The buyer can now review and pay.</p>",
			pc.SellerName, pc.ProjectTitle)
		if err := h.deliver(ctx, pc.SellerEmail, sellerSubject, sellerHTML); err != nil {
			h.logger.Warn("Seller copy of completion mail failed",
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
		}
	}

	h.record(ctx, job, to, "sent", nil)
	return nil
}

func (h *EmailHandler) deliver(ctx context.Context, to, subject, html string) error {
	err := h.mailer.Deliver(ctx, to, subject, html)
	if err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return err
	}
	metrics.EmailsSent.WithLabelValues("success").Inc()
	return nil
}

func (h *EmailHandler) record(ctx context.Context, job *queue.Job, to, status string, cause error) {
	if h.log == nil {
		return
	}
	entry := &model.NotificationLog{
		JobID:     job.ID,
		Kind:      job.Kind,
		Recipient: to,
		Status:    status,
		Attempt:   job.Attempts + 1,
		CreatedAt: time.Now(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := h.log.Record(ctx, entry); err != nil {
		h.logger.Warn("Failed to record delivery log",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}
