package mailer

import (
	"context"

	"buildboard/pkg/circuitbreaker"
)

// Guarded 给邮件出口包一层熔断：SMTP 持续故障时快速失败，
// 让队列按退避重试，而不是让每个 worker 都去等连接超时。
type Guarded struct {
	inner   Mailer
	breaker *circuitbreaker.Breaker
}

func NewGuarded(inner Mailer, breaker *circuitbreaker.Breaker) *Guarded {
	return &Guarded{inner: inner, breaker: breaker}
}

func (g *Guarded) Deliver(ctx context.Context, to, subject, htmlBody string) error {
	return g.breaker.Execute(func() error {
		return g.inner.Deliver(ctx, to, subject, htmlBody)
	})
}
