package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 正常，请求放行
	StateOpen                  // 熔断，直接拒绝
	StateHalfOpen              // 试探恢复
)

// Config 熔断器配置
type Config struct {
	// 连续失败多少次后打开
	FailureThreshold int
	// 半开状态下成功多少次后关闭
	SuccessThreshold int
	// 打开状态持续多久后进入半开
	Timeout time.Duration
	// 半开状态下允许的最大请求数
	HalfOpenMaxRequests int
}

// DefaultConfig 返回适合邮件传输出口的默认配置
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

// Breaker 保护一个出口调用（这里是 SMTP 投递），在持续故障时快速失败，
// 避免 worker 把重试预算浪费在必然超时的连接上。
type Breaker struct {
	config Config

	state         State
	failureCount  int
	successCount  int
	halfOpenCount int
	lastStateTime time.Time

	mu sync.Mutex
}

func New(config Config) *Breaker {
	return &Breaker{
		config:        config,
		state:         StateClosed,
		lastStateTime: time.Now(),
	}
}

// Execute 执行函数，带熔断保护
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()

	b.transition()

	switch b.state {
	case StateOpen:
		b.mu.Unlock()
		return ErrOpen
	case StateHalfOpen:
		if b.halfOpenCount >= b.config.HalfOpenMaxRequests {
			b.mu.Unlock()
			return ErrOpen
		}
		b.halfOpenCount++
	}

	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure()
	} else {
		b.onSuccess()
	}

	return err
}

// transition 检查并执行状态转换，调用方必须持锁
func (b *Breaker) transition() {
	now := time.Now()

	switch b.state {
	case StateOpen:
		if now.Sub(b.lastStateTime) >= b.config.Timeout {
			b.state = StateHalfOpen
			b.halfOpenCount = 0
			b.successCount = 0
			b.lastStateTime = now
		}
	case StateHalfOpen:
		if b.successCount >= b.config.SuccessThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.lastStateTime = now
		}
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.state = StateOpen
			b.lastStateTime = now
		}
	}
}

func (b *Breaker) onFailure() {
	b.failureCount++
	if b.state == StateHalfOpen {
		// 半开状态下失败，立即重新打开
		b.state = StateOpen
		b.halfOpenCount = 0
		b.lastStateTime = time.Now()
	}
}

func (b *Breaker) onSuccess() {
	b.failureCount = 0
	if b.state == StateHalfOpen {
		b.successCount++
	}
}

// GetState 获取当前状态（线程安全）
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition()
	return b.state
}
