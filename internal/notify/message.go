// Package notify 定义通知任务的封闭类型集合：每种任务携带自己的
// 强类型 payload，编解码和分发都走同一个封闭 switch，新增任务类型
// 时编译器会在所有分发点报错。
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"buildboard/internal/queue"
)

type Kind string

const (
	KindSendEmail        Kind = "send-email"
	KindWelcome          Kind = "welcome-email"
	KindSellerSelection  Kind = "seller-selection-email"
	KindProjectCompleted Kind = "project-completed-email"
	KindBidNotification  Kind = "bid-notification-email"
)

// Message 通知任务的封闭联合类型。只有本包内的 payload 类型实现它。
type Message interface {
	Kind() Kind
	sealed()
}

// SendEmail 任意即席邮件
type SendEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Welcome 注册欢迎邮件
type Welcome struct {
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

// SellerSelection 卖家被选中通知
type SellerSelection struct {
	SellerEmail  string `json:"seller_email"`
	SellerName   string `json:"seller_name"`
	ProjectTitle string `json:"project_title"`
	BuyerName    string `json:"buyer_name"`
}

// ProjectCompleted 项目完成通知（买卖双方）
type ProjectCompleted struct {
	BuyerEmail   string `json:"buyer_email"`
	SellerEmail  string `json:"seller_email"`
	ProjectTitle string `json:"project_title"`
	BuyerName    string `json:"buyer_name"`
	SellerName   string `json:"seller_name"`
}

// BidNotification 新报价通知买家
type BidNotification struct {
	BuyerEmail   string  `json:"buyer_email"`
	BidderName   string  `json:"bidder_name"`
	ProjectTitle string  `json:"project_title"`
	BidAmount    float64 `json:"bid_amount"`
}

func (SendEmail) Kind() Kind        { return KindSendEmail }
func (Welcome) Kind() Kind          { return KindWelcome }
func (SellerSelection) Kind() Kind  { return KindSellerSelection }
func (ProjectCompleted) Kind() Kind { return KindProjectCompleted }
func (BidNotification) Kind() Kind  { return KindBidNotification }

func (SendEmail) sealed()        {}
func (Welcome) sealed()          {}
func (SellerSelection) sealed()  {}
func (ProjectCompleted) sealed() {}
func (BidNotification) sealed()  {}

// Defaults 每种任务的入队默认值：业务越紧急优先级越高，
// 欢迎邮件带一个短暂固定延迟。
func Defaults(kind Kind) queue.Options {
	switch kind {
	case KindSellerSelection:
		return queue.Options{Priority: 10}
	case KindProjectCompleted:
		return queue.Options{Priority: 8}
	case KindBidNotification:
		return queue.Options{Priority: 5}
	case KindWelcome:
		return queue.Options{Priority: 1, Delay: time.Second}
	default:
		return queue.Options{}
	}
}

// Decode 按 Kind 解出强类型 payload。未知 Kind 对该任务是致命错误。
func Decode(kind Kind, raw json.RawMessage) (Message, error) {
	switch kind {
	case KindSendEmail:
		var m SendEmail
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("notify: decode %s: %w", kind, err)
		}
		return m, nil
	case KindWelcome:
		var m Welcome
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("notify: decode %s: %w", kind, err)
		}
		return m, nil
	case KindSellerSelection:
		var m SellerSelection
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("notify: decode %s: %w", kind, err)
		}
		return m, nil
	case KindProjectCompleted:
		var m ProjectCompleted
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("notify: decode %s: %w", kind, err)
		}
		return m, nil
	case KindBidNotification:
		var m BidNotification
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("notify: decode %s: %w", kind, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("notify: unknown job kind %q", kind)
	}
}
