// Package mq 定义 marketplace.events exchange 上的域事件契约。
// 事件是转换成功后的最佳努力广播，与邮件队列互不依赖。
package mq

import "time"

// Routing keys on the marketplace.events exchange.
const (
	RoutingUserRegistered   = "user.registered"
	RoutingProjectCreated   = "project.created"
	RoutingBidPlaced        = "bid.placed"
	RoutingSellerSelected   = "project.seller_selected"
	RoutingProjectCompleted = "project.completed"
	RoutingProjectCancelled = "project.cancelled"
	RoutingPaymentCompleted = "payment.completed"
)

type UserRegisteredPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type ProjectCreatedPayload struct {
	ProjectID string    `json:"project_id"`
	BuyerID   string    `json:"buyer_id"`
	Title     string    `json:"title"`
	Deadline  time.Time `json:"deadline"`
}

type BidPlacedPayload struct {
	BidID     string  `json:"bid_id"`
	ProjectID string  `json:"project_id"`
	SellerID  string  `json:"seller_id"`
	Amount    float64 `json:"amount"`
}

type SellerSelectedPayload struct {
	ProjectID string `json:"project_id"`
	BuyerID   string `json:"buyer_id"`
	SellerID  string `json:"seller_id"`
}

type ProjectCompletedPayload struct {
	ProjectID string `json:"project_id"`
	SellerID  string `json:"seller_id"`
}

type ProjectCancelledPayload struct {
	ProjectID string `json:"project_id"`
	BuyerID   string `json:"buyer_id"`
}

type PaymentCompletedPayload struct {
	PaymentID string  `json:"payment_id"`
	ProjectID string  `json:"project_id"`
	Amount    float64 `json:"amount"`
}
