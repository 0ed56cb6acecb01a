package model

import "time"

// Bid 卖家对 PENDING 项目的报价。(project_id, seller_id) 组合唯一。
type Bid struct {
	ID                      string    `json:"id"`
	ProjectID               string    `json:"project_id"`
	SellerID                string    `json:"seller_id"`
	BidAmount               float64   `json:"bid_amount"`
	EstimatedCompletionTime string    `json:"estimated_completion_time"`
	Message                 string    `json:"message"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}
