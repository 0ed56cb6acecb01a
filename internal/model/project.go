package model

import "time"

// 项目生命周期状态。状态只由 internal/service 的转换操作写入，
// 写入一律走「期望当前状态」的条件更新。
const (
	ProjectPending        = "PENDING"
	ProjectInProgress     = "IN_PROGRESS"
	ProjectCompleted      = "COMPLETED"
	ProjectPaymentPending = "PAYMENT_PENDING"
	ProjectCancelled      = "CANCELLED"
)

type Project struct {
	ID          string     `json:"id"`
	BuyerID     string     `json:"buyer_id"`
	SellerID    *string    `json:"seller_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	BudgetRange string     `json:"budget_range"`
	Deadline    time.Time  `json:"deadline"`
	Status      string     `json:"status"`
	FinalAmount *float64   `json:"final_amount,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SellerAssigned 不变量：seller 已设置 当且仅当 状态处于
// IN_PROGRESS / COMPLETED / PAYMENT_PENDING。
func (p *Project) SellerAssigned() bool {
	return p.SellerID != nil && *p.SellerID != ""
}

type Deliverable struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	FileURL    string    `json:"file_url"`
	UploadedAt time.Time `json:"uploaded_at"`
}
