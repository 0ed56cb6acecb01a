package model

import "time"

// ReviewEditWindow 评价创建后允许修改的窗口
const ReviewEditWindow = 7 * 24 * time.Hour

// Review 买家对已完成项目的评价，每个项目至多一条。
type Review struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	BuyerID   string    `json:"buyer_id"`
	SellerID  string    `json:"seller_id"`
	Rating    int       `json:"rating"` // 1-5
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
