package service

import (
	"context"

	"buildboard/internal/model"
)

// 存储契约由消费方声明，internal/repository 的 pgx 实现满足它们，
// 测试用内存假实现。Find* 未命中返回 (nil, nil)。

type UserStore interface {
	Insert(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type ProjectStore interface {
	Insert(ctx context.Context, p *model.Project) error
	FindByID(ctx context.Context, id string) (*model.Project, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*model.Project, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*model.Project, error)
	ListByStatus(ctx context.Context, status string) ([]*model.Project, error)
	// AssignSeller 条件写：仅当项目仍为 PENDING 时绑定卖家并置 IN_PROGRESS
	AssignSeller(ctx context.Context, projectID, sellerID string) (bool, error)
	// CompareAndSwapStatus 条件写：仅当当前状态为 from 时改为 to
	CompareAndSwapStatus(ctx context.Context, projectID, from, to string) (bool, error)
	// Cancel 条件写：仅当当前状态为 from 时置 CANCELLED 并清空卖家
	Cancel(ctx context.Context, projectID, from string) (bool, error)
	// SetPaymentPending 条件写：仅当 COMPLETED 时记录成交金额并置 PAYMENT_PENDING
	SetPaymentPending(ctx context.Context, projectID string, finalAmount float64) (bool, error)
}

type BidStore interface {
	Insert(ctx context.Context, b *model.Bid) error
	FindByID(ctx context.Context, id string) (*model.Bid, error)
	FindByProjectAndSeller(ctx context.Context, projectID, sellerID string) (*model.Bid, error)
	ListByProject(ctx context.Context, projectID string) ([]*model.Bid, error)
	Update(ctx context.Context, b *model.Bid) error
	Delete(ctx context.Context, id string) error
}

type ReviewStore interface {
	Insert(ctx context.Context, rv *model.Review) error
	FindByProject(ctx context.Context, projectID string) (*model.Review, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*model.Review, error)
	Update(ctx context.Context, rv *model.Review) error
	SellerRating(ctx context.Context, sellerID string) (avg float64, count int, err error)
}

type PaymentStore interface {
	Insert(ctx context.Context, p *model.Payment) error
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	// HasActiveOrCompleted 项目上是否存在 PENDING 或 COMPLETED 的支付
	HasActiveOrCompleted(ctx context.Context, projectID string) (bool, error)
	// MarkProcessed 条件写：仅当支付仍为 PENDING 时推进到终态
	MarkProcessed(ctx context.Context, paymentID, status, transactionID string) (bool, error)
	ListByProject(ctx context.Context, projectID string) ([]*model.Payment, error)
}

type DeliverableStore interface {
	Insert(ctx context.Context, d *model.Deliverable) error
	ListByProject(ctx context.Context, projectID string) ([]*model.Deliverable, error)
}
