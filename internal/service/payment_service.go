package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"buildboard/contracts/mq"
	"buildboard/internal/model"
	"buildboard/internal/notify"
	"buildboard/internal/repository"
)

// Gateway 支付通道。这里的支付是状态机占位，不对接真实结算，
// 默认实现直接放行。
type Gateway interface {
	Charge(ctx context.Context, p *model.Payment) (transactionID string, err error)
}

// SimulatedGateway 本地模拟通道，总是成功并返回一个生成的交易号
type SimulatedGateway struct{}

func (SimulatedGateway) Charge(ctx context.Context, p *model.Payment) (string, error) {
	return "sim-" + uuid.NewString(), nil
}

type PaymentService struct {
	payments PaymentStore
	projects ProjectStore
	gateway  Gateway
	logger   *zap.Logger
}

func NewPaymentService(payments PaymentStore, projects ProjectStore, gateway Gateway, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		payments: payments,
		projects: projects,
		gateway:  gateway,
		logger:   logger,
	}
}

type CreatePaymentInput struct {
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
}

// Create 买家发起支付。首次发起要求项目处于 COMPLETED，创建的
// 同时把项目推进到 PAYMENT_PENDING 并记录成交金额；之前的支付
// 以 FAILED 终结后，允许在 PAYMENT_PENDING 下重新发起。
// 任何时刻每个项目至多一笔非终态支付。
func (s *PaymentService) Create(ctx context.Context, buyerID, projectID string, in CreatePaymentInput) (*model.Payment, notify.Effects, error) {
	var fx notify.Effects

	if in.Amount <= 0 {
		return nil, fx, Invalid("amount must be positive")
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, fx, Internal("could not load project")
	}
	if project == nil {
		return nil, fx, NotFound("project %s not found", projectID)
	}
	if project.BuyerID != buyerID {
		return nil, fx, Forbidden("only the project owner can pay")
	}

	exists, err := s.payments.HasActiveOrCompleted(ctx, projectID)
	if err != nil {
		return nil, fx, Internal("could not inspect payments")
	}
	if exists {
		return nil, fx, Conflict("project already has a payment")
	}

	switch project.Status {
	case model.ProjectCompleted:
		if !project.SellerAssigned() {
			return nil, fx, Conflict("project has no assigned seller")
		}
		ok, err := s.projects.SetPaymentPending(ctx, projectID, in.Amount)
		if err != nil {
			return nil, fx, Internal("could not start payment")
		}
		if !ok {
			return nil, fx, Conflict("project is no longer COMPLETED")
		}
	case model.ProjectPaymentPending:
		// 上一笔以 FAILED 终结，重试不再推进项目状态
	default:
		return nil, fx, Conflict("project is %s, payment requires COMPLETED", project.Status)
	}

	payment := &model.Payment{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		BuyerID:       buyerID,
		Amount:        in.Amount,
		Status:        model.PaymentPending,
		PaymentMethod: in.PaymentMethod,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// 重试路径上的并发兜底：检查和写入之间有窗口，
			// 唯一索引把第二笔 PENDING 拦在存储层
			return nil, fx, Conflict("project already has a pending payment")
		}
		s.logger.Error("Failed to insert payment", zap.Error(err))
		return nil, fx, Internal("could not create payment")
	}

	s.logger.Info("Payment created",
		zap.String("payment_id", payment.ID),
		zap.String("project_id", projectID),
		zap.Float64("amount", in.Amount),
	)
	return payment, fx, nil
}

// Process 执行支付。通道成功：支付 PENDING → COMPLETED，项目
// PAYMENT_PENDING → COMPLETED（已结清的终态），广播 payment.completed。
// 通道失败：支付 PENDING → FAILED，项目停在 PAYMENT_PENDING，
// 操作本身返回成功，调用方从支付状态看出结果。
func (s *PaymentService) Process(ctx context.Context, buyerID, paymentID string) (*model.Payment, notify.Effects, error) {
	var fx notify.Effects

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fx, Internal("could not load payment")
	}
	if payment == nil {
		return nil, fx, NotFound("payment %s not found", paymentID)
	}
	if payment.BuyerID != buyerID {
		return nil, fx, Forbidden("not your payment")
	}
	if payment.Terminal() {
		return nil, fx, Conflict("payment is already %s", payment.Status)
	}

	txID, chargeErr := s.gateway.Charge(ctx, payment)
	if chargeErr != nil {
		s.logger.Warn("Payment charge failed",
			zap.String("payment_id", paymentID),
			zap.Error(chargeErr),
		)
		ok, err := s.payments.MarkProcessed(ctx, paymentID, model.PaymentFailed, "")
		if err != nil {
			return nil, fx, Internal("could not record payment failure")
		}
		if !ok {
			return nil, fx, Conflict("payment is no longer PENDING")
		}
		payment.Status = model.PaymentFailed
		return payment, fx, nil
	}

	ok, err := s.payments.MarkProcessed(ctx, paymentID, model.PaymentCompleted, txID)
	if err != nil {
		return nil, fx, Internal("could not record payment result")
	}
	if !ok {
		return nil, fx, Conflict("payment is no longer PENDING")
	}
	payment.Status = model.PaymentCompleted
	payment.TransactionID = txID

	if _, err := s.projects.CompareAndSwapStatus(ctx, payment.ProjectID, model.ProjectPaymentPending, model.ProjectCompleted); err != nil {
		s.logger.Error("Failed to settle project after payment",
			zap.String("project_id", payment.ProjectID),
			zap.Error(err),
		)
	}

	s.logger.Info("Payment completed",
		zap.String("payment_id", paymentID),
		zap.String("transaction_id", txID),
	)

	fx.Events = append(fx.Events, notify.Event{
		RoutingKey: mq.RoutingPaymentCompleted,
		Payload: mq.PaymentCompletedPayload{
			PaymentID: paymentID,
			ProjectID: payment.ProjectID,
			Amount:    payment.Amount,
		},
	})
	return payment, fx, nil
}

// History 项目的全部支付记录，含失败的
func (s *PaymentService) History(ctx context.Context, buyerID, projectID string) ([]*model.Payment, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, Internal("could not load project")
	}
	if project == nil {
		return nil, NotFound("project %s not found", projectID)
	}
	if project.BuyerID != buyerID {
		return nil, Forbidden("only the project owner can view payments")
	}

	payments, err := s.payments.ListByProject(ctx, projectID)
	if err != nil {
		return nil, Internal("could not list payments")
	}
	return payments, nil
}
