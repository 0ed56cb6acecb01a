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

type BidService struct {
	bids     BidStore
	projects ProjectStore
	users    UserStore
	logger   *zap.Logger
}

func NewBidService(bids BidStore, projects ProjectStore, users UserStore, logger *zap.Logger) *BidService {
	return &BidService{
		bids:     bids,
		projects: projects,
		users:    users,
		logger:   logger,
	}
}

type PlaceBidInput struct {
	BidAmount               float64 `json:"bid_amount"`
	EstimatedCompletionTime string  `json:"estimated_completion_time"`
	Message                 string  `json:"message"`
}

// Place 卖家对 PENDING 项目报价。同一卖家重复报价吃 Conflict，
// 唯一性由存储层的组合唯一索引兜底，并发下也不会出现两条。
func (s *BidService) Place(ctx context.Context, sellerID, projectID string, in PlaceBidInput) (*model.Bid, notify.Effects, error) {
	var fx notify.Effects

	if in.BidAmount <= 0 {
		return nil, fx, Invalid("bid_amount must be positive")
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, fx, Internal("could not load project")
	}
	if project == nil {
		return nil, fx, NotFound("project %s not found", projectID)
	}
	// 身份比对而不是角色比对：买家不能给自己的项目报价
	if project.BuyerID == sellerID {
		return nil, fx, Forbidden("cannot bid on your own project")
	}
	if project.Status != model.ProjectPending {
		return nil, fx, Conflict("project is %s, bidding requires PENDING", project.Status)
	}

	bid := &model.Bid{
		ID:                      uuid.NewString(),
		ProjectID:               projectID,
		SellerID:                sellerID,
		BidAmount:               in.BidAmount,
		EstimatedCompletionTime: in.EstimatedCompletionTime,
		Message:                 in.Message,
	}
	if err := s.bids.Insert(ctx, bid); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fx, Conflict("you already have a bid on this project")
		}
		s.logger.Error("Failed to insert bid", zap.Error(err))
		return nil, fx, Internal("could not place bid")
	}

	s.logger.Info("Bid placed",
		zap.String("bid_id", bid.ID),
		zap.String("project_id", projectID),
		zap.String("seller_id", sellerID),
	)

	buyer, berr := s.users.FindByID(ctx, project.BuyerID)
	bidder, serr := s.users.FindByID(ctx, sellerID)
	if berr != nil || serr != nil || buyer == nil || bidder == nil {
		s.logger.Warn("User lookup failed, skipping bid email",
			zap.String("project_id", projectID),
		)
	} else {
		fx.Mail = append(fx.Mail, notify.BidNotification{
			BuyerEmail:   buyer.Email,
			BidderName:   bidder.Name,
			ProjectTitle: project.Title,
			BidAmount:    bid.BidAmount,
		})
	}
	fx.Events = append(fx.Events, notify.Event{
		RoutingKey: mq.RoutingBidPlaced,
		Payload: mq.BidPlacedPayload{
			BidID:     bid.ID,
			ProjectID: projectID,
			SellerID:  sellerID,
			Amount:    bid.BidAmount,
		},
	})
	return bid, fx, nil
}

type UpdateBidInput struct {
	BidAmount               float64 `json:"bid_amount"`
	EstimatedCompletionTime string  `json:"estimated_completion_time"`
	Message                 string  `json:"message"`
}

// Update 报价只在父项目仍为 PENDING 时可改
func (s *BidService) Update(ctx context.Context, sellerID, bidID string, in UpdateBidInput) (*model.Bid, error) {
	if in.BidAmount <= 0 {
		return nil, Invalid("bid_amount must be positive")
	}

	bid, _, err := s.loadMutable(ctx, sellerID, bidID)
	if err != nil {
		return nil, err
	}

	bid.BidAmount = in.BidAmount
	bid.EstimatedCompletionTime = in.EstimatedCompletionTime
	bid.Message = in.Message
	if err := s.bids.Update(ctx, bid); err != nil {
		s.logger.Error("Failed to update bid", zap.Error(err))
		return nil, Internal("could not update bid")
	}
	return bid, nil
}

func (s *BidService) Delete(ctx context.Context, sellerID, bidID string) error {
	bid, _, err := s.loadMutable(ctx, sellerID, bidID)
	if err != nil {
		return err
	}
	if err := s.bids.Delete(ctx, bid.ID); err != nil {
		s.logger.Error("Failed to delete bid", zap.Error(err))
		return Internal("could not delete bid")
	}
	return nil
}

func (s *BidService) ListByProject(ctx context.Context, projectID string) ([]*model.Bid, error) {
	bids, err := s.bids.ListByProject(ctx, projectID)
	if err != nil {
		return nil, Internal("could not list bids")
	}
	return bids, nil
}

// loadMutable 取出报价并校验：属于调用方，且父项目仍为 PENDING
func (s *BidService) loadMutable(ctx context.Context, sellerID, bidID string) (*model.Bid, *model.Project, error) {
	bid, err := s.bids.FindByID(ctx, bidID)
	if err != nil {
		return nil, nil, Internal("could not load bid")
	}
	if bid == nil {
		return nil, nil, NotFound("bid %s not found", bidID)
	}
	if bid.SellerID != sellerID {
		return nil, nil, Forbidden("not your bid")
	}

	project, err := s.projects.FindByID(ctx, bid.ProjectID)
	if err != nil {
		return nil, nil, Internal("could not load project")
	}
	if project == nil {
		return nil, nil, NotFound("project %s not found", bid.ProjectID)
	}
	if project.Status != model.ProjectPending {
		return nil, nil, Conflict("project is %s, bids are frozen", project.Status)
	}
	return bid, project, nil
}
