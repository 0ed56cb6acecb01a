package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"buildboard/internal/model"
	"buildboard/internal/repository"
)

type ReviewService struct {
	reviews  ReviewStore
	projects ProjectStore
	logger   *zap.Logger

	now func() time.Time
}

func NewReviewService(reviews ReviewStore, projects ProjectStore, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		projects: projects,
		logger:   logger,
		now:      time.Now,
	}
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create 买家对已完成项目的评价，每个项目至多一条
func (s *ReviewService) Create(ctx context.Context, buyerID, projectID string, in ReviewInput) (*model.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, Invalid("rating must be between 1 and 5")
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, Internal("could not load project")
	}
	if project == nil {
		return nil, NotFound("project %s not found", projectID)
	}
	if project.BuyerID != buyerID {
		return nil, Forbidden("only the project owner can review")
	}
	if project.Status != model.ProjectCompleted || !project.SellerAssigned() {
		return nil, Conflict("project is %s, reviews require COMPLETED", project.Status)
	}

	review := &model.Review{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		BuyerID:   buyerID,
		SellerID:  *project.SellerID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: s.now(),
	}
	if err := s.reviews.Insert(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("project already reviewed")
		}
		s.logger.Error("Failed to insert review", zap.Error(err))
		return nil, Internal("could not create review")
	}

	s.logger.Info("Review created",
		zap.String("project_id", projectID),
		zap.Int("rating", in.Rating),
	)
	return review, nil
}

// Update 创建后 7 天内允许修改
func (s *ReviewService) Update(ctx context.Context, buyerID, projectID string, in ReviewInput) (*model.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, Invalid("rating must be between 1 and 5")
	}

	review, err := s.reviews.FindByProject(ctx, projectID)
	if err != nil {
		return nil, Internal("could not load review")
	}
	if review == nil {
		return nil, NotFound("no review for project %s", projectID)
	}
	if review.BuyerID != buyerID {
		return nil, Forbidden("not your review")
	}
	if s.now().Sub(review.CreatedAt) > model.ReviewEditWindow {
		return nil, Conflict("review edit window has closed")
	}

	review.Rating = in.Rating
	review.Comment = in.Comment
	if err := s.reviews.Update(ctx, review); err != nil {
		s.logger.Error("Failed to update review", zap.Error(err))
		return nil, Internal("could not update review")
	}
	return review, nil
}

func (s *ReviewService) GetByProject(ctx context.Context, projectID string) (*model.Review, error) {
	review, err := s.reviews.FindByProject(ctx, projectID)
	if err != nil {
		return nil, Internal("could not load review")
	}
	if review == nil {
		return nil, NotFound("no review for project %s", projectID)
	}
	return review, nil
}

// SellerSummary 卖家的评分汇总
type SellerSummary struct {
	SellerID      string          `json:"seller_id"`
	AverageRating float64         `json:"average_rating"`
	ReviewCount   int             `json:"review_count"`
	Reviews       []*model.Review `json:"reviews"`
}

func (s *ReviewService) SellerSummary(ctx context.Context, sellerID string) (*SellerSummary, error) {
	avg, count, err := s.reviews.SellerRating(ctx, sellerID)
	if err != nil {
		return nil, Internal("could not aggregate reviews")
	}
	reviews, err := s.reviews.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, Internal("could not list reviews")
	}
	return &SellerSummary{
		SellerID:      sellerID,
		AverageRating: avg,
		ReviewCount:   count,
		Reviews:       reviews,
	}, nil
}
