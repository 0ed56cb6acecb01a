package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"buildboard/contracts/mq"
	"buildboard/internal/model"
	"buildboard/internal/notify"
)

// ProjectService 项目状态机。status 只在这里写，每次写都是
// 「期望当前状态」的条件更新，并发转换最多一个成功。
type ProjectService struct {
	projects     ProjectStore
	bids         BidStore
	users        UserStore
	deliverables DeliverableStore
	logger       *zap.Logger
}

func NewProjectService(projects ProjectStore, bids BidStore, users UserStore, deliverables DeliverableStore, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projects:     projects,
		bids:         bids,
		users:        users,
		deliverables: deliverables,
		logger:       logger,
	}
}

type CreateProjectInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BudgetRange string    `json:"budget_range"`
	Deadline    time.Time `json:"deadline"`
}

func (s *ProjectService) Create(ctx context.Context, buyerID string, in CreateProjectInput) (*model.Project, notify.Effects, error) {
	var fx notify.Effects

	if in.Title == "" {
		return nil, fx, Invalid("title is required")
	}
	if in.Deadline.IsZero() || !in.Deadline.After(time.Now()) {
		return nil, fx, Invalid("deadline must be in the future")
	}

	project := &model.Project{
		ID:          uuid.NewString(),
		BuyerID:     buyerID,
		Title:       in.Title,
		Description: in.Description,
		BudgetRange: in.BudgetRange,
		Deadline:    in.Deadline,
		Status:      model.ProjectPending,
	}
	if err := s.projects.Insert(ctx, project); err != nil {
		s.logger.Error("Failed to insert project", zap.Error(err))
		return nil, fx, Internal("could not create project")
	}

	s.logger.Info("Project created",
		zap.String("project_id", project.ID),
		zap.String("buyer_id", buyerID),
	)

	fx.Events = append(fx.Events, notify.Event{
		RoutingKey: mq.RoutingProjectCreated,
		Payload: mq.ProjectCreatedPayload{
			ProjectID: project.ID,
			BuyerID:   buyerID,
			Title:     project.Title,
			Deadline:  project.Deadline,
		},
	})
	return project, fx, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, Internal("could not load project")
	}
	if project == nil {
		return nil, NotFound("project %s not found", id)
	}
	return project, nil
}

func (s *ProjectService) ListByBuyer(ctx context.Context, buyerID string) ([]*model.Project, error) {
	projects, err := s.projects.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, Internal("could not list projects")
	}
	return projects, nil
}

func (s *ProjectService) ListBySeller(ctx context.Context, sellerID string) ([]*model.Project, error) {
	projects, err := s.projects.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, Internal("could not list projects")
	}
	return projects, nil
}

// ListOpen 所有可投标的项目
func (s *ProjectService) ListOpen(ctx context.Context) ([]*model.Project, error) {
	projects, err := s.projects.ListByStatus(ctx, model.ProjectPending)
	if err != nil {
		return nil, Internal("could not list projects")
	}
	return projects, nil
}

// SelectSeller 买家选中卖家：PENDING → IN_PROGRESS。
// 卖家绑定和状态推进是同一条条件更新，两个并发调用恰好一个成功，
// 另一个拿到 Conflict。要求目标卖家已有报价。
func (s *ProjectService) SelectSeller(ctx context.Context, buyerID, projectID, sellerID string) (*model.Project, notify.Effects, error) {
	var fx notify.Effects

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, fx, Internal("could not load project")
	}
	if project == nil {
		return nil, fx, NotFound("project %s not found", projectID)
	}
	if project.BuyerID != buyerID {
		return nil, fx, Forbidden("only the project owner can select a seller")
	}
	if project.Status != model.ProjectPending {
		return nil, fx, Conflict("project is %s, seller selection requires PENDING", project.Status)
	}

	bid, err := s.bids.FindByProjectAndSeller(ctx, projectID, sellerID)
	if err != nil {
		return nil, fx, Internal("could not load bid")
	}
	if bid == nil {
		return nil, fx, Conflict("seller has no bid on this project")
	}

	ok, err := s.projects.AssignSeller(ctx, projectID, sellerID)
	if err != nil {
		s.logger.Error("Failed to assign seller",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return nil, fx, Internal("could not select seller")
	}
	if !ok {
		// 条件更新没改到行：另一个并发调用抢先推进了状态
		return nil, fx, Conflict("project is no longer PENDING")
	}

	project.SellerID = &sellerID
	project.Status = model.ProjectInProgress

	s.logger.Info("Seller selected",
		zap.String("project_id", projectID),
		zap.String("seller_id", sellerID),
	)

	seller, err := s.users.FindByID(ctx, sellerID)
	if err != nil || seller == nil {
		s.logger.Warn("Seller lookup failed, skipping selection email",
			zap.String("seller_id", sellerID),
			zap.Error(err),
		)
	} else {
		buyerName := ""
		if buyer, err := s.users.FindByID(ctx, buyerID); err == nil && buyer != nil {
			buyerName = buyer.Name
		}
		fx.Mail = append(fx.Mail, notify.SellerSelection{
			SellerEmail:  seller.Email,
			SellerName:   seller.Name,
			ProjectTitle: project.Title,
			BuyerName:    buyerName,
		})
	}
	fx.Events = append(fx.Events, notify.Event{
		RoutingKey: mq.RoutingSellerSelected,
		Payload: mq.SellerSelectedPayload{
			ProjectID: projectID,
			BuyerID:   buyerID,
			SellerID:  sellerID,
		},
	})
	return project, fx, nil
}

// Complete 受托卖家交付完成：IN_PROGRESS → COMPLETED
func (s *ProjectService) Complete(ctx context.Context, sellerID, projectID string) (*model.Project, notify.Effects, error) {
	var fx notify.Effects

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, fx, Internal("could not load project")
	}
	if project == nil {
		return nil, fx, NotFound("project %s not found", projectID)
	}
	if !project.SellerAssigned() || *project.SellerID != sellerID {
		return nil, fx, Forbidden("only the assigned seller can complete the project")
	}
	if project.Status != model.ProjectInProgress {
		return nil, fx, Conflict("project is %s, completion requires IN_PROGRESS", project.Status)
	}

	ok, err := s.projects.CompareAndSwapStatus(ctx, projectID, model.ProjectInProgress, model.ProjectCompleted)
	if err != nil {
		return nil, fx, Internal("could not complete project")
	}
	if !ok {
		return nil, fx, Conflict("project is no longer IN_PROGRESS")
	}
	project.Status = model.ProjectCompleted

	s.logger.Info("Project completed",
		zap.String("project_id", projectID),
		zap.String("seller_id", sellerID),
	)

	buyer, berr := s.users.FindByID(ctx, project.BuyerID)
	seller, serr := s.users.FindByID(ctx, sellerID)
	if berr != nil || serr != nil || buyer == nil || seller == nil {
		s.logger.Warn("User lookup failed, skipping completion email",
			zap.String("project_id", projectID),
		)
	} else {
		fx.Mail = append(fx.Mail, notify.ProjectCompleted{
			BuyerEmail:   buyer.Email,
			SellerEmail:  seller.Email,
			ProjectTitle: project.Title,
			BuyerName:    buyer.Name,
			SellerName:   seller.Name,
		})
	}
	fx.Events = append(fx.Events, notify.Event{
		RoutingKey: mq.RoutingProjectCompleted,
		Payload: mq.ProjectCompletedPayload{
			ProjectID: projectID,
			SellerID:  sellerID,
		},
	})
	return project, fx, nil
}

// AddDeliverable 受托卖家在 IN_PROGRESS 阶段上传交付物
func (s *ProjectService) AddDeliverable(ctx context.Context, sellerID, projectID, fileURL string) (*model.Deliverable, error) {
	if fileURL == "" {
		return nil, Invalid("file_url is required")
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, Internal("could not load project")
	}
	if project == nil {
		return nil, NotFound("project %s not found", projectID)
	}
	if !project.SellerAssigned() || *project.SellerID != sellerID {
		return nil, Forbidden("only the assigned seller can upload deliverables")
	}
	if project.Status != model.ProjectInProgress {
		return nil, Conflict("project is %s, uploads require IN_PROGRESS", project.Status)
	}

	d := &model.Deliverable{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		FileURL:   fileURL,
	}
	if err := s.deliverables.Insert(ctx, d); err != nil {
		s.logger.Error("Failed to insert deliverable", zap.Error(err))
		return nil, Internal("could not save deliverable")
	}
	return d, nil
}

func (s *ProjectService) ListDeliverables(ctx context.Context, projectID string) ([]*model.Deliverable, error) {
	items, err := s.deliverables.ListByProject(ctx, projectID)
	if err != nil {
		return nil, Internal("could not list deliverables")
	}
	return items, nil
}

// Cancel 买家取消项目。只允许从 PENDING 或 IN_PROGRESS 进入 CANCELLED，
// 从 IN_PROGRESS 取消会同时解除卖家绑定。
func (s *ProjectService) Cancel(ctx context.Context, buyerID, projectID string) (*model.Project, notify.Effects, error) {
	var fx notify.Effects

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, fx, Internal("could not load project")
	}
	if project == nil {
		return nil, fx, NotFound("project %s not found", projectID)
	}
	if project.BuyerID != buyerID {
		return nil, fx, Forbidden("only the project owner can cancel")
	}
	if project.Status != model.ProjectPending && project.Status != model.ProjectInProgress {
		return nil, fx, Conflict("project is %s, cancellation requires PENDING or IN_PROGRESS", project.Status)
	}

	ok, err := s.projects.Cancel(ctx, projectID, project.Status)
	if err != nil {
		return nil, fx, Internal("could not cancel project")
	}
	if !ok {
		return nil, fx, Conflict("project status changed, cancellation lost the race")
	}
	project.Status = model.ProjectCancelled
	project.SellerID = nil

	s.logger.Info("Project cancelled", zap.String("project_id", projectID))

	fx.Events = append(fx.Events, notify.Event{
		RoutingKey: mq.RoutingProjectCancelled,
		Payload: mq.ProjectCancelledPayload{
			ProjectID: projectID,
			BuyerID:   buyerID,
		},
	})
	return project, fx, nil
}
