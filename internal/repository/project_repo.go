package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"buildboard/internal/model"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) error {
	r.logger.Debug("Inserting project",
		zap.String("buyer_id", p.BuyerID),
		zap.String("title", p.Title),
	)

	query := `
        INSERT INTO projects (id, buyer_id, title, description, budget_range, deadline, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
    `
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.BuyerID,
		p.Title,
		p.Description,
		p.BudgetRange,
		p.Deadline,
		p.Status,
	)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return err
	}
	return nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*model.Project, error) {
	query := `
        SELECT id, buyer_id, seller_id, title, description, budget_range, deadline, status, final_amount, created_at, updated_at
        FROM projects WHERE id = $1
    `
	var p model.Project
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.BuyerID, &p.SellerID, &p.Title, &p.Description,
		&p.BudgetRange, &p.Deadline, &p.Status, &p.FinalAmount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AssignSeller 原子地绑定卖家并推进状态：PENDING → IN_PROGRESS。
// 条件写在 WHERE 上，两个并发调用只有一个能改到行。
func (r *ProjectRepository) AssignSeller(ctx context.Context, projectID, sellerID string) (bool, error) {
	query := `
        UPDATE projects SET seller_id = $2, status = $3, updated_at = NOW()
        WHERE id = $1 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, projectID, sellerID, model.ProjectInProgress, model.ProjectPending)
	if err != nil {
		r.logger.Error("Failed to assign seller",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CompareAndSwapStatus 条件更新状态，返回是否改到了行
func (r *ProjectRepository) CompareAndSwapStatus(ctx context.Context, projectID, from, to string) (bool, error) {
	query := `
        UPDATE projects SET status = $3, updated_at = NOW()
        WHERE id = $1 AND status = $2
    `
	tag, err := r.db.Exec(ctx, query, projectID, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel 条件取消：仅当当前状态为 from 时置 CANCELLED，同时解除
// 卖家绑定，保证 seller_id 只在进行中和完成态上有值。
func (r *ProjectRepository) Cancel(ctx context.Context, projectID, from string) (bool, error) {
	query := `
        UPDATE projects SET status = $3, seller_id = NULL, updated_at = NOW()
        WHERE id = $1 AND status = $2
    `
	tag, err := r.db.Exec(ctx, query, projectID, from, model.ProjectCancelled)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetPaymentPending 记录成交金额并推进状态：COMPLETED → PAYMENT_PENDING
func (r *ProjectRepository) SetPaymentPending(ctx context.Context, projectID string, finalAmount float64) (bool, error) {
	query := `
        UPDATE projects SET status = $3, final_amount = $2, updated_at = NOW()
        WHERE id = $1 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, projectID, finalAmount, model.ProjectPaymentPending, model.ProjectCompleted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ProjectRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*model.Project, error) {
	query := `
        SELECT id, buyer_id, seller_id, title, description, budget_range, deadline, status, final_amount, created_at, updated_at
        FROM projects WHERE buyer_id = $1 ORDER BY created_at DESC
    `
	return r.queryProjects(ctx, query, buyerID)
}

func (r *ProjectRepository) ListBySeller(ctx context.Context, sellerID string) ([]*model.Project, error) {
	query := `
        SELECT id, buyer_id, seller_id, title, description, budget_range, deadline, status, final_amount, created_at, updated_at
        FROM projects WHERE seller_id = $1 ORDER BY created_at DESC
    `
	return r.queryProjects(ctx, query, sellerID)
}

func (r *ProjectRepository) ListByStatus(ctx context.Context, status string) ([]*model.Project, error) {
	query := `
        SELECT id, buyer_id, seller_id, title, description, budget_range, deadline, status, final_amount, created_at, updated_at
        FROM projects WHERE status = $1 ORDER BY created_at DESC
    `
	return r.queryProjects(ctx, query, status)
}

func (r *ProjectRepository) queryProjects(ctx context.Context, query string, args ...any) ([]*model.Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(
			&p.ID, &p.BuyerID, &p.SellerID, &p.Title, &p.Description,
			&p.BudgetRange, &p.Deadline, &p.Status, &p.FinalAmount,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}
