package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"buildboard/internal/model"
)

type BidRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewBidRepository(db *pgxpool.Pool, logger *zap.Logger) *BidRepository {
	return &BidRepository{
		db:     db,
		logger: logger,
	}
}

// Insert 写入报价。同一卖家对同一项目只能有一条，靠唯一索引兜底。
func (r *BidRepository) Insert(ctx context.Context, b *model.Bid) error {
	query := `
        INSERT INTO bids (id, project_id, seller_id, bid_amount, estimated_completion_time, message, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
    `
	_, err := r.db.Exec(ctx, query,
		b.ID, b.ProjectID, b.SellerID, b.BidAmount, b.EstimatedCompletionTime, b.Message,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		r.logger.Error("Failed to insert bid",
			zap.String("project_id", b.ProjectID),
			zap.String("seller_id", b.SellerID),
			zap.Error(err),
		)
	}
	return err
}

func (r *BidRepository) FindByID(ctx context.Context, id string) (*model.Bid, error) {
	query := `
        SELECT id, project_id, seller_id, bid_amount, estimated_completion_time, message, created_at, updated_at
        FROM bids WHERE id = $1
    `
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *BidRepository) FindByProjectAndSeller(ctx context.Context, projectID, sellerID string) (*model.Bid, error) {
	query := `
        SELECT id, project_id, seller_id, bid_amount, estimated_completion_time, message, created_at, updated_at
        FROM bids WHERE project_id = $1 AND seller_id = $2
    `
	return r.scanOne(r.db.QueryRow(ctx, query, projectID, sellerID))
}

func (r *BidRepository) ListByProject(ctx context.Context, projectID string) ([]*model.Bid, error) {
	query := `
        SELECT id, project_id, seller_id, bid_amount, estimated_completion_time, message, created_at, updated_at
        FROM bids WHERE project_id = $1 ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*model.Bid
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(
			&b.ID, &b.ProjectID, &b.SellerID, &b.BidAmount,
			&b.EstimatedCompletionTime, &b.Message, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bids = append(bids, &b)
	}
	return bids, rows.Err()
}

func (r *BidRepository) Update(ctx context.Context, b *model.Bid) error {
	query := `
        UPDATE bids SET bid_amount = $2, estimated_completion_time = $3, message = $4, updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, b.ID, b.BidAmount, b.EstimatedCompletionTime, b.Message)
	return err
}

func (r *BidRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM bids WHERE id = $1`, id)
	return err
}

func (r *BidRepository) scanOne(row pgx.Row) (*model.Bid, error) {
	var b model.Bid
	err := row.Scan(
		&b.ID, &b.ProjectID, &b.SellerID, &b.BidAmount,
		&b.EstimatedCompletionTime, &b.Message, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
